package domain

import (
	"strconv"
	"time"
)

// User represents an account that can sign in and own inventory.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Subject is the opaque owner key stored on inventory rows.
func (u User) Subject() string {
	return strconv.FormatInt(u.ID, 10)
}
