package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"inventory-keeper/internal/domain"
	"inventory-keeper/internal/repository"
)

// Usernames compare case-insensitively, so "Alice" and "alice" are one account.
const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE COLLATE NOCASE,
	password_hash TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const userColumns = `id, username, password_hash, created_at, updated_at`

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (int64, error) {
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		user.Username, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if isConstraintUnique(err) {
		return 0, fmt.Errorf("%w: %s", repository.ErrDuplicateUser, user.Username)
	}
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}

	if user.ID, err = res.LastInsertId(); err != nil {
		return 0, fmt.Errorf("user last insert id: %w", err)
	}
	return user.ID, nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.queryUser(ctx, `username = ?`, username)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.queryUser(ctx, `id = ?`, id)
}

func (r *UserRepository) queryUser(ctx context.Context, where string, arg any) (*domain.User, error) {
	var user domain.User
	err := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, repository.ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// isConstraintUnique accepts the primary code too, for connections without
// extended result codes. username is the only constraint a Go value can break.
func isConstraintUnique(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT
}
