package domain

// Item is a single inventory entry owned by exactly one user.
type Item struct {
	ID     int64  `db:"id"`
	UserID string `db:"user_id"`
	Brand  string `db:"brand"`
	Model  string `db:"model"`
	Year   string `db:"year"`
	Color  string `db:"color"`
}

// Label renders the short human description used in confirmations.
func (i Item) Label() string {
	return i.Year + " " + i.Brand + " " + i.Model
}
