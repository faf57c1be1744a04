package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"inventory-keeper/internal/domain"
	"inventory-keeper/internal/repository"
)

const createInventoryTable = `
CREATE TABLE IF NOT EXISTS inventory (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	brand TEXT NOT NULL,
	model TEXT NOT NULL,
	year TEXT NOT NULL DEFAULT '',
	color TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_inventory_user_id ON inventory(user_id);
`

type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) repository.ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createInventoryTable); err != nil {
		return fmt.Errorf("create inventory table: %w", err)
	}
	return nil
}

func (r *ItemRepository) List(ctx context.Context, userID string) ([]domain.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, brand, model, year, color
FROM inventory
WHERE user_id = ?
ORDER BY year, brand, model`, userID)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *ItemRepository) Count(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.QueryRowContext(ctx, `
SELECT count(*)
FROM inventory
WHERE user_id = ?`, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count inventory: %w", err)
	}
	return total, nil
}

func (r *ItemRepository) Search(ctx context.Context, userID, term string) ([]domain.Item, error) {
	pattern := repository.ContainsPattern(term)
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, brand, model, year, color
FROM inventory
WHERE user_id = ?
AND (fold(brand) LIKE fold(?) ESCAPE '\' OR fold(model) LIKE fold(?) ESCAPE '\')
ORDER BY year, brand, model`, userID, pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search inventory: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO inventory (user_id, brand, model, year, color)
VALUES (?, ?, ?, ?, ?)`,
		item.UserID,
		item.Brand,
		item.Model,
		item.Year,
		item.Color,
	)
	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("item last insert id: %w", err)
	}
	item.ID = id
	return id, nil
}

func (r *ItemRepository) Update(ctx context.Context, item *domain.Item) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
UPDATE inventory
SET brand=?, model=?, year=?, color=?
WHERE id=? AND user_id=?`,
		item.Brand,
		item.Model,
		item.Year,
		item.Color,
		item.ID,
		item.UserID,
	)
	if err != nil {
		return false, fmt.Errorf("update item: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("item update rows affected: %w", err)
	}
	return aff > 0, nil
}

func (r *ItemRepository) Delete(ctx context.Context, userID string, id int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM inventory WHERE user_id=? AND id=?`, userID, id)
	if err != nil {
		return 0, fmt.Errorf("delete item: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("item delete rows affected: %w", err)
	}
	return aff, nil
}

func scanItems(rows *sql.Rows) ([]domain.Item, error) {
	items := []domain.Item{}
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(&item.ID, &item.UserID, &item.Brand, &item.Model, &item.Year, &item.Color); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
