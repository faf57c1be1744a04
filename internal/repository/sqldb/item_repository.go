package sqldb

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"inventory-keeper/internal/domain"
	"inventory-keeper/internal/repository"
)

var inventorySchema = map[Dialect][]string{
	Postgres: {
		`CREATE TABLE IF NOT EXISTS inventory (
	id BIGSERIAL PRIMARY KEY,
	user_id TEXT NOT NULL,
	brand TEXT NOT NULL,
	model TEXT NOT NULL,
	year TEXT NOT NULL DEFAULT '',
	color TEXT NOT NULL DEFAULT ''
)`,
		`CREATE INDEX IF NOT EXISTS idx_inventory_user_id ON inventory(user_id)`,
	},
	MySQL: {
		`CREATE TABLE IF NOT EXISTS inventory (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	user_id VARCHAR(191) NOT NULL,
	brand VARCHAR(255) NOT NULL,
	model VARCHAR(255) NOT NULL,
	year VARCHAR(32) NOT NULL DEFAULT '',
	color VARCHAR(64) NOT NULL DEFAULT '',
	INDEX idx_inventory_user_id (user_id)
)`,
	},
}

const selectItems = `SELECT id, user_id, brand, model, year, color FROM inventory`

type ItemRepository struct {
	store
}

func NewItemRepository(db *sqlx.DB, dialect Dialect) repository.ItemRepository {
	return &ItemRepository{store{db: db, dialect: dialect}}
}

func (r *ItemRepository) Init(ctx context.Context) error {
	if err := r.execAll(ctx, inventorySchema[r.dialect]); err != nil {
		return fmt.Errorf("create inventory table: %w", err)
	}
	return nil
}

func (r *ItemRepository) List(ctx context.Context, userID string) ([]domain.Item, error) {
	items := []domain.Item{}
	query := r.db.Rebind(selectItems + ` WHERE user_id = ? ORDER BY year, brand, model`)
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return items, nil
}

func (r *ItemRepository) Count(ctx context.Context, userID string) (int64, error) {
	var total int64
	query := r.db.Rebind(`SELECT count(*) FROM inventory WHERE user_id = ?`)
	if err := r.db.GetContext(ctx, &total, query, userID); err != nil {
		return 0, fmt.Errorf("count inventory: %w", err)
	}
	return total, nil
}

func (r *ItemRepository) Search(ctx context.Context, userID, term string) ([]domain.Item, error) {
	match := `(LOWER(brand) LIKE LOWER(?) OR LOWER(model) LIKE LOWER(?))`
	if r.dialect == Postgres {
		match = `(brand ILIKE ? OR model ILIKE ?)`
	}
	pattern := repository.ContainsPattern(term)

	items := []domain.Item{}
	query := r.db.Rebind(selectItems + ` WHERE user_id = ? AND ` + match + ` ORDER BY year, brand, model`)
	if err := r.db.SelectContext(ctx, &items, query, userID, pattern, pattern); err != nil {
		return nil, fmt.Errorf("search inventory: %w", err)
	}
	return items, nil
}

func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) (int64, error) {
	const insert = `INSERT INTO inventory (user_id, brand, model, year, color)
VALUES (:user_id, :brand, :model, :year, :color)`

	if r.dialect == Postgres {
		stmt, err := r.db.PrepareNamedContext(ctx, insert+` RETURNING id`)
		if err != nil {
			return 0, fmt.Errorf("prepare insert item: %w", err)
		}
		defer stmt.Close()

		var id int64
		if err := stmt.GetContext(ctx, &id, item); err != nil {
			return 0, fmt.Errorf("insert item: %w", err)
		}
		item.ID = id
		return id, nil
	}

	res, err := r.db.NamedExecContext(ctx, insert, item)
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
	res, err := r.db.NamedExecContext(ctx, `
UPDATE inventory
SET brand = :brand, model = :model, year = :year, color = :color
WHERE id = :id AND user_id = :user_id`, item)
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
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM inventory WHERE user_id = ? AND id = ?`), userID, id)
	if err != nil {
		return 0, fmt.Errorf("delete item: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("item delete rows affected: %w", err)
	}
	return aff, nil
}
