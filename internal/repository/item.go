package repository

import (
	"context"

	"inventory-keeper/internal/domain"
)

// ItemRepository exposes persistence operations for inventory items.
// Every method is scoped by the owning user id.
type ItemRepository interface {
	Init(ctx context.Context) error
	List(ctx context.Context, userID string) ([]domain.Item, error)
	Count(ctx context.Context, userID string) (int64, error)
	Search(ctx context.Context, userID, term string) ([]domain.Item, error)
	Create(ctx context.Context, item *domain.Item) (int64, error)
	// Update reports whether a row owned by item.UserID matched item.ID.
	Update(ctx context.Context, item *domain.Item) (bool, error)
	// Delete returns the number of rows removed.
	Delete(ctx context.Context, userID string, id int64) (int64, error)
}
