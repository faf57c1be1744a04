package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"inventory-keeper/internal/domain"
	"inventory-keeper/internal/repository"
)

var (
	// ErrMissingUser indicates an operation was attempted without an owner.
	ErrMissingUser = errors.New("authenticated user is required")
	// ErrInvalidItem indicates the submitted item fields are unusable.
	ErrInvalidItem = errors.New("invalid item")
)

// ItemInput carries the user editable fields of an inventory item.
type ItemInput struct {
	Brand string
	Model string
	Year  string
	Color string
}

// ItemService exposes the per-user inventory operations.
type ItemService interface {
	List(ctx context.Context, userID string) ([]domain.Item, error)
	Total(ctx context.Context, userID string) (int64, error)
	Find(ctx context.Context, userID, search string) ([]domain.Item, error)
	Add(ctx context.Context, userID string, input ItemInput) (int64, error)
	// Update returns matched=false when no row owned by userID has that id.
	Update(ctx context.Context, userID string, id int64, input ItemInput) (int64, bool, error)
	// Remove returns the number of rows deleted; zero for missing or foreign ids.
	Remove(ctx context.Context, userID string, id int64) (int64, error)
}

type itemService struct {
	items repository.ItemRepository
}

func NewItemService(items repository.ItemRepository) ItemService {
	return &itemService{items: items}
}

func (s *itemService) List(ctx context.Context, userID string) ([]domain.Item, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	return s.items.List(ctx, userID)
}

func (s *itemService) Total(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, ErrMissingUser
	}
	return s.items.Count(ctx, userID)
}

func (s *itemService) Find(ctx context.Context, userID, search string) ([]domain.Item, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	return s.items.Search(ctx, userID, search)
}

func (s *itemService) Add(ctx context.Context, userID string, input ItemInput) (int64, error) {
	if userID == "" {
		return 0, ErrMissingUser
	}
	item, err := buildItem(userID, 0, input)
	if err != nil {
		return 0, err
	}
	return s.items.Create(ctx, item)
}

func (s *itemService) Update(ctx context.Context, userID string, id int64, input ItemInput) (int64, bool, error) {
	if userID == "" {
		return 0, false, ErrMissingUser
	}
	if id <= 0 {
		return 0, false, fmt.Errorf("%w: id must be positive", ErrInvalidItem)
	}
	item, err := buildItem(userID, id, input)
	if err != nil {
		return 0, false, err
	}
	matched, err := s.items.Update(ctx, item)
	if err != nil {
		return 0, false, err
	}
	return id, matched, nil
}

func (s *itemService) Remove(ctx context.Context, userID string, id int64) (int64, error) {
	if userID == "" {
		return 0, ErrMissingUser
	}
	if id <= 0 {
		return 0, fmt.Errorf("%w: id must be positive", ErrInvalidItem)
	}
	return s.items.Delete(ctx, userID, id)
}

func buildItem(userID string, id int64, input ItemInput) (*domain.Item, error) {
	item := &domain.Item{
		ID:     id,
		UserID: userID,
		Brand:  strings.TrimSpace(input.Brand),
		Model:  strings.TrimSpace(input.Model),
		Year:   strings.TrimSpace(input.Year),
		Color:  strings.TrimSpace(input.Color),
	}
	if item.Brand == "" {
		return nil, fmt.Errorf("%w: brand is required", ErrInvalidItem)
	}
	if item.Model == "" {
		return nil, fmt.Errorf("%w: model is required", ErrInvalidItem)
	}
	return item, nil
}
