package client

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"inventory-keeper/internal/domain"
)

// ErrItemNotLoaded is returned when a delete is requested for an id that is
// not part of the loaded inventory.
var ErrItemNotLoaded = errors.New("item is not in the loaded inventory")

// Confirmer opens a delete confirmation for the selected item.
type Confirmer interface {
	ConfirmDelete(label string, id int64)
}

// API is the subset of Client the view-model needs.
type API interface {
	List(ctx context.Context) ([]domain.Item, error)
	Add(ctx context.Context, item domain.Item) (int64, error)
	Remove(ctx context.Context, id int64) (int64, error)
}

// ViewModel owns the client side inventory state. Every mutation is
// followed by a full reload; nothing is updated optimistically.
type ViewModel struct {
	Inventory []domain.Item
	IsLoading bool

	Brand string
	Model string
	Year  string
	Color string

	SelectedItem   string
	SelectedItemID int64

	api     API
	confirm Confirmer
	log     logrus.FieldLogger
}

func NewViewModel(api API, confirm Confirmer, log logrus.FieldLogger) *ViewModel {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ViewModel{
		IsLoading: true,
		api:       api,
		confirm:   confirm,
		log:       log,
	}
}

// LoadItems replaces Inventory with the server's list. On failure the
// previous state is kept.
func (vm *ViewModel) LoadItems(ctx context.Context) error {
	items, err := vm.api.List(ctx)
	if err != nil {
		vm.log.WithError(err).Error("load inventory")
		return err
	}
	vm.Inventory = items
	vm.IsLoading = false
	return nil
}

// AddItem submits the form fields, clears them on success and reloads.
func (vm *ViewModel) AddItem(ctx context.Context) error {
	item := domain.Item{Brand: vm.Brand, Model: vm.Model, Year: vm.Year, Color: vm.Color}
	if _, err := vm.api.Add(ctx, item); err != nil {
		vm.log.WithError(err).Error("add item")
		return err
	}
	vm.Brand, vm.Model, vm.Year, vm.Color = "", "", "", ""
	return vm.LoadItems(ctx)
}

func (vm *ViewModel) ConfirmDeleteItem(id int64) error {
	for _, item := range vm.Inventory {
		if item.ID != id {
			continue
		}
		vm.SelectedItem = item.Label()
		vm.SelectedItemID = item.ID
		if vm.confirm != nil {
			vm.confirm.ConfirmDelete(vm.SelectedItem, vm.SelectedItemID)
		}
		return nil
	}
	return ErrItemNotLoaded
}

func (vm *ViewModel) DeleteItem(ctx context.Context, id int64) error {
	if _, err := vm.api.Remove(ctx, id); err != nil {
		vm.log.WithError(err).WithField("item_id", id).Error("delete item")
		return err
	}
	return vm.LoadItems(ctx)
}

func (vm *ViewModel) HasItems() bool {
	return !vm.IsLoading && len(vm.Inventory) > 0
}

func (vm *ViewModel) NoItems() bool {
	return !vm.IsLoading && len(vm.Inventory) == 0
}
