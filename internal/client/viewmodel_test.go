package client

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"inventory-keeper/internal/domain"
)

type fakeAPI struct {
	items     []domain.Item
	listErr   error
	addErr    error
	removeErr error
	listCalls int
}

func (f *fakeAPI) List(ctx context.Context) ([]domain.Item, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Item(nil), f.items...), nil
}

func (f *fakeAPI) Add(ctx context.Context, item domain.Item) (int64, error) {
	if f.addErr != nil {
		return 0, f.addErr
	}
	item.ID = int64(len(f.items) + 1)
	f.items = append(f.items, item)
	return item.ID, nil
}

func (f *fakeAPI) Remove(ctx context.Context, id int64) (int64, error) {
	return 0, f.removeErr
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestLoadItems_KeepsStateOnFailure(t *testing.T) {
	api := &fakeAPI{items: []domain.Item{{ID: 1, Brand: "Ford"}}}
	vm := NewViewModel(api, nil, quietLogger())
	if err := vm.LoadItems(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}

	api.listErr = errors.New("offline")
	if err := vm.LoadItems(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(vm.Inventory) != 1 || vm.IsLoading {
		t.Fatalf("state changed on failure: %+v loading=%v", vm.Inventory, vm.IsLoading)
	}
}

func TestLoadItems_KeepsServerOrder(t *testing.T) {
	api := &fakeAPI{items: []domain.Item{
		{ID: 3, Year: "2020", Brand: "Toyota"},
		{ID: 1, Year: "1927", Brand: "Ford"},
	}}
	vm := NewViewModel(api, nil, quietLogger())
	if err := vm.LoadItems(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if vm.Inventory[0].ID != 3 || vm.Inventory[1].ID != 1 {
		t.Fatalf("inventory reordered: %+v", vm.Inventory)
	}
}

func TestAddItem_FailureKeepsForm(t *testing.T) {
	api := &fakeAPI{addErr: errors.New("boom")}
	vm := NewViewModel(api, nil, quietLogger())
	vm.Brand, vm.Model = "Toyota", "Corolla"

	if err := vm.AddItem(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if vm.Brand != "Toyota" || vm.Model != "Corolla" {
		t.Fatal("form cleared after failed add")
	}
	if api.listCalls != 0 {
		t.Fatalf("reloaded after failed add: %d", api.listCalls)
	}
}

func TestConfirmDeleteItem_UnknownID(t *testing.T) {
	vm := NewViewModel(&fakeAPI{}, nil, quietLogger())
	if err := vm.ConfirmDeleteItem(42); !errors.Is(err, ErrItemNotLoaded) {
		t.Fatalf("expected ErrItemNotLoaded, got %v", err)
	}
	if vm.SelectedItem != "" || vm.SelectedItemID != 0 {
		t.Fatal("selection set for unknown id")
	}
}

func TestDeleteItem_FailureSkipsReload(t *testing.T) {
	api := &fakeAPI{removeErr: errors.New("gone")}
	vm := NewViewModel(api, nil, quietLogger())
	if err := vm.DeleteItem(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}
	if api.listCalls != 0 {
		t.Fatalf("reloaded after failed delete: %d", api.listCalls)
	}
}
