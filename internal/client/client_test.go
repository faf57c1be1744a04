package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"inventory-keeper/internal/auth"
	"inventory-keeper/internal/client"
	"inventory-keeper/internal/domain"
	apihttp "inventory-keeper/internal/http"
	"inventory-keeper/internal/repository/sqlite"
	"inventory-keeper/internal/service"
)

const secret = "let-me-in"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "inventory.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	itemRepo := sqlite.NewItemRepository(db)
	userRepo := sqlite.NewUserRepository(db)
	if err := itemRepo.Init(ctx); err != nil {
		t.Fatalf("init items: %v", err)
	}
	if err := userRepo.Init(ctx); err != nil {
		t.Fatalf("init users: %v", err)
	}

	users := service.NewUserService(userRepo, secret)
	for _, name := range []string{"alice", "bob"} {
		if _, err := users.Register(ctx, name, "password123", secret); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	tokens, err := auth.NewTokenManager("client-test", time.Hour, nil)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	router := gin.New()
	apihttp.NewHandler(apihttp.Config{
		Items:  service.NewItemService(itemRepo),
		Users:  users,
		Tokens: tokens,
		Logger: logger,
	}).RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func login(t *testing.T, srv *httptest.Server, username string) *client.Client {
	t.Helper()
	c := client.New(srv.URL, srv.Client())
	if err := c.Login(context.Background(), username, "password123"); err != nil {
		t.Fatalf("login %s: %v", username, err)
	}
	if c.Token() == "" {
		t.Fatal("expected token after login")
	}
	return c
}

func TestClient_Unauthenticated(t *testing.T) {
	srv := newServer(t)
	c := client.New(srv.URL, srv.Client())

	_, err := c.List(context.Background())
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}

	err = c.Login(context.Background(), "alice", "wrong-password")
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Message == "" {
		t.Fatalf("expected 401 on bad login, got %v", err)
	}
}

func TestClient_CRUD(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	alice := login(t, srv, "alice")
	bob := login(t, srv, "bob")

	id, err := alice.Add(ctx, domain.Item{Brand: "Toyota", Model: "Corolla", Year: "2020", Color: "Blue"})
	if err != nil || id <= 0 {
		t.Fatalf("add: id=%d err=%v", id, err)
	}
	if _, err := alice.Add(ctx, domain.Item{Brand: "Fiat", Model: "500 50%", Year: "2012"}); err != nil {
		t.Fatalf("add fiat: %v", err)
	}

	found, err := alice.Find(ctx, "50%")
	if err != nil || len(found) != 1 || found[0].Brand != "Fiat" {
		t.Fatalf("find with wildcard: %+v %v", found, err)
	}

	ok, err := alice.Update(ctx, domain.Item{ID: id, Brand: "Toyota", Model: "Corolla", Year: "2020", Color: "Green"})
	if err != nil || !ok {
		t.Fatalf("update: ok=%v err=%v", ok, err)
	}
	ok, err = bob.Update(ctx, domain.Item{ID: id, Brand: "x", Model: "y"})
	if err != nil || ok {
		t.Fatalf("foreign update: ok=%v err=%v", ok, err)
	}
	if n, err := bob.Remove(ctx, id); err != nil || n != 0 {
		t.Fatalf("foreign remove: n=%d err=%v", n, err)
	}

	total, err := alice.Total(ctx)
	if err != nil || total != 2 {
		t.Fatalf("total: %d %v", total, err)
	}
	if n, err := alice.Remove(ctx, id); err != nil || n != 1 {
		t.Fatalf("remove: n=%d err=%v", n, err)
	}
	items, err := alice.List(ctx)
	if err != nil || len(items) != 1 || items[0].Brand != "Fiat" {
		t.Fatalf("list after remove: %+v %v", items, err)
	}

	_, err = alice.Add(ctx, domain.Item{Model: "no brand"})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 on invalid item, got %v", err)
	}
}

type recordingConfirmer struct {
	label string
	id    int64
	calls int
}

func (r *recordingConfirmer) ConfirmDelete(label string, id int64) {
	r.label, r.id = label, id
	r.calls++
}

func TestViewModel_EndToEnd(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	c := login(t, srv, "alice")

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	confirm := &recordingConfirmer{}
	vm := client.NewViewModel(c, confirm, logger)

	if !vm.IsLoading || vm.HasItems() || vm.NoItems() {
		t.Fatal("fresh view-model should be loading")
	}
	if err := vm.LoadItems(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !vm.NoItems() {
		t.Fatal("expected empty inventory")
	}

	vm.Brand, vm.Model, vm.Year, vm.Color = "Toyota", "Corolla", "2020", "Blue"
	if err := vm.AddItem(ctx); err != nil {
		t.Fatalf("add: %v", err)
	}
	if vm.Brand != "" || vm.Model != "" || vm.Year != "" || vm.Color != "" {
		t.Fatal("form not cleared after add")
	}
	if !vm.HasItems() || len(vm.Inventory) != 1 {
		t.Fatalf("inventory not reloaded: %+v", vm.Inventory)
	}

	id := vm.Inventory[0].ID
	if err := vm.ConfirmDeleteItem(id); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if vm.SelectedItem != "2020 Toyota Corolla" || vm.SelectedItemID != id {
		t.Fatalf("selection = %q/%d", vm.SelectedItem, vm.SelectedItemID)
	}
	if confirm.calls != 1 || confirm.label != "2020 Toyota Corolla" || confirm.id != id {
		t.Fatalf("confirmer = %+v", confirm)
	}

	if err := vm.DeleteItem(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !vm.NoItems() {
		t.Fatalf("inventory not reloaded after delete: %+v", vm.Inventory)
	}
}
