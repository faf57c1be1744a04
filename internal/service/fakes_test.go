package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"inventory-keeper/internal/domain"
	"inventory-keeper/internal/repository"
	"inventory-keeper/internal/storage"
)

type memoryItemRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]domain.Item
	err    error
}

func newMemoryItemRepo() *memoryItemRepo {
	return &memoryItemRepo{rows: make(map[int64]domain.Item)}
}

func (m *memoryItemRepo) Init(ctx context.Context) error { return m.err }

func (m *memoryItemRepo) owned(userID string, match func(domain.Item) bool) []domain.Item {
	items := []domain.Item{}
	for _, item := range m.rows {
		if item.UserID == userID && match(item) {
			items = append(items, item)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Year != b.Year {
			return a.Year < b.Year
		}
		if a.Brand != b.Brand {
			return a.Brand < b.Brand
		}
		return a.Model < b.Model
	})
	return items
}

func (m *memoryItemRepo) List(ctx context.Context, userID string) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.owned(userID, func(domain.Item) bool { return true }), nil
}

func (m *memoryItemRepo) Count(ctx context.Context, userID string) (int64, error) {
	items, err := m.List(ctx, userID)
	return int64(len(items)), err
}

func (m *memoryItemRepo) Search(ctx context.Context, userID, term string) ([]domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	term = strings.ToLower(term)
	return m.owned(userID, func(item domain.Item) bool {
		return strings.Contains(strings.ToLower(item.Brand), term) || strings.Contains(strings.ToLower(item.Model), term)
	}), nil
}

func (m *memoryItemRepo) Create(ctx context.Context, item *domain.Item) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.nextID++
	item.ID = m.nextID
	m.rows[item.ID] = *item
	return item.ID, nil
}

func (m *memoryItemRepo) Update(ctx context.Context, item *domain.Item) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	current, ok := m.rows[item.ID]
	if !ok || current.UserID != item.UserID {
		return false, nil
	}
	m.rows[item.ID] = *item
	return true, nil
}

func (m *memoryItemRepo) Delete(ctx context.Context, userID string, id int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	current, ok := m.rows[id]
	if !ok || current.UserID != userID {
		return 0, nil
	}
	delete(m.rows, id)
	return 1, nil
}

var _ repository.ItemRepository = (*memoryItemRepo)(nil)

type memoryUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[string]domain.User)}
}

func (m *memoryUserRepo) Init(ctx context.Context) error { return nil }

func (m *memoryUserRepo) Create(ctx context.Context, user *domain.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Username]; exists {
		return 0, repository.ErrDuplicateUser
	}
	user.ID = int64(len(m.users) + 1)
	m.users[user.Username] = *user
	return user.ID, nil
}

func (m *memoryUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &user, nil
}

func (m *memoryUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			u := user
			return &u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	failPut error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (m *memoryStorage) PutObject(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error) {
	if m.failPut != nil {
		return "", m.failPut
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[bucket+"/"+key] = data
	m.types[bucket+"/"+key] = contentType
	return "s3://" + bucket + "/" + key, nil
}

func (m *memoryStorage) ListObjects(ctx context.Context, bucket, prefix string) ([]storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	objects := []storage.ObjectInfo{}
	now := time.Now()
	for full, data := range m.objects {
		key := strings.TrimPrefix(full, bucket+"/")
		if key == full || !strings.HasPrefix(key, prefix) {
			continue
		}
		objects = append(objects, storage.ObjectInfo{Key: key, Size: int64(len(data)), LastModified: &now})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (m *memoryStorage) DeletePrefix(ctx context.Context, bucket, prefix string) error {
	if prefix == "" {
		return errors.New("prefix is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for full := range m.objects {
		if strings.HasPrefix(full, bucket+"/"+prefix) {
			delete(m.objects, full)
		}
	}
	return nil
}

func (m *memoryStorage) GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	return fmt.Sprintf("https://%s.example.test/%s?expires=%d", bucket, key, int(expires.Seconds())), nil
}

func (m *memoryStorage) object(bucket, key string) *bytes.Reader {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil
	}
	return bytes.NewReader(data)
}
