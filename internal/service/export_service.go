package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"inventory-keeper/internal/domain"
	"inventory-keeper/internal/storage"
)

var (
	// ErrStorageNotConfigured is returned when no snapshot bucket is available.
	ErrStorageNotConfigured = errors.New("storage service not configured")
	// ErrExportNotFound is returned for keys outside the caller's snapshots.
	ErrExportNotFound = errors.New("export not found")
)

const defaultLinkTTL = 15 * time.Minute

// Export describes a snapshot written to object storage.
type Export struct {
	Key        string
	Location   string
	Total      int
	ExportedAt time.Time
}

// ExportService writes and manages per-user inventory snapshots.
type ExportService interface {
	Export(ctx context.Context, userID string) (*Export, error)
	ListExports(ctx context.Context, userID string) ([]storage.ObjectInfo, error)
	DeleteExports(ctx context.Context, userID string) error
	// DownloadURL returns a temporary link to one of the user's snapshots.
	DownloadURL(ctx context.Context, userID, key string) (string, error)
}

type ExportConfig struct {
	Bucket    string
	KeyPrefix string
	// LinkTTL bounds download links; zero means 15 minutes.
	LinkTTL time.Duration
	Now     func() time.Time
}

type exportService struct {
	items ItemService
	store storage.Service
	cfg   ExportConfig
}

func NewExportService(items ItemService, store storage.Service, cfg ExportConfig) ExportService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = defaultLinkTTL
	}
	cfg.KeyPrefix = strings.Trim(cfg.KeyPrefix, "/")
	return &exportService{
		items: items,
		store: store,
		cfg:   cfg,
	}
}

type snapshot struct {
	UserID     string         `json:"user_id"`
	ExportedAt time.Time      `json:"exported_at"`
	Total      int            `json:"total"`
	Items      []snapshotItem `json:"items"`
}

type snapshotItem struct {
	ID    int64  `json:"id"`
	Brand string `json:"brand"`
	Model string `json:"model"`
	Year  string `json:"year"`
	Color string `json:"color"`
}

func (s *exportService) Export(ctx context.Context, userID string) (*Export, error) {
	if err := s.ready(userID); err != nil {
		return nil, err
	}

	items, err := s.items.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.cfg.Now().UTC()
	doc := snapshot{
		UserID:     userID,
		ExportedAt: now,
		Total:      len(items),
		Items:      toSnapshotItems(items),
	}
	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	key := s.userPrefix(userID) + now.Format("20060102T150405.000Z") + ".json"
	location, err := s.store.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}

	return &Export{
		Key:        key,
		Location:   location,
		Total:      len(items),
		ExportedAt: now,
	}, nil
}

func (s *exportService) ListExports(ctx context.Context, userID string) ([]storage.ObjectInfo, error) {
	if err := s.ready(userID); err != nil {
		return nil, err
	}
	return s.store.ListObjects(ctx, s.cfg.Bucket, s.userPrefix(userID))
}

func (s *exportService) DeleteExports(ctx context.Context, userID string) error {
	if err := s.ready(userID); err != nil {
		return err
	}
	return s.store.DeletePrefix(ctx, s.cfg.Bucket, s.userPrefix(userID))
}

func (s *exportService) DownloadURL(ctx context.Context, userID, key string) (string, error) {
	if err := s.ready(userID); err != nil {
		return "", err
	}
	prefix := s.userPrefix(userID)
	if !strings.HasPrefix(key, prefix) || path.Clean(key) != key || len(key) == len(prefix) {
		return "", ErrExportNotFound
	}
	return s.store.GetObjectURL(ctx, s.cfg.Bucket, key, s.cfg.LinkTTL)
}

func (s *exportService) ready(userID string) error {
	if s.store == nil || s.cfg.Bucket == "" {
		return ErrStorageNotConfigured
	}
	if userID == "" {
		return ErrMissingUser
	}
	return nil
}

// userPrefix ends in a slash so user "1" never matches user "12".
func (s *exportService) userPrefix(userID string) string {
	return path.Join(s.cfg.KeyPrefix, userID) + "/"
}

func toSnapshotItems(items []domain.Item) []snapshotItem {
	out := make([]snapshotItem, len(items))
	for i, item := range items {
		out[i] = snapshotItem{
			ID:    item.ID,
			Brand: item.Brand,
			Model: item.Model,
			Year:  item.Year,
			Color: item.Color,
		}
	}
	return out
}
