package storage

import (
	"context"
	"io"
	"time"
)

type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified *time.Time
}

// Service stores inventory snapshots in remote object storage.
type Service interface {
	// PutObject uploads body under key and returns its s3:// location.
	PutObject(ctx context.Context, bucket, key string, body io.Reader, contentType string) (string, error)
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	DeletePrefix(ctx context.Context, bucket, prefix string) error
	// GetObjectURL returns a time limited download link for key.
	GetObjectURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}
