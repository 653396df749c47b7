// Package storage persists photo payloads keyed by opaque identifiers.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"my-trips/internal/config"
)

// ErrObjectNotFound is returned when no payload is stored under the key
var ErrObjectNotFound = errors.New("object not found")

// Object is a stored payload opened for reading
type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// FileStore stores and retrieves binary payloads
type FileStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
}

// New creates the file store selected by cfg.Driver
func New(ctx context.Context, cfg config.StorageConfig) (FileStore, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(ctx, cfg.S3)
	case "minio":
		return NewMinioStore(ctx, cfg.Minio)
	case "local":
		return NewLocalStore(cfg.Local.Dir)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid object key %q", key)
	}
	return nil
}
