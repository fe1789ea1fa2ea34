// Package storage defines the Backend interface for object storage and the
// snapshot store that persists namespace snapshots through a backend.
package storage

import (
	"context"
	"io"
)

// Backend is the interface for object storage backends (local filesystem,
// S3). Missing objects are reported with errors wrapping fs.ErrNotExist.
type Backend interface {
	// GetObject retrieves a whole object and its size.
	GetObject(ctx context.Context, key string) (io.ReadCloser, int64, error)

	// PutObject uploads content to the given key, replacing any object there.
	PutObject(ctx context.Context, key string, body io.Reader, size int64) error

	// DeleteObject removes an object by key. Deleting a missing object is
	// not an error.
	DeleteObject(ctx context.Context, key string) error

	// CopyObject copies an object from srcKey to dstKey.
	CopyObject(ctx context.Context, srcKey, dstKey string) error

	// ObjectExists checks if an object exists at the given key.
	ObjectExists(ctx context.Context, key string) (bool, error)

	// Type returns the backend type identifier ("local", "s3").
	Type() string

	// Close releases any resources held by the backend.
	Close() error
}
