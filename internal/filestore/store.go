// Package filestore defines the object storage sink that receives exported
// result files.
//
// Providers implement Store; callers depend only on this package.
//
//	store, err := minio.New(ctx, cfg)
//	if err != nil { ... }
//	defer store.Close()
//
//	info, err := store.PutObject(ctx, "exports", "query_results.xlsx", f, size, filestore.ContentTypeXLSX)
package filestore

import (
	"context"
	"io"
	"time"
)

// ContentTypeXLSX is the MIME type of spreadsheet exports.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Store is the interface every storage provider implements.
type Store interface {
	// Ping verifies the storage backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any held resources.
	Close() error

	// EnsureBucket creates bucket when it does not exist yet.
	EnsureBucket(ctx context.Context, bucket string) error

	// PutObject uploads size bytes from r to key inside bucket. A negative
	// size streams until EOF.
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*ObjectInfo, error)

	// StatObject returns metadata for the object at key inside bucket
	// without downloading its content.
	StatObject(ctx context.Context, bucket, key string) (*ObjectInfo, error)

	// PresignGetURL returns a time-limited URL that allows anyone to download
	// the object at key inside bucket without credentials.
	PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}
