// Package minio provides a MinIO implementation of filestore.Store.
//
// Usage:
//
//	store, err := minio.New(ctx, &filestore.Config{
//	    Endpoint: "localhost:9000", AccessKey: "minioadmin", SecretKey: "minioadmin",
//	    Bucket: "exports", URLTTL: time.Hour,
//	})
//	if err != nil { ... }
//	defer store.Close()
package minio

import (
	"context"
	"io"
	"time"

	"github.com/koustreak/DryDB/internal/errs"
	"github.com/koustreak/DryDB/internal/filestore"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Driver is a MinIO implementation of filestore.Store.
// It is safe for concurrent use by multiple goroutines.
type Driver struct {
	client *miniogo.Client
	region string
}

// New connects to MinIO using the provided Config and returns a Driver.
// It calls Ping to validate the connection before returning.
func New(ctx context.Context, cfg *filestore.Config) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := miniogo.New(cfg.Endpoint, &miniogo.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "failed to create minio client", err)
	}

	d := &Driver{client: client, region: cfg.Region}

	if err := d.Ping(ctx); err != nil {
		return nil, err
	}

	return d, nil
}

// Ping verifies the MinIO server is reachable by listing buckets.
func (d *Driver) Ping(ctx context.Context) error {
	if _, err := d.client.ListBuckets(ctx); err != nil {
		return mapError(err, "ping failed")
	}
	return nil
}

// Close is a no-op; the SDK client holds no persistent connections.
func (d *Driver) Close() error {
	return nil
}

func (d *Driver) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := d.client.BucketExists(ctx, bucket)
	if err != nil {
		return mapError(err, "failed to check bucket")
	}
	if exists {
		return nil
	}
	if err := d.client.MakeBucket(ctx, bucket, miniogo.MakeBucketOptions{Region: d.region}); err != nil {
		return mapError(err, "failed to create bucket")
	}
	return nil
}

func (d *Driver) PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (*filestore.ObjectInfo, error) {
	info, err := d.client.PutObject(ctx, bucket, key, r, size, miniogo.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return nil, mapError(err, "failed to upload object")
	}

	return &filestore.ObjectInfo{
		Bucket:       info.Bucket,
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  contentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

// StatObject returns metadata for the object at key inside bucket
// without downloading its content.
func (d *Driver) StatObject(ctx context.Context, bucket, key string) (*filestore.ObjectInfo, error) {
	stat, err := d.client.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, "failed to stat object")
	}

	return &filestore.ObjectInfo{
		Bucket:       bucket,
		Key:          stat.Key,
		Size:         stat.Size,
		ContentType:  stat.ContentType,
		ETag:         stat.ETag,
		LastModified: stat.LastModified,
	}, nil
}

// PresignGetURL returns a time-limited public download URL for the object.
func (d *Driver) PresignGetURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	u, err := d.client.PresignedGetObject(ctx, bucket, key, ttl, nil)
	if err != nil {
		return "", mapError(err, "failed to generate presigned URL")
	}
	return u.String(), nil
}

var _ filestore.Store = (*Driver)(nil)
