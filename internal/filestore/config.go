package filestore

import (
	"time"

	"github.com/koustreak/DryDB/internal/errs"
)

// Config locates an S3-compatible server and the bucket that receives
// exported files.
type Config struct {
	Endpoint  string // host:port, e.g. "localhost:9000"
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string

	Bucket string
	// URLTTL bounds the lifetime of presigned download links.
	URLTTL time.Duration
}

func (c *Config) Validate() error {
	if c == nil || c.Endpoint == "" {
		return errs.New(errs.ErrKindInvalidInput, "object store endpoint is required")
	}
	if c.Bucket == "" {
		return errs.New(errs.ErrKindInvalidInput, "object store bucket is required")
	}
	if c.URLTTL <= 0 {
		return errs.Newf(errs.ErrKindInvalidInput, "presign ttl must be positive, got %s", c.URLTTL)
	}
	return nil
}
