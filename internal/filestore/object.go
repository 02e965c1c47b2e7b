package filestore

import "time"

// ObjectInfo describes a single stored export.
type ObjectInfo struct {
	// Bucket holding the object.
	Bucket string

	// Key is the full object path within the bucket.
	Key string

	// Size is the byte size of the object. -1 if unknown.
	Size int64

	ContentType string

	// ETag is the object's entity tag, as returned by the backend.
	ETag string

	LastModified time.Time
}
