// Package objstore provides the bucket-scoped object store used for raw and
// clean snapshots.
//
// Implementations:
//   - MinIO: any S3-compatible endpoint via minio-go
//   - Memory: in-process map, used by tests and dry runs
package objstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("objstore: object not found")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is a key/value blob store addressed by key path within one bucket.
type Store interface {
	// List returns every object whose key starts with prefix, in key order.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Exists reports whether at least one object lives under prefix.
func Exists(ctx context.Context, s Store, prefix string) (bool, error) {
	objs, err := s.List(ctx, prefix)
	if err != nil {
		return false, err
	}
	return len(objs) > 0, nil
}
