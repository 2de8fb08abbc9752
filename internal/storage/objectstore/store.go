package objectstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound reports a missing key. Any other store error is a
// transport or permission failure.
var ErrObjectNotFound = errors.New("object not found")

// Store is the read side of S3-compatible object storage.
type Store interface {
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)
	Stat(ctx context.Context, bucket, key string) (ObjectInfo, error)
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}
