package objectstore

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

func NewMinIOClient(cfg Config) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	}
	return minio.New(cfg.Endpoint, opts)
}

// BucketChecker is the slice of the MinIO client the readiness check needs.
type BucketChecker interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

// CheckBuckets verifies every artifact bucket exists. The dashboard never
// creates buckets; the pipeline that uploads artifacts owns them.
func CheckBuckets(ctx context.Context, client BucketChecker, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	for _, b := range cfg.buckets() {
		exists, err := client.BucketExists(ctx, b.name)
		if err != nil {
			return fmt.Errorf("%s bucket exists: %w", b.label, err)
		}
		if !exists {
			return fmt.Errorf("%s bucket missing: %s", b.label, b.name)
		}
	}
	return nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
