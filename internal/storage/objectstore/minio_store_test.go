package objectstore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	platformstore "github.com/animus-labs/aigov-dashboard/internal/platform/objectstore"
	"github.com/minio/minio-go/v7"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "no such key", err: minioErr("NoSuchKey", http.StatusNotFound), want: true},
		{name: "bare 404", err: minioErr("", http.StatusNotFound), want: true},
		{name: "missing bucket", err: minioErr("NoSuchBucket", http.StatusNotFound), want: false},
		{name: "access denied", err: minioErr("AccessDenied", http.StatusForbidden), want: false},
		{name: "transport", err: errors.New("dial tcp: connection refused"), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(classify(tt.err), ErrObjectNotFound); got != tt.want {
				t.Fatalf("classify(%v) not-found=%v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestMinioStoreAgainstFakeServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodHead && r.URL.Path == "/packs/run-1.zip":
			w.Header().Set("Content-Length", "42")
			w.Header().Set("Content-Type", "application/zip")
			w.Header().Set("ETag", `"etag-1"`)
			w.Header().Set("Last-Modified", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat))
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodHead:
			w.Header().Set("X-Minio-Error-Code", "NoSuchKey")
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	cfg := platformstore.DefaultConfig()
	cfg.Endpoint = u.Host
	store, err := NewMinioStore(cfg)
	if err != nil {
		t.Fatalf("NewMinioStore() err=%v", err)
	}

	info, err := store.Stat(context.Background(), "packs", "run-1.zip")
	if err != nil {
		t.Fatalf("Stat() err=%v", err)
	}
	if info.Size != 42 || info.ContentType != "application/zip" {
		t.Fatalf("unexpected info: %+v", info)
	}

	if _, err := store.Stat(context.Background(), "packs", "missing.zip"); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("Stat(missing) err=%v, want ErrObjectNotFound", err)
	}

	signed, err := store.PresignGet(context.Background(), "packs", "run-1.zip", 0)
	if err != nil {
		t.Fatalf("PresignGet() err=%v", err)
	}
	if !strings.Contains(signed, "/packs/run-1.zip") || !strings.Contains(signed, "X-Amz-Expires=600") {
		t.Fatalf("unexpected presigned url: %s", signed)
	}
}

func TestNilStore(t *testing.T) {
	var s *MinioStore
	if _, err := s.Stat(context.Background(), "b", "k"); err == nil {
		t.Fatalf("expected error for nil store")
	}
	if _, err := NewMinioStoreWithClient(nil); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func minioErr(code string, status int) error {
	return minio.ErrorResponse{Code: code, StatusCode: status, Key: "k"}
}
