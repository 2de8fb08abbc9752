// Package artifacts resolves and delivers the files attached to a run.
// Files are looked up on a local tree first and in the object store
// second, so the same binary serves pre-baked packs and hosted buckets.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/animus-labs/aigov-dashboard/internal/storage/objectstore"
)

var (
	ErrNotFound     = errors.New("artifact not found")
	ErrStorage      = errors.New("artifact storage error")
	ErrInvalidRunID = errors.New("invalid run id")
)

type Source int

const (
	SourceLocal Source = iota + 1
	SourceRemote
)

func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Handle is a resolved artifact. Path is set for SourceLocal, Bucket and
// Key for SourceRemote.
type Handle struct {
	Kind   Kind
	Source Source
	Path   string
	Bucket string
	Key    string
	Size   int64
}

type Locator struct {
	files   fs.FS
	store   objectstore.Store
	buckets Buckets
}

// NewLocator builds a locator. files or store may be nil to disable that
// side of the lookup.
func NewLocator(files fs.FS, store objectstore.Store, buckets Buckets) *Locator {
	return &Locator{files: files, store: store, buckets: buckets}
}

// ValidateRunID rejects ids that are not a single clean path element.
func ValidateRunID(runID string) error {
	if runID == "" || runID != strings.TrimSpace(runID) {
		return ErrInvalidRunID
	}
	if strings.ContainsAny(runID, `/\`) || !fs.ValidPath(runID) || runID == "." || runID == ".." {
		return ErrInvalidRunID
	}
	return nil
}

func (l *Locator) Locate(ctx context.Context, runID string, kind Kind) (Handle, error) {
	if err := ValidateRunID(runID); err != nil {
		return Handle{}, err
	}
	if kind.Dir() == "" {
		return Handle{}, fmt.Errorf("unknown artifact kind %q", kind)
	}

	if h, ok, err := l.locateLocal(runID, kind); err != nil {
		return Handle{}, err
	} else if ok {
		return h, nil
	}
	return l.locateRemote(ctx, runID, kind)
}

func (l *Locator) locateLocal(runID string, kind Kind) (Handle, bool, error) {
	if l.files == nil {
		return Handle{}, false, nil
	}
	p := path.Join(kind.Dir(), kind.ObjectName(runID))
	info, err := fs.Stat(l.files, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Handle{}, false, nil
		}
		return Handle{}, false, fmt.Errorf("%w: stat %s: %v", ErrStorage, p, err)
	}
	if info.IsDir() {
		return Handle{}, false, nil
	}
	return Handle{Kind: kind, Source: SourceLocal, Path: p, Size: info.Size()}, true, nil
}

func (l *Locator) locateRemote(ctx context.Context, runID string, kind Kind) (Handle, error) {
	bucket := l.buckets.For(kind)
	if l.store == nil || bucket == "" {
		return Handle{}, fmt.Errorf("%w: %s for run %s", ErrNotFound, kind, runID)
	}
	key := kind.ObjectName(runID)
	info, err := l.store.Stat(ctx, bucket, key)
	if err != nil {
		return Handle{}, remoteError(bucket, key, err)
	}
	return Handle{Kind: kind, Source: SourceRemote, Bucket: bucket, Key: key, Size: info.Size}, nil
}

func remoteError(bucket, key string, err error) error {
	if errors.Is(err, objectstore.ErrObjectNotFound) {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, bucket, key)
	}
	return fmt.Errorf("%w: %s/%s: %v", ErrStorage, bucket, key, err)
}
