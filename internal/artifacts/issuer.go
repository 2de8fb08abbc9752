package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"golang.org/x/sync/errgroup"
)

const DefaultSignedURLTTL = 600 * time.Second

// Download is an open artifact ready to be relayed. Callers close Body.
type Download struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
	Disposition string
	Filename    string
	Source      Source
}

type SignedURLs struct {
	PackZip      *string `json:"packZip"`
	AuditJSON    *string `json:"auditJson"`
	EvidenceJSON *string `json:"evidenceJson"`
}

func (u *SignedURLs) slot(k Kind) **string {
	switch k {
	case KindBundle:
		return &u.PackZip
	case KindAudit:
		return &u.AuditJSON
	default:
		return &u.EvidenceJSON
	}
}

// SignedURLBundle carries one presigned URL per kind; a nil URL means that
// kind could not be signed. OK is false only when none could.
type SignedURLBundle struct {
	OK        bool       `json:"ok"`
	RunID     string     `json:"runId"`
	ExpiresIn int        `json:"expiresIn"`
	URLs      SignedURLs `json:"urls"`
	Error     string     `json:"error,omitempty"`
	Message   string     `json:"message,omitempty"`
}

type Issuer struct {
	locator *Locator
	ttl     time.Duration
}

func NewIssuer(locator *Locator, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultSignedURLTTL
	}
	return &Issuer{locator: locator, ttl: ttl}
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

// Open resolves kind for runID and opens it for streaming.
func (i *Issuer) Open(ctx context.Context, runID string, kind Kind) (Download, error) {
	h, err := i.locator.Locate(ctx, runID, kind)
	if err != nil {
		return Download{}, err
	}
	d := Download{
		ContentType: kind.ContentType(),
		Disposition: kind.Disposition(runID),
		Filename:    kind.ObjectName(runID),
		Source:      h.Source,
	}

	switch h.Source {
	case SourceLocal:
		f, err := i.locator.files.Open(h.Path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Download{}, fmt.Errorf("%w: %s", ErrNotFound, h.Path)
			}
			return Download{}, fmt.Errorf("%w: open %s: %v", ErrStorage, h.Path, err)
		}
		size := h.Size
		if info, err := f.Stat(); err == nil {
			size = info.Size()
		}
		d.Body, d.Size = f, size
	case SourceRemote:
		body, info, err := i.locator.store.Get(ctx, h.Bucket, h.Key)
		if err != nil {
			return Download{}, remoteError(h.Bucket, h.Key, err)
		}
		d.Body, d.Size = body, info.Size
	}
	return d, nil
}

// SignURLs presigns all three kinds concurrently against the object store,
// regardless of local availability. A failure for one kind leaves only that
// URL nil; the others still run to completion.
func (i *Issuer) SignURLs(ctx context.Context, runID string) (SignedURLBundle, error) {
	if err := ValidateRunID(runID); err != nil {
		return SignedURLBundle{}, err
	}
	out := SignedURLBundle{RunID: runID, ExpiresIn: int(i.ttl / time.Second)}
	errs := make([]error, len(Kinds))

	var g errgroup.Group
	for idx, kind := range Kinds {
		g.Go(func() error {
			u, err := i.signOne(ctx, runID, kind)
			if err != nil {
				errs[idx] = err
				return nil
			}
			*out.URLs.slot(kind) = &u
			return nil
		})
	}
	_ = g.Wait()

	var first error
	failed := 0
	for _, err := range errs {
		if err == nil {
			continue
		}
		if first == nil {
			first = err
		}
		failed++
	}
	out.OK = failed < len(Kinds)
	if !out.OK {
		out.Message = first.Error()
	}
	return out, nil
}

func (i *Issuer) signOne(ctx context.Context, runID string, kind Kind) (string, error) {
	store := i.locator.store
	bucket := i.locator.buckets.For(kind)
	if store == nil || bucket == "" {
		return "", fmt.Errorf("%w: no object store for %s", ErrNotFound, kind)
	}
	key := kind.ObjectName(runID)
	if _, err := store.Stat(ctx, bucket, key); err != nil {
		return "", remoteError(bucket, key, err)
	}
	u, err := store.PresignGet(ctx, bucket, key, i.ttl)
	if err != nil {
		return "", fmt.Errorf("%w: sign %s/%s: %v", ErrStorage, bucket, key, err)
	}
	return u, nil
}
