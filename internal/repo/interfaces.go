package repo

import (
	"context"
	"errors"

	"github.com/animus-labs/aigov-dashboard/internal/domain"
)

var ErrNotFound = errors.New("not found")

const (
	DefaultRunListLimit = 50
	MaxRunListLimit     = 500
)

// RunFilter narrows ListRuns. Mode and Status are matched after trimming
// and lowercasing on both sides; empty means no filter.
type RunFilter struct {
	Mode   string
	Status string
	Limit  int
}

// EffectiveLimit clamps Limit into 1..MaxRunListLimit, defaulting to
// DefaultRunListLimit when unset.
func (f RunFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultRunListLimit
	case f.Limit > MaxRunListLimit:
		return MaxRunListLimit
	default:
		return f.Limit
	}
}

// RunRepository reads run records, newest first.
type RunRepository interface {
	GetRun(ctx context.Context, id string) (domain.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]domain.Run, error)
}
