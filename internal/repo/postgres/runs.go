package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/animus-labs/aigov-dashboard/internal/domain"
	"github.com/animus-labs/aigov-dashboard/internal/repo"
)

const runColumns = `id, created_at, mode, status, policy_version, bundle_sha256, evidence_sha256,
	report_sha256, evidence_source, closed_at::text`

type RunStore struct {
	db DB
}

func NewRunStore(db DB) *RunStore {
	if db == nil {
		return nil
	}
	return &RunStore{db: db}
}

func (s *RunStore) GetRun(ctx context.Context, id string) (domain.Run, error) {
	if s == nil || s.db == nil {
		return domain.Run{}, fmt.Errorf("run store not initialized")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Run{}, repo.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if err != nil {
		if err = handleNotFound(err); errors.Is(err, repo.ErrNotFound) {
			return domain.Run{}, err
		}
		return domain.Run{}, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func (s *RunStore) ListRuns(ctx context.Context, filter repo.RunFilter) ([]domain.Run, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("run store not initialized")
	}
	query, args := buildRunListQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := make([]domain.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func buildRunListQuery(filter repo.RunFilter) (string, []any) {
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 3)

	if mode := normalizeFilter(filter.Mode); mode != "" {
		args = append(args, mode)
		clauses = append(clauses, fmt.Sprintf("lower(trim(mode)) = $%d", len(args)))
	}
	if status := normalizeFilter(filter.Status); status != "" {
		args = append(args, status)
		clauses = append(clauses, fmt.Sprintf("lower(trim(status)) = $%d", len(args)))
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC NULLS LAST"
	args = append(args, filter.EffectiveLimit())
	query += fmt.Sprintf(" LIMIT $%d", len(args))
	return query, args
}

func normalizeFilter(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (domain.Run, error) {
	var run domain.Run
	var createdAt sql.NullTime
	var mode, status, policyVersion, evidenceSource sql.NullString
	var bundleHash, evidenceHash, reportHash, closedAt sql.NullString
	if err := row.Scan(&run.ID, &createdAt, &mode, &status, &policyVersion,
		&bundleHash, &evidenceHash, &reportHash, &evidenceSource, &closedAt); err != nil {
		return domain.Run{}, err
	}
	if createdAt.Valid {
		run.CreatedAt = createdAt.Time.UTC()
	}
	run.Mode = stringOrEmpty(mode)
	run.Status = stringOrEmpty(status)
	run.PolicyVersion = stringOrEmpty(policyVersion)
	run.EvidenceSource = stringOrEmpty(evidenceSource)
	run.BundleHash = stringPtr(bundleHash)
	run.EvidenceHash = stringPtr(evidenceHash)
	run.ReportHash = stringPtr(reportHash)
	run.ClosedAt = stringPtr(closedAt)
	return run, nil
}
