package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/animus-labs/aigov-dashboard/internal/repo"
	"github.com/jackc/pgx/v5/pgconn"
)

type DB interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// invalid_text_representation: an id that cannot be cast to the column
// type cannot match any row.
const sqlStateInvalidText = "22P02"

func handleNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repo.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == sqlStateInvalidText {
		return repo.ErrNotFound
	}
	return err
}

func stringOrEmpty(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
