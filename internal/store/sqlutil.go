package store

import (
	"context"
	"database/sql"
	"errors"
)

// execQuerier is the subset of *sql.Tx / *sql.DB the write helpers need.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// inClause builds the placeholder list and argument slice for an IN clause.
// Batching avoids N+1 deletes when trimming multiple manifests at once.
func inClause(ids []string) (string, []any) {
	placeholders := make([]byte, 0, len(ids)*2-1)
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}
	return string(placeholders), args
}

// nullable maps an empty string to SQL NULL for optional TEXT columns.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
