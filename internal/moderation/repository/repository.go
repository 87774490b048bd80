// Package repository persists reports, moderation actions and appeals in
// PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andmorefine/clay-community-site/internal/moderation/model"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const defaultListLimit = 50

func listLimit(n int) uint64 {
	if n <= 0 {
		return defaultListLimit
	}
	return uint64(n)
}

// closeConflict decides why a guarded transition on table touched no rows:
// the row is missing (ErrNotFound) or already left the open states
// (ErrConflict).
func closeConflict(ctx context.Context, db *pgxpool.Pool, table string, id any) error {
	var exists bool
	q := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, table)
	if err := db.QueryRow(ctx, q, id).Scan(&exists); err != nil {
		return fmt.Errorf("check %s: %w", table, err)
	}
	if !exists {
		return model.ErrNotFound
	}
	return model.ErrConflict
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return model.ErrNotFound
	}
	return err
}
