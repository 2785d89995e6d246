package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type poolExecutor struct {
	pool *pgxpool.Pool
}

// NewQueryExecutor runs statements on the pool in auto-commit mode.
func NewQueryExecutor(pool *pgxpool.Pool) QueryExecutor {
	return &poolExecutor{pool: pool}
}

func (e *poolExecutor) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := e.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
