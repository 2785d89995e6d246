package sqlite

import (
	"context"
	"database/sql"

	"github.com/rpattn/masterdata/internal/repository"
)

type executor struct {
	db *sql.DB
}

// NewQueryExecutor runs single statements on db in auto-commit mode.
func NewQueryExecutor(db *sql.DB) repository.QueryExecutor {
	return &executor{db: db}
}

func (e *executor) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := e.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
