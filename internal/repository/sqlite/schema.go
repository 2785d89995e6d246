package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/rpattn/masterdata/internal/repository"
)

type schemaIntrospector struct {
	db *sql.DB
}

// NewSchemaIntrospector reads table metadata through SQLite pragmas.
func NewSchemaIntrospector(db *sql.DB) repository.SchemaIntrospector {
	return &schemaIntrospector{db: db}
}

func (r *schemaIntrospector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master
		 WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		 ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	names, err := scanStrings(rows)
	if err != nil {
		return nil, err
	}
	tables := names[:0]
	for _, name := range names {
		if !slices.Contains(repository.InternalTables, name) {
			tables = append(tables, name)
		}
	}
	return tables, nil
}

func (r *schemaIntrospector) ListColumns(ctx context.Context, table string, excluding []string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	names, err := scanStrings(rows)
	if err != nil {
		return nil, err
	}
	columns := names[:0]
	for _, name := range names {
		if !slices.Contains(excluding, name) {
			columns = append(columns, name)
		}
	}
	return columns, nil
}

// HasUniqueConstraint reports whether column alone carries a non-partial unique index.
func (r *schemaIntrospector) HasUniqueConstraint(ctx context.Context, table string, column string) (bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM pragma_index_list(?) WHERE "unique" = 1 AND partial = 0`, table)
	if err != nil {
		return false, fmt.Errorf("failed to list indexes: %w", err)
	}
	indexes, err := scanStrings(rows)
	if err != nil {
		return false, err
	}

	for _, index := range indexes {
		rows, err := r.db.QueryContext(ctx, `SELECT name FROM pragma_index_info(?)`, index)
		if err != nil {
			return false, fmt.Errorf("failed to inspect index %s: %w", index, err)
		}
		columns, err := scanStrings(rows)
		if err != nil {
			return false, err
		}
		if len(columns) == 1 && columns[0] == column {
			return true, nil
		}
	}
	return false, nil
}
