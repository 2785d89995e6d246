package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InternalTables are bookkeeping tables that never receive uploads.
var InternalTables = []string{"data_mapping", "ingestion_logs", "schema_migrations"}

type schemaIntrospector struct {
	pool   *pgxpool.Pool
	schema string
}

// NewSchemaIntrospector reads destination table metadata from the catalog of schema.
func NewSchemaIntrospector(pool *pgxpool.Pool, schema string) SchemaIntrospector {
	if schema == "" {
		schema = "public"
	}
	return &schemaIntrospector{pool: pool, schema: schema}
}

func (r *schemaIntrospector) ListTables(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT table_name
		 FROM information_schema.tables
		 WHERE table_schema = $1
		   AND table_type = 'BASE TABLE'
		   AND NOT (table_name = ANY($2))
		 ORDER BY table_name`,
		r.schema, InternalTables,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan tables: %w", err)
	}
	return tables, nil
}

func (r *schemaIntrospector) ListColumns(ctx context.Context, table string, excluding []string) ([]string, error) {
	if excluding == nil {
		excluding = []string{}
	}
	rows, err := r.pool.Query(ctx,
		`SELECT column_name
		 FROM information_schema.columns
		 WHERE table_schema = $1
		   AND table_name = $2
		   AND NOT (column_name = ANY($3))
		 ORDER BY ordinal_position`,
		r.schema, table, excluding,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", err)
	}
	columns, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan columns: %w", err)
	}
	return columns, nil
}

// HasUniqueConstraint reports whether column alone carries a non-partial unique index.
func (r *schemaIntrospector) HasUniqueConstraint(ctx context.Context, table string, column string) (bool, error) {
	var unique bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1
			FROM pg_index i
			JOIN pg_class c ON c.oid = i.indrelid
			JOIN pg_namespace n ON n.oid = c.relnamespace
			JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = i.indkey[0]
			WHERE n.nspname = $1
			  AND c.relname = $2
			  AND a.attname = $3
			  AND i.indisunique
			  AND i.indnatts = 1
			  AND i.indpred IS NULL
		)`,
		r.schema, table, column,
	).Scan(&unique)
	if err != nil {
		return false, fmt.Errorf("failed to inspect unique constraint: %w", err)
	}
	return unique, nil
}
