package repository

import (
	"context"
	"fmt"

	"github.com/rpattn/masterdata/internal/db"
	"github.com/rpattn/masterdata/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type mappingRepository struct {
	conn *db.Connection
}

// NewMappingRepository wires a mapping store backed by the connection pool.
func NewMappingRepository(conn *db.Connection) MappingRepository {
	return &mappingRepository{conn: conn}
}

// GetMapping returns the entries for table ordered by position.
func (r *mappingRepository) GetMapping(ctx context.Context, table string) (domain.ColumnMapping, error) {
	rows, err := r.conn.Pool.Query(ctx,
		`SELECT id, header_cell, column_name, column_kind, position, created_at
		 FROM data_mapping
		 WHERE table_name = $1
		 ORDER BY position, created_at`,
		table,
	)
	if err != nil {
		return domain.ColumnMapping{}, fmt.Errorf("failed to get mapping: %w", err)
	}
	defer rows.Close()

	mapping := domain.ColumnMapping{Table: table}
	for rows.Next() {
		var (
			entry domain.MappingEntry
			kind  string
		)
		if err := rows.Scan(&entry.ID, &entry.HeaderRef, &entry.Column, &kind, &entry.Position, &entry.CreatedAt); err != nil {
			return domain.ColumnMapping{}, fmt.Errorf("failed to scan mapping entry: %w", err)
		}
		entry.Kind = domain.ColumnKind(kind)
		mapping.Entries = append(mapping.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return domain.ColumnMapping{}, fmt.Errorf("failed to iterate mapping entries: %w", err)
	}

	if len(mapping.Entries) == 0 {
		return domain.ColumnMapping{}, fmt.Errorf("%w: %s", domain.ErrMappingNotFound, table)
	}
	return mapping, nil
}

// PutMapping appends the entries after any existing ones in a single insert.
func (r *mappingRepository) PutMapping(ctx context.Context, mapping domain.ColumnMapping) (domain.ColumnMapping, error) {
	if err := mapping.Validate(); err != nil {
		return domain.ColumnMapping{}, err
	}

	err := r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		var next int
		if err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM data_mapping WHERE table_name = $1`,
			mapping.Table,
		).Scan(&next); err != nil {
			return fmt.Errorf("failed to read mapping positions: %w", err)
		}

		n := len(mapping.Entries)
		ids := make([]string, n)
		headers := make([]string, n)
		columns := make([]string, n)
		kinds := make([]string, n)
		positions := make([]int32, n)
		for i := range mapping.Entries {
			entry := &mapping.Entries[i]
			if entry.ID == uuid.Nil {
				entry.ID = uuid.New()
			}
			entry.Position = next + i
			ids[i] = entry.ID.String()
			headers[i] = entry.HeaderRef
			columns[i] = entry.Column
			kinds[i] = string(entry.Kind)
			positions[i] = int32(entry.Position)
		}

		rows, err := tx.Query(ctx,
			`INSERT INTO data_mapping (id, table_name, header_cell, column_name, column_kind, position)
			 SELECT u.id, $1, u.header_cell, u.column_name, u.column_kind, u.position
			 FROM unnest($2::uuid[], $3::text[], $4::text[], $5::text[], $6::int4[])
			   AS u(id, header_cell, column_name, column_kind, position)
			 RETURNING created_at`,
			mapping.Table, ids, headers, columns, kinds, positions,
		)
		if err != nil {
			return fmt.Errorf("failed to insert mapping: %w", err)
		}
		defer rows.Close()

		i := 0
		for rows.Next() {
			if i < n {
				if err := rows.Scan(&mapping.Entries[i].CreatedAt); err != nil {
					return fmt.Errorf("failed to scan mapping entry: %w", err)
				}
			}
			i++
		}
		return rows.Err()
	})
	if err != nil {
		return domain.ColumnMapping{}, err
	}
	return mapping, nil
}

// ListMappedTables returns every table that has at least one mapping entry.
func (r *mappingRepository) ListMappedTables(ctx context.Context) ([]string, error) {
	rows, err := r.conn.Pool.Query(ctx, `SELECT DISTINCT table_name FROM data_mapping ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mapped tables: %w", err)
	}
	tables, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan mapped tables: %w", err)
	}
	return tables, nil
}
