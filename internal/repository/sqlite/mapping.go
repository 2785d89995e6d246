package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rpattn/masterdata/internal/domain"
	"github.com/rpattn/masterdata/internal/repository"

	"github.com/google/uuid"
)

type mappingRepository struct {
	db *sql.DB
}

// NewMappingRepository returns a mapping store on db.
func NewMappingRepository(db *sql.DB) repository.MappingRepository {
	return &mappingRepository{db: db}
}

func (r *mappingRepository) GetMapping(ctx context.Context, table string) (domain.ColumnMapping, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, header_cell, column_name, column_kind, position, created_at
		 FROM data_mapping
		 WHERE table_name = ?
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
			entry     domain.MappingEntry
			kind      string
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &entry.HeaderRef, &entry.Column, &kind, &entry.Position, &createdAt); err != nil {
			return domain.ColumnMapping{}, fmt.Errorf("failed to scan mapping entry: %w", err)
		}
		entry.Kind = domain.ColumnKind(kind)
		entry.CreatedAt = parseTime(createdAt)
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

func (r *mappingRepository) PutMapping(ctx context.Context, mapping domain.ColumnMapping) (domain.ColumnMapping, error) {
	if err := mapping.Validate(); err != nil {
		return domain.ColumnMapping{}, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.ColumnMapping{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var next int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position) + 1, 0) FROM data_mapping WHERE table_name = ?`,
		mapping.Table,
	).Scan(&next); err != nil {
		return domain.ColumnMapping{}, fmt.Errorf("failed to read mapping positions: %w", err)
	}

	now := time.Now()
	values := make([]string, len(mapping.Entries))
	args := make([]any, 0, len(mapping.Entries)*7)
	for i := range mapping.Entries {
		entry := &mapping.Entries[i]
		if entry.ID == uuid.Nil {
			entry.ID = uuid.New()
		}
		entry.Position = next + i
		entry.CreatedAt = now
		values[i] = "(?, ?, ?, ?, ?, ?, ?)"
		args = append(args, entry.ID.String(), mapping.Table, entry.HeaderRef, entry.Column, string(entry.Kind), entry.Position, formatTime(now))
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO data_mapping (id, table_name, header_cell, column_name, column_kind, position, created_at) VALUES `+
			strings.Join(values, ", "),
		args...,
	); err != nil {
		return domain.ColumnMapping{}, fmt.Errorf("failed to insert mapping: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return domain.ColumnMapping{}, fmt.Errorf("failed to commit mapping: %w", err)
	}
	return mapping, nil
}

func (r *mappingRepository) ListMappedTables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT table_name FROM data_mapping ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mapped tables: %w", err)
	}
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows: %w", err)
	}
	return out, nil
}
