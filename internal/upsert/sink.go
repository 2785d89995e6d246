// Package upsert writes normalized batches into dynamically named tables.
package upsert

import (
	"context"
	"fmt"
	"slices"

	"github.com/rpattn/masterdata/internal/domain"
	"github.com/rpattn/masterdata/internal/repository"

	"github.com/google/uuid"
)

// Config names the system columns of destination tables.
type Config struct {
	DateColumn    string
	IDColumn      string
	ActorColumn   string
	SystemColumns []string
}

// DefaultConfig returns the column names used by the master data tables.
func DefaultConfig() Config {
	return Config{
		DateColumn:    "date",
		IDColumn:      "id",
		ActorColumn:   "inserted_by",
		SystemColumns: []string{"id", "inserted_by", "created_at", "updated_at"},
	}
}

// Result reports the outcome of one upsert.
type Result struct {
	Affected int64
	Mode     domain.WriteMode
}

// Sink builds and runs one bulk statement per batch.
type Sink struct {
	schema  repository.SchemaIntrospector
	exec    repository.QueryExecutor
	dialect Dialect
	cfg     Config
	newID   func() string
}

// NewSink wires a sink to a schema introspector and an executor sharing one dialect.
func NewSink(schema repository.SchemaIntrospector, exec repository.QueryExecutor, dialect Dialect, cfg Config) *Sink {
	defaults := DefaultConfig()
	if cfg.DateColumn == "" {
		cfg.DateColumn = defaults.DateColumn
	}
	if cfg.IDColumn == "" {
		cfg.IDColumn = defaults.IDColumn
	}
	if cfg.ActorColumn == "" {
		cfg.ActorColumn = defaults.ActorColumn
	}
	if len(cfg.SystemColumns) == 0 {
		cfg.SystemColumns = defaults.SystemColumns
	}
	for _, column := range []string{cfg.IDColumn, cfg.ActorColumn} {
		if !slices.Contains(cfg.SystemColumns, column) {
			cfg.SystemColumns = append(cfg.SystemColumns, column)
		}
	}
	return &Sink{
		schema:  schema,
		exec:    exec,
		dialect: dialect,
		cfg:     cfg,
		newID:   func() string { return uuid.New().String() },
	}
}

// Describe loads the live identifier registry for table.
func (s *Sink) Describe(ctx context.Context, table string) (domain.TableSchema, error) {
	columns, err := s.schema.ListColumns(ctx, table, s.cfg.SystemColumns)
	if err != nil {
		return domain.TableSchema{}, fmt.Errorf("failed to list columns of %s: %w", table, err)
	}
	if len(columns) == 0 {
		return domain.TableSchema{}, fmt.Errorf("%w: %s", domain.ErrUnknownTable, table)
	}
	unique, err := s.schema.HasUniqueConstraint(ctx, table, s.cfg.DateColumn)
	if err != nil {
		return domain.TableSchema{}, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	return domain.NewTableSchema(table, columns, s.cfg.DateColumn, unique), nil
}

// Upsert writes every row of batch in one statement. Tables with a unique
// date column get last-write-wins semantics, other tables accumulate rows.
func (s *Sink) Upsert(ctx context.Context, batch domain.IngestionBatch) (Result, error) {
	if len(batch.Rows) == 0 {
		return Result{}, domain.ErrEmptyBatch
	}

	schema, err := s.Describe(ctx, batch.Table)
	if err != nil {
		return Result{}, err
	}
	for _, column := range batch.Columns {
		if !schema.HasColumn(column) {
			return Result{}, fmt.Errorf("%w: %s.%s", domain.ErrUnknownColumn, batch.Table, column)
		}
	}

	var (
		stmt Statement = PlainInsert{}
		mode           = domain.WriteModePlainInsert
		rows           = batch.Rows
	)
	if schema.DateUnique {
		stmt = UpsertOnConflict{Column: schema.DateColumn}
		mode = domain.WriteModeUpsertOnConflict
		rows = lastPerDate(rows, batch.ColumnIndex(schema.DateColumn))
	}

	ins := Insert{
		Table:   schema.Name,
		Columns: append([]string{s.cfg.IDColumn, s.cfg.ActorColumn}, batch.Columns...),
		Update:  append(append([]string{}, batch.Columns...), s.cfg.ActorColumn),
		Rows:    make([][]any, len(rows)),
	}
	for i, row := range rows {
		values := make([]any, 0, len(ins.Columns))
		values = append(values, s.newID(), batch.Actor)
		values = append(values, row...)
		ins.Rows[i] = values
	}
	if ins.ParamCount() > s.dialect.MaxParams {
		return Result{}, fmt.Errorf("%w: %d parameters, %s allows %d",
			domain.ErrBatchTooLarge, ins.ParamCount(), s.dialect.Name, s.dialect.MaxParams)
	}

	sql, args := Build(s.dialect, ins, stmt)
	affected, err := s.exec.Exec(ctx, sql, args...)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrWriteFailure, err)
	}
	return Result{Affected: affected, Mode: mode}, nil
}

// lastPerDate keeps the final row for each date value, in the order those rows appear.
// A single statement may not touch the same conflict key twice.
func lastPerDate(rows []domain.NormalizedRow, dateIndex int) []domain.NormalizedRow {
	if dateIndex < 0 {
		return rows
	}
	last := make(map[string]int, len(rows))
	for i, row := range rows {
		if key, ok := dateKey(row, dateIndex); ok {
			last[key] = i
		}
	}
	out := make([]domain.NormalizedRow, 0, len(last))
	for i, row := range rows {
		key, ok := dateKey(row, dateIndex)
		if !ok || last[key] == i {
			out = append(out, row)
		}
	}
	return out
}

func dateKey(row domain.NormalizedRow, index int) (string, bool) {
	if index >= len(row) || row[index] == nil {
		return "", false
	}
	return fmt.Sprint(row[index]), true
}
