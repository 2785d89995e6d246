package repository

import (
	"context"

	"github.com/rpattn/masterdata/internal/domain"
)

// MappingRepository stores header-to-column mappings per destination table.
type MappingRepository interface {
	GetMapping(ctx context.Context, table string) (domain.ColumnMapping, error)
	PutMapping(ctx context.Context, mapping domain.ColumnMapping) (domain.ColumnMapping, error)
	ListMappedTables(ctx context.Context) ([]string, error)
}

// SchemaIntrospector answers live questions about destination tables.
// Results are never cached.
type SchemaIntrospector interface {
	ListTables(ctx context.Context) ([]string, error)
	ListColumns(ctx context.Context, table string, excluding []string) ([]string, error)
	HasUniqueConstraint(ctx context.Context, table string, column string) (bool, error)
}

// QueryExecutor runs a single parameterized statement and reports affected rows.
type QueryExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// IngestionLogFilter narrows ingestion log listings. Empty fields match everything.
type IngestionLogFilter struct {
	TableName string
	FileName  string
	Limit     int
	Offset    int
}

// IngestionLogRepository stores ingestion errors for observability.
type IngestionLogRepository interface {
	Record(ctx context.Context, entry domain.IngestionLogEntry) error
	List(ctx context.Context, filter IngestionLogFilter) ([]domain.IngestionLogEntry, error)
}

const defaultLogLimit = 200

// NormalizeLogFilter applies default paging to a filter.
func NormalizeLogFilter(filter IngestionLogFilter) IngestionLogFilter {
	if filter.Limit <= 0 {
		filter.Limit = defaultLogLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter
}
