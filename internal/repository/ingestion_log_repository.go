package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rpattn/masterdata/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var errLogRepoNotInitialized = errors.New("ingestion log repository not initialized")

type ingestionLogRepository struct {
	pool *pgxpool.Pool
}

// NewIngestionLogRepository stores ingestion failures in the ingestion_logs table.
func NewIngestionLogRepository(pool *pgxpool.Pool) IngestionLogRepository {
	return &ingestionLogRepository{pool: pool}
}

// logRow mirrors one ingestion_logs row.
type logRow struct {
	ID           uuid.UUID `db:"id"`
	TableName    string    `db:"table_name"`
	Actor        string    `db:"actor"`
	FileName     string    `db:"file_name"`
	RowNumber    *int32    `db:"row_number"`
	ErrorMessage string    `db:"error_message"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r logRow) entry() domain.IngestionLogEntry {
	entry := domain.IngestionLogEntry{
		ID:           r.ID,
		TableName:    r.TableName,
		Actor:        r.Actor,
		FileName:     r.FileName,
		ErrorMessage: r.ErrorMessage,
		CreatedAt:    r.CreatedAt,
	}
	if r.RowNumber != nil {
		n := int(*r.RowNumber)
		entry.RowNumber = &n
	}
	return entry
}

func (r *ingestionLogRepository) Record(ctx context.Context, entry domain.IngestionLogEntry) error {
	if r.pool == nil {
		return errLogRepoNotInitialized
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	args := pgx.NamedArgs{
		"id":      entry.ID,
		"table":   entry.TableName,
		"actor":   entry.Actor,
		"file":    entry.FileName,
		"row":     entry.RowNumber,
		"message": entry.ErrorMessage,
	}
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO ingestion_logs (id, table_name, actor, file_name, row_number, error_message)
		 VALUES (@id, @table, @actor, @file, @row, @message)`,
		args,
	); err != nil {
		return fmt.Errorf("failed to record ingestion log for %s: %w", entry.TableName, err)
	}
	return nil
}

func (r *ingestionLogRepository) List(ctx context.Context, filter IngestionLogFilter) ([]domain.IngestionLogEntry, error) {
	if r.pool == nil {
		return nil, errLogRepoNotInitialized
	}
	filter = NormalizeLogFilter(filter)

	rows, err := r.pool.Query(ctx,
		`SELECT id, table_name, actor, file_name, row_number, error_message, created_at
		 FROM ingestion_logs
		 WHERE (@table = '' OR table_name = @table)
		   AND (@file = '' OR file_name = @file)
		 ORDER BY created_at DESC
		 LIMIT @limit OFFSET @offset`,
		pgx.NamedArgs{
			"table":  filter.TableName,
			"file":   filter.FileName,
			"limit":  filter.Limit,
			"offset": filter.Offset,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestion logs: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[logRow])
	if err != nil {
		return nil, fmt.Errorf("failed to scan ingestion logs: %w", err)
	}

	logs := make([]domain.IngestionLogEntry, len(records))
	for i, record := range records {
		logs[i] = record.entry()
	}
	return logs, nil
}
