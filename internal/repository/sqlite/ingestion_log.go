package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rpattn/masterdata/internal/domain"
	"github.com/rpattn/masterdata/internal/repository"

	"github.com/google/uuid"
)

type ingestionLogRepository struct {
	db *sql.DB
}

// NewIngestionLogRepository stores ingestion errors in the ingestion_logs table.
func NewIngestionLogRepository(db *sql.DB) repository.IngestionLogRepository {
	return &ingestionLogRepository{db: db}
}

func (r *ingestionLogRepository) Record(ctx context.Context, entry domain.IngestionLogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	var rowNumber any
	if entry.RowNumber != nil {
		rowNumber = *entry.RowNumber
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ingestion_logs (id, table_name, actor, file_name, row_number, error_message, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID.String(), entry.TableName, entry.Actor, entry.FileName, rowNumber, entry.ErrorMessage, formatTime(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to record ingestion log: %w", err)
	}
	return nil
}

func (r *ingestionLogRepository) List(ctx context.Context, filter repository.IngestionLogFilter) ([]domain.IngestionLogEntry, error) {
	filter = repository.NormalizeLogFilter(filter)

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, table_name, actor, file_name, row_number, error_message, created_at
		 FROM ingestion_logs
		 WHERE (? = '' OR table_name = ?)
		   AND (? = '' OR file_name = ?)
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		filter.TableName, filter.TableName, filter.FileName, filter.FileName, filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestion logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.IngestionLogEntry{}
	for rows.Next() {
		var (
			entry     domain.IngestionLogEntry
			rowNumber sql.NullInt64
			createdAt string
		)
		if err := rows.Scan(&entry.ID, &entry.TableName, &entry.Actor, &entry.FileName, &rowNumber, &entry.ErrorMessage, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan ingestion log: %w", err)
		}
		if rowNumber.Valid {
			value := int(rowNumber.Int64)
			entry.RowNumber = &value
		}
		entry.CreatedAt = parseTime(createdAt)
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ingestion logs: %w", err)
	}
	return logs, nil
}
