package domain

import (
	"time"

	"github.com/google/uuid"
)

// IngestionLogEntry captures upload failures and row level issues that occur during ingestion.
type IngestionLogEntry struct {
	ID           uuid.UUID `json:"id"`
	TableName    string    `json:"table_name"`
	Actor        string    `json:"actor"`
	FileName     string    `json:"file_name"`
	RowNumber    *int      `json:"row_number,omitempty"`
	ErrorMessage string    `json:"error_message"`
	CreatedAt    time.Time `json:"created_at"`
}
