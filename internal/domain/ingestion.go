package domain

// RawRow holds the untyped cells of one record keyed by header reference.
// Values are string, float64 or nil.
type RawRow map[string]any

// NormalizedRow holds typed values aligned to IngestionBatch.Columns.
type NormalizedRow []any

// IngestionBatch is the ordered set of rows produced from one upload.
type IngestionBatch struct {
	Table   string
	Actor   string
	Columns []string
	Rows    []NormalizedRow
}

// ColumnIndex returns the position of column in the batch, or -1.
func (b IngestionBatch) ColumnIndex(column string) int {
	for i, name := range b.Columns {
		if name == column {
			return i
		}
	}
	return -1
}

// WriteMode reports how a batch was written.
type WriteMode string

const (
	WriteModePlainInsert      WriteMode = "insert"
	WriteModeUpsertOnConflict WriteMode = "upsert"
)
