package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ColumnKind classifies a destination column for cell normalisation.
type ColumnKind string

const (
	// ColumnKindInferred defers classification to the column name.
	ColumnKindInferred ColumnKind = ""
	ColumnKindDate     ColumnKind = "date"
	ColumnKindTime     ColumnKind = "time"
	ColumnKindNumeric  ColumnKind = "numeric"
	ColumnKindText     ColumnKind = "text"
)

// ParseColumnKind validates a kind received from configuration or an API payload.
func ParseColumnKind(raw string) (ColumnKind, error) {
	kind := ColumnKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case ColumnKindInferred, ColumnKindDate, ColumnKindTime, ColumnKindNumeric, ColumnKindText:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: unknown column kind %q", ErrInvalidMapping, raw)
	}
}

// MappingEntry binds one source header reference to a destination column.
type MappingEntry struct {
	ID        uuid.UUID  `json:"id"`
	HeaderRef string     `json:"header_cell"`
	Column    string     `json:"column_name"`
	Kind      ColumnKind `json:"kind,omitempty"`
	Position  int        `json:"position"`
	CreatedAt time.Time  `json:"created_at"`
}

// ColumnMapping is the ordered header-to-column contract for one destination table.
type ColumnMapping struct {
	Table   string         `json:"table_name"`
	Entries []MappingEntry `json:"detail"`
}

// NewColumnMapping builds a mapping from ordered entries, assigning ids and positions.
func NewColumnMapping(table string, entries []MappingEntry) ColumnMapping {
	now := time.Now()
	out := make([]MappingEntry, len(entries))
	for i, entry := range entries {
		entry.ID = uuid.New()
		entry.HeaderRef = strings.TrimSpace(entry.HeaderRef)
		entry.Column = strings.TrimSpace(entry.Column)
		entry.Kind = ColumnKind(strings.ToLower(strings.TrimSpace(string(entry.Kind))))
		entry.Position = i
		entry.CreatedAt = now
		out[i] = entry
	}
	return ColumnMapping{
		Table:   strings.TrimSpace(table),
		Entries: out,
	}
}

// Validate checks that the mapping can produce rows with exactly one value per column.
func (m ColumnMapping) Validate() error {
	if strings.TrimSpace(m.Table) == "" {
		return fmt.Errorf("%w: table name is required", ErrInvalidMapping)
	}
	if len(m.Entries) == 0 {
		return fmt.Errorf("%w: at least one entry is required", ErrInvalidMapping)
	}
	seen := make(map[string]struct{}, len(m.Entries))
	for i, entry := range m.Entries {
		if strings.TrimSpace(entry.HeaderRef) == "" {
			return fmt.Errorf("%w: entry %d has no header cell", ErrInvalidMapping, i)
		}
		column := strings.TrimSpace(entry.Column)
		if column == "" {
			return fmt.Errorf("%w: entry %d has no column name", ErrInvalidMapping, i)
		}
		if _, err := ParseColumnKind(string(entry.Kind)); err != nil {
			return err
		}
		if _, dup := seen[column]; dup {
			return fmt.Errorf("%w: column %s mapped more than once", ErrInvalidMapping, column)
		}
		seen[column] = struct{}{}
	}
	return nil
}

// HeaderRefs returns the header references in mapping order.
func (m ColumnMapping) HeaderRefs() []string {
	refs := make([]string, len(m.Entries))
	for i, entry := range m.Entries {
		refs[i] = entry.HeaderRef
	}
	return refs
}

// Columns returns the destination column names in mapping order.
func (m ColumnMapping) Columns() []string {
	columns := make([]string, len(m.Entries))
	for i, entry := range m.Entries {
		columns[i] = entry.Column
	}
	return columns
}
