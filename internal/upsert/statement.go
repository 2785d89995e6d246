package upsert

import (
	"strings"
)

// Statement selects the shape of the generated insert.
type Statement interface {
	statement()
}

// PlainInsert writes every row as a new record.
type PlainInsert struct{}

// UpsertOnConflict overwrites the existing record that shares Column.
type UpsertOnConflict struct {
	Column string
}

func (PlainInsert) statement()      {}
func (UpsertOnConflict) statement() {}

// Insert is a multi-row insert over already validated identifiers.
type Insert struct {
	Table   string
	Columns []string
	// Update lists the columns overwritten on conflict, in order.
	Update []string
	Rows   [][]any
}

// ParamCount is the number of bind parameters the insert needs.
func (ins Insert) ParamCount() int {
	return len(ins.Columns) * len(ins.Rows)
}

// Build renders ins as a single statement for dialect d.
func Build(d Dialect, ins Insert, stmt Statement) (string, []any) {
	var sb strings.Builder
	args := make([]any, 0, ins.ParamCount())

	sb.WriteString("INSERT INTO ")
	sb.WriteString(d.QuoteIdent(ins.Table))
	sb.WriteString(" (")
	for i, column := range ins.Columns {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(d.QuoteIdent(column))
	}
	sb.WriteString(") VALUES ")

	for r, row := range ins.Rows {
		if r > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for i := range ins.Columns {
			if i > 0 {
				sb.WriteString(", ")
			}
			var value any
			if i < len(row) {
				value = row[i]
			}
			args = append(args, value)
			sb.WriteString(d.Placeholder(len(args)))
		}
		sb.WriteString(")")
	}

	if conflict, ok := stmt.(UpsertOnConflict); ok {
		sb.WriteString(" ON CONFLICT (")
		sb.WriteString(d.QuoteIdent(conflict.Column))
		sb.WriteString(")")
		if len(ins.Update) == 0 {
			sb.WriteString(" DO NOTHING")
			return sb.String(), args
		}
		sb.WriteString(" DO UPDATE SET ")
		for i, column := range ins.Update {
			if i > 0 {
				sb.WriteString(", ")
			}
			quoted := d.QuoteIdent(column)
			sb.WriteString(quoted)
			sb.WriteString(" = EXCLUDED.")
			sb.WriteString(quoted)
		}
	}

	return sb.String(), args
}
