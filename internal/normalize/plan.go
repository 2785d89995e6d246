package normalize

import (
	"github.com/rpattn/masterdata/internal/domain"
)

// Issue describes a cell that was passed through unchanged.
type Issue struct {
	Row       int
	HeaderRef string
	Column    string
	Err       error
}

type columnPlan struct {
	headerRef string
	column    string
	kind      domain.ColumnKind
}

// Plan normalises rows for one mapping. Column kinds are resolved once.
type Plan struct {
	columns []columnPlan
}

// NewPlan resolves the kind of every mapped column.
func NewPlan(mapping domain.ColumnMapping) *Plan {
	columns := make([]columnPlan, len(mapping.Entries))
	for i, entry := range mapping.Entries {
		columns[i] = columnPlan{
			headerRef: entry.HeaderRef,
			column:    entry.Column,
			kind:      ResolveKind(entry),
		}
	}
	return &Plan{columns: columns}
}

// Columns returns destination columns in mapping order.
func (p *Plan) Columns() []string {
	out := make([]string, len(p.columns))
	for i, c := range p.columns {
		out[i] = c.column
	}
	return out
}

// Kind returns the resolved kind of a header reference.
func (p *Plan) Kind(headerRef string) (domain.ColumnKind, bool) {
	for _, c := range p.columns {
		if c.headerRef == headerRef {
			return c.kind, true
		}
	}
	return "", false
}

// DateHeaders returns the header references feeding date columns.
func (p *Plan) DateHeaders() map[string]bool {
	out := make(map[string]bool)
	for _, c := range p.columns {
		if c.kind == domain.ColumnKindDate {
			out[c.headerRef] = true
		}
	}
	return out
}

// Row normalises one raw row. Every mapped column receives exactly one value.
func (p *Plan) Row(raw domain.RawRow) (domain.NormalizedRow, []Issue) {
	row := make(domain.NormalizedRow, len(p.columns))
	var issues []Issue
	for i, c := range p.columns {
		value, err := Normalize(c.kind, raw[c.headerRef])
		if err != nil {
			issues = append(issues, Issue{HeaderRef: c.headerRef, Column: c.column, Err: err})
		}
		row[i] = value
	}
	return row, issues
}

// Rows normalises every raw row, numbering issues by 1-based record position.
func (p *Plan) Rows(raw []domain.RawRow) ([]domain.NormalizedRow, []Issue) {
	rows := make([]domain.NormalizedRow, 0, len(raw))
	var issues []Issue
	for i, r := range raw {
		row, rowIssues := p.Row(r)
		for _, issue := range rowIssues {
			issue.Row = i + 1
			issues = append(issues, issue)
		}
		rows = append(rows, row)
	}
	return rows, issues
}
