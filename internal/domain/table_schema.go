package domain

// TableSchema describes a destination table as reported by the schema introspector.
// Only names held here may be rendered into statement text.
type TableSchema struct {
	Name            string
	BusinessColumns []string
	DateColumn      string
	DateUnique      bool

	allowed map[string]struct{}
}

// NewTableSchema builds an identifier registry for a table.
func NewTableSchema(name string, businessColumns []string, dateColumn string, dateUnique bool) TableSchema {
	allowed := make(map[string]struct{}, len(businessColumns))
	for _, column := range businessColumns {
		allowed[column] = struct{}{}
	}
	return TableSchema{
		Name:            name,
		BusinessColumns: append([]string(nil), businessColumns...),
		DateColumn:      dateColumn,
		DateUnique:      dateUnique,
		allowed:         allowed,
	}
}

// HasColumn reports whether column is a registered business column.
func (s TableSchema) HasColumn(column string) bool {
	_, ok := s.allowed[column]
	return ok
}
