package upsert

import (
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Dialect renders the engine specific parts of a statement.
type Dialect struct {
	Name        string
	Placeholder func(n int) string
	QuoteIdent  func(name string) string
	// MaxParams is the bind parameter limit of one statement.
	MaxParams int
}

// Postgres targets pgx connections.
var Postgres = Dialect{
	Name:        "postgres",
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	QuoteIdent:  func(name string) string { return pgx.Identifier{name}.Sanitize() },
	MaxParams:   65535,
}

// SQLite targets modernc.org/sqlite connections.
var SQLite = Dialect{
	Name:        "sqlite",
	Placeholder: func(int) string { return "?" },
	QuoteIdent: func(name string) string {
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	},
	MaxParams: 32766,
}

// DialectFor resolves a storage kind to its dialect.
func DialectFor(kind string) (Dialect, bool) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "postgres", "postgresql", "pgx":
		return Postgres, true
	case "sqlite", "sqlite3":
		return SQLite, true
	default:
		return Dialect{}, false
	}
}
