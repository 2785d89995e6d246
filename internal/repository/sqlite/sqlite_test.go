package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/rpattn/masterdata/internal/domain"
	"github.com/rpattn/masterdata/internal/normalize"
	"github.com/rpattn/masterdata/internal/repository"
	"github.com/rpattn/masterdata/internal/upsert"
)

const destinationTables = `
CREATE TABLE readings_daily (
    id          TEXT PRIMARY KEY,
    inserted_by TEXT,
    date        TEXT UNIQUE,
    temperature REAL,
    remark      TEXT,
    created_at  TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE readings_log (
    id          TEXT PRIMARY KEY,
    inserted_by TEXT,
    date        TEXT,
    temperature REAL,
    remark      TEXT
);
CREATE TABLE shift_log (
    id          TEXT PRIMARY KEY,
    inserted_by TEXT,
    date        TEXT,
    shift       TEXT,
    UNIQUE (date, shift)
);
CREATE TABLE partial_log (
    id          TEXT PRIMARY KEY,
    inserted_by TEXT,
    date        TEXT,
    active      INTEGER
);
CREATE UNIQUE INDEX idx_partial_log_date ON partial_log (date) WHERE active = 1;
CREATE TABLE indexed_log (
    id          TEXT PRIMARY KEY,
    inserted_by TEXT,
    date        TEXT
);
CREATE UNIQUE INDEX idx_indexed_log_date ON indexed_log (date)
`

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "masterdata.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := Migrate(ctx, db); err != nil {
		t.Fatalf("second migrate should be a no-op: %v", err)
	}
	if _, err := NewQueryExecutor(db).Exec(ctx, "SELECT 1"); err != nil {
		t.Fatalf("exec: %v", err)
	}
	for _, stmt := range splitStatements(destinationTables) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			t.Fatalf("create destination tables: %v", err)
		}
	}
	return db
}

func splitStatements(script string) []string {
	var out []string
	start := 0
	for i := 0; i < len(script); i++ {
		if script[i] == ';' {
			out = append(out, script[start:i])
			start = i + 1
		}
	}
	if rest := script[start:]; len(rest) > 0 {
		out = append(out, rest)
	}
	return out
}

func newSink(db *sql.DB) *upsert.Sink {
	return upsert.NewSink(NewSchemaIntrospector(db), NewQueryExecutor(db), upsert.SQLite, upsert.DefaultConfig())
}

func TestConstrainedTableKeepsLastWrite(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	sink := newSink(db)

	first := domain.IngestionBatch{
		Table:   "readings_daily",
		Actor:   "alice",
		Columns: []string{"date", "temperature", "remark"},
		Rows:    []domain.NormalizedRow{{"2024-02-01", 21.0, "first"}},
	}
	second := first
	second.Actor = "bob"
	second.Rows = []domain.NormalizedRow{{"2024-02-01", 22.5, nil}}

	for _, batch := range []domain.IngestionBatch{first, second} {
		res, err := sink.Upsert(ctx, batch)
		if err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if res.Mode != domain.WriteModeUpsertOnConflict || res.Affected != 1 {
			t.Fatalf("unexpected result: %+v", res)
		}
	}

	var (
		count       int
		temperature float64
		remark      sql.NullString
		insertedBy  string
	)
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*), MAX(temperature), MAX(remark), MAX(inserted_by) FROM readings_daily WHERE date = ?`,
		"2024-02-01",
	).Scan(&count, &temperature, &remark, &insertedBy); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 1 || temperature != 22.5 || remark.Valid || insertedBy != "bob" {
		t.Fatalf("expected single overwritten row, got count=%d temperature=%v remark=%v inserted_by=%s",
			count, temperature, remark, insertedBy)
	}
}

func TestConstrainedBatchWithRepeatedDate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_, err := newSink(db).Upsert(ctx, domain.IngestionBatch{
		Table:   "readings_daily",
		Actor:   "alice",
		Columns: []string{"date", "temperature"},
		Rows: []domain.NormalizedRow{
			{"2024-02-01", 1.0},
			{"2024-02-02", 2.0},
			{"2024-02-01", 3.0},
		},
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var temperature float64
	if err := db.QueryRowContext(ctx, `SELECT temperature FROM readings_daily WHERE date = ?`, "2024-02-01").Scan(&temperature); err != nil {
		t.Fatalf("query: %v", err)
	}
	if temperature != 3.0 {
		t.Fatalf("expected last occurrence to win, got %v", temperature)
	}
}

func TestUnconstrainedTableAccumulates(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	sink := newSink(db)

	batch := domain.IngestionBatch{
		Table:   "readings_log",
		Actor:   "alice",
		Columns: []string{"date", "temperature"},
		Rows:    []domain.NormalizedRow{{"2024-02-01", 21.0}},
	}
	for i := 0; i < 2; i++ {
		res, err := sink.Upsert(ctx, batch)
		if err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if res.Mode != domain.WriteModePlainInsert {
			t.Fatalf("expected plain insert, got %q", res.Mode)
		}
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings_log WHERE date = ?`, "2024-02-01").Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 rows, got %d", count)
	}
}

func TestWriteFailureLeavesTableUntouched(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `CREATE TABLE strict_log (id TEXT PRIMARY KEY, inserted_by TEXT, date TEXT, temperature REAL NOT NULL)`); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := newSink(db).Upsert(ctx, domain.IngestionBatch{
		Table:   "strict_log",
		Columns: []string{"date", "temperature"},
		Rows:    []domain.NormalizedRow{{"2024-02-01", 1.0}, {"2024-02-02", nil}},
	})
	if !errors.Is(err, domain.ErrWriteFailure) {
		t.Fatalf("expected ErrWriteFailure, got %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM strict_log`).Scan(&count); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no partial write, got %d rows", count)
	}
}

func TestEndToEndNormalizedRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	mapping := domain.NewColumnMapping("readings_daily", []domain.MappingEntry{
		{HeaderRef: "C", Column: "temperature"},
		{HeaderRef: "D", Column: "date"},
	})
	plan := normalize.NewPlan(mapping)
	rows, issues := plan.Rows([]domain.RawRow{{"C": "23,5", "D": "01/02/2024"}})
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %+v", issues)
	}

	if _, err := newSink(db).Upsert(ctx, domain.IngestionBatch{
		Table:   mapping.Table,
		Actor:   "alice",
		Columns: plan.Columns(),
		Rows:    rows,
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	var temperature float64
	if err := db.QueryRowContext(ctx, `SELECT temperature FROM readings_daily WHERE date = ?`, "2024-02-01").Scan(&temperature); err != nil {
		t.Fatalf("query: %v", err)
	}
	if temperature != 23.5 {
		t.Fatalf("expected 23.5, got %v", temperature)
	}
}

func TestSchemaIntrospector(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	schema := NewSchemaIntrospector(db)

	tables, err := schema.ListTables(ctx)
	if err != nil {
		t.Fatalf("list tables: %v", err)
	}
	want := []string{"indexed_log", "partial_log", "readings_daily", "readings_log", "shift_log"}
	if len(tables) != len(want) {
		t.Fatalf("unexpected tables: %v", tables)
	}
	for i := range want {
		if tables[i] != want[i] {
			t.Fatalf("unexpected tables: %v", tables)
		}
	}

	columns, err := schema.ListColumns(ctx, "readings_daily", upsert.DefaultConfig().SystemColumns)
	if err != nil {
		t.Fatalf("list columns: %v", err)
	}
	if len(columns) != 3 || columns[0] != "date" || columns[1] != "temperature" || columns[2] != "remark" {
		t.Fatalf("unexpected columns: %v", columns)
	}

	missing, err := schema.ListColumns(ctx, "nope", nil)
	if err != nil || len(missing) != 0 {
		t.Fatalf("expected no columns for unknown table, got %v %v", missing, err)
	}

	cases := map[string]bool{
		"readings_daily": true,
		"indexed_log":    true,
		"readings_log":   false,
		"shift_log":      false,
		"partial_log":    false,
	}
	for table, want := range cases {
		got, err := schema.HasUniqueConstraint(ctx, table, "date")
		if err != nil {
			t.Fatalf("HasUniqueConstraint(%s): %v", table, err)
		}
		if got != want {
			t.Errorf("HasUniqueConstraint(%s) = %v, want %v", table, got, want)
		}
	}
}

func TestMappingRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewMappingRepository(db)

	if _, err := repo.GetMapping(ctx, "readings_daily"); !errors.Is(err, domain.ErrMappingNotFound) {
		t.Fatalf("expected ErrMappingNotFound, got %v", err)
	}

	first := domain.NewColumnMapping("readings_daily", []domain.MappingEntry{
		{HeaderRef: "C", Column: "temperature"},
		{HeaderRef: "D", Column: "date", Kind: domain.ColumnKindDate},
	})
	if _, err := repo.PutMapping(ctx, first); err != nil {
		t.Fatalf("put mapping: %v", err)
	}
	second := domain.NewColumnMapping("readings_daily", []domain.MappingEntry{
		{HeaderRef: "F", Column: "remark", Kind: domain.ColumnKindText},
	})
	stored, err := repo.PutMapping(ctx, second)
	if err != nil {
		t.Fatalf("put mapping: %v", err)
	}
	if stored.Entries[0].Position != 2 {
		t.Fatalf("expected position to continue after existing entries, got %d", stored.Entries[0].Position)
	}

	mapping, err := repo.GetMapping(ctx, "readings_daily")
	if err != nil {
		t.Fatalf("get mapping: %v", err)
	}
	if got := mapping.HeaderRefs(); len(got) != 3 || got[0] != "C" || got[1] != "D" || got[2] != "F" {
		t.Fatalf("unexpected header order: %v", got)
	}
	if mapping.Entries[1].Kind != domain.ColumnKindDate || mapping.Entries[2].Kind != domain.ColumnKindText {
		t.Fatalf("kinds not persisted: %+v", mapping.Entries)
	}
	if mapping.Entries[0].CreatedAt.IsZero() {
		t.Fatalf("expected created_at to round-trip")
	}

	if _, err := repo.PutMapping(ctx, domain.ColumnMapping{Table: "readings_daily"}); !errors.Is(err, domain.ErrInvalidMapping) {
		t.Fatalf("expected ErrInvalidMapping, got %v", err)
	}

	tables, err := repo.ListMappedTables(ctx)
	if err != nil || len(tables) != 1 || tables[0] != "readings_daily" {
		t.Fatalf("unexpected mapped tables: %v %v", tables, err)
	}
}

func TestIngestionLogRepository(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewIngestionLogRepository(db)

	row := 4
	entries := []domain.IngestionLogEntry{
		{TableName: "readings_daily", Actor: "alice", FileName: "feb.xlsx", RowNumber: &row, ErrorMessage: "ambiguous date"},
		{TableName: "readings_daily", Actor: "alice", FileName: "feb.xlsx", ErrorMessage: "write failure"},
		{TableName: "readings_log", Actor: "bob", FileName: "mar.csv", ErrorMessage: "empty batch"},
	}
	for _, entry := range entries {
		if err := repo.Record(ctx, entry); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	all, err := repo.List(ctx, repository.IngestionLogFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("expected 3 entries, got %d (%v)", len(all), err)
	}

	daily, err := repo.List(ctx, repository.IngestionLogFilter{TableName: "readings_daily", FileName: "feb.xlsx"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(daily) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(daily))
	}
	var withRow int
	for _, entry := range daily {
		if entry.RowNumber != nil && *entry.RowNumber == 4 {
			withRow++
		}
	}
	if withRow != 1 {
		t.Fatalf("expected row number to round-trip, got %+v", daily)
	}
}
