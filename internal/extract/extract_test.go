package extract

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestColumnIndex(t *testing.T) {
	cases := map[string]int{"A": 0, "B": 1, "Z": 25, "AA": 26, "AZ": 51, "BA": 52, "GS": 200}
	for letters, want := range cases {
		got, err := ColumnIndex(letters)
		if err != nil {
			t.Fatalf("ColumnIndex(%q) returned error: %v", letters, err)
		}
		if got != want {
			t.Errorf("ColumnIndex(%q) = %d, want %d", letters, got, want)
		}
		back, err := ColumnLetters(got)
		if err != nil || back != letters {
			t.Errorf("ColumnLetters(%d) = %q, %v; want %q", got, back, err, letters)
		}
	}
	if _, err := ColumnIndex("1A"); err == nil {
		t.Fatalf("expected error for invalid column reference")
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		year, month, want int
	}{
		{2024, 1, 31},
		{2024, 2, 29},
		{2023, 2, 28},
		{2024, 4, 30},
		{2024, 12, 31},
	}
	for _, tc := range cases {
		got, err := DaysInMonth(tc.year, tc.month)
		if err != nil {
			t.Fatalf("DaysInMonth(%d, %d) returned error: %v", tc.year, tc.month, err)
		}
		if got != tc.want {
			t.Errorf("DaysInMonth(%d, %d) = %d, want %d", tc.year, tc.month, got, tc.want)
		}
	}
	if _, err := DaysInMonth(2024, 13); err == nil {
		t.Fatalf("expected error for month 13")
	}
}

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	set := func(cell string, value any) {
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			t.Fatalf("set %s: %v", cell, err)
		}
	}
	set("A1", "Monthly readings")
	set("A3", "Unit 4")

	set("C8", "23,5")
	set("D8", 45323)
	set("E8", 0.5)
	set("C9", 24.25)
	set("D9", "02/02/2024")
	set("C10", "-")
	set("D10", 45325)
	set("A12", "late entry")
	set("D12", 45327)

	path := filepath.Join(t.TempDir(), "readings.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close workbook: %v", err)
	}
	return path
}

func TestCanonicalHeader(t *testing.T) {
	for ref, want := range map[string]string{"c": "C", " gs ": "GS", "AA": "AA"} {
		got, err := CanonicalHeader(ref)
		if err != nil || got != want {
			t.Errorf("CanonicalHeader(%q) = %q, %v; want %q", ref, got, err, want)
		}
	}
	for _, ref := range []string{"", "C8", "1"} {
		if _, err := CanonicalHeader(ref); err == nil {
			t.Errorf("CanonicalHeader(%q) expected error", ref)
		}
	}
}

func TestReadSheetProjectsHeadersFromStartRow(t *testing.T) {
	path := writeWorkbook(t)
	rows, err := ReadSheet(path, SheetOptions{
		StartRow:    DefaultStartRow,
		Headers:     []string{"C", "D", "E"},
		DateHeaders: map[string]bool{"D": true},
	})
	if err != nil {
		t.Fatalf("ReadSheet returned error: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 non-blank rows, got %d: %+v", len(rows), rows)
	}

	first := rows[0]
	if first["C"] != "23,5" {
		t.Errorf("expected raw text 23,5, got %#v", first["C"])
	}
	if first["D"] != "2024-02-01" {
		t.Errorf("expected serial converted to date, got %#v", first["D"])
	}
	if first["E"] != 0.5 {
		t.Errorf("expected numeric time fraction, got %#v", first["E"])
	}
	if rows[1]["C"] != 24.25 || rows[1]["D"] != "02/02/2024" || rows[1]["E"] != nil {
		t.Errorf("unexpected second row: %#v", rows[1])
	}
	if rows[3]["C"] != nil || rows[3]["D"] != "2024-02-05" {
		t.Errorf("unexpected last row: %#v", rows[3])
	}
}

func TestReadSheetAppliesLimit(t *testing.T) {
	path := writeWorkbook(t)
	rows, err := ReadSheet(path, SheetOptions{StartRow: DefaultStartRow, Limit: 2, Headers: []string{"D"}})
	if err != nil {
		t.Fatalf("ReadSheet returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["D"] != float64(45323) {
		t.Errorf("expected raw serial without date header, got %#v", rows[0]["D"])
	}
}

func TestReadSheetCountsBlankDaysTowardLimit(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for day := 1; day <= 29; day++ {
		if day == 5 {
			continue
		}
		row := DefaultStartRow + day
		if err := f.SetCellValue(sheet, fmt.Sprintf("C%d", row), day); err != nil {
			t.Fatalf("set day %d: %v", day, err)
		}
	}
	if err := f.SetCellValue(sheet, "B37", "TOTAL"); err != nil {
		t.Fatalf("set total label: %v", err)
	}
	if err := f.SetCellValue(sheet, "C37", 999); err != nil {
		t.Fatalf("set total: %v", err)
	}
	path := filepath.Join(t.TempDir(), "february.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	_ = f.Close()

	days, err := DaysInMonth(2024, 2)
	if err != nil {
		t.Fatalf("DaysInMonth: %v", err)
	}
	rows, err := ReadSheet(path, SheetOptions{StartRow: DefaultStartRow, Limit: days, Headers: []string{"C"}})
	if err != nil {
		t.Fatalf("ReadSheet returned error: %v", err)
	}
	if len(rows) != 28 {
		t.Fatalf("expected 28 rows with the blank day dropped, got %d", len(rows))
	}
	for _, row := range rows {
		if row["C"] == float64(999) {
			t.Fatalf("summary row below the month was read as a record")
		}
	}
	if last := rows[len(rows)-1]["C"]; last != float64(29) {
		t.Fatalf("expected last record to be day 29, got %#v", last)
	}
}

func TestReadSheetHonoursRange(t *testing.T) {
	path := writeWorkbook(t)
	rows, err := ReadSheet(path, SheetOptions{Range: "A9:E10", Headers: []string{"C"}})
	if err != nil {
		t.Fatalf("ReadSheet returned error: %v", err)
	}
	if len(rows) != 2 || rows[0]["C"] != 24.25 || rows[1]["C"] != "-" {
		t.Fatalf("unexpected rows: %#v", rows)
	}

	if _, err := ReadSheet(path, SheetOptions{Range: "A9", Headers: []string{"C"}}); err == nil {
		t.Fatalf("expected error for malformed range")
	}
}

func TestReadSheetMissingSheet(t *testing.T) {
	path := writeWorkbook(t)
	if _, err := ReadSheet(path, SheetOptions{Sheet: "Nope", Headers: []string{"C"}}); err == nil {
		t.Fatalf("expected error for unknown sheet")
	}
}

func TestReadCSVKeepsInclusiveRange(t *testing.T) {
	input := "\ufeffdate,temperature,remark\n" +
		"01/02/2024,23.5,ok\n" +
		"2024-02-02,,\n" +
		"03/02/2024,24,late\n" +
		"04/02/2024,25,extra\n"

	rows, err := ReadCSV(strings.NewReader(input), CSVOptions{
		Start:   2,
		End:     4,
		Headers: []string{"A", "B", "C"},
	})
	if err != nil {
		t.Fatalf("ReadCSV returned error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0]["A"] != "01/02/2024" || rows[0]["B"] != "23.5" || rows[0]["C"] != "ok" {
		t.Errorf("unexpected first row: %#v", rows[0])
	}
	if rows[1]["B"] != nil || rows[1]["C"] != nil {
		t.Errorf("expected empty cells as nil, got %#v", rows[1])
	}
	if rows[2]["C"] != "late" {
		t.Errorf("unexpected last row: %#v", rows[2])
	}
}

func TestReadCSVStripsByteOrderMark(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader("\ufeff2024-02-01,1\n"), CSVOptions{Headers: []string{"A", "B"}})
	if err != nil {
		t.Fatalf("ReadCSV returned error: %v", err)
	}
	if len(rows) != 1 || rows[0]["A"] != "2024-02-01" {
		t.Fatalf("expected BOM to be stripped, got %#v", rows)
	}
}

func TestReadCSVShortRecordsAndLimit(t *testing.T) {
	input := "a\nb,2\nc,3\n"
	rows, err := ReadCSV(strings.NewReader(input), CSVOptions{Limit: 2, Headers: []string{"A", "B"}})
	if err != nil {
		t.Fatalf("ReadCSV returned error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected limit of 2 rows, got %d", len(rows))
	}
	if rows[0]["B"] != nil {
		t.Errorf("expected missing field as nil, got %#v", rows[0]["B"])
	}
}

func TestReadCSVRejectsInvertedRange(t *testing.T) {
	if _, err := ReadCSV(strings.NewReader("a\n"), CSVOptions{Start: 5, End: 2, Headers: []string{"A"}}); err == nil {
		t.Fatalf("expected error for inverted range")
	}
}
