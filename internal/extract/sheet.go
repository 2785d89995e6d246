// Package extract reads uploaded spreadsheets and delimited text into raw rows
// keyed by header reference.
package extract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rpattn/masterdata/internal/domain"
	"github.com/rpattn/masterdata/internal/normalize"

	"github.com/xuri/excelize/v2"
)

// DefaultStartRow skips the title block of the monthly master data sheets;
// data begins on spreadsheet row 8.
const DefaultStartRow = 7

// SheetOptions describes the data region of a worksheet.
type SheetOptions struct {
	// Sheet selects a worksheet by name. Empty selects the first sheet.
	Sheet string
	// StartRow is the zero-based row index where data begins. Ignored when Range is set.
	StartRow int
	// Range is an explicit cell range such as "A8:GS38"; its rows bound the region.
	// Only the row part is used; columns come from Headers.
	Range string
	// Limit caps the number of sheet rows read from the start of the region,
	// blank rows included. Zero means no cap.
	Limit int
	// Headers are the column letters to project.
	Headers []string
	// DateHeaders marks headers whose numeric cells are date serials.
	DateHeaders map[string]bool
}

type projection struct {
	header string
	index  int
}

// ReadSheet extracts raw rows from the workbook at path.
func ReadSheet(path string, opts SheetOptions) ([]domain.RawRow, error) {
	if len(opts.Headers) == 0 {
		return nil, errors.New("no header references to extract")
	}
	projections := make([]projection, len(opts.Headers))
	for i, header := range opts.Headers {
		idx, err := ColumnIndex(header)
		if err != nil {
			return nil, err
		}
		projections[i] = projection{header: header, index: idx}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheet := opts.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, errors.New("excel file has no sheets")
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheet, err)
	}

	start, end, err := region(opts, len(rows))
	if err != nil {
		return nil, err
	}

	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}

	// Blank rows still count toward Limit so a summary row below the
	// region never takes the place of an empty day.
	var out []domain.RawRow
	for _, row := range rows[start:end] {
		if isBlank(row) {
			continue
		}
		raw := make(domain.RawRow, len(projections))
		for _, p := range projections {
			raw[p.header] = cellValue(row, p.index, opts.DateHeaders[p.header])
		}
		out = append(out, raw)
	}
	return out, nil
}

func region(opts SheetOptions, total int) (int, int, error) {
	if strings.TrimSpace(opts.Range) == "" {
		start := opts.StartRow
		if start < 0 {
			return 0, 0, fmt.Errorf("start row %d out of range", start)
		}
		if start > total {
			start = total
		}
		return start, total, nil
	}

	bounds := strings.Split(strings.TrimSpace(opts.Range), ":")
	if len(bounds) != 2 {
		return 0, 0, fmt.Errorf("invalid range %q", opts.Range)
	}
	_, first, err := excelize.CellNameToCoordinates(bounds[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range %q: %w", opts.Range, err)
	}
	_, last, err := excelize.CellNameToCoordinates(bounds[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid range %q: %w", opts.Range, err)
	}
	if last < first {
		first, last = last, first
	}
	start, end := first-1, last
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return start, end, nil
}

func cellValue(row []string, index int, dateColumn bool) any {
	if index >= len(row) {
		return nil
	}
	value := row[index]
	if strings.TrimSpace(value) == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return value
	}
	if dateColumn {
		if date, ok := normalize.SerialDate(f); ok {
			return date
		}
	}
	return f
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
