package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rpattn/masterdata/internal/domain"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVOptions bounds a delimited-text extraction.
type CSVOptions struct {
	// Start and End are inclusive 1-based record ordinals. End 0 reads to EOF.
	Start int
	End   int
	// Limit caps the number of records. Zero means no cap.
	Limit int
	// Headers are matched to fields by position.
	Headers []string
	// Comma overrides the field delimiter.
	Comma rune
}

// ReadCSVFile extracts raw rows from the delimited file at path.
func ReadCSVFile(path string, opts CSVOptions) ([]domain.RawRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, opts)
}

// ReadCSV streams records from r and keeps those within the ordinal range.
func ReadCSV(r io.Reader, opts CSVOptions) ([]domain.RawRow, error) {
	if len(opts.Headers) == 0 {
		return nil, errors.New("no header references to extract")
	}
	if opts.Start < 1 {
		opts.Start = 1
	}
	if opts.End != 0 && opts.End < opts.Start {
		return nil, fmt.Errorf("invalid line range %d-%d", opts.Start, opts.End)
	}

	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(transform.Nop)))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	var out []domain.RawRow
	for ordinal := 1; ; ordinal++ {
		if opts.End != 0 && ordinal > opts.End {
			break
		}
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record %d: %w", ordinal, err)
		}
		if ordinal < opts.Start {
			continue
		}
		out = append(out, project(record, opts.Headers))
		if opts.Limit > 0 && len(out) == opts.Limit {
			break
		}
	}
	return out, nil
}

func project(record []string, headers []string) domain.RawRow {
	raw := make(domain.RawRow, len(headers))
	for i, header := range headers {
		if i >= len(record) || strings.TrimSpace(record[i]) == "" {
			raw[header] = nil
			continue
		}
		raw[header] = record[i]
	}
	return raw
}
