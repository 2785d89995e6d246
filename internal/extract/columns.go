package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ColumnIndex converts spreadsheet column letters to a zero-based index:
// A is 0, Z is 25, AA is 26.
func ColumnIndex(letters string) (int, error) {
	n, err := excelize.ColumnNameToNumber(strings.TrimSpace(letters))
	if err != nil {
		return 0, fmt.Errorf("invalid column reference %q: %w", letters, err)
	}
	return n - 1, nil
}

// ColumnLetters is the inverse of ColumnIndex.
func ColumnLetters(index int) (string, error) {
	return excelize.ColumnNumberToName(index + 1)
}

// CanonicalHeader validates a header reference and returns it in upper-case
// column letters, so "gs" and " GS " both become "GS".
func CanonicalHeader(ref string) (string, error) {
	idx, err := ColumnIndex(ref)
	if err != nil {
		return "", err
	}
	return ColumnLetters(idx)
}

// DaysInMonth returns the number of days in month (1-12) of year, using day 0
// of the following month.
func DaysInMonth(year int, month int) (int, error) {
	if month < 1 || month > 12 {
		return 0, fmt.Errorf("month %d out of range", month)
	}
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day(), nil
}
