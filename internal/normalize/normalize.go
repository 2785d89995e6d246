// Package normalize converts raw spreadsheet cells into values ready to bind
// into an insert statement.
package normalize

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/rpattn/masterdata/internal/domain"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MidnightTime is stored for time columns that have no value.
const MidnightTime = "00:00:00"

var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// InferKind classifies a column by its name: "date" wins over "time", anything else is numeric.
func InferKind(column string) domain.ColumnKind {
	name := foldName(column)
	switch {
	case strings.Contains(name, "date"):
		return domain.ColumnKindDate
	case strings.Contains(name, "time"):
		return domain.ColumnKindTime
	default:
		return domain.ColumnKindNumeric
	}
}

// ResolveKind returns the explicit kind of an entry, falling back to name inference.
func ResolveKind(entry domain.MappingEntry) domain.ColumnKind {
	if entry.Kind != domain.ColumnKindInferred {
		return entry.Kind
	}
	return InferKind(entry.Column)
}

func foldName(column string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, column)
	if err != nil {
		stripped = column
	}
	return cases.Fold().String(stripped)
}

// Normalize converts raw to the value stored in a column of the given kind.
// A non-nil error wraps domain.ErrNormalizationAmbiguous and the returned value
// is the original input.
func Normalize(kind domain.ColumnKind, raw any) (any, error) {
	switch kind {
	case domain.ColumnKindDate:
		return Date(raw)
	case domain.ColumnKindTime:
		return Time(raw)
	case domain.ColumnKindText:
		return Text(raw), nil
	default:
		return Numeric(raw), nil
	}
}

// Date renders a cell as YYYY-MM-DD. DD/MM/YYYY and DD/MM/YY strings are
// rewritten, canonical strings pass through. Any other slash form is ambiguous.
func Date(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		value := strings.TrimSpace(v)
		if value == "" {
			return nil, nil
		}
		if isoDatePattern.MatchString(value) {
			return value, nil
		}
		parts := strings.Split(value, "/")
		if len(parts) != 3 {
			return raw, ambiguous("date", raw)
		}
		day, month, year := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])
		if !digits(day, 1, 2) || !digits(month, 1, 2) || !(digits(year, 2, 2) || digits(year, 4, 4)) {
			return raw, ambiguous("date", raw)
		}
		if len(year) == 2 {
			year = "20" + year
		}
		return fmt.Sprintf("%s-%s-%s", year, padTwo(month), padTwo(day)), nil
	case float64:
		if date, ok := SerialDate(v); ok {
			return date, nil
		}
		return raw, ambiguous("date", raw)
	default:
		return raw, ambiguous("date", raw)
	}
}

// digits reports whether part is all ASCII digits with a length in [lo, hi].
func digits(part string, lo, hi int) bool {
	if len(part) < lo || len(part) > hi {
		return false
	}
	for _, r := range part {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func padTwo(part string) string {
	if len(part) == 1 {
		return "0" + part
	}
	return part
}

// Time renders a cell as HH:mm:ss. Numbers are read as fractions of a day.
func Time(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return MidnightTime, nil
	case string:
		value := strings.TrimSpace(v)
		if value == "" {
			return MidnightTime, nil
		}
		if strings.Contains(value, ".") {
			return strings.ReplaceAll(value, ".", ":"), nil
		}
		return value, nil
	case float64:
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return raw, ambiguous("time", raw)
		}
		return FractionToTime(v), nil
	default:
		return raw, ambiguous("time", raw)
	}
}

// FractionToTime converts an Excel time serial to HH:mm:00. Whole days are
// dropped and minutes are rounded, never past 23:59.
func FractionToTime(v float64) string {
	_, frac := math.Modf(v)
	totalHours := frac * 24
	hours := int(math.Floor(totalHours))
	minutes := int(math.Round((totalHours - float64(hours)) * 60))
	if minutes == 60 {
		hours++
		minutes = 0
	}
	if hours > 23 {
		hours, minutes = 23, 59
	}
	return fmt.Sprintf("%02d:%02d:00", hours, minutes)
}

// Numeric converts numeric strings to float64. Empty cells become 0, a lone
// dash becomes nil and other text is kept trimmed.
func Numeric(raw any) any {
	value, ok := raw.(string)
	if !ok {
		if raw == nil {
			return float64(0)
		}
		return raw
	}
	value = strings.TrimSpace(value)
	switch value {
	case "":
		return float64(0)
	case "-":
		return nil
	}
	if f, ok := ParseNumber(value); ok {
		return f
	}
	return value
}

// Text keeps a cell as a trimmed string. Empty cells and a lone dash become nil.
func Text(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		value := strings.TrimSpace(v)
		if value == "" || value == "-" {
			return nil
		}
		return value
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// ParseNumber parses a finite number written with either decimal mark.
func ParseNumber(value string) (float64, bool) {
	f, err := strconv.ParseFloat(DecimalPoint(value), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// DecimalPoint rewrites locale separators so the token uses a dot decimal mark.
// With both separators present the right-most one is the decimal mark.
func DecimalPoint(value string) string {
	commas := strings.Count(value, ",")
	if commas == 0 {
		return value
	}
	dot := strings.LastIndex(value, ".")
	if dot < 0 {
		if commas == 1 {
			return strings.Replace(value, ",", ".", 1)
		}
		return strings.ReplaceAll(value, ",", "")
	}
	if strings.LastIndex(value, ",") > dot {
		value = strings.ReplaceAll(value, ".", "")
		return strings.Replace(value, ",", ".", 1)
	}
	return strings.ReplaceAll(value, ",", "")
}

// AmbiguousError records a cell that was passed through unchanged.
type AmbiguousError struct {
	Kind  string
	Value any
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%s column: cannot interpret %v (%T)", e.Kind, e.Value, e.Value)
}

func (e *AmbiguousError) Unwrap() error {
	return domain.ErrNormalizationAmbiguous
}

func ambiguous(kind string, value any) error {
	return &AmbiguousError{Kind: kind, Value: value}
}
