package ingest

import (
	"strconv"
	"strings"
	"time"
)

// Day-first layouts, tried in order. Reports mix ISO dates, Indian
// dd-mm-yyyy dates and timestamps.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"02-01-2006",
	"02/01/2006",
	"2-1-2006",
	"2/1/2006",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02-Jan-2006",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"02-01-06",
}

// ParseDate parses a report date, day first, and returns the UTC calendar day.
// When the full value does not parse, its first ten characters are tried so
// that timestamps with unusual suffixes still yield a date.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, ok := parseDateLayouts(s); ok {
		return t, true
	}
	if len(s) > 10 {
		return parseDateLayouts(strings.TrimSpace(s[:10]))
	}
	return time.Time{}, false
}

func parseDateLayouts(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func cleanNumber(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "₹")
	return strings.TrimSpace(s)
}

// ParseInt coerces a cell to an integer, truncating decimals. Bad cells are 0.
func ParseInt(s string) int64 {
	s = cleanNumber(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

// ParseFloat coerces a cell to a float; ok is false for blank or bad cells.
func ParseFloat(s string) (float64, bool) {
	s = cleanNumber(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParsePct reads "12.5" or "12.5%" as 12.5. Blank or bad cells are nil.
func ParsePct(s string) *float64 {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	f, ok := ParseFloat(s)
	if !ok {
		return nil
	}
	return &f
}

func optFloat(s string) *float64 {
	f, ok := ParseFloat(s)
	if !ok {
		return nil
	}
	return &f
}

func optInt(s string) *int64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	n := ParseInt(s)
	return &n
}
