package attribution

import (
	"sort"
	"strings"
	"time"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
)

const dateLayout = "2006-01-02"

// Window is a range of whole calendar days. End is inclusive; SQL queries use
// the half-open interval [Start, EndExclusive()).
type Window struct {
	Start time.Time
	End   time.Time
}

// ParseWindow parses ISO dates and rejects inverted ranges.
func ParseWindow(start, end string) (Window, error) {
	s, err := ParseDate("start", start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseDate("end", end)
	if err != nil {
		return Window{}, err
	}
	w := Window{Start: s, End: e}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// ParseDate parses a YYYY-MM-DD value into a UTC midnight.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, domain.NewValidationError(field, "is required (YYYY-MM-DD)")
	}
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, "must be YYYY-MM-DD, got %q", value)
	}
	return t, nil
}

func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return domain.NewValidationError("window", "start and end are required")
	}
	if w.End.Before(w.Start) {
		return domain.NewValidationError("window", "end %s is before start %s",
			w.End.Format(dateLayout), w.Start.Format(dateLayout))
	}
	return nil
}

// EndExclusive is the first instant after the window.
func (w Window) EndExclusive() time.Time {
	return truncateDay(w.End).AddDate(0, 0, 1)
}

// Days is the number of calendar days covered, at least 1.
func (w Window) Days() int {
	d := int(w.EndExclusive().Sub(truncateDay(w.Start)).Hours() / 24)
	if d < 1 {
		return 1
	}
	return d
}

// MonthStart truncates t to the first day of its month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthWindow covers the calendar month containing t.
func MonthWindow(t time.Time) Window {
	start := MonthStart(t)
	return Window{Start: start, End: start.AddDate(0, 1, -1)}
}

// ParseMonth accepts YYYY-MM or YYYY-MM-DD and returns the month start.
func ParseMonth(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation("2006-01", value, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, domain.NewValidationError("month", "must be YYYY-MM or YYYY-MM-DD, got %q", value)
	}
	return MonthStart(t), nil
}

// DistinctMonths returns the sorted set of month starts touched by dates.
func DistinctMonths(dates []time.Time) []time.Time {
	seen := make(map[time.Time]struct{})
	var out []time.Time
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		m := MonthStart(d)
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
