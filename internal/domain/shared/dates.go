package shared

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the DD-MM-YYYY layout bookings, leases and invoices store
// their calendar dates in.
const DateLayout = "02-01-2006"

// ParseDate parses a DD-MM-YYYY string as midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, ErrInvalidInput.Wrap(fmt.Sprintf("invalid date %q, want DD-MM-YYYY", value), err)
	}
	return t, nil
}

// FormatDate renders t as DD-MM-YYYY.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last representable instant of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// Period is a calendar month.
type Period struct {
	Year  int
	Month int
}

// NewPeriod validates month and year.
func NewPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, ErrInvalidInput.Wrap(fmt.Sprintf("month %d out of range", month), nil)
	}
	if year < 1970 || year > 9999 {
		return Period{}, ErrInvalidInput.Wrap(fmt.Sprintf("year %d out of range", year), nil)
	}
	return Period{Year: year, Month: month}, nil
}

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: int(t.Month())}
}

// Contains reports whether t falls in the period.
func (p Period) Contains(t time.Time) bool {
	return t.Year() == p.Year && int(t.Month()) == p.Month
}

// Add shifts the period by n months (negative goes back).
func (p Period) Add(n int) Period {
	t := time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return PeriodOf(t)
}

// Before reports whether p is strictly earlier than o.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
