package shared

import (
	"fmt"
	"time"
)

// PeriodLayout is the textual form of a reporting period (year and month)
const PeriodLayout = "2006-01"

// MonthStart normalizes t to the first day of its month at UTC midnight.
// All reporting periods and KPI target months are stored in this form.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Period builds a normalized period from a year and a 1-based month
func Period(year, month int) (time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, NewDomainError("INVALID_PERIOD", fmt.Sprintf("month must be between 1 and 12, got %d", month))
	}
	if year < 1900 || year > 9999 {
		return time.Time{}, NewDomainError("INVALID_PERIOD", fmt.Sprintf("year out of range: %d", year))
	}
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC), nil
}

// ParsePeriod parses "YYYY-MM" (a full date is accepted and truncated)
func ParsePeriod(s string) (time.Time, error) {
	if t, err := time.Parse(PeriodLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return MonthStart(t), nil
	}
	return time.Time{}, NewDomainError("INVALID_PERIOD", fmt.Sprintf("invalid period %q, expected YYYY-MM", s))
}

// NextMonth returns the first day of the month after t
func NextMonth(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, 0)
}

// FormatPeriod renders a period as YYYY-MM
func FormatPeriod(t time.Time) string {
	return t.Format(PeriodLayout)
}
