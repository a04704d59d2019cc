package calendar

import (
	"fmt"
	"strings"
)

// Granularity is the bucket size of a cost time series.
type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week" // monthly week, see WeeksOfMonth
	Month Granularity = "month"
)

// ParseGranularity accepts day/week/month and the -ly spellings.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day", "daily":
		return Day, nil
	case "week", "weekly":
		return Week, nil
	case "month", "monthly":
		return Month, nil
	}
	return "", &ValidationError{Field: "granularity", Value: s, Reason: "expected day, week or month"}
}

// Valid reports whether g is one of the known granularities.
func (g Granularity) Valid() bool {
	return g == Day || g == Week || g == Month
}

// PeriodEnd returns the inclusive last day of the g-period containing d.
func (g Granularity) PeriodEnd(d Date) Date {
	return RoundToPeriodEnd(d, g).AddDays(-1)
}

// Period returns the full g-period containing d.
func (g Granularity) Period(d Date) DateRange {
	return DateRange{From: RoundToPeriodStart(d, g), To: g.PeriodEnd(d)}
}

// Periods tiles r with g-periods, clipping the first and last to r.
func (g Granularity) Periods(r DateRange) []DateRange {
	var out []DateRange
	for start := r.From; !start.After(r.To); start = RoundToPeriodEnd(start, g) {
		end := MinDate(g.PeriodEnd(start), r.To)
		out = append(out, DateRange{From: start, To: end})
	}
	return out
}

// Label renders the period starting at d for display:
// 2024-01-15 (day), 2024-01 W3 (week), 2024-01 (month).
func (g Granularity) Label(d Date) string {
	switch g {
	case Week:
		return fmt.Sprintf("%04d-%02d W%d", d.Year(), int(d.Month()), WeekOfMonth(d))
	case Month:
		return fmt.Sprintf("%04d-%02d", d.Year(), int(d.Month()))
	default:
		return d.String()
	}
}
