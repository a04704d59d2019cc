// Package calendar provides civil-date value types, the monthly-week partition,
// and granularity rounding used by the budget and trend engines.
package calendar

import (
	"fmt"
	"time"
)

// Layout is the ISO-8601 date layout used at every boundary.
const Layout = "2006-01-02"

// Date is a calendar day with no time-of-day or zone. The zero value is
// "no date" and reports IsZero.
type Date struct {
	t time.Time // always midnight UTC
}

// NewDate returns the date for year/month/day. Out-of-range values are
// normalized the way time.Date normalizes them (e.g. Feb 30 -> Mar 1/2).
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime returns the calendar day of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// Today returns the current local calendar day.
func Today() Date {
	return FromTime(time.Now())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Value: s, Reason: "expected YYYY-MM-DD"}
	}
	return FromTime(t), nil
}

// MustParseDate is ParseDate for constants and tests; it panics on error.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Year returns the year of d.
func (d Date) Year() int { return d.t.Year() }

// Month returns the month of d.
func (d Date) Month() time.Month { return d.t.Month() }

// Day returns the day of month of d.
func (d Date) Day() int { return d.t.Day() }

// Time returns midnight UTC of d.
func (d Date) Time() time.Time { return d.t }

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// AddMonths returns d shifted by n months, clamping the day to the last day
// of the target month (Jan 31 + 1 month = Feb 28/29).
func (d Date) AddMonths(n int) Date {
	y, m, day := d.t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return NewDate(first.Year(), first.Month(), day)
}

// FirstOfMonth returns the first day of d's month.
func (d Date) FirstOfMonth() Date {
	return NewDate(d.Year(), d.Month(), 1)
}

// LastOfMonth returns the last day of d's month.
func (d Date) LastOfMonth() Date {
	return NewDate(d.Year(), d.Month(), DaysIn(d.Year(), d.Month()))
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool { return d.t.After(o.t) }

// Equal reports whether d and o are the same day.
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int { return d.t.Compare(o.t) }

// DaysUntil returns the number of days from d to o (negative if o is earlier).
func (d Date) DaysUntil(o Date) int {
	return int(o.t.Sub(d.t).Hours() / 24)
}

// String formats d as YYYY-MM-DD, or "" for the zero Date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(Layout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input yields the zero Date.
func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MinDate returns the earlier of a and b.
func MinDate(a, b Date) Date {
	if b.Before(a) {
		return b
	}
	return a
}

// MaxDate returns the later of a and b.
func MaxDate(a, b Date) Date {
	if b.After(a) {
		return b
	}
	return a
}

// DateRange is a closed interval of days: both From and To are included.
// All aggregation in the engine uses DateRange.
type DateRange struct {
	From Date `json:"from_date"`
	To   Date `json:"to_date"`
}

// NewRange builds an inclusive range, rejecting To before From.
func NewRange(from, to Date) (DateRange, error) {
	if to.Before(from) {
		return DateRange{}, &ValidationError{
			Field:  "to_date",
			Value:  to.String(),
			Reason: fmt.Sprintf("must not be before from_date %s", from),
		}
	}
	return DateRange{From: from, To: to}, nil
}

// Days returns the number of days covered by r.
func (r DateRange) Days() int {
	return r.From.DaysUntil(r.To) + 1
}

// Contains reports whether d lies within r.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// Overlaps reports whether r and o share at least one day.
func (r DateRange) Overlaps(o DateRange) bool {
	return !r.To.Before(o.From) && !o.To.Before(r.From)
}

// Exclusive converts r to the half-open form used by billing queries.
func (r DateRange) Exclusive() Span {
	return Span{From: r.From, To: r.To.AddDays(1)}
}

// Bounds returns r itself; it lets DateRange be split like any ranged value.
func (r DateRange) Bounds() DateRange { return r }

// WithBounds returns b; see Bounds.
func (r DateRange) WithBounds(b DateRange) DateRange { return b }

func (r DateRange) String() string {
	return r.From.String() + ".." + r.To.String()
}

// Span is a half-open interval [From, To). It is only used when talking to
// consumption sources, which follow the upstream billing API convention.
type Span struct {
	From Date
	To   Date
}

// Inclusive converts s back to a closed DateRange.
func (s Span) Inclusive() DateRange {
	return DateRange{From: s.From, To: s.To.AddDays(-1)}
}

func (s Span) String() string {
	return "[" + s.From.String() + ", " + s.To.String() + ")"
}
