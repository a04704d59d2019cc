package calendar

import "time"

// Monthly weeks are tied to the day of month, not the weekday:
//
//	week 1: days 1-7
//	week 2: days 8-14
//	week 3: days 15-21
//	week 4: day 22 through the end of the month (7 to 10 days)
//
// Four weeks therefore always tile exactly one calendar month.
const (
	weeksPerMonth = 4
	lastWeekStart = 22
)

// WeeksOfMonth returns the four monthly weeks of year/month as inclusive ranges.
func WeeksOfMonth(year int, month time.Month) []DateRange {
	first := NewDate(year, month, 1)
	weeks := make([]DateRange, 0, weeksPerMonth)
	for ws := first; ws.Month() == first.Month() && ws.Year() == first.Year(); ws = NextWeekStart(ws) {
		weeks = append(weeks, DateRange{From: ws, To: WeekEnd(ws)})
	}
	return weeks
}

// WeekStart maps d to the first day of its monthly week (1, 8, 15 or 22).
func WeekStart(d Date) Date {
	day := d.Day()
	start := 1 + ((day-1)/7)*7
	if start > lastWeekStart {
		start = lastWeekStart
	}
	return NewDate(d.Year(), d.Month(), start)
}

// WeekEnd returns the last day of the monthly week starting at weekStart.
// Week 4 runs to the end of the month.
func WeekEnd(weekStart Date) Date {
	ws := WeekStart(weekStart)
	if ws.Day() == lastWeekStart {
		return ws.LastOfMonth()
	}
	return ws.AddDays(6)
}

// NextWeekStart returns the start of the monthly week after the one holding d,
// rolling into the next month (and year) from week 4.
func NextWeekStart(d Date) Date {
	ws := WeekStart(d)
	if ws.Day() == lastWeekStart {
		return ws.FirstOfMonth().AddMonths(1)
	}
	return ws.AddDays(7)
}

// PrevWeekStart returns the start of the monthly week before the one holding d.
func PrevWeekStart(d Date) Date {
	ws := WeekStart(d)
	if ws.Day() == 1 {
		return WeekStart(ws.AddDays(-1))
	}
	return ws.AddDays(-7)
}

// WeekOfMonth returns 1..4 for d's monthly week.
func WeekOfMonth(d Date) int {
	return (WeekStart(d).Day()-1)/7 + 1
}
