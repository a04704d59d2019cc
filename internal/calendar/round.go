package calendar

// RoundToPeriodStart rounds d down to the start of its g-period.
// Unknown granularities behave like Day.
func RoundToPeriodStart(d Date, g Granularity) Date {
	switch g {
	case Week:
		return WeekStart(d)
	case Month:
		return d.FirstOfMonth()
	default:
		return d
	}
}

// RoundToPeriodEnd rounds d up to the exclusive end of its g-period: the
// next day, the next monthly-week start, or the first of the next month.
// The result is what a consumption source expects as its exclusive to_date.
func RoundToPeriodEnd(d Date, g Granularity) Date {
	switch g {
	case Week:
		return NextWeekStart(d)
	case Month:
		return d.FirstOfMonth().AddMonths(1)
	default:
		return d.AddDays(1)
	}
}

// PrevPeriodStart returns the start of the g-period before the one holding d.
func PrevPeriodStart(d Date, g Granularity) Date {
	switch g {
	case Week:
		return PrevWeekStart(d)
	case Month:
		return d.FirstOfMonth().AddMonths(-1)
	default:
		return d.AddDays(-1)
	}
}
