// Package budget partitions time into budget periods and splits arbitrary
// date ranges so none of them straddles a budget-period boundary.
package budget

import (
	"fmt"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
)

// periodStart returns the start of period k. Starts are always derived from
// the anchor so a budget starting on the 31st does not drift to the 28th.
func periodStart(b model.Budget, k int) calendar.Date {
	return b.StartDate.AddMonths(k * b.PeriodType.Months())
}

// active reports whether a period starting at start is still generated.
func active(b model.Budget, start calendar.Date) bool {
	return b.EndDate == nil || start.Before(*b.EndDate)
}

// firstIndexNear returns a period index at or before the period holding d.
func firstIndexNear(b model.Budget, d calendar.Date) int {
	months := (d.Year()-b.StartDate.Year())*12 + int(d.Month()) - int(b.StartDate.Month())
	k := months/b.PeriodType.Months() - 1
	if k < 0 {
		return 0
	}
	return k
}

func periodAt(b model.Budget, k int) model.BudgetPeriod {
	return model.BudgetPeriod{
		Index:        k,
		Start:        periodStart(b, k),
		End:          periodStart(b, k+1).AddDays(-1),
		BudgetAmount: b.Amount,
	}
}

// GeneratePeriods returns the budget periods overlapping [windowFrom, windowTo].
//
// A budget starting after windowTo yields no periods. EndDate stops generation
// but never shortens the last period below its natural boundary.
func GeneratePeriods(b model.Budget, windowFrom, windowTo calendar.Date) ([]model.BudgetPeriod, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if windowTo.Before(windowFrom) {
		return nil, &calendar.ValidationError{
			Field:  "to_date",
			Value:  windowTo.String(),
			Reason: fmt.Sprintf("must not be before from_date %s", windowFrom),
		}
	}
	if b.StartDate.After(windowTo) {
		return nil, nil
	}

	var periods []model.BudgetPeriod
	for k := firstIndexNear(b, windowFrom); ; k++ {
		p := periodAt(b, k)
		if p.Start.After(windowTo) || !active(b, p.Start) {
			break
		}
		if p.End.Before(windowFrom) {
			continue
		}
		periods = append(periods, p)
	}
	return periods, nil
}

// PeriodContaining returns the budget period holding d. It reports false when
// d is before the budget starts or after its final period.
func PeriodContaining(b model.Budget, d calendar.Date) (model.BudgetPeriod, bool) {
	if b.PeriodType.Months() == 0 || d.Before(b.StartDate) {
		return model.BudgetPeriod{}, false
	}
	for k := firstIndexNear(b, d); ; k++ {
		p := periodAt(b, k)
		if p.Start.After(d) || !active(b, p.Start) {
			return model.BudgetPeriod{}, false
		}
		if !p.End.Before(d) {
			return p, true
		}
	}
}

// RoundWindow widens r outwards to whole budget periods. Ends of r that fall
// outside the budget's active range are left unchanged.
func RoundWindow(b model.Budget, r calendar.DateRange) calendar.DateRange {
	out := r
	if p, ok := PeriodContaining(b, r.From); ok {
		out.From = p.Start
	}
	if p, ok := PeriodContaining(b, r.To); ok {
		out.To = p.End
	}
	return out
}

// Boundaries returns, in ascending order, every budget-period boundary t with
// r.From < t <= r.To. A boundary is the first day of a period, plus the day
// after the final period when EndDate stops recurrence.
func Boundaries(b model.Budget, r calendar.DateRange) []calendar.Date {
	if b.PeriodType.Months() == 0 || b.StartDate.IsZero() || b.StartDate.After(r.To) {
		return nil
	}

	var out []calendar.Date
	for k := firstIndexNear(b, r.From); ; k++ {
		t := periodStart(b, k)
		if t.After(r.To) {
			break
		}
		if t.After(r.From) {
			out = append(out, t)
		}
		if !active(b, t) {
			break
		}
	}
	return out
}
