package trend

import (
	"fmt"
	"math"

	"github.com/theirongolddev/cloudburn/internal/budget"
	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
)

// ProjectUntil extends r with projected periods up to and including target.
//
// Step k after the last observed period costs base * (1+growth/100)^k,
// floored at zero, where base is the last observed cost scaled up to a whole
// period when that period was cut short. The rest of a cut-short period is
// step 0. A step that covers only part of its period, because of a cut-short
// start or the target, is costed by its share of the period's days. Any
// projection already present in r is replaced. With a budget, projected
// periods are cut at budget-period boundaries and their cost apportioned by
// days so totals are unchanged by the cut.
func ProjectUntil(r model.TrendResult, target calendar.Date, b *model.Budget) (model.TrendResult, error) {
	if len(r.Periods) == 0 {
		return r, fmt.Errorf("project until %s: no periods: %w", target, ErrComputation)
	}
	if !target.After(r.Periods[len(r.Periods)-1].To) {
		return r, nil
	}
	g := r.Granularity
	if !g.Valid() {
		return r, &calendar.ValidationError{Field: "granularity", Value: string(g),
			Reason: "expected day, week or month"}
	}

	observed := r.Observed()
	if len(observed) == 0 {
		return r, fmt.Errorf("project until %s: no observed periods: %w", target, ErrComputation)
	}
	last := observed[len(observed)-1]
	lastPeriod := g.Period(last.From)
	whole := float64(lastPeriod.Days()) / float64(last.Bounds().Days())
	baseCost, baseValue := last.Cost*whole, last.Value*whole
	factor := 1 + r.GrowthRate/100

	var projected []model.TrendPeriod
	start := last.To.AddDays(1)
	k := 1
	if lastPeriod.Contains(start) {
		k = 0
	}
	for ; !start.After(target); k++ {
		period := g.Period(start)
		step := calendar.DateRange{From: start, To: calendar.MinDate(period.To, target)}
		scale := math.Pow(factor, float64(k)) * float64(step.Days()) / float64(period.Days())
		projected = append(projected, model.TrendPeriod{
			Label:     g.Label(period.From),
			From:      step.From,
			To:        step.To,
			Cost:      math.Max(0, baseCost*scale),
			Value:     math.Max(0, baseValue*scale),
			Projected: true,
		})
		start = period.To.AddDays(1)
	}

	if b != nil {
		projected = apportion(budget.SplitAtBoundaries(projected, *b))
	}

	out := r
	out.Periods = make([]model.TrendPeriod, 0, len(observed)+len(projected))
	out.Periods = append(out.Periods, observed...)
	out.Periods = append(out.Periods, projected...)
	retotal(&out)
	return out, nil
}

// apportion spreads the cost of every projected period that was cut into
// pieces across those pieces in proportion to their length. Pieces of one
// period are adjacent and share its label.
func apportion(pieces []model.TrendPeriod) []model.TrendPeriod {
	for i := 0; i < len(pieces); {
		j, days := i, 0
		for j < len(pieces) && pieces[j].Label == pieces[i].Label {
			days += pieces[j].Bounds().Days()
			j++
		}
		if j-i > 1 {
			for k := i; k < j; k++ {
				share := float64(pieces[k].Bounds().Days()) / float64(days)
				pieces[k].Cost *= share
				pieces[k].Value *= share
			}
		}
		i = j
	}
	return pieces
}

// FindLastPeriodExcludingToday returns the start of the last complete
// g-period before today, which bounds what a consumption source can report
// in full. A to already before today is returned as is. The result never
// precedes from.
func FindLastPeriodExcludingToday(g calendar.Granularity, from, to, today calendar.Date) calendar.Date {
	if to.Before(today) {
		return to
	}
	return calendar.MaxDate(calendar.PrevPeriodStart(today, g), from)
}
