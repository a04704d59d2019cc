// Package trend derives growth statistics from a cost time series and
// extrapolates it forward.
package trend

import (
	"errors"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
)

// ErrComputation marks an internal invariant violation, such as projecting a
// series that has no periods. It is never expected for valid input.
var ErrComputation = errors.New("trend: computation error")

// stableBand is the +/- growth percentage still considered flat.
const stableBand = 5.0

// percentChange applies the zero rule shared by growth and period changes:
// a rise from zero counts as 100%, anything else from zero as 0%.
func percentChange(from, to float64) float64 {
	switch {
	case from > 0:
		return (to - from) / from * 100
	case from == 0 && to > 0:
		return 100
	default:
		return 0
	}
}

// GrowthRate is the percentage change from the first to the last period.
// Fewer than two periods have no growth.
func GrowthRate(periods []model.TrendPeriod) float64 {
	if len(periods) < 2 {
		return 0
	}
	return percentChange(periods[0].Cost, periods[len(periods)-1].Cost)
}

// HistoricalAverage is the mean cost per period, 0 for an empty series.
func HistoricalAverage(periods []model.TrendPeriod) float64 {
	if len(periods) == 0 {
		return 0
	}
	var sum float64
	for _, p := range periods {
		sum += p.Cost
	}
	return sum / float64(len(periods))
}

// PeriodChanges returns the change between each pair of consecutive periods.
func PeriodChanges(periods []model.TrendPeriod) []model.PeriodChange {
	if len(periods) < 2 {
		return nil
	}
	out := make([]model.PeriodChange, 0, len(periods)-1)
	for i := 1; i < len(periods); i++ {
		prev, cur := periods[i-1], periods[i]
		out = append(out, model.PeriodChange{
			FromPeriod:    prev.Label,
			ToPeriod:      cur.Label,
			ChangeAmount:  cur.Cost - prev.Cost,
			ChangePercent: percentChange(prev.Cost, cur.Cost),
		})
	}
	return out
}

// Direction classifies a growth rate.
func Direction(growth float64) model.TrendDirection {
	switch {
	case growth > stableBand:
		return model.TrendIncreasing
	case growth < -stableBand:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}

// Summarize builds a TrendResult with every derived field filled in.
func Summarize(g calendar.Granularity, periods []model.TrendPeriod) model.TrendResult {
	growth := GrowthRate(periods)
	r := model.TrendResult{
		Granularity:       g,
		Periods:           periods,
		GrowthRate:        growth,
		HistoricalAverage: HistoricalAverage(periods),
		PeriodChanges:     PeriodChanges(periods),
		Direction:         Direction(growth),
	}
	retotal(&r)
	return r
}

func retotal(r *model.TrendResult) {
	r.TotalCost = 0
	for _, p := range r.Periods {
		r.TotalCost += p.Cost
	}
	r.PeriodCount = len(r.Periods)
}
