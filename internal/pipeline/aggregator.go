// Package pipeline drives the budget and trend engines against a consumption
// source, and ingests billing exports into the local store.
package pipeline

import (
	"sort"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
)

// SubGranularity is the bucket size used to query spend inside one budget
// period: months for yearly and quarterly budgets, monthly weeks for monthly
// budgets and days for anything else.
func SubGranularity(pt model.PeriodType) calendar.Granularity {
	switch pt {
	case model.Yearly, model.Quarterly:
		return calendar.Month
	case model.Monthly:
		return calendar.Week
	default:
		return calendar.Day
	}
}

// SubPeriodRanges tiles a budget period with g-periods. Ranges at either end
// are clipped to the budget period, so a budget starting mid-month gets a
// partial first and last week.
func SubPeriodRanges(p model.BudgetPeriod, g calendar.Granularity) []calendar.DateRange {
	return g.Periods(p.Range())
}

// Cumulate returns, for each budget period, the summed price of the entries
// whose From falls inside it. Entries outside every period are ignored.
func Cumulate(entries []model.ConsumptionEntry, periods []model.BudgetPeriod) []float64 {
	spent := make([]float64, len(periods))
	for _, e := range entries {
		if i := periodIndex(periods, e.From); i >= 0 {
			spent[i] += e.Price()
		}
	}
	return spent
}

// periodIndex finds the period holding d by binary search; periods are
// ordered and contiguous.
func periodIndex(periods []model.BudgetPeriod, d calendar.Date) int {
	lo, hi := 0, len(periods)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		switch {
		case d.Before(periods[mid].Start):
			hi = mid - 1
		case d.After(periods[mid].End):
			lo = mid + 1
		default:
			return mid
		}
	}
	return -1
}

// inRange keeps the entries whose From lies in r. Sources may return entries
// that merely overlap a query; each is counted once, in the range it starts in.
func inRange(entries []model.ConsumptionEntry, r calendar.DateRange) []model.ConsumptionEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if r.Contains(e.From) {
			out = append(out, e)
		}
	}
	return out
}

// AggregateResources groups entries by resource type, sorted by cost
// descending. prev is the comparison window; resource types only present
// there are left out.
func AggregateResources(entries, prev []model.ConsumptionEntry) []model.ResourceStats {
	byType := make(map[string]*model.ResourceStats)
	total := 0.0
	for _, e := range entries {
		rs, ok := byType[e.ResourceType]
		if !ok {
			rs = &model.ResourceStats{ResourceType: e.ResourceType}
			byType[e.ResourceType] = rs
		}
		rs.Quantity += e.Quantity
		rs.Cost += e.Price()
		rs.EntryCount++
		total += e.Price()
	}
	for _, e := range prev {
		if rs, ok := byType[e.ResourceType]; ok {
			rs.PreviousCost += e.Price()
		}
	}

	out := make([]model.ResourceStats, 0, len(byType))
	for _, rs := range byType {
		if total > 0 {
			rs.SharePercent = rs.Cost / total * 100
		}
		switch {
		case rs.Cost > rs.PreviousCost:
			rs.TrendDirection = 1
		case rs.Cost < rs.PreviousCost:
			rs.TrendDirection = -1
		}
		out = append(out, *rs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Cost != out[j].Cost {
			return out[i].Cost > out[j].Cost
		}
		return out[i].ResourceType < out[j].ResourceType
	})
	return out
}

// AggregateDays returns one DailyCost per day of r, including days without
// spend. Entries are attributed to the day they start on.
func AggregateDays(entries []model.ConsumptionEntry, r calendar.DateRange) []model.DailyCost {
	n := r.Days()
	if n <= 0 {
		return nil
	}
	days := make([]model.DailyCost, n)
	for i := range days {
		days[i].Date = r.From.AddDays(i)
	}
	for _, e := range entries {
		if !r.Contains(e.From) {
			continue
		}
		i := r.From.DaysUntil(e.From)
		days[i].Cost += e.Price()
		days[i].EntryCount++
	}
	return days
}
