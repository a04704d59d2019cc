package pipeline

import (
	"context"
	"time"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/source"
)

// WeekSpend is the spend of one monthly week.
type WeekSpend struct {
	Week       int                `json:"week"`
	Range      calendar.DateRange `json:"range"`
	Spent      float64            `json:"spent"`
	EntryCount int                `json:"entry_count"`
	Failed     bool               `json:"failed,omitempty"`
}

// DailyAverage spreads the week's spend over its days.
func (w WeekSpend) DailyAverage() float64 {
	return w.Spent / float64(w.Range.Days())
}

// ComputeMonthWeeks fetches the spend of each monthly week of year/month.
// Weeks starting after until are skipped; a zero until keeps all four.
// Failed fetches count as zero, as in ComputeStatus.
func ComputeMonthWeeks(ctx context.Context, src source.ConsumptionSource, year int, month time.Month, until calendar.Date, opts ...Option) []WeekSpend {
	o := buildOptions(opts)
	weeks := calendar.WeeksOfMonth(year, month)

	out := make([]WeekSpend, 0, len(weeks))
	for i, r := range weeks {
		if !until.IsZero() && r.From.After(until) {
			break
		}
		f := o.fetchRange(ctx, src, r)
		cost, _ := model.SumPrice(f.entries)
		out = append(out, WeekSpend{
			Week:       i + 1,
			Range:      r,
			Spent:      cost,
			EntryCount: len(f.entries),
			Failed:     f.failed,
		})
		if o.progress != nil {
			o.progress(i+1, len(weeks))
		}
	}
	return out
}
