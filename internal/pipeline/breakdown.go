package pipeline

import (
	"context"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/source"
)

// ComputeBreakdown splits the spend of window by resource type and day, and
// compares it with the window of equal length ending the day before.
//
// Both windows are queried one calendar month at a time. Failed fetches count
// as zero and are reported in FailedFetches.
func ComputeBreakdown(ctx context.Context, src source.ConsumptionSource, window calendar.DateRange, opts ...Option) (*model.Breakdown, error) {
	if window.To.Before(window.From) {
		return nil, &calendar.ValidationError{Field: "to_date", Value: window.To.String(),
			Reason: "must not be before from_date " + window.From.String()}
	}
	o := buildOptions(opts)

	prevWindow := calendar.DateRange{
		From: window.From.AddDays(-window.Days()),
		To:   window.From.AddDays(-1),
	}
	cur := calendar.Month.Periods(window)
	prev := calendar.Month.Periods(prevWindow)
	total := len(cur) + len(prev)

	out := &model.Breakdown{Window: window, PreviousWindow: prevWindow}
	done := 0
	fetchAll := func(ranges []calendar.DateRange) []model.ConsumptionEntry {
		var entries []model.ConsumptionEntry
		for _, r := range ranges {
			f := o.fetchRange(ctx, src, r)
			if f.failed {
				out.FailedFetches++
			}
			entries = append(entries, f.entries...)
			done++
			if o.progress != nil {
				o.progress(done, total)
			}
		}
		return entries
	}

	entries := fetchAll(cur)
	prevEntries := fetchAll(prev)

	out.TotalCost, _ = model.SumPrice(entries)
	out.PreviousCost, _ = model.SumPrice(prevEntries)
	out.EntryCount = len(entries)
	out.Resources = AggregateResources(entries, prevEntries)
	out.Days = AggregateDays(entries, window)
	for _, d := range out.Days {
		if d.EntryCount > 0 {
			out.ActiveDays++
		}
	}
	out.CostPerDay = out.TotalCost / float64(window.Days())
	switch {
	case out.PreviousCost > 0:
		out.ChangePercent = (out.TotalCost - out.PreviousCost) / out.PreviousCost * 100
	case out.TotalCost > 0:
		out.ChangePercent = 100
	}

	o.logger.Debug("breakdown computed",
		"window", window.String(),
		"resources", len(out.Resources),
		"failed_fetches", out.FailedFetches)
	return out, nil
}
