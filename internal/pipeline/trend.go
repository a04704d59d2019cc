package pipeline

import (
	"context"
	"fmt"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/source"
	"github.com/theirongolddev/cloudburn/internal/trend"
)

// TrendRequest describes a cost time series to build.
type TrendRequest struct {
	From         calendar.Date
	To           calendar.Date
	Granularity  calendar.Granularity
	ResourceType string
	Region       string
	Account      string

	// Budget, when set, makes projected periods respect its boundaries.
	Budget *model.Budget

	// Today anchors the cut between observed and projected periods.
	// Zero means calendar.Today().
	Today calendar.Date
}

// Validate checks the request. The window must hold at least one full
// granularity step.
func (req TrendRequest) Validate() error {
	if !req.Granularity.Valid() {
		return &calendar.ValidationError{Field: "granularity", Value: string(req.Granularity),
			Reason: "expected day, week or month"}
	}
	if req.From.IsZero() || req.To.IsZero() {
		return &calendar.ValidationError{Field: "from_date", Reason: "from and to dates are required"}
	}
	if !req.To.After(req.From) {
		return &calendar.ValidationError{Field: "to_date", Value: req.To.String(),
			Reason: fmt.Sprintf("must be after from_date %s", req.From)}
	}
	if earliest := addStep(req.From, req.Granularity); req.To.Before(earliest) {
		return &calendar.ValidationError{Field: "to_date", Value: req.To.String(),
			Reason: fmt.Sprintf("must be at least one %s after from_date (%s)", req.Granularity, earliest)}
	}
	if req.Budget != nil {
		return req.Budget.Validate()
	}
	return nil
}

func addStep(d calendar.Date, g calendar.Granularity) calendar.Date {
	switch g {
	case calendar.Week:
		return d.AddDays(7)
	case calendar.Month:
		return d.AddMonths(1)
	default:
		return d.AddDays(1)
	}
}

// observedWindow is the part of the request answered from data: from the
// start of From's period through the end of the last complete period before
// today. When no complete period exists yet, the partial one up to today is
// used instead.
func (req TrendRequest) observedWindow(today calendar.Date) (calendar.DateRange, error) {
	g := req.Granularity
	start := calendar.RoundToPeriodStart(req.From, g)
	if start.After(today) {
		return calendar.DateRange{}, &calendar.ValidationError{Field: "from_date", Value: req.From.String(),
			Reason: "must not be in the future"}
	}

	end := req.To
	if !req.To.Before(today) {
		last := trend.FindLastPeriodExcludingToday(g, req.From, req.To, today)
		end = calendar.MinDate(g.PeriodEnd(last), today.AddDays(-1))
		if end.Before(start) {
			end = calendar.MinDate(today, req.To)
		}
	}
	return calendar.DateRange{From: start, To: end}, nil
}

// ComputeTrend builds a cost time series for req and projects it forward to
// req.To. Observed periods stop before today so a partially billed day, week
// or month never reads as a drop in spend.
func ComputeTrend(ctx context.Context, req TrendRequest, src source.ConsumptionSource, opts ...Option) (*model.TrendResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	today := req.Today
	if today.IsZero() {
		today = calendar.Today()
	}
	window, err := req.observedWindow(today)
	if err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	if req.Region != "" {
		o.region = req.Region
	}
	if req.Account != "" {
		o.account = req.Account
	}
	if req.ResourceType != "" {
		o.resourceType = req.ResourceType
	}

	g := req.Granularity
	ranges := g.Periods(window)
	if len(ranges) == 0 {
		return nil, fmt.Errorf("tiling %s by %s: %w", window, g, trend.ErrComputation)
	}

	periods := make([]model.TrendPeriod, 0, len(ranges))
	failed := 0
	for i, r := range ranges {
		f := o.fetchRange(ctx, src, r)
		if f.failed {
			failed++
		}
		cost, qty := model.SumPrice(f.entries)
		periods = append(periods, model.TrendPeriod{
			Label:      g.Label(r.From),
			From:       r.From,
			To:         r.To,
			Cost:       cost,
			Value:      qty,
			EntryCount: len(f.entries),
		})
		if o.progress != nil {
			o.progress(i+1, len(ranges))
		}
	}

	result := trend.Summarize(g, periods)
	result.FailedFetches = failed

	projected, err := trend.ProjectUntil(result, req.To, req.Budget)
	if err != nil {
		return nil, fmt.Errorf("projecting to %s: %w", req.To, err)
	}
	return &projected, nil
}
