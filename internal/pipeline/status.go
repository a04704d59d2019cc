package pipeline

import (
	"context"
	"log/slog"

	"github.com/theirongolddev/cloudburn/internal/budget"
	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/source"
)

// ProgressFunc is called during long-running work to report progress.
// current is the number of steps finished so far, total is the total count.
type ProgressFunc func(current, total int)

type options struct {
	progress     ProgressFunc
	logger       *slog.Logger
	region       string
	account      string
	resourceType string
}

// Option tunes ComputeStatus and ComputeTrend.
type Option func(*options)

// WithProgress reports after every sub-period fetch. fn is called
// synchronously and not retained after the call returns.
func WithProgress(fn ProgressFunc) Option { return func(o *options) { o.progress = fn } }

// WithLogger sets the logger used for fetch failures.
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithRegion restricts queries to one region.
func WithRegion(region string) Option { return func(o *options) { o.region = region } }

// WithAccount restricts queries to one account.
func WithAccount(account string) Option { return func(o *options) { o.account = account } }

// WithResourceType counts only entries of one resource type.
func WithResourceType(rt string) Option { return func(o *options) { o.resourceType = rt } }

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// fetched is the outcome of one sub-period query.
type fetched struct {
	entries []model.ConsumptionEntry
	failed  bool
}

// fetchRange queries one inclusive range. A failure is logged and reported as
// an empty, failed result; it never stops the caller.
func (o *options) fetchRange(ctx context.Context, src source.ConsumptionSource, r calendar.DateRange) fetched {
	res, err := src.Fetch(ctx, source.Query{Span: r.Exclusive(), Region: o.region, Account: o.account})
	if err != nil {
		o.logger.Warn("consumption fetch failed; counting as zero",
			"range", r.String(), "err", err)
		return fetched{failed: true}
	}
	if res == nil {
		return fetched{}
	}
	return fetched{entries: model.FilterByResourceType(inRange(res.Entries, r), o.resourceType)}
}

// ComputeStatus reports spend against b for every budget period touching
// [from, to]. The window is first widened to whole budget periods.
//
// Each period is queried in sub-periods (see SubGranularity). A failing
// sub-period contributes nothing, is marked Failed and counted in
// FailedFetches; the computation carries on.
func ComputeStatus(ctx context.Context, b model.Budget, src source.ConsumptionSource, from, to calendar.Date, opts ...Option) (*model.BudgetStatus, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if from.IsZero() || to.IsZero() {
		return nil, &calendar.ValidationError{Field: "from_date", Reason: "from and to dates are required"}
	}
	window, err := calendar.NewRange(from, to)
	if err != nil {
		return nil, err
	}
	window = budget.RoundWindow(b, window)

	periods, err := budget.GeneratePeriods(b, window.From, window.To)
	if err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	o.logger = o.logger.With("budget", b.Name)
	g := SubGranularity(b.PeriodType)

	subRanges := make([][]calendar.DateRange, len(periods))
	total := 0
	for i, p := range periods {
		subRanges[i] = SubPeriodRanges(p, g)
		total += len(subRanges[i])
	}

	status := &model.BudgetStatus{
		Budget:  b,
		From:    window.From,
		To:      window.To,
		Periods: make([]model.PeriodStatus, 0, len(periods)),
	}

	var all []model.ConsumptionEntry
	done := 0
	for i, p := range periods {
		ps := model.PeriodStatus{Period: p}
		var running float64
		for _, r := range subRanges[i] {
			f := o.fetchRange(ctx, src, r)
			cost, _ := model.SumPrice(f.entries)
			running += cost
			all = append(all, f.entries...)
			if f.failed {
				status.FailedFetches++
			}
			ps.SubPeriods = append(ps.SubPeriods, model.SubPeriodSpend{
				Range:           r,
				Spent:           cost,
				CumulativeSpent: running,
				EntryCount:      len(f.entries),
				Failed:          f.failed,
			})

			done++
			if o.progress != nil {
				o.progress(done, total)
			}
		}
		status.Periods = append(status.Periods, ps)
	}

	spent := Cumulate(all, periods)
	for i := range status.Periods {
		ps := &status.Periods[i]
		ps.Spent = spent[i]
		ps.Remaining = ps.Period.BudgetAmount - ps.Spent
		ps.UtilizationPercent = model.Utilization(ps.Spent, ps.Period.BudgetAmount)

		status.TotalBudget += ps.Period.BudgetAmount
		status.TotalSpent += ps.Spent
	}
	status.TotalRemaining = status.TotalBudget - status.TotalSpent
	status.UtilizationPercent = model.Utilization(status.TotalSpent, status.TotalBudget)

	if status.FailedFetches > 0 {
		o.logger.Info("budget status computed with missing data",
			"failed", status.FailedFetches, "fetches", total)
	}
	return status, nil
}
