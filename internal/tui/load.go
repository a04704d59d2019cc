package tui

import (
	"context"
	"log/slog"
	"time"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/jobs"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/pipeline"
	"github.com/theirongolddev/cloudburn/internal/source"

	tea "github.com/charmbracelet/bubbletea"
)

// dashboardData is everything one load computes.
type dashboardData struct {
	Today       calendar.Date
	Budgets     []model.Budget
	Statuses    []*model.BudgetStatus // aligned with Budgets; nil on error
	StatusErrs  []error
	Trend       *model.TrendResult
	TrendErr    error
	TrendBudget *model.Budget
	Weeks       []pipeline.WeekSpend
	ConfigErr   error
}

// loadRequest is the input of one dashboard load. It is copied into the job
// so the running computation never sees later UI changes.
type loadRequest struct {
	src          source.ConsumptionSource
	logger       *slog.Logger
	budgets      []model.Budget
	selected     int
	days         int
	granularity  calendar.Granularity
	resourceType string
	region       string
	account      string
	today        calendar.Date
	configErr    error
}

func (r loadRequest) window() calendar.DateRange {
	return calendar.DateRange{From: r.today.AddDays(-r.days), To: r.today}
}

// trendHorizon projects to the end of the selected budget's current period,
// or thirty days ahead without one.
func (r loadRequest) trendHorizon(st *model.BudgetStatus) calendar.Date {
	if st != nil {
		if ps, ok := currentPeriod(st, r.today); ok && ps.Period.End.After(r.today) {
			return ps.Period.End
		}
	}
	return r.today.AddDays(30)
}

func (r loadRequest) run(ctx context.Context, report func(current, total int)) (any, error) {
	data := &dashboardData{
		Today:      r.today,
		Budgets:    r.budgets,
		Statuses:   make([]*model.BudgetStatus, len(r.budgets)),
		StatusErrs: make([]error, len(r.budgets)),
		ConfigErr:  r.configErr,
	}
	total := len(r.budgets) + 2
	step := 0
	next := func() {
		step++
		report(step, total)
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(r.logger),
		pipeline.WithRegion(r.region),
		pipeline.WithAccount(r.account),
	}

	w := r.window()
	for i, b := range r.budgets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data.Statuses[i], data.StatusErrs[i] = pipeline.ComputeStatus(ctx, b, r.src, w.From, w.To, opts...)
		next()
	}

	req := pipeline.TrendRequest{
		From:         w.From,
		Granularity:  r.granularity,
		ResourceType: r.resourceType,
		Region:       r.region,
		Account:      r.account,
		Today:        r.today,
	}
	var sel *model.BudgetStatus
	if r.selected >= 0 && r.selected < len(r.budgets) {
		b := r.budgets[r.selected]
		req.Budget = &b
		data.TrendBudget = &b
		sel = data.Statuses[r.selected]
	}
	req.To = r.trendHorizon(sel)
	data.Trend, data.TrendErr = pipeline.ComputeTrend(ctx, req, r.src, opts...)
	next()

	data.Weeks = pipeline.ComputeMonthWeeks(ctx, r.src, r.today.Year(), r.today.Month(), r.today, opts...)
	next()

	return data, ctx.Err()
}

// currentPeriod returns the period of st that contains d.
func currentPeriod(st *model.BudgetStatus, d calendar.Date) (model.PeriodStatus, bool) {
	for _, ps := range st.Periods {
		if ps.Period.Range().Contains(d) {
			return ps, true
		}
	}
	return model.PeriodStatus{}, false
}

// ─── Messages ───────────────────────────────────────────────────

// jobStartedMsg carries a freshly submitted load job.
type jobStartedMsg struct {
	job        *jobs.Job
	background bool
}

// ProgressMsg reports load progress.
type ProgressMsg struct {
	JobID   string
	Current int
	Total   int
}

// DataLoadedMsg is sent when a load job finishes.
type DataLoadedMsg struct {
	JobID      string
	Data       *dashboardData
	Err        error
	LoadTime   time.Duration
	Background bool
}

// startLoadCmd submits a load job to the runner.
func startLoadCmd(runner *jobs.Runner, req loadRequest, background bool) tea.Cmd {
	return func() tea.Msg {
		job := runner.Submit(context.Background(), "dashboard", req.run)
		return jobStartedMsg{job: job, background: background}
	}
}

// waitForJob blocks until the job reports progress or finishes.
func waitForJob(job *jobs.Job, background bool) tea.Cmd {
	return func() tea.Msg {
		select {
		case p, ok := <-job.Progress():
			if ok {
				return ProgressMsg{JobID: job.ID, Current: p.Current, Total: p.Total}
			}
		case <-job.Done():
		}

		res, err := job.Wait(context.Background())
		data, _ := res.(*dashboardData)
		return DataLoadedMsg{
			JobID:      job.ID,
			Data:       data,
			Err:        err,
			LoadTime:   time.Since(job.Started),
			Background: background,
		}
	}
}

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}
