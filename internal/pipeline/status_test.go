package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/source"
)

func d(s string) calendar.Date { return calendar.MustParseDate(s) }

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// memSource serves a fixed entry list by from_date, like the SQLite store.
type memSource struct {
	entries []model.ConsumptionEntry
	fail    func(q source.Query) bool
	queries []source.Query
}

func (m *memSource) Fetch(_ context.Context, q source.Query) (*source.Result, error) {
	m.queries = append(m.queries, q)
	if m.fail != nil && m.fail(q) {
		return nil, errors.New("upstream unavailable")
	}
	res := &source.Result{Currency: "USD"}
	for _, e := range m.entries {
		if !e.From.Before(q.Span.From) && e.From.Before(q.Span.To) {
			res.Entries = append(res.Entries, e)
		}
	}
	return res, nil
}

func spend(day string, price float64) model.ConsumptionEntry {
	return model.ConsumptionEntry{ResourceType: "compute", From: d(day), To: d(day).AddDays(1), Quantity: 1, UnitPrice: price}
}

func monthlyBudget() model.Budget {
	return model.Budget{Name: "infra", PeriodType: model.Monthly, Amount: 1000, StartDate: d("2024-01-01")}
}

func TestComputeStatus_FullUtilization(t *testing.T) {
	src := &memSource{entries: []model.ConsumptionEntry{
		spend("2024-01-01", 250),
		spend("2024-01-09", 250),
		spend("2024-01-22", 300),
		spend("2024-01-31", 200),
	}}

	st, err := ComputeStatus(context.Background(), monthlyBudget(), src, d("2024-01-01"), d("2024-01-31"), WithLogger(quietLogger))
	require.NoError(t, err)
	require.Len(t, st.Periods, 1)

	p := st.Periods[0]
	assert.InDelta(t, 1000.0, p.Spent, 1e-9)
	assert.InDelta(t, 100.0, p.UtilizationPercent, 1e-9)
	assert.InDelta(t, 0.0, p.Remaining, 1e-9)
	assert.Equal(t, 0, st.FailedFetches)

	require.Len(t, p.SubPeriods, 4)
	assert.InDelta(t, 250.0, p.SubPeriods[0].CumulativeSpent, 1e-9)
	assert.InDelta(t, 500.0, p.SubPeriods[1].CumulativeSpent, 1e-9)
	assert.InDelta(t, 1000.0, p.SubPeriods[3].CumulativeSpent, 1e-9)
	assert.Equal(t, "2024-01-22..2024-01-31", p.SubPeriods[3].Range.String())
}

func TestComputeStatus_TwoMonthWindow(t *testing.T) {
	st, err := ComputeStatus(context.Background(), monthlyBudget(), &memSource{}, d("2024-02-10"), d("2024-03-05"), WithLogger(quietLogger))
	require.NoError(t, err)

	require.Len(t, st.Periods, 2)
	for _, p := range st.Periods {
		assert.Equal(t, 1000.0, p.Period.BudgetAmount)
	}
	assert.Equal(t, 2000.0, st.TotalBudget)
	assert.Equal(t, 2000.0, st.TotalRemaining)
	assert.Equal(t, "2024-02-01", st.From.String())
	assert.Equal(t, "2024-03-31", st.To.String())
}

func TestComputeStatus_QueriesUseExclusiveEnds(t *testing.T) {
	src := &memSource{}
	_, err := ComputeStatus(context.Background(), monthlyBudget(), src, d("2024-02-01"), d("2024-02-29"), WithLogger(quietLogger))
	require.NoError(t, err)

	require.Len(t, src.queries, 4)
	assert.Equal(t, "2024-02-01", src.queries[0].Span.From.String())
	assert.Equal(t, "2024-02-08", src.queries[0].Span.To.String())
	assert.Equal(t, "2024-03-01", src.queries[3].Span.To.String())
}

func TestComputeStatus_PartialFetchFailureDegrades(t *testing.T) {
	src := &memSource{
		entries: []model.ConsumptionEntry{spend("2024-01-02", 100), spend("2024-01-10", 100)},
		fail:    func(q source.Query) bool { return q.Span.From.Equal(d("2024-01-08")) },
	}

	st, err := ComputeStatus(context.Background(), monthlyBudget(), src, d("2024-01-01"), d("2024-01-31"), WithLogger(quietLogger))
	require.NoError(t, err)

	assert.Equal(t, 1, st.FailedFetches)
	assert.InDelta(t, 100.0, st.TotalSpent, 1e-9)
	assert.True(t, st.Periods[0].SubPeriods[1].Failed)
	assert.Equal(t, 0, st.Periods[0].SubPeriods[1].EntryCount)
}

func TestComputeStatus_ProgressAndFilters(t *testing.T) {
	storage := spend("2024-01-03", 70)
	storage.ResourceType = "storage"
	src := &memSource{entries: []model.ConsumptionEntry{spend("2024-01-03", 30), storage}}

	var calls [][2]int
	b := model.Budget{Name: "q", PeriodType: model.Quarterly, Amount: 300, StartDate: d("2024-01-01")}
	st, err := ComputeStatus(context.Background(), b, src, d("2024-01-01"), d("2024-03-31"),
		WithLogger(quietLogger),
		WithResourceType("storage"),
		WithRegion("eu"),
		WithProgress(func(cur, total int) { calls = append(calls, [2]int{cur, total}) }),
	)
	require.NoError(t, err)

	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, calls)
	assert.InDelta(t, 70.0, st.TotalSpent, 1e-9)
	assert.Equal(t, "eu", src.queries[0].Region)
}

func TestComputeStatus_BudgetStartsAfterWindow(t *testing.T) {
	b := monthlyBudget()
	b.StartDate = d("2025-01-01")
	st, err := ComputeStatus(context.Background(), b, &memSource{}, d("2024-01-01"), d("2024-06-30"))
	require.NoError(t, err)
	assert.Empty(t, st.Periods)
	assert.Equal(t, 0.0, st.UtilizationPercent)
}

func TestComputeStatus_Validation(t *testing.T) {
	_, err := ComputeStatus(context.Background(), monthlyBudget(), &memSource{}, d("2024-02-01"), d("2024-01-01"))
	assert.ErrorIs(t, err, calendar.ErrValidation)

	b := monthlyBudget()
	b.PeriodType = "weekly"
	_, err = ComputeStatus(context.Background(), b, &memSource{}, d("2024-01-01"), d("2024-02-01"))
	assert.ErrorIs(t, err, calendar.ErrValidation)
}

func TestSubGranularity(t *testing.T) {
	assert.Equal(t, calendar.Month, SubGranularity(model.Yearly))
	assert.Equal(t, calendar.Month, SubGranularity(model.Quarterly))
	assert.Equal(t, calendar.Week, SubGranularity(model.Monthly))
	assert.Equal(t, calendar.Day, SubGranularity("weekly"))
}

func TestSubPeriodRanges_MidMonthBudget(t *testing.T) {
	p := model.BudgetPeriod{Start: d("2024-01-15"), End: d("2024-02-14")}
	got := SubPeriodRanges(p, calendar.Week)
	require.Len(t, got, 4)
	assert.Equal(t, "2024-01-15..2024-01-21", got[0].String())
	assert.Equal(t, "2024-01-22..2024-01-31", got[1].String())
	assert.Equal(t, "2024-02-08..2024-02-14", got[3].String())
}

func TestCumulate(t *testing.T) {
	periods := []model.BudgetPeriod{
		{Start: d("2024-01-01"), End: d("2024-01-31")},
		{Start: d("2024-02-01"), End: d("2024-02-29")},
	}
	got := Cumulate([]model.ConsumptionEntry{
		spend("2023-12-31", 1000),
		spend("2024-01-31", 5),
		spend("2024-02-01", 7),
		spend("2024-02-29", 1),
	}, periods)
	assert.Equal(t, []float64{5, 8}, got)
}
