package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/source"
)

func TestComputeTrend_MonthlyObservedThenProjected(t *testing.T) {
	src := &memSource{entries: []model.ConsumptionEntry{
		spend("2024-01-05", 100),
		spend("2024-02-05", 150),
		spend("2024-03-02", 999), // current month, not observed
	}}

	req := TrendRequest{
		From:        d("2024-01-01"),
		To:          d("2024-04-30"),
		Granularity: calendar.Month,
		Today:       d("2024-03-17"),
	}
	r, err := ComputeTrend(context.Background(), req, src, WithLogger(quietLogger))
	require.NoError(t, err)

	require.Len(t, r.Periods, 4)
	obs := r.Observed()
	require.Len(t, obs, 2)
	assert.Equal(t, "2024-01", obs[0].Label)
	assert.InDelta(t, 50.0, r.GrowthRate, 1e-9)
	assert.Equal(t, model.TrendIncreasing, r.Direction)

	assert.True(t, r.Periods[2].Projected)
	assert.InDelta(t, 225.0, r.Periods[2].Cost, 1e-9)
	assert.InDelta(t, 337.5, r.Periods[3].Cost, 1e-9)
	assert.InDelta(t, 100+150+225+337.5, r.TotalCost, 1e-9)
	assert.Equal(t, 4, r.PeriodCount)
}

func TestComputeTrend_CurrentPeriodOnlyIsExtrapolated(t *testing.T) {
	src := &memSource{}
	for day := d("2026-10-01"); !day.After(d("2026-10-25")); day = day.AddDays(1) {
		src.entries = append(src.entries, spend(day.String(), 10))
	}
	req := TrendRequest{
		From:        d("2026-10-01"),
		To:          d("2026-12-31"),
		Granularity: calendar.Month,
		Today:       d("2026-10-19"),
	}
	r, err := ComputeTrend(context.Background(), req, src, WithLogger(quietLogger))
	require.NoError(t, err)
	require.Len(t, r.Periods, 4)

	obs := r.Observed()
	require.Len(t, obs, 1)
	assert.Equal(t, "2026-10-01..2026-10-18", obs[0].Bounds().String())
	assert.InDelta(t, 180.0, obs[0].Cost, 1e-9)

	assert.Equal(t, "2026-10-19..2026-10-31", r.Periods[1].Bounds().String())
	assert.InDelta(t, 130.0, r.Periods[1].Cost, 1e-9)
	assert.Equal(t, "2026-11", r.Periods[2].Label)
	assert.InDelta(t, 310.0, r.Periods[2].Cost, 1e-9)
	assert.Equal(t, "2026-12", r.Periods[3].Label)
	assert.InDelta(t, 310.0, r.Periods[3].Cost, 1e-9)
	assert.InDelta(t, 930.0, r.TotalCost, 1e-9)
}

func TestComputeTrend_PastWindowIsFullyObserved(t *testing.T) {
	src := &memSource{entries: []model.ConsumptionEntry{spend("2024-01-03", 10), spend("2024-01-10", 20)}}
	req := TrendRequest{
		From:        d("2024-01-01"),
		To:          d("2024-01-31"),
		Granularity: calendar.Week,
		Today:       d("2024-06-01"),
	}

	var progress []int
	r, err := ComputeTrend(context.Background(), req, src,
		WithLogger(quietLogger),
		WithProgress(func(cur, _ int) { progress = append(progress, cur) }))
	require.NoError(t, err)

	require.Len(t, r.Periods, 4)
	assert.Equal(t, []int{1, 2, 3, 4}, progress)
	assert.Equal(t, "2024-01 W4", r.Periods[3].Label)
	assert.Equal(t, "2024-01-31", r.Periods[3].To.String())
	for _, p := range r.Periods {
		assert.False(t, p.Projected)
	}
	assert.Equal(t, 1, r.Periods[1].EntryCount)
}

func TestComputeTrend_FailedFetchesCounted(t *testing.T) {
	src := &memSource{fail: func(q source.Query) bool { return q.Span.From.Day() == 2 }}
	req := TrendRequest{From: d("2024-01-01"), To: d("2024-01-04"), Granularity: calendar.Day, Today: d("2024-02-01")}

	r, err := ComputeTrend(context.Background(), req, src, WithLogger(quietLogger))
	require.NoError(t, err)
	assert.Equal(t, 1, r.FailedFetches)
	assert.Len(t, r.Periods, 4)
}

func TestComputeTrend_ResourceTypeFilter(t *testing.T) {
	other := spend("2024-01-01", 500)
	other.ResourceType = "network"
	src := &memSource{entries: []model.ConsumptionEntry{spend("2024-01-01", 5), other}}
	req := TrendRequest{From: d("2024-01-01"), To: d("2024-01-02"), Granularity: calendar.Day,
		ResourceType: "compute", Today: d("2024-02-01")}

	r, err := ComputeTrend(context.Background(), req, src, WithLogger(quietLogger))
	require.NoError(t, err)
	assert.InDelta(t, 5.0, r.TotalCost, 1e-9)
}

func TestTrendRequest_Validate(t *testing.T) {
	tests := []struct {
		name string
		req  TrendRequest
	}{
		{"unknown granularity", TrendRequest{From: d("2024-01-01"), To: d("2024-03-01"), Granularity: "hour"}},
		{"to equals from", TrendRequest{From: d("2024-01-01"), To: d("2024-01-01"), Granularity: calendar.Day}},
		{"shorter than a week", TrendRequest{From: d("2024-01-01"), To: d("2024-01-05"), Granularity: calendar.Week}},
		{"shorter than a month", TrendRequest{From: d("2024-01-10"), To: d("2024-02-09"), Granularity: calendar.Month}},
		{"missing dates", TrendRequest{Granularity: calendar.Day}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.req.Validate(), calendar.ErrValidation)
		})
	}

	ok := TrendRequest{From: d("2024-01-10"), To: d("2024-02-10"), Granularity: calendar.Month}
	assert.NoError(t, ok.Validate())
}

func TestComputeTrend_FutureStartRejected(t *testing.T) {
	req := TrendRequest{From: d("2024-05-01"), To: d("2024-08-01"), Granularity: calendar.Month, Today: d("2024-03-17")}
	_, err := ComputeTrend(context.Background(), req, &memSource{})
	assert.ErrorIs(t, err, calendar.ErrValidation)
}
