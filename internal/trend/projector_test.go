package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
)

func d(s string) calendar.Date { return calendar.MustParseDate(s) }

func TestProjectUntil_ZeroGrowthRepeatsLastCost(t *testing.T) {
	r := Summarize(calendar.Month, costs(80, 120, 80))
	require.Equal(t, 0.0, r.GrowthRate)

	out, err := ProjectUntil(r, d("2024-08-31"), nil)
	require.NoError(t, err)
	require.Len(t, out.Periods, 8)

	for _, p := range out.Periods[3:] {
		assert.True(t, p.Projected)
		assert.InDelta(t, 80.0, p.Cost, 1e-9, p.Label)
	}
	assert.Equal(t, "2024-04", out.Periods[3].Label)
	assert.Equal(t, "2024-08-31", out.Periods[7].To.String())
	assert.Equal(t, 8, out.PeriodCount)
	assert.InDelta(t, 280.0+5*80, out.TotalCost, 1e-9)
}

func TestProjectUntil_Compounds(t *testing.T) {
	r := Summarize(calendar.Month, costs(100, 110))
	out, err := ProjectUntil(r, d("2024-04-30"), nil)
	require.NoError(t, err)
	require.Len(t, out.Periods, 4)
	assert.InDelta(t, 121.0, out.Periods[2].Cost, 1e-9)
	assert.InDelta(t, 133.1, out.Periods[3].Cost, 1e-9)
}

func TestProjectUntil_FloorsAtZero(t *testing.T) {
	r := Summarize(calendar.Month, costs(100, 10))
	r.GrowthRate = -150
	out, err := ProjectUntil(r, d("2024-03-31"), nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Periods[2].Cost)
}

func TestProjectUntil_TargetInsideSeriesIsNoop(t *testing.T) {
	r := Summarize(calendar.Month, costs(1, 2))
	out, err := ProjectUntil(r, d("2024-02-29"), nil)
	require.NoError(t, err)
	assert.Equal(t, r, out)
}

func TestProjectUntil_ClipsFinalStep(t *testing.T) {
	r := Summarize(calendar.Week, []model.TrendPeriod{
		{Label: "2024-01 W1", From: d("2024-01-01"), To: d("2024-01-07"), Cost: 7},
	})
	out, err := ProjectUntil(r, d("2024-01-10"), nil)
	require.NoError(t, err)
	require.Len(t, out.Periods, 2)
	assert.Equal(t, "2024-01-08..2024-01-10", out.Periods[1].Bounds().String())
	assert.Equal(t, "2024-01 W2", out.Periods[1].Label)
	assert.InDelta(t, 3.0, out.Periods[1].Cost, 1e-9)
	assert.InDelta(t, 10.0, out.TotalCost, 1e-9)
}

func TestProjectUntil_ClippedStepAgreesWithBudgetSplit(t *testing.T) {
	r := Summarize(calendar.Month, costs(310))

	plain, err := ProjectUntil(r, d("2024-02-03"), nil)
	require.NoError(t, err)
	require.Len(t, plain.Periods, 2)
	assert.InDelta(t, 310.0*3/29, plain.Periods[1].Cost, 1e-9)

	b := &model.Budget{Name: "feb", PeriodType: model.Monthly, Amount: 100, StartDate: d("2024-02-02")}
	split, err := ProjectUntil(r, d("2024-02-03"), b)
	require.NoError(t, err)
	require.Len(t, split.Periods, 3)
	assert.InDelta(t, 310.0/29, split.Periods[1].Cost, 1e-9)
	assert.InDelta(t, 310.0*2/29, split.Periods[2].Cost, 1e-9)
	assert.InDelta(t, plain.TotalCost, split.TotalCost, 1e-9)
}

func TestProjectUntil_CutShortPeriodScaledToWholePeriod(t *testing.T) {
	r := Summarize(calendar.Month, []model.TrendPeriod{
		{Label: "2026-10", From: d("2026-10-01"), To: d("2026-10-18"), Cost: 180, Value: 18},
	})
	out, err := ProjectUntil(r, d("2026-12-31"), nil)
	require.NoError(t, err)
	require.Len(t, out.Periods, 4)

	rest := out.Periods[1]
	assert.True(t, rest.Projected)
	assert.Equal(t, "2026-10-19..2026-10-31", rest.Bounds().String())
	assert.InDelta(t, 130.0, rest.Cost, 1e-9)
	assert.InDelta(t, 13.0, rest.Value, 1e-9)

	assert.Equal(t, "2026-11", out.Periods[2].Label)
	assert.InDelta(t, 310.0, out.Periods[2].Cost, 1e-9)
	assert.InDelta(t, 310.0, out.Periods[3].Cost, 1e-9)
	assert.InDelta(t, 930.0, out.TotalCost, 1e-9)
}

func TestProjectUntil_SplitsAtBudgetBoundaries(t *testing.T) {
	b := &model.Budget{Name: "mid", PeriodType: model.Monthly, Amount: 100, StartDate: d("2023-06-16")}
	r := Summarize(calendar.Month, costs(310, 310))

	out, err := ProjectUntil(r, d("2024-03-31"), b)
	require.NoError(t, err)
	require.Len(t, out.Periods, 4)

	assert.Equal(t, "2024-03-01..2024-03-15", out.Periods[2].Bounds().String())
	assert.Equal(t, "2024-03-16..2024-03-31", out.Periods[3].Bounds().String())
	assert.InDelta(t, 150.0, out.Periods[2].Cost, 1e-9)
	assert.InDelta(t, 160.0, out.Periods[3].Cost, 1e-9)
	assert.InDelta(t, 930.0, out.TotalCost, 1e-9)
}

func TestProjectUntil_ReplacesEarlierProjection(t *testing.T) {
	r := Summarize(calendar.Month, costs(50, 50))
	once, err := ProjectUntil(r, d("2024-04-30"), nil)
	require.NoError(t, err)
	twice, err := ProjectUntil(once, d("2024-05-31"), nil)
	require.NoError(t, err)
	assert.Len(t, twice.Periods, 5)
}

func TestProjectUntil_EmptyIsComputationError(t *testing.T) {
	_, err := ProjectUntil(model.TrendResult{Granularity: calendar.Day}, d("2024-01-01"), nil)
	assert.ErrorIs(t, err, ErrComputation)
}

func TestFindLastPeriodExcludingToday(t *testing.T) {
	today := d("2024-03-17")
	from := d("2024-01-01")

	assert.Equal(t, "2024-02-10", FindLastPeriodExcludingToday(calendar.Day, from, d("2024-02-10"), today).String())
	assert.Equal(t, "2024-03-16", FindLastPeriodExcludingToday(calendar.Day, from, d("2024-03-31"), today).String())
	assert.Equal(t, "2024-03-08", FindLastPeriodExcludingToday(calendar.Week, from, d("2024-03-31"), today).String())
	assert.Equal(t, "2024-02-01", FindLastPeriodExcludingToday(calendar.Month, from, d("2024-03-31"), today).String())
	assert.Equal(t, "2024-03-10", FindLastPeriodExcludingToday(calendar.Month, d("2024-03-10"), d("2024-03-31"), today).String())
	assert.Equal(t, "2024-03-16", FindLastPeriodExcludingToday(calendar.Day, from, today, today).String())
}
