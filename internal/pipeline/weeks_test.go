package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
	"github.com/theirongolddev/cloudburn/internal/source"
)

func TestComputeMonthWeeks(t *testing.T) {
	src := &memSource{entries: []model.ConsumptionEntry{
		spend("2024-01-03", 70),
		spend("2024-01-15", 10),
		spend("2024-01-21", 20),
		spend("2024-01-31", 100),
		spend("2024-02-01", 999),
	}}

	weeks := ComputeMonthWeeks(context.Background(), src, 2024, time.January, calendar.Date{}, WithLogger(quietLogger))
	require.Len(t, weeks, 4)

	assert.InDelta(t, 70.0, weeks[0].Spent, 1e-9)
	assert.InDelta(t, 0.0, weeks[1].Spent, 1e-9)
	assert.InDelta(t, 30.0, weeks[2].Spent, 1e-9)
	assert.Equal(t, 2, weeks[2].EntryCount)
	assert.InDelta(t, 100.0, weeks[3].Spent, 1e-9)
	assert.Equal(t, 10, weeks[3].Range.Days())
	assert.InDelta(t, 10.0, weeks[3].DailyAverage(), 1e-9)
}

func TestComputeMonthWeeks_StopsAfterUntilAndMarksFailures(t *testing.T) {
	src := &memSource{
		entries: []model.ConsumptionEntry{spend("2024-02-02", 5)},
		fail: func(q source.Query) bool {
			return q.Span.From.Equal(d("2024-02-08"))
		},
	}

	var calls int
	weeks := ComputeMonthWeeks(context.Background(), src, 2024, time.February, d("2024-02-10"),
		WithLogger(quietLogger), WithProgress(func(int, int) { calls++ }))

	require.Len(t, weeks, 2)
	assert.False(t, weeks[0].Failed)
	assert.True(t, weeks[1].Failed)
	assert.Equal(t, 2, calls)
	assert.Len(t, src.queries, 2)
}
