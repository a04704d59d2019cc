package budget

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
)

func trendPeriod(label, from, to string, cost float64) model.TrendPeriod {
	return model.TrendPeriod{Label: label, From: d(from), To: d(to), Cost: cost}
}

func TestSplitAtBoundaries_CutsStraddlingRange(t *testing.T) {
	b := monthly("2024-01-15")
	in := []model.TrendPeriod{trendPeriod("2024-01", "2024-01-01", "2024-01-31", 42)}

	out := SplitAtBoundaries(in, b)
	require.Len(t, out, 2)
	assert.Equal(t, "2024-01-01..2024-01-14", out[0].Bounds().String())
	assert.Equal(t, "2024-01-15..2024-01-31", out[1].Bounds().String())
	for _, p := range out {
		assert.Equal(t, "2024-01", p.Label)
		assert.Equal(t, 42.0, p.Cost)
	}
}

func TestSplitAtBoundaries_BoundaryOnFirstDayIsNoCut(t *testing.T) {
	b := monthly("2024-01-01")
	in := []model.TrendPeriod{
		trendPeriod("a", "2024-02-01", "2024-02-29", 1),
		trendPeriod("b", "2024-03-01", "2024-03-01", 2),
	}
	assert.Equal(t, in, SplitAtBoundaries(in, b))
}

func TestSplitAtBoundaries_MultipleCuts(t *testing.T) {
	b := monthly("2024-01-01")
	in := []model.TrendPeriod{trendPeriod("q1", "2024-01-20", "2024-04-05", 9)}

	out := SplitAtBoundaries(in, b)
	require.Len(t, out, 4)
	assert.Equal(t, "2024-01-20..2024-01-31", out[0].Bounds().String())
	assert.Equal(t, "2024-02-01..2024-02-29", out[1].Bounds().String())
	assert.Equal(t, "2024-03-01..2024-03-31", out[2].Bounds().String())
	assert.Equal(t, "2024-04-01..2024-04-05", out[3].Bounds().String())
}

func TestSplitAtBoundaries_Empty(t *testing.T) {
	assert.Nil(t, SplitAtBoundaries[model.TrendPeriod](nil, monthly("2024-01-01")))
}

func TestSplitAtBoundaries_NoPieceCrossesAPeriod(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	b := model.Budget{Name: "q", PeriodType: model.Quarterly, Amount: 10, StartDate: d("2023-03-17")}

	var in []model.TrendPeriod
	cursor := d("2023-01-01")
	for i := 0; i < 60; i++ {
		from := cursor.AddDays(rng.Intn(20))
		to := from.AddDays(rng.Intn(200))
		in = append(in, model.TrendPeriod{From: from, To: to})
		cursor = from
	}

	out := SplitAtBoundaries(in, b)
	covered := 0
	for _, p := range out {
		covered += p.Bounds().Days()
		from, ok1 := PeriodContaining(b, p.From)
		to, ok2 := PeriodContaining(b, p.To)
		if ok1 && ok2 {
			assert.Equal(t, from.Index, to.Index, "piece %s crosses a boundary", p.Bounds())
		}
		if !ok1 && ok2 {
			t.Fatalf("piece %s straddles the budget start", p.Bounds())
		}
	}

	want := 0
	for _, p := range in {
		want += p.Bounds().Days()
	}
	assert.Equal(t, want, covered, "pieces must tile their inputs")
}

func TestSplitAtBoundaries_Generic(t *testing.T) {
	b := monthly("2024-01-01")
	in := []calendar.DateRange{{From: d("2024-01-30"), To: d("2024-02-02")}}
	out := SplitAtBoundaries(in, b)
	require.Len(t, out, 2)
	assert.Equal(t, "2024-01-30..2024-01-31", out[0].String())
}
