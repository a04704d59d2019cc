package budget

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
)

func d(s string) calendar.Date { return calendar.MustParseDate(s) }

func monthly(start string) model.Budget {
	return model.Budget{Name: "infra", PeriodType: model.Monthly, Amount: 1000, StartDate: d(start)}
}

func TestGeneratePeriods_Monthly(t *testing.T) {
	periods, err := GeneratePeriods(monthly("2024-01-01"), d("2024-01-01"), d("2024-03-31"))
	require.NoError(t, err)
	require.Len(t, periods, 3)

	assert.Equal(t, "2024-01-01", periods[0].Start.String())
	assert.Equal(t, "2024-01-31", periods[0].End.String())
	assert.Equal(t, "2024-02-29", periods[1].End.String())
	assert.Equal(t, "2024-03-31", periods[2].End.String())
	for i, p := range periods {
		assert.Equal(t, i, p.Index)
		assert.Equal(t, 1000.0, p.BudgetAmount)
	}
}

func TestGeneratePeriods_ContiguousAndCovering(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	types := []model.PeriodType{model.Monthly, model.Quarterly, model.Yearly}

	for i := 0; i < 300; i++ {
		b := model.Budget{
			Name:       "b",
			PeriodType: types[rng.Intn(len(types))],
			Amount:     100,
			StartDate:  d("2020-01-01").AddDays(rng.Intn(900)),
		}
		if i%2 == 1 {
			end := b.StartDate.AddDays(1 + rng.Intn(1200))
			b.EndDate = &end
		}
		from := b.StartDate.AddDays(rng.Intn(400))
		to := from.AddDays(rng.Intn(800))

		periods, err := GeneratePeriods(b, from, to)
		require.NoError(t, err)

		// The active range runs from StartDate up to the day before EndDate.
		activeTo := to
		if b.EndDate != nil {
			activeTo = calendar.MinDate(to, b.EndDate.AddDays(-1))
		}
		if activeTo.Before(from) {
			for _, p := range periods {
				assert.True(t, p.Start.Before(*b.EndDate), "period %s starts at or after end date %s", p.Start, b.EndDate)
			}
			continue
		}
		require.NotEmpty(t, periods)

		first, last := periods[0], periods[len(periods)-1]
		assert.False(t, first.Start.After(from), "first period must cover window start")
		assert.False(t, last.End.Before(activeTo), "last period must cover %s", activeTo)
		if b.EndDate != nil {
			assert.True(t, last.Start.Before(*b.EndDate), "last period %s starts at or after end date %s", last.Start, b.EndDate)
		}
		assert.False(t, last.Start.After(to))
		for j := 1; j < len(periods); j++ {
			assert.Equal(t, periods[j-1].End.AddDays(1), periods[j].Start)
			assert.Equal(t, periods[j-1].Index+1, periods[j].Index)
		}
	}
}

func TestGeneratePeriods_EndOfMonthAnchorDoesNotDrift(t *testing.T) {
	periods, err := GeneratePeriods(monthly("2024-01-31"), d("2024-01-31"), d("2024-05-30"))
	require.NoError(t, err)
	require.Len(t, periods, 4)

	assert.Equal(t, "2024-02-29", periods[1].Start.String())
	assert.Equal(t, "2024-03-31", periods[2].Start.String())
	assert.Equal(t, "2024-03-30", periods[1].End.String())
}

func TestGeneratePeriods_StartAfterWindow(t *testing.T) {
	periods, err := GeneratePeriods(monthly("2025-01-01"), d("2024-01-01"), d("2024-12-31"))
	require.NoError(t, err)
	assert.Empty(t, periods)
}

func TestGeneratePeriods_EndDateStopsRecurrence(t *testing.T) {
	b := monthly("2024-01-01")
	end := d("2024-03-01")
	b.EndDate = &end

	periods, err := GeneratePeriods(b, d("2024-01-01"), d("2024-12-31"))
	require.NoError(t, err)
	require.Len(t, periods, 2)
	assert.Equal(t, "2024-02-29", periods[1].End.String())
}

func TestGeneratePeriods_Quarterly(t *testing.T) {
	b := model.Budget{Name: "q", PeriodType: model.Quarterly, Amount: 3000, StartDate: d("2023-11-15")}
	periods, err := GeneratePeriods(b, d("2024-06-01"), d("2024-06-30"))
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.Equal(t, 2, periods[0].Index)
	assert.Equal(t, "2024-05-15..2024-08-14", periods[0].Range().String())
}

func TestGeneratePeriods_Invalid(t *testing.T) {
	b := monthly("2024-01-01")
	b.Amount = 0
	_, err := GeneratePeriods(b, d("2024-01-01"), d("2024-02-01"))
	assert.ErrorIs(t, err, calendar.ErrValidation)

	_, err = GeneratePeriods(monthly("2024-01-01"), d("2024-02-01"), d("2024-01-01"))
	var ve *calendar.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "to_date", ve.Field)
}

func TestPeriodContaining(t *testing.T) {
	b := monthly("2024-01-15")

	p, ok := PeriodContaining(b, d("2024-03-01"))
	require.True(t, ok)
	assert.Equal(t, "2024-02-15..2024-03-14", p.Range().String())
	assert.Equal(t, 1, p.Index)

	_, ok = PeriodContaining(b, d("2024-01-14"))
	assert.False(t, ok)

	end := d("2024-04-15")
	b.EndDate = &end
	_, ok = PeriodContaining(b, d("2024-04-20"))
	assert.False(t, ok)
}

func TestRoundWindow(t *testing.T) {
	b := monthly("2024-01-01")
	r := RoundWindow(b, calendar.DateRange{From: d("2024-01-10"), To: d("2024-02-03")})
	assert.Equal(t, "2024-01-01..2024-02-29", r.String())

	r = RoundWindow(b, calendar.DateRange{From: d("2023-12-10"), To: d("2024-01-03")})
	assert.Equal(t, "2023-12-10..2024-01-31", r.String())
}

func TestBoundaries(t *testing.T) {
	b := monthly("2024-01-01")
	got := Boundaries(b, calendar.DateRange{From: d("2024-01-01"), To: d("2024-03-01")})
	require.Len(t, got, 2)
	assert.Equal(t, "2024-02-01", got[0].String())
	assert.Equal(t, "2024-03-01", got[1].String())

	end := d("2024-02-01")
	b.EndDate = &end
	got = Boundaries(b, calendar.DateRange{From: d("2023-12-01"), To: d("2024-06-01")})
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-01", got[0].String())
	assert.Equal(t, "2024-02-01", got[1].String())
}
