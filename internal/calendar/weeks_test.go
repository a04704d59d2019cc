package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeeksOfMonth_TileEveryMonth(t *testing.T) {
	for _, year := range []int{2023, 2024, 2100} {
		for m := time.January; m <= time.December; m++ {
			weeks := WeeksOfMonth(year, m)
			require.Len(t, weeks, 4, "%d-%02d", year, m)

			assert.Equal(t, NewDate(year, m, 1), weeks[0].From)
			assert.Equal(t, NewDate(year, m, DaysIn(year, m)), weeks[3].To)
			for i := 1; i < len(weeks); i++ {
				assert.Equal(t, weeks[i-1].To.AddDays(1), weeks[i].From,
					"%d-%02d week %d not contiguous", year, m, i+1)
			}

			total := 0
			for _, w := range weeks {
				total += w.Days()
			}
			assert.Equal(t, DaysIn(year, m), total)
		}
	}
}

func TestWeeksOfMonth_LastWeekLength(t *testing.T) {
	jan := WeeksOfMonth(2024, time.January)
	require.Len(t, jan, 4)
	assert.Equal(t, MustParseDate("2024-01-22"), jan[3].From)
	assert.Equal(t, MustParseDate("2024-01-31"), jan[3].To)
	assert.Equal(t, 10, jan[3].Days())

	feb := WeeksOfMonth(2023, time.February)
	require.Len(t, feb, 4)
	assert.Equal(t, MustParseDate("2023-02-22"), feb[3].From)
	assert.Equal(t, MustParseDate("2023-02-28"), feb[3].To)
	assert.Equal(t, 7, feb[3].Days())

	leap := WeeksOfMonth(2024, time.February)
	assert.Equal(t, 8, leap[3].Days())
}

func TestWeekStartAndEnd(t *testing.T) {
	cases := []struct {
		day       string
		wantStart string
		wantEnd   string
	}{
		{"2024-03-01", "2024-03-01", "2024-03-07"},
		{"2024-03-07", "2024-03-01", "2024-03-07"},
		{"2024-03-08", "2024-03-08", "2024-03-14"},
		{"2024-03-21", "2024-03-15", "2024-03-21"},
		{"2024-03-22", "2024-03-22", "2024-03-31"},
		{"2024-03-31", "2024-03-22", "2024-03-31"},
		{"2023-02-28", "2023-02-22", "2023-02-28"},
	}
	for _, tc := range cases {
		d := MustParseDate(tc.day)
		ws := WeekStart(d)
		assert.Equal(t, tc.wantStart, ws.String(), "WeekStart(%s)", tc.day)
		assert.Equal(t, tc.wantEnd, WeekEnd(ws).String(), "WeekEnd(%s)", ws)
	}
}

func TestNextWeekStart_CrossesMonthAndYear(t *testing.T) {
	assert.Equal(t, "2024-01-08", NextWeekStart(MustParseDate("2024-01-03")).String())
	assert.Equal(t, "2024-02-01", NextWeekStart(MustParseDate("2024-01-25")).String())
	assert.Equal(t, "2025-01-01", NextWeekStart(MustParseDate("2024-12-22")).String())
	assert.Equal(t, "2025-01-01", NextWeekStart(MustParseDate("2024-12-31")).String())
}

func TestPrevWeekStart(t *testing.T) {
	assert.Equal(t, "2023-12-22", PrevWeekStart(MustParseDate("2024-01-05")).String())
	assert.Equal(t, "2024-03-01", PrevWeekStart(MustParseDate("2024-03-10")).String())
}

func TestWeekOfMonth(t *testing.T) {
	assert.Equal(t, 1, WeekOfMonth(MustParseDate("2024-05-07")))
	assert.Equal(t, 2, WeekOfMonth(MustParseDate("2024-05-08")))
	assert.Equal(t, 3, WeekOfMonth(MustParseDate("2024-05-21")))
	assert.Equal(t, 4, WeekOfMonth(MustParseDate("2024-05-31")))
}
