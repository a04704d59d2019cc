package model

import "github.com/theirongolddev/cloudburn/internal/calendar"

// TrendPeriod is one bucket of a cost time series. Projected is set only on
// buckets after the last observed data point.
type TrendPeriod struct {
	Label      string        `json:"label"`
	From       calendar.Date `json:"from_date"`
	To         calendar.Date `json:"to_date"`
	Cost       float64       `json:"cost"`
	Value      float64       `json:"value"`
	EntryCount int           `json:"entry_count"`
	Projected  bool          `json:"projected"`
}

// Bounds returns the period's inclusive range.
func (p TrendPeriod) Bounds() calendar.DateRange {
	return calendar.DateRange{From: p.From, To: p.To}
}

// WithBounds returns a copy of p covering r. Every other field is kept.
func (p TrendPeriod) WithBounds(r calendar.DateRange) TrendPeriod {
	p.From = r.From
	p.To = r.To
	return p
}

// TrendDirection summarizes a growth rate.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// PeriodChange is the change between two consecutive periods.
type PeriodChange struct {
	FromPeriod    string  `json:"from_period"`
	ToPeriod      string  `json:"to_period"`
	ChangeAmount  float64 `json:"change_amount"`
	ChangePercent float64 `json:"change_percent"`
}

// TrendResult is a cost time series with its derived statistics.
type TrendResult struct {
	Granularity       calendar.Granularity `json:"granularity"`
	Periods           []TrendPeriod        `json:"periods"`
	GrowthRate        float64              `json:"growth_rate"`
	HistoricalAverage float64              `json:"historical_average"`
	PeriodChanges     []PeriodChange       `json:"period_changes"`
	Direction         TrendDirection       `json:"trend_direction"`
	TotalCost         float64              `json:"total_cost"`
	PeriodCount       int                  `json:"period_count"`
	FailedFetches     int                  `json:"failed_fetches,omitempty"`
}

// Observed returns the periods that are not projections.
func (r TrendResult) Observed() []TrendPeriod {
	var out []TrendPeriod
	for _, p := range r.Periods {
		if !p.Projected {
			out = append(out, p)
		}
	}
	return out
}
