package model

import "github.com/theirongolddev/cloudburn/internal/calendar"

// Breakdown is the spend of one window split by resource type and day,
// compared with the window of equal length just before it.
type Breakdown struct {
	Window     calendar.DateRange `json:"window"`
	TotalCost  float64            `json:"total_cost"`
	EntryCount int                `json:"entry_count"`
	ActiveDays int                `json:"active_days"`
	CostPerDay float64            `json:"cost_per_day"`

	PreviousWindow calendar.DateRange `json:"previous_window"`
	PreviousCost   float64            `json:"previous_cost"`
	ChangePercent  float64            `json:"change_percent"`

	Resources     []ResourceStats `json:"resources"`
	Days          []DailyCost     `json:"days"`
	FailedFetches int             `json:"failed_fetches,omitempty"`
}

// ResourceStats holds aggregated spend for a single resource type.
type ResourceStats struct {
	ResourceType   string  `json:"resource_type"`
	Quantity       float64 `json:"quantity"`
	Cost           float64 `json:"cost"`
	EntryCount     int     `json:"entry_count"`
	SharePercent   float64 `json:"share_percent"`
	PreviousCost   float64 `json:"previous_cost"`
	TrendDirection int     `json:"trend_direction"` // -1, 0, +1 vs previous window
}

// DailyCost holds the spend of a single calendar day.
type DailyCost struct {
	Date       calendar.Date `json:"date"`
	Cost       float64       `json:"cost"`
	EntryCount int           `json:"entry_count"`
}
