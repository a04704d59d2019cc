package model

import "github.com/theirongolddev/cloudburn/internal/calendar"

// ConsumptionEntry is one billed line item from a consumption source.
type ConsumptionEntry struct {
	ResourceType string        `json:"resource_type"`
	From         calendar.Date `json:"from_date"`
	To           calendar.Date `json:"to_date"`
	Quantity     float64       `json:"quantity"`
	UnitPrice    float64       `json:"unit_price"`
	Region       string        `json:"region,omitempty"`
	Account      string        `json:"account,omitempty"`
}

// Price is Quantity x UnitPrice.
func (e ConsumptionEntry) Price() float64 {
	return e.Quantity * e.UnitPrice
}

// FilterByResourceType returns the entries of the given resource type.
// An empty resourceType keeps everything.
func FilterByResourceType(entries []ConsumptionEntry, resourceType string) []ConsumptionEntry {
	if resourceType == "" {
		return entries
	}
	var out []ConsumptionEntry
	for _, e := range entries {
		if e.ResourceType == resourceType {
			out = append(out, e)
		}
	}
	return out
}

// SumPrice returns the total price and summed quantity of entries.
func SumPrice(entries []ConsumptionEntry) (cost, quantity float64) {
	for _, e := range entries {
		cost += e.Price()
		quantity += e.Quantity
	}
	return cost, quantity
}
