package billing

import "encoding/json"

// ConsumptionResponse is the raw body of GET /v1/consumption.
type ConsumptionResponse struct {
	Entries  []RawEntry `json:"entries"`
	Currency string     `json:"currency"`
}

// RawEntry is one line item as the billing API sends it. Quantity and
// unit price may arrive as numbers or as decimal strings, so they are kept
// as raw JSON for defensive parsing.
type RawEntry struct {
	ResourceType string          `json:"resource_type"`
	FromDate     string          `json:"from_date"`
	ToDate       string          `json:"to_date"`
	Quantity     json.RawMessage `json:"quantity"`
	UnitPrice    json.RawMessage `json:"unit_price"`
	Region       string          `json:"region,omitempty"`
	Account      string          `json:"account,omitempty"`
}

// errorResponse is the error body returned with non-2xx statuses.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
