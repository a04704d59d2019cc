// Package source defines the consumption-source collaborator the engine
// queries, plus discovery and parsing of billing export files.
package source

import (
	"context"
	"fmt"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
)

// Query selects consumption in a half-open date span. Region and Account
// filter when non-empty.
type Query struct {
	Span    calendar.Span
	Region  string
	Account string
}

// Key identifies the query for caching.
func (q Query) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s", q.Span.From, q.Span.To, q.Region, q.Account)
}

// Result is what a source returns for a Query.
type Result struct {
	Entries  []model.ConsumptionEntry `json:"entries"`
	Currency string                   `json:"currency"`
}

// ConsumptionSource fetches billed consumption. Span.To is exclusive, matching
// upstream billing APIs.
type ConsumptionSource interface {
	Fetch(ctx context.Context, q Query) (*Result, error)
}

// Func adapts a plain function to ConsumptionSource.
type Func func(ctx context.Context, q Query) (*Result, error)

// Fetch calls f.
func (f Func) Fetch(ctx context.Context, q Query) (*Result, error) {
	return f(ctx, q)
}

// Format is the encoding of a billing export file.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatCSV   Format = "csv"
)

// DiscoveredFile is a billing export found during directory scanning.
type DiscoveredFile struct {
	Path   string
	Format Format
}
