package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
)

// PricingConfig holds user-defined unit prices for exports that report
// quantities without a price.
//
//	[[pricing.rates]]
//	resource_type = "compute"
//	unit_price = 0.048
//	effective_from = "2024-04-01"
type PricingConfig struct {
	Rates []RateConfig `toml:"rates,omitempty"`
}

// RateConfig is one effective-dated unit price.
type RateConfig struct {
	ResourceType  string  `toml:"resource_type"`
	UnitPrice     float64 `toml:"unit_price"`
	EffectiveFrom string  `toml:"effective_from,omitempty"`
}

type rateVersion struct {
	EffectiveFrom calendar.Date
	UnitPrice     float64
}

// RateCard resolves unit prices by resource type and date.
type RateCard struct {
	history map[string][]rateVersion
}

// NewRateCard builds a rate card from config. Versions are sorted by
// EffectiveFrom ascending; a version without a date applies from the start.
func NewRateCard(pc PricingConfig) (*RateCard, error) {
	rc := &RateCard{history: make(map[string][]rateVersion)}
	for i, r := range pc.Rates {
		rt := NormalizeResourceType(r.ResourceType)
		if rt == "" {
			return nil, fmt.Errorf("pricing rate %d: resource_type is required", i)
		}
		if r.UnitPrice < 0 {
			return nil, fmt.Errorf("pricing rate %d (%s): unit_price must not be negative", i, rt)
		}
		v := rateVersion{UnitPrice: r.UnitPrice}
		if r.EffectiveFrom != "" {
			d, err := calendar.ParseDate(r.EffectiveFrom)
			if err != nil {
				return nil, fmt.Errorf("pricing rate %d (%s): %w", i, rt, err)
			}
			v.EffectiveFrom = d
		}
		rc.history[rt] = append(rc.history[rt], v)
	}
	for rt := range rc.history {
		versions := rc.history[rt]
		sort.SliceStable(versions, func(a, b int) bool {
			return versions[a].EffectiveFrom.Before(versions[b].EffectiveFrom)
		})
	}
	return rc, nil
}

// NormalizeResourceType lowercases a resource type and strips any SKU
// suffix after a colon: "Compute:m5.large" -> "compute".
func NormalizeResourceType(raw string) string {
	rt := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexByte(rt, ':'); i >= 0 {
		rt = rt[:i]
	}
	return rt
}

// LookupAt returns the unit price for resourceType on day at.
// If at is zero, the latest known price is used.
func (rc *RateCard) LookupAt(resourceType string, at calendar.Date) (float64, bool) {
	if rc == nil {
		return 0, false
	}
	versions, ok := rc.history[NormalizeResourceType(resourceType)]
	if !ok || len(versions) == 0 {
		return 0, false
	}

	if at.IsZero() {
		return versions[len(versions)-1].UnitPrice, true
	}

	selected := versions[0].UnitPrice
	for _, v := range versions {
		if v.EffectiveFrom.IsZero() || !at.Before(v.EffectiveFrom) {
			selected = v.UnitPrice
			continue
		}
		break
	}
	return selected, true
}

// Apply fills in the unit price of entries that carry none, using the price
// effective on each entry's From date. It returns how many were priced.
func (rc *RateCard) Apply(entries []model.ConsumptionEntry) int {
	if rc == nil || len(rc.history) == 0 {
		return 0
	}
	priced := 0
	for i := range entries {
		if entries[i].UnitPrice != 0 {
			continue
		}
		if p, ok := rc.LookupAt(entries[i].ResourceType, entries[i].From); ok {
			entries[i].UnitPrice = p
			priced++
		}
	}
	return priced
}
