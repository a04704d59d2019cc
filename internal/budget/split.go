package budget

import (
	"github.com/theirongolddev/cloudburn/internal/calendar"
	"github.com/theirongolddev/cloudburn/internal/model"
)

// Ranged is anything carrying an inclusive date range that can be re-bounded.
type Ranged[T any] interface {
	Bounds() calendar.DateRange
	WithBounds(calendar.DateRange) T
}

// SplitAtBoundaries cuts every item at each budget-period boundary it
// straddles. Pieces keep the item's metadata unchanged, cost included.
// Order is preserved and items that cross no boundary pass through as-is.
func SplitAtBoundaries[T Ranged[T]](items []T, b model.Budget) []T {
	if len(items) == 0 {
		return nil
	}

	span := items[0].Bounds()
	for _, it := range items[1:] {
		r := it.Bounds()
		span.From = calendar.MinDate(span.From, r.From)
		span.To = calendar.MaxDate(span.To, r.To)
	}
	bounds := Boundaries(b, span)

	out := make([]T, 0, len(items)+len(bounds))
	for _, it := range items {
		r := it.Bounds()
		from := r.From
		for _, t := range bounds {
			if !t.After(from) {
				continue
			}
			if t.After(r.To) {
				break
			}
			out = append(out, it.WithBounds(calendar.DateRange{From: from, To: t.AddDays(-1)}))
			from = t
		}
		if from.Equal(r.From) {
			out = append(out, it)
			continue
		}
		out = append(out, it.WithBounds(calendar.DateRange{From: from, To: r.To}))
	}
	return out
}
