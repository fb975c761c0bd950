package analyzer

import (
	"sort"

	"github.com/bobmcallan/polyfolio/internal/models"
)

// AggregatePositions merges duplicate rows for the same asset into one.
// Duplicates appear when pagination overlaps or when an asset was partially
// closed and partially open. Per field: realized P&L sums, bought quantity
// and value sum, a position counts as closed only when every row is closed,
// the timestamp is the latest seen, and descriptive fields keep their first
// non-empty value. Output order is latest timestamp first.
func AggregatePositions(positions []models.Position) []models.Position {
	merged := make(map[string]*models.Position, len(positions))
	order := make([]string, 0, len(positions))

	for _, p := range positions {
		existing, ok := merged[p.Asset]
		if !ok {
			row := p
			merged[p.Asset] = &row
			order = append(order, p.Asset)
			continue
		}

		existing.RealizedPnL += p.RealizedPnL
		existing.TotalBought += p.TotalBought
		existing.Value += p.Value
		existing.Closed = existing.Closed && p.Closed
		if p.Timestamp.After(existing.Timestamp) {
			existing.Timestamp = p.Timestamp
		}
		if existing.Title == "" {
			existing.Title = p.Title
		}
		if existing.EventSlug == "" {
			existing.EventSlug = p.EventSlug
		}
		if existing.EndDate == nil {
			existing.EndDate = p.EndDate
		}
		if existing.CurPrice == 0 {
			existing.CurPrice = p.CurPrice
		}
	}

	result := make([]models.Position, 0, len(order))
	for _, asset := range order {
		result = append(result, *merged[asset])
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})
	return result
}
