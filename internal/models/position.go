package models

import "time"

// FarFuture is the sort timestamp assigned to open positions that have no
// resolution end date. It keeps "still open, no known end" rows sorting as
// latest without leaving the field zero.
var FarFuture = time.Date(2099, 12, 31, 0, 0, 0, 0, time.UTC)

// Position is one normalized position row, closed or open. Open rows carry
// the API's mark-to-market cash P&L in RealizedPnL so that closed and open
// rows sum through one column; Closed distinguishes the two semantics.
type Position struct {
	Asset       string     `json:"asset"`
	Title       string     `json:"title"`
	EventSlug   string     `json:"eventSlug"`
	EventID     string     `json:"eventId,omitempty"`
	Closed      bool       `json:"closed"`
	Timestamp   time.Time  `json:"timestamp"` // closing time, or end date / FarFuture for open rows
	EndDate     *time.Time `json:"endDate,omitempty"`
	AvgPrice    float64    `json:"avgPrice"`
	TotalBought float64    `json:"totalBought"`
	Value       float64    `json:"value"` // avgPrice * totalBought
	RealizedPnL float64    `json:"realizedPnl"`
	CurPrice    float64    `json:"curPrice,omitempty"` // mark price, open rows only
}

// TimeWindow is an optional inclusive [Start, End] bound. A zero Start or End
// leaves that side unbounded.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether no bound is set.
func (w TimeWindow) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Contains reports whether t falls inside the window, inclusive on both ends.
func (w TimeWindow) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && t.After(w.End) {
		return false
	}
	return true
}

// FilterPositions returns the positions whose timestamp falls in the window.
// Applying the same window twice returns an identical result.
func FilterPositions(positions []Position, window TimeWindow) []Position {
	if window.IsZero() {
		return positions
	}
	filtered := make([]Position, 0, len(positions))
	for _, p := range positions {
		if window.Contains(p.Timestamp) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
