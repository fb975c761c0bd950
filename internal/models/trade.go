package models

import "time"

// Trade sides as reported by the data API.
const (
	TradeSideBuy  = "BUY"
	TradeSideSell = "SELL"
)

// Trade is one fill joined to its position's current mark price.
// Size is signed: negative for sells.
type Trade struct {
	Asset     string    `json:"asset"`
	Title     string    `json:"title,omitempty"`
	EventSlug string    `json:"eventSlug,omitempty"`
	Side      string    `json:"side"`
	Size      float64   `json:"size"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Name      string    `json:"name,omitempty"`

	// Joined from the owning position by asset id.
	Closed   bool    `json:"closed"`
	CurPrice float64 `json:"curPrice"`

	// Derived fields.
	Value        float64 `json:"value"`         // size * price
	CurrentValue float64 `json:"current_value"` // size * curPrice
	TradePnL     float64 `json:"trade_pnl"`     // current_value - value
	PercentPnL   float64 `json:"percent_pnl"`
}

// FilterTrades returns the trades whose timestamp falls in the window.
func FilterTrades(trades []Trade, window TimeWindow) []Trade {
	if window.IsZero() {
		return trades
	}
	filtered := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if window.Contains(t.Timestamp) {
			filtered = append(filtered, t)
		}
	}
	return filtered
}
