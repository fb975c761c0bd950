package models

import "time"

// Types in this file mirror Polymarket API records after decoding, before the
// analyzer normalizes them into Position/Trade rows.

// LeaderboardUser is one ranked entry from /v1/leaderboard.
type LeaderboardUser struct {
	Rank     int     `json:"rank"`
	Address  string  `json:"proxyWallet"`
	PnL      float64 `json:"pnl"`
	Volume   float64 `json:"vol"`
	UserName string  `json:"userName"`
}

// OpenPosition is one record from the data API /positions endpoint.
type OpenPosition struct {
	Asset        string     `json:"asset"`
	Title        string     `json:"title"`
	EventSlug    string     `json:"eventSlug"`
	AvgPrice     float64    `json:"avgPrice"`
	TotalBought  float64    `json:"totalBought"`
	CurPrice     float64    `json:"curPrice"`
	CashPnL      float64    `json:"cashPnl"`
	InitialValue float64    `json:"initialValue"`
	CurrentValue float64    `json:"currentValue"`
	EndDate      *time.Time `json:"endDate,omitempty"` // nil when the market has no resolution date
}

// ClosedPosition is one record from the data API /closed-positions endpoint.
type ClosedPosition struct {
	Asset       string     `json:"asset"`
	Title       string     `json:"title"`
	EventSlug   string     `json:"eventSlug"`
	AvgPrice    float64    `json:"avgPrice"`
	TotalBought float64    `json:"totalBought"`
	RealizedPnL float64    `json:"realizedPnl"`
	Timestamp   time.Time  `json:"timestamp"` // closing time
	EndDate     *time.Time `json:"endDate,omitempty"`
}

// TradeFill is one record from the data API /trades endpoint.
type TradeFill struct {
	Asset     string    `json:"asset"`
	Side      string    `json:"side"`
	Size      float64   `json:"size"` // as reported by the API, always positive
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title"`
	EventSlug string    `json:"eventSlug"`
	Name      string    `json:"name"`
}

// Activity is one record from the data API /activity endpoint.
type Activity struct {
	Asset     string    `json:"asset"`
	Type      string    `json:"type"` // TRADE, SPLIT, MERGE, REDEEM, REWARD, CONVERSION
	Side      string    `json:"side,omitempty"`
	Size      float64   `json:"size"`
	USDCSize  float64   `json:"usdcSize"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Title     string    `json:"title"`
	EventSlug string    `json:"eventSlug"`
}

// Event is a gamma API event lookup result.
type Event struct {
	ID    string `json:"id"`
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

// Market is a gamma API market record.
type Market struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Question string `json:"question"`
	Closed   bool   `json:"closed"`
}

// UserPnL is the mark-to-market rollup of a user's open positions.
type UserPnL struct {
	Address           string  `json:"address"`
	TotalCashPnL      float64 `json:"total_cash_pnl"`
	TotalInitialValue float64 `json:"total_initial_value"`
	TotalCurrentValue float64 `json:"total_current_value"`
	PercentPnL        float64 `json:"percent_pnl"`
}

// MarketHolders lists the top holders of one outcome token.
type MarketHolders struct {
	Token   string   `json:"token"`
	Holders []Holder `json:"holders"`
}

// Holder is one entry in a top-holders listing.
type Holder struct {
	Address   string  `json:"proxyWallet"`
	Amount    float64 `json:"amount"`
	Pseudonym string  `json:"pseudonym"`
}
