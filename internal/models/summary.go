package models

import "time"

// PositionSummary is the per-asset rollup of an aggregated position and its
// matched trades.
type PositionSummary struct {
	Asset          string    `json:"asset"`
	Title          string    `json:"title"`
	EventSlug      string    `json:"eventSlug"`
	FirstTradeTime time.Time `json:"first_timestamp"`
	TotalBought    float64   `json:"totalBought"`
	RealizedPnL    float64   `json:"realizedPnl"`
	TotalInvested  float64   `json:"total_invested"` // sum of BUY trade values
	TotalSells     float64   `json:"total_sells"`    // sum of SELL trade values
	NetInvested    float64   `json:"net_invested"`
	ROIPct         float64   `json:"roi_pct"`
	NumTrades      int       `json:"num_trades"`
	HasSells       bool      `json:"has_sells"`
	Closed         bool      `json:"closed"`
}

// PortfolioSummary is the portfolio-level rollup, recomputed from scratch on
// every analysis run.
type PortfolioSummary struct {
	Wallet        string  `json:"wallet"`
	TotalPnL      float64 `json:"total_pnl"`
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	TotalInvested float64 `json:"total_invested"`
	OverallROI    float64 `json:"overall_roi"`
	WinRate       float64 `json:"win_rate"`
	AvgWin        float64 `json:"avg_win"`
	AvgLoss       float64 `json:"avg_loss"`
	ProfitFactor  float64 `json:"profit_factor"`
	CapitalAtRisk float64 `json:"capital_at_risk"`

	ClosedCount  int `json:"closed_count"`
	OpenCount    int `json:"open_count"`
	WinningCount int `json:"winning_count"`
	LosingCount  int `json:"losing_count"`
}

// AnalysisReport bundles everything one analysis run produces.
type AnalysisReport struct {
	Wallet    string            `json:"wallet"`
	UserName  string            `json:"username"`
	RunAt     time.Time         `json:"run_at"`
	Window    TimeWindow        `json:"-"`
	Positions []Position        `json:"positions"`
	Trades    []Trade           `json:"trades"`
	Summaries []PositionSummary `json:"summaries"`
	Winning   []PositionSummary `json:"winning"`
	Losing    []PositionSummary `json:"losing"`
	Portfolio PortfolioSummary  `json:"portfolio"`
}
