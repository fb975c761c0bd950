// Package interfaces defines service contracts for Polyfolio
package interfaces

import (
	"context"

	"github.com/bobmcallan/polyfolio/internal/models"
)

// PolymarketClient provides access to Polymarket's public APIs
type PolymarketClient interface {
	// Leaderboard retrieves up to total ranked entries for one
	// (timeframe, category) pair, paginating in batches of 20
	Leaderboard(ctx context.Context, timeframe, category string, total int) ([]models.LeaderboardUser, error)

	// AllOpenPositions walks /positions to exhaustion for an account
	AllOpenPositions(ctx context.Context, address string) ([]models.OpenPosition, error)

	// AllClosedPositions walks /closed-positions to exhaustion. A non-zero
	// window switches to time-descending server sort with early stopping and
	// filters the result to exactly the window
	AllClosedPositions(ctx context.Context, address string, window models.TimeWindow) ([]models.ClosedPosition, error)

	// AllTrades walks /trades to exhaustion for an account
	AllTrades(ctx context.Context, address string, opts ...TradeOption) ([]models.TradeFill, error)

	// AllActivity walks /activity to exhaustion for an account
	AllActivity(ctx context.Context, address string, opts ...ActivityOption) ([]models.Activity, error)

	// EventBySlug resolves one event slug to its event record
	EventBySlug(ctx context.Context, slug string) (*models.Event, error)

	// MarketBySlug resolves one market slug to its market record
	MarketBySlug(ctx context.Context, slug string) (*models.Market, error)

	// Markets retrieves one page of gamma markets
	Markets(ctx context.Context, limit, offset int, closed bool) ([]models.Market, error)

	// PortfolioValue retrieves the total value of an account's open positions
	PortfolioValue(ctx context.Context, address string) (float64, error)

	// UserPnL sums cash P&L and position values over an account's open positions
	UserPnL(ctx context.Context, address string) (*models.UserPnL, error)

	// TradedCount retrieves the number of unique markets an account has traded
	TradedCount(ctx context.Context, address string) (int, error)

	// TopHolders retrieves the top holders for the given condition ids
	TopHolders(ctx context.Context, market string, limit, minBalance int) ([]models.MarketHolders, error)

	// Midpoint retrieves the CLOB midpoint price for one outcome token
	Midpoint(ctx context.Context, tokenID string) (float64, error)
}

// TradeParams holds optional /trades filters
type TradeParams struct {
	Market       string
	EventID      string
	MakerAddress string
	Side         string
	FilterType   string  // CASH or TOKENS; requires FilterAmount
	FilterAmount float64 // requires FilterType
	HasAmount    bool
	MaxResults   int // 0 means unbounded
}

// TradeOption configures a trades walk
type TradeOption func(*TradeParams)

// WithTradeEventID filters trades to one event id
func WithTradeEventID(eventID string) TradeOption {
	return func(p *TradeParams) {
		p.EventID = eventID
	}
}

// WithTradeMarket filters trades to a comma-separated condition id list
func WithTradeMarket(market string) TradeOption {
	return func(p *TradeParams) {
		p.Market = market
	}
}

// WithTradeMaker filters trades by maker address
func WithTradeMaker(address string) TradeOption {
	return func(p *TradeParams) {
		p.MakerAddress = address
	}
}

// WithTradeSide filters trades by side (BUY or SELL)
func WithTradeSide(side string) TradeOption {
	return func(p *TradeParams) {
		p.Side = side
	}
}

// WithTradeFilterType sets the threshold filter type (CASH or TOKENS).
// Must be paired with WithTradeFilterAmount.
func WithTradeFilterType(filterType string) TradeOption {
	return func(p *TradeParams) {
		p.FilterType = filterType
	}
}

// WithTradeFilterAmount sets the threshold filter amount.
// Must be paired with WithTradeFilterType.
func WithTradeFilterAmount(amount float64) TradeOption {
	return func(p *TradeParams) {
		p.FilterAmount = amount
		p.HasAmount = true
	}
}

// WithTradeMaxResults truncates the walk at n records
func WithTradeMaxResults(n int) TradeOption {
	return func(p *TradeParams) {
		p.MaxResults = n
	}
}

// ActivityParams holds optional /activity filters
type ActivityParams struct {
	Market     string
	EventID    string
	Type       string // comma-separated TRADE, SPLIT, MERGE, REDEEM, REWARD, CONVERSION
	Side       string
	Start      int64 // unix seconds, 0 means unbounded
	End        int64
	MaxResults int
}

// ActivityOption configures an activity walk
type ActivityOption func(*ActivityParams)

// WithActivityType sets the activity type filter
func WithActivityType(activityType string) ActivityOption {
	return func(p *ActivityParams) {
		p.Type = activityType
	}
}

// WithActivityEventID filters activity to one event id
func WithActivityEventID(eventID string) ActivityOption {
	return func(p *ActivityParams) {
		p.EventID = eventID
	}
}

// WithActivityRange bounds activity by unix-second timestamps
func WithActivityRange(start, end int64) ActivityOption {
	return func(p *ActivityParams) {
		p.Start = start
		p.End = end
	}
}

// WithActivitySide filters activity by trade side
func WithActivitySide(side string) ActivityOption {
	return func(p *ActivityParams) {
		p.Side = side
	}
}

// WithActivityMaxResults truncates the walk at n records
func WithActivityMaxResults(n int) ActivityOption {
	return func(p *ActivityParams) {
		p.MaxResults = n
	}
}
