// Package analyzer implements portfolio performance analytics for one
// account: position loading, event resolution, trade matching and the
// portfolio-level rollup.
package analyzer

import (
	"context"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/bobmcallan/polyfolio/internal/common"
	"github.com/bobmcallan/polyfolio/internal/interfaces"
	"github.com/bobmcallan/polyfolio/internal/models"
)

// Service runs the analysis pipeline against the Polymarket APIs.
type Service struct {
	client interfaces.PolymarketClient
	logger *common.Logger
}

// NewService creates an analyzer service.
func NewService(client interfaces.PolymarketClient, logger *common.Logger) *Service {
	return &Service{
		client: client,
		logger: logger,
	}
}

// Run executes the full pipeline for one account. The window, when set,
// bounds closed positions and trades by their timestamps; open positions are
// always current holdings and are never windowed.
func (s *Service) Run(ctx context.Context, wallet string, window models.TimeWindow) (*models.AnalysisReport, error) {
	positions, err := s.LoadPositions(ctx, wallet, window)
	if err != nil {
		return nil, err
	}

	// Open rows bypass server-side time filtering, so the merged table is
	// filtered again client-side.
	positions = models.FilterPositions(positions, window)
	positions = AggregatePositions(positions)
	s.ResolveEventIDs(ctx, positions)

	trades := s.LoadTrades(ctx, wallet, positions, window)

	summaries := SummarizePositions(positions, trades)
	winning, losing := PartitionSummaries(summaries)

	report := &models.AnalysisReport{
		Wallet:    wallet,
		UserName:  userName(trades),
		RunAt:     time.Now().UTC(),
		Window:    window,
		Positions: positions,
		Trades:    trades,
		Summaries: summaries,
		Winning:   winning,
		Losing:    losing,
		Portfolio: SummarizePortfolio(wallet, positions, summaries),
	}

	s.logger.Info().
		Str("wallet", wallet).
		Int("positions", len(positions)).
		Int("trades", len(trades)).
		Float64("total_pnl", report.Portfolio.TotalPnL).
		Msg("Analysis complete")
	return report, nil
}

// LoadPositions fetches closed and open positions and normalizes both into
// unified rows, returned latest first. Open rows carry the mark-to-market
// cash P&L in the realized column and sort by end date, with undated markets
// pushed to FarFuture.
func (s *Service) LoadPositions(ctx context.Context, wallet string, window models.TimeWindow) ([]models.Position, error) {
	closed, err := s.client.AllClosedPositions(ctx, wallet, window)
	if err != nil {
		return nil, err
	}
	open, err := s.client.AllOpenPositions(ctx, wallet)
	if err != nil {
		return nil, err
	}

	positions := make([]models.Position, 0, len(closed)+len(open))
	for _, p := range closed {
		positions = append(positions, models.Position{
			Asset:       p.Asset,
			Title:       p.Title,
			EventSlug:   p.EventSlug,
			Closed:      true,
			Timestamp:   p.Timestamp,
			EndDate:     p.EndDate,
			AvgPrice:    p.AvgPrice,
			TotalBought: p.TotalBought,
			Value:       p.AvgPrice * p.TotalBought,
			RealizedPnL: p.RealizedPnL,
		})
	}
	for _, p := range open {
		sortTime := models.FarFuture
		if p.EndDate != nil {
			sortTime = *p.EndDate
		}
		positions = append(positions, models.Position{
			Asset:       p.Asset,
			Title:       p.Title,
			EventSlug:   p.EventSlug,
			Closed:      false,
			Timestamp:   sortTime,
			EndDate:     p.EndDate,
			AvgPrice:    p.AvgPrice,
			TotalBought: p.TotalBought,
			Value:       p.AvgPrice * p.TotalBought,
			RealizedPnL: p.CashPnL,
			CurPrice:    p.CurPrice,
		})
	}

	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].Timestamp.After(positions[j].Timestamp)
	})

	s.logger.Info().
		Str("wallet", wallet).
		Int("closed", len(closed)).
		Int("open", len(open)).
		Msg("Positions loaded")
	return positions, nil
}

// ResolveEventIDs looks up each distinct event slug once and stamps the
// resulting event id onto every position under it. Lookup failures leave
// the id empty and never fail the run.
func (s *Service) ResolveEventIDs(ctx context.Context, positions []models.Position) {
	slugs := lo.Uniq(lo.FilterMap(positions, func(p models.Position, _ int) (string, bool) {
		return p.EventSlug, p.EventSlug != ""
	}))

	ids := make(map[string]string, len(slugs))
	for _, slug := range slugs {
		event, err := s.client.EventBySlug(ctx, slug)
		if err != nil {
			s.logger.Warn().Str("slug", slug).Err(err).Msg("Event lookup failed")
			continue
		}
		ids[slug] = event.ID
	}

	for i := range positions {
		positions[i].EventID = ids[positions[i].EventSlug]
	}
}

// LoadTrades fetches the account's fills one paginated walk per resolved
// event, joins position state by asset, derives per-trade values and applies
// the window. A failed walk for one event is logged and skipped, never fatal.
func (s *Service) LoadTrades(ctx context.Context, wallet string, positions []models.Position, window models.TimeWindow) []models.Trade {
	eventIDs := lo.Uniq(lo.FilterMap(positions, func(p models.Position, _ int) (string, bool) {
		return p.EventID, p.EventID != ""
	}))

	var fills []models.TradeFill
	for _, eventID := range eventIDs {
		eventFills, err := s.client.AllTrades(ctx, wallet, interfaces.WithTradeEventID(eventID))
		if err != nil {
			s.logger.Warn().Str("event_id", eventID).Err(err).Msg("Trade fetch failed, skipping event")
			continue
		}
		fills = append(fills, eventFills...)
	}

	byAsset := lo.KeyBy(positions, func(p models.Position) string { return p.Asset })

	trades := make([]models.Trade, 0, len(fills))
	unmatched := 0
	for _, f := range fills {
		size := f.Size
		if f.Side == models.TradeSideSell {
			size = -size
		}

		t := models.Trade{
			Asset:     f.Asset,
			Title:     f.Title,
			EventSlug: f.EventSlug,
			Side:      f.Side,
			Size:      size,
			Price:     f.Price,
			Timestamp: f.Timestamp,
			Name:      f.Name,
		}
		if p, ok := byAsset[f.Asset]; ok {
			t.Closed = p.Closed
			t.CurPrice = p.CurPrice
		} else {
			unmatched++
		}
		t.Value = t.Size * t.Price
		t.CurrentValue = t.Size * t.CurPrice
		t.TradePnL = t.CurrentValue - t.Value
		if t.Value != 0 {
			t.PercentPnL = t.TradePnL / t.Value * 100
		}
		trades = append(trades, t)
	}

	trades = models.FilterTrades(trades, window)
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp.After(trades[j].Timestamp)
	})
	if unmatched > 0 {
		s.logger.Warn().
			Int("unmatched", unmatched).
			Msg("Trades without a matching position row")
	}
	s.logger.Info().
		Str("wallet", wallet).
		Int("events", len(eventIDs)).
		Int("trades", len(trades)).
		Msg("Trades loaded")
	return trades
}

// PositionTrades returns the trades belonging to one asset in a report.
func (s *Service) PositionTrades(report *models.AnalysisReport, asset string) []models.Trade {
	return lo.Filter(report.Trades, func(t models.Trade, _ int) bool {
		return t.Asset == asset
	})
}

// userName picks the account's display name from its fills.
func userName(trades []models.Trade) string {
	for _, t := range trades {
		if t.Name != "" {
			return t.Name
		}
	}
	return ""
}

// Ensure Service implements AnalyzerService
var _ interfaces.AnalyzerService = (*Service)(nil)
