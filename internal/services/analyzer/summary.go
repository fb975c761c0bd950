package analyzer

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/bobmcallan/polyfolio/internal/models"
)

// SummarizePositions builds the per-asset rollup by matching each aggregated
// position with its trades. Positions with no matched trade produce no
// summary. Invested capital is the sum of buy values; sell proceeds are
// tracked separately as a positive amount.
func SummarizePositions(positions []models.Position, trades []models.Trade) []models.PositionSummary {
	byAsset := lo.GroupBy(trades, func(t models.Trade) string { return t.Asset })

	summaries := make([]models.PositionSummary, 0, len(positions))
	for _, p := range positions {
		if len(byAsset[p.Asset]) == 0 {
			continue
		}
		summary := models.PositionSummary{
			Asset:       p.Asset,
			Title:       p.Title,
			EventSlug:   p.EventSlug,
			TotalBought: p.TotalBought,
			RealizedPnL: p.RealizedPnL,
			Closed:      p.Closed,
		}

		for _, t := range byAsset[p.Asset] {
			summary.NumTrades++
			if summary.FirstTradeTime.IsZero() || t.Timestamp.Before(summary.FirstTradeTime) {
				summary.FirstTradeTime = t.Timestamp
			}
			switch t.Side {
			case models.TradeSideBuy:
				summary.TotalInvested += t.Value
			case models.TradeSideSell:
				summary.TotalSells += -t.Value
				summary.HasSells = true
			}
		}

		summary.NetInvested = summary.TotalInvested - summary.TotalSells
		if summary.TotalInvested > 0 {
			summary.ROIPct = summary.RealizedPnL / summary.TotalInvested * 100
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// PartitionSummaries splits summaries into winners (positive P&L) and losers
// (negative P&L), each ordered by first-trade time ascending. Flat positions
// appear in neither list.
func PartitionSummaries(summaries []models.PositionSummary) (winning, losing []models.PositionSummary) {
	winning = lo.Filter(summaries, func(s models.PositionSummary, _ int) bool { return s.RealizedPnL > 0 })
	losing = lo.Filter(summaries, func(s models.PositionSummary, _ int) bool { return s.RealizedPnL < 0 })

	byFirstTrade := func(list []models.PositionSummary) func(i, j int) bool {
		return func(i, j int) bool { return list[i].FirstTradeTime.Before(list[j].FirstTradeTime) }
	}
	sort.SliceStable(winning, byFirstTrade(winning))
	sort.SliceStable(losing, byFirstTrade(losing))
	return winning, losing
}

// SummarizePortfolio recomputes the portfolio-level rollup from scratch.
// P&L sums cover every aggregated position; win/loss statistics cover only
// the traded positions the summary table carries. Every ratio degrades to
// zero when its denominator is empty, never to NaN or infinity.
func SummarizePortfolio(wallet string, positions []models.Position, summaries []models.PositionSummary) models.PortfolioSummary {
	p := models.PortfolioSummary{Wallet: wallet}

	for _, pos := range positions {
		if pos.Closed {
			p.RealizedPnL += pos.RealizedPnL
		} else {
			p.OpenCount++
			p.UnrealizedPnL += pos.RealizedPnL
		}
	}
	p.TotalPnL = p.RealizedPnL + p.UnrealizedPnL

	var wins, losses []float64
	for _, s := range summaries {
		p.TotalInvested += s.TotalInvested
		if !s.Closed {
			p.CapitalAtRisk += s.TotalInvested
			continue
		}
		p.ClosedCount++
		if s.RealizedPnL > 0 {
			wins = append(wins, s.RealizedPnL)
		} else if s.RealizedPnL < 0 {
			losses = append(losses, s.RealizedPnL)
		}
	}
	p.WinningCount = len(wins)
	p.LosingCount = len(losses)

	if p.TotalInvested > 0 {
		p.OverallROI = p.TotalPnL / p.TotalInvested * 100
	}
	if p.ClosedCount > 0 {
		p.WinRate = float64(p.WinningCount) / float64(p.ClosedCount) * 100
	}
	if len(wins) > 0 {
		p.AvgWin = lo.Sum(wins) / float64(len(wins))
	}
	if len(losses) > 0 {
		p.AvgLoss = lo.Sum(losses) / float64(len(losses))
	}
	if p.LosingCount > 0 && p.AvgLoss != 0 {
		p.ProfitFactor = math.Abs(p.AvgWin * float64(p.WinningCount) / (p.AvgLoss * float64(p.LosingCount)))
	}
	return p
}
