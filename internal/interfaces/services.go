package interfaces

import (
	"context"

	"github.com/bobmcallan/polyfolio/internal/models"
)

// SnapshotService collects leaderboard snapshots
type SnapshotService interface {
	// Collect sweeps all categories for the given timeframes, persists the
	// rows to the snapshot store, and fails when more than the quality
	// threshold of (category, timeframe) pairs could not be fetched
	Collect(ctx context.Context, timeframes []string, limit int) (*models.SnapshotResult, error)
}

// AnalyzerService computes portfolio performance analytics for an account
type AnalyzerService interface {
	// Run executes the full pipeline: load positions, resolve events, load
	// trades, aggregate, summarize, export
	Run(ctx context.Context, wallet string, window models.TimeWindow) (*models.AnalysisReport, error)

	// PositionTrades returns the trades belonging to one asset in a report
	PositionTrades(report *models.AnalysisReport, asset string) []models.Trade

	// Chart renders the cumulative P&L chart for a report as PNG bytes
	Chart(report *models.AnalysisReport) ([]byte, error)
}
