package interfaces

import (
	"time"

	"github.com/bobmcallan/polyfolio/internal/models"
)

// SnapshotStore persists leaderboard snapshots into date-partitioned files.
// Same-day appends accumulate into one daily file.
type SnapshotStore interface {
	// Append writes entries to the file for the given capture date, creating
	// it with a header or appending without one. Returns the file path.
	Append(date time.Time, entries []models.LeaderboardEntry) (string, error)

	// ReadDay loads all entries captured on the given date
	ReadDay(date time.Time) ([]models.LeaderboardEntry, error)

	// DayStats returns the record count and distinct capture timestamps in
	// the daily file, for cumulative progress logging
	DayStats(date time.Time) (records, snapshots int, err error)
}

// ReportStore persists per-account analysis exports and an index of them
type ReportStore interface {
	// SaveReport writes position/trade/summary exports for one run and
	// appends an entry to the account index. Returns the file names written.
	SaveReport(report *models.AnalysisReport) ([]string, error)

	// SaveChart writes a rendered P&L chart for one run. Returns the file name.
	SaveChart(report *models.AnalysisReport, png []byte) (string, error)
}
