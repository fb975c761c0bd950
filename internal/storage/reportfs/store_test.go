package reportfs

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/polyfolio/internal/common"
	"github.com/bobmcallan/polyfolio/internal/models"
)

func sampleReport() *models.AnalysisReport {
	runAt := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	return &models.AnalysisReport{
		Wallet:   "0xabc",
		UserName: "some trader",
		RunAt:    runAt,
		Positions: []models.Position{
			{Asset: "tok-1", Title: "Will it rain?", Closed: true, Timestamp: runAt, RealizedPnL: 50},
		},
		Trades: []models.Trade{
			{Asset: "tok-1", Side: models.TradeSideBuy, Size: 100, Price: 0.5, Timestamp: runAt, Value: 50},
		},
		Portfolio: models.PortfolioSummary{
			Wallet:      "0xabc",
			TotalPnL:    35,
			RealizedPnL: 30,
			ClosedCount: 1,
		},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestSaveReportWritesThreeFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(common.NewSilentLogger(), dir)
	require.NoError(t, err)

	files, err := store.SaveReport(sampleReport())
	require.NoError(t, err)

	// Names carry the sanitized display name and the run date.
	assert.Equal(t, []string{
		"some_trader_08302026_positions.csv",
		"some_trader_08302026_trades.csv",
		"some_trader_08302026_summary.csv",
	}, files)

	for _, name := range files {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	positions := readCSV(t, filepath.Join(dir, files[0]))
	require.Len(t, positions, 2)
	assert.Equal(t, "asset", positions[0][0])
	assert.Equal(t, "tok-1", positions[1][0])

	summary := readCSV(t, filepath.Join(dir, files[2]))
	assert.Contains(t, summary, []string{"total_pnl", "35"})
	assert.Contains(t, summary, []string{"closed_count", "1"})
}

func TestSaveReportFallsBackToWallet(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(common.NewSilentLogger(), dir)
	require.NoError(t, err)

	report := sampleReport()
	report.UserName = ""

	files, err := store.SaveReport(report)
	require.NoError(t, err)
	assert.Equal(t, "0xabc_08302026_positions.csv", files[0])
}

func TestIndexAccumulatesRuns(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(common.NewSilentLogger(), dir)
	require.NoError(t, err)

	_, err = store.SaveReport(sampleReport())
	require.NoError(t, err)
	_, err = store.SaveReport(sampleReport())
	require.NoError(t, err)

	index := readCSV(t, filepath.Join(dir, indexFileName))
	require.Len(t, index, 3, "header plus one row per run")
	assert.Equal(t, indexHeader, index[0])
	assert.Equal(t, "0xabc", index[1][1])
	// Run ids are unique per run.
	assert.NotEqual(t, index[1][0], index[2][0])
}

func TestSaveChart(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(common.NewSilentLogger(), dir)
	require.NoError(t, err)

	name, err := store.SaveChart(sampleReport(), []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "some_trader_08302026_pnl.png", name)

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}
