// Package reportfs implements file-based CSV storage for analysis exports.
package reportfs

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/polyfolio/internal/common"
	"github.com/bobmcallan/polyfolio/internal/interfaces"
	"github.com/bobmcallan/polyfolio/internal/models"
)

const indexFileName = "trader_files_index.csv"

var indexHeader = []string{"run_id", "wallet", "username", "run_at", "positions_file", "trades_file", "summary_file"}

// Store writes per-account analysis exports and maintains a run index.
type Store struct {
	basePath string
	logger   *common.Logger
}

// NewStore creates a report store rooted at path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create report store path %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("Report store opened")
	return &Store{
		basePath: path,
		logger:   logger,
	}, nil
}

// DataPath returns the base data path.
func (s *Store) DataPath() string {
	return s.basePath
}

// SaveReport writes the positions, trades and summary exports for one run
// and appends the run to the account index. Returns the file names written.
func (s *Store) SaveReport(report *models.AnalysisReport) ([]string, error) {
	prefix := s.filePrefix(report)

	positionsFile := prefix + "_positions.csv"
	tradesFile := prefix + "_trades.csv"
	summaryFile := prefix + "_summary.csv"

	if err := s.writeCSV(positionsFile, positionRecords(report.Positions)); err != nil {
		return nil, err
	}
	if err := s.writeCSV(tradesFile, tradeRecords(report.Trades)); err != nil {
		return nil, err
	}
	if err := s.writeCSV(summaryFile, summaryRecords(report)); err != nil {
		return nil, err
	}

	if err := s.appendIndex(report, positionsFile, tradesFile, summaryFile); err != nil {
		return nil, err
	}

	files := []string{positionsFile, tradesFile, summaryFile}
	s.logger.Info().
		Str("wallet", report.Wallet).
		Strs("files", files).
		Msg("Analysis report saved")
	return files, nil
}

// SaveChart writes a rendered P&L chart for one run.
func (s *Store) SaveChart(report *models.AnalysisReport, png []byte) (string, error) {
	name := s.filePrefix(report) + "_pnl.png"
	if err := writeAtomic(filepath.Join(s.basePath, name), png); err != nil {
		return "", err
	}
	s.logger.Info().Str("file", name).Msg("P&L chart saved")
	return name, nil
}

// filePrefix builds the per-run file name prefix: the account's display name
// when known, otherwise its address, plus the run date.
func (s *Store) filePrefix(report *models.AnalysisReport) string {
	name := report.UserName
	if name == "" {
		name = report.Wallet
	}
	return sanitizeName(name) + "_" + report.RunAt.Format("01022006")
}

func sanitizeName(name string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", " ", "_", "..", "_")
	return r.Replace(name)
}

func (s *Store) writeCSV(name string, records [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return writeAtomic(filepath.Join(s.basePath, name), buf.Bytes())
}

func writeAtomic(target string, data []byte) error {
	dir := filepath.Dir(target)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// appendIndex records the run in trader_files_index.csv with a fresh run id.
func (s *Store) appendIndex(report *models.AnalysisReport, positionsFile, tradesFile, summaryFile string) error {
	path := filepath.Join(s.basePath, indexFileName)

	writeHeader := true
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		writeHeader = false
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open index %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(indexHeader); err != nil {
			return fmt.Errorf("failed to write index header: %w", err)
		}
	}
	record := []string{
		uuid.NewString(),
		report.Wallet,
		report.UserName,
		report.RunAt.UTC().Format(time.RFC3339),
		positionsFile,
		tradesFile,
		summaryFile,
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("failed to write index record: %w", err)
	}
	w.Flush()
	return w.Error()
}

// --- record builders ---

func positionRecords(positions []models.Position) [][]string {
	records := [][]string{{
		"asset", "title", "eventSlug", "eventId", "closed", "timestamp",
		"endDate", "avgPrice", "totalBought", "value", "realizedPnl", "curPrice",
	}}
	for _, p := range positions {
		endDate := ""
		if p.EndDate != nil {
			endDate = p.EndDate.UTC().Format(time.RFC3339)
		}
		records = append(records, []string{
			p.Asset,
			p.Title,
			p.EventSlug,
			p.EventID,
			strconv.FormatBool(p.Closed),
			p.Timestamp.UTC().Format(time.RFC3339),
			endDate,
			formatFloat(p.AvgPrice),
			formatFloat(p.TotalBought),
			formatFloat(p.Value),
			formatFloat(p.RealizedPnL),
			formatFloat(p.CurPrice),
		})
	}
	return records
}

func tradeRecords(trades []models.Trade) [][]string {
	records := [][]string{{
		"asset", "title", "eventSlug", "side", "size", "price", "timestamp",
		"name", "closed", "curPrice", "value", "current_value", "trade_pnl", "percent_pnl",
	}}
	for _, t := range trades {
		records = append(records, []string{
			t.Asset,
			t.Title,
			t.EventSlug,
			t.Side,
			formatFloat(t.Size),
			formatFloat(t.Price),
			t.Timestamp.UTC().Format(time.RFC3339),
			t.Name,
			strconv.FormatBool(t.Closed),
			formatFloat(t.CurPrice),
			formatFloat(t.Value),
			formatFloat(t.CurrentValue),
			formatFloat(t.TradePnL),
			formatFloat(t.PercentPnL),
		})
	}
	return records
}

func summaryRecords(report *models.AnalysisReport) [][]string {
	p := report.Portfolio
	records := [][]string{
		{"metric", "value"},
		{"wallet", report.Wallet},
		{"username", report.UserName},
		{"run_at", report.RunAt.UTC().Format(time.RFC3339)},
		{"total_pnl", formatFloat(p.TotalPnL)},
		{"realized_pnl", formatFloat(p.RealizedPnL)},
		{"unrealized_pnl", formatFloat(p.UnrealizedPnL)},
		{"total_invested", formatFloat(p.TotalInvested)},
		{"overall_roi", formatFloat(p.OverallROI)},
		{"win_rate", formatFloat(p.WinRate)},
		{"avg_win", formatFloat(p.AvgWin)},
		{"avg_loss", formatFloat(p.AvgLoss)},
		{"profit_factor", formatFloat(p.ProfitFactor)},
		{"capital_at_risk", formatFloat(p.CapitalAtRisk)},
		{"closed_count", strconv.Itoa(p.ClosedCount)},
		{"open_count", strconv.Itoa(p.OpenCount)},
		{"winning_count", strconv.Itoa(p.WinningCount)},
		{"losing_count", strconv.Itoa(p.LosingCount)},
	}
	if !report.Window.IsZero() {
		records = append(records,
			[]string{"window_start", report.Window.Start.UTC().Format(time.RFC3339)},
			[]string{"window_end", report.Window.End.UTC().Format(time.RFC3339)},
		)
	}
	return records
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Ensure Store implements ReportStore
var _ interfaces.ReportStore = (*Store)(nil)
