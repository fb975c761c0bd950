// Package snapshotfs implements date-partitioned CSV storage for
// leaderboard snapshots.
package snapshotfs

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bobmcallan/polyfolio/internal/common"
	"github.com/bobmcallan/polyfolio/internal/interfaces"
	"github.com/bobmcallan/polyfolio/internal/models"
)

var csvHeader = []string{"timestamp", "timeframe", "category", "rank", "address", "pnl", "volume", "userName"}

// Store appends leaderboard snapshots to one CSV file per capture day.
type Store struct {
	basePath string
	logger   *common.Logger
}

// NewStore creates a snapshot store rooted at path.
func NewStore(logger *common.Logger, path string) (*Store, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot store path %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("Snapshot store opened")
	return &Store{
		basePath: path,
		logger:   logger,
	}, nil
}

// DataPath returns the base data path.
func (s *Store) DataPath() string {
	return s.basePath
}

// FilePath returns the daily file path for a capture date.
func (s *Store) FilePath(date time.Time) string {
	return filepath.Join(s.basePath, "leaderboard_"+date.Format("20060102")+".csv")
}

// Append writes entries to the daily file for date, creating it with a
// header when absent. Multiple snapshots taken on the same day accumulate
// into the same file.
func (s *Store) Append(date time.Time, entries []models.LeaderboardEntry) (string, error) {
	path := s.FilePath(date)

	writeHeader := true
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		writeHeader = false
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to open snapshot file %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(csvHeader); err != nil {
			return "", fmt.Errorf("failed to write header: %w", err)
		}
	}
	for _, e := range entries {
		record := []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			e.Timeframe,
			e.Category,
			strconv.Itoa(e.Rank),
			e.Address,
			strconv.FormatFloat(e.PnL, 'f', -1, 64),
			strconv.FormatFloat(e.Volume, 'f', -1, 64),
			e.UserName,
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush snapshot file %s: %w", path, err)
	}

	s.logger.Debug().
		Str("file", filepath.Base(path)).
		Int("records", len(entries)).
		Msg("Snapshot appended")
	return path, nil
}

// ReadDay loads all entries captured on the given date. A missing daily
// file yields an empty result, not an error.
func (s *Store) ReadDay(date time.Time) ([]models.LeaderboardEntry, error) {
	path := s.FilePath(date)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open snapshot file %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file %s: %w", path, err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	entries := make([]models.LeaderboardEntry, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < len(csvHeader) {
			continue
		}
		ts, _ := time.Parse(time.RFC3339, rec[0])
		rank, _ := strconv.Atoi(rec[3])
		pnl, _ := strconv.ParseFloat(rec[5], 64)
		volume, _ := strconv.ParseFloat(rec[6], 64)
		entries = append(entries, models.LeaderboardEntry{
			Timestamp: ts,
			Timeframe: rec[1],
			Category:  rec[2],
			Rank:      rank,
			Address:   rec[4],
			PnL:       pnl,
			Volume:    volume,
			UserName:  rec[7],
		})
	}
	return entries, nil
}

// DayStats returns the total record count and the number of distinct
// capture timestamps in the daily file.
func (s *Store) DayStats(date time.Time) (int, int, error) {
	entries, err := s.ReadDay(date)
	if err != nil {
		return 0, 0, err
	}

	captures := make(map[time.Time]struct{})
	for _, e := range entries {
		captures[e.Timestamp] = struct{}{}
	}
	return len(entries), len(captures), nil
}

// Ensure Store implements SnapshotStore
var _ interfaces.SnapshotStore = (*Store)(nil)
