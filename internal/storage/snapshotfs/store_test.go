package snapshotfs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/polyfolio/internal/common"
	"github.com/bobmcallan/polyfolio/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(common.NewSilentLogger(), t.TempDir())
	require.NoError(t, err)
	return store
}

func sampleEntries(captured time.Time, n int) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, n)
	for i := range entries {
		entries[i] = models.LeaderboardEntry{
			Timestamp: captured,
			Timeframe: "day",
			Category:  "politics",
			Rank:      i + 1,
			Address:   "0xabc",
			PnL:       float64(i) * 10.5,
			Volume:    float64(i) * 100,
			UserName:  "trader",
		}
	}
	return entries
}

func TestAppendAndReadDay(t *testing.T) {
	store := newTestStore(t)
	captured := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	path, err := store.Append(captured, sampleEntries(captured, 3))
	require.NoError(t, err)
	assert.Equal(t, "leaderboard_20260830.csv", filepath.Base(path))

	entries, err := store.ReadDay(captured)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "politics", entries[0].Category)
	assert.Equal(t, 2, entries[1].Rank)
	assert.InDelta(t, 10.5, entries[1].PnL, 0.001)
	assert.Equal(t, captured, entries[0].Timestamp)
}

func TestAppendAccumulatesSameDay(t *testing.T) {
	store := newTestStore(t)
	first := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)
	second := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)

	_, err := store.Append(first, sampleEntries(first, 2))
	require.NoError(t, err)
	_, err = store.Append(second, sampleEntries(second, 3))
	require.NoError(t, err)

	entries, err := store.ReadDay(first)
	require.NoError(t, err)
	assert.Len(t, entries, 5)

	// The header is written once per daily file.
	data, err := os.ReadFile(store.FilePath(first))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "timestamp,timeframe"))
}

func TestAppendPartitionsByDate(t *testing.T) {
	store := newTestStore(t)
	day1 := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	p1, err := store.Append(day1, sampleEntries(day1, 1))
	require.NoError(t, err)
	p2, err := store.Append(day2, sampleEntries(day2, 1))
	require.NoError(t, err)

	assert.NotEqual(t, p1, p2)

	entries, err := store.ReadDay(day1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadDayMissingFile(t *testing.T) {
	store := newTestStore(t)

	entries, err := store.ReadDay(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDayStats(t *testing.T) {
	store := newTestStore(t)
	first := time.Date(2026, 8, 30, 6, 0, 0, 0, time.UTC)
	second := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)

	_, err := store.Append(first, sampleEntries(first, 4))
	require.NoError(t, err)
	_, err = store.Append(second, sampleEntries(second, 6))
	require.NoError(t, err)

	records, snapshots, err := store.DayStats(first)
	require.NoError(t, err)
	assert.Equal(t, 10, records)
	assert.Equal(t, 2, snapshots)
}
