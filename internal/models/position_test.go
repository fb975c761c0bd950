package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeWindowContains(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		window TimeWindow
		at     time.Time
		want   bool
	}{
		{"inside", TimeWindow{start, end}, start.Add(24 * time.Hour), true},
		{"on start boundary", TimeWindow{start, end}, start, true},
		{"on end boundary", TimeWindow{start, end}, end, true},
		{"before", TimeWindow{start, end}, start.Add(-time.Second), false},
		{"after", TimeWindow{start, end}, end.Add(time.Second), false},
		{"open start", TimeWindow{End: end}, start.AddDate(-10, 0, 0), true},
		{"open end", TimeWindow{Start: start}, end.AddDate(10, 0, 0), true},
		{"zero window", TimeWindow{}, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.window.Contains(tt.at))
		})
	}
}

func TestFilterPositionsIsIdempotent(t *testing.T) {
	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	window := TimeWindow{Start: start, End: start.AddDate(0, 1, 0)}

	positions := []Position{
		{Asset: "in", Timestamp: start.Add(time.Hour)},
		{Asset: "out", Timestamp: start.Add(-time.Hour)},
		{Asset: "far", Timestamp: FarFuture},
	}

	once := FilterPositions(positions, window)
	require.Len(t, once, 1)
	assert.Equal(t, "in", once[0].Asset)

	twice := FilterPositions(once, window)
	assert.Equal(t, once, twice)
}

func TestFarFutureSortsLatest(t *testing.T) {
	// An undated open position must sort after anything dated.
	assert.True(t, FarFuture.After(time.Date(2098, 12, 31, 23, 59, 59, 0, time.UTC)))
}
