// Package models defines data structures for Polyfolio
package models

import "time"

// LeaderboardEntry is one normalized row of a leaderboard snapshot.
// Timestamp is the capture time, not anything reported by the API.
type LeaderboardEntry struct {
	Timestamp time.Time `json:"timestamp" csv:"timestamp"`
	Timeframe string    `json:"timeframe" csv:"timeframe"`
	Category  string    `json:"category" csv:"category"`
	Rank      int       `json:"rank" csv:"rank"`
	Address   string    `json:"address" csv:"address"`
	PnL       float64   `json:"pnl" csv:"pnl"`
	Volume    float64   `json:"volume" csv:"volume"`
	UserName  string    `json:"userName" csv:"userName"`
}

// SnapshotResult summarizes one leaderboard sweep across all
// (category, timeframe) combinations.
type SnapshotResult struct {
	Entries      []LeaderboardEntry
	Failed       []string // "timeframe/category" pairs that exhausted retries
	TotalScrapes int
}
