// Package snapshot implements the daily leaderboard collection sweep.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/bobmcallan/polyfolio/internal/common"
	"github.com/bobmcallan/polyfolio/internal/interfaces"
	"github.com/bobmcallan/polyfolio/internal/models"
)

// Categories is every leaderboard category captured by a sweep.
var Categories = []string{
	"overall", "politics", "sports", "crypto", "finance",
	"culture", "mentions", "weather", "economics", "tech",
}

// maxFailureRate is the fraction of failed (timeframe, category) pairs above
// which a sweep is reported as degraded. The threshold is strict: a sweep
// failing exactly this fraction still passes.
const maxFailureRate = 0.30

// QualityError reports a sweep whose pair failure rate exceeded
// maxFailureRate. Rows the sweep did collect were persisted before the
// error was raised.
type QualityError struct {
	FailedPairs  int
	TotalScrapes int
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("sweep quality below threshold: %d of %d pairs failed", e.FailedPairs, e.TotalScrapes)
}

// Service collects leaderboard snapshots across all categories and persists
// them to the daily store.
type Service struct {
	client     interfaces.PolymarketClient
	store      interfaces.SnapshotStore
	logger     *common.Logger
	maxRetries int
	retryDelay time.Duration
}

// NewService creates a snapshot service. maxRetries is the total number of
// attempts allowed for each (timeframe, category) pair.
func NewService(client interfaces.PolymarketClient, store interfaces.SnapshotStore, logger *common.Logger, maxRetries int, retryDelay time.Duration) *Service {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if retryDelay <= 0 {
		retryDelay = time.Millisecond
	}
	return &Service{
		client:     client,
		store:      store,
		logger:     logger,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

// Collect sweeps every (timeframe, category) pair, normalizes the entries
// and appends them to the daily snapshot file. Pair failures consume a
// per-pair retry budget and never abort the sweep; collected rows are
// persisted before the sweep's quality is judged, so a degraded sweep still
// keeps everything it managed to fetch.
func (s *Service) Collect(ctx context.Context, timeframes []string, limit int) (*models.SnapshotResult, error) {
	capturedAt := time.Now().UTC()
	result := &models.SnapshotResult{
		TotalScrapes: len(timeframes) * len(Categories),
	}

	s.logger.Info().
		Strs("timeframes", timeframes).
		Int("categories", len(Categories)).
		Int("limit", limit).
		Msg("Starting leaderboard sweep")

	for _, timeframe := range timeframes {
		for _, category := range Categories {
			users, err := s.collectPair(ctx, timeframe, category, limit)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				pair := timeframe + "/" + category
				result.Failed = append(result.Failed, pair)
				s.logger.Warn().
					Str("pair", pair).
					Err(err).
					Msg("Leaderboard pair failed after retries")
				continue
			}

			for _, u := range users {
				result.Entries = append(result.Entries, models.LeaderboardEntry{
					Timestamp: capturedAt,
					Timeframe: timeframe,
					Category:  category,
					Rank:      u.Rank,
					Address:   u.Address,
					PnL:       u.PnL,
					Volume:    u.Volume,
					UserName:  u.UserName,
				})
			}
			s.logger.Info().
				Str("timeframe", timeframe).
				Str("category", category).
				Int("entries", len(users)).
				Msg("Leaderboard pair collected")
		}
	}

	if len(result.Entries) > 0 {
		path, err := s.store.Append(capturedAt, result.Entries)
		if err != nil {
			return nil, fmt.Errorf("failed to persist snapshot: %w", err)
		}
		records, snapshots, statsErr := s.store.DayStats(capturedAt)
		if statsErr == nil {
			s.logger.Info().
				Str("file", path).
				Int("day_records", records).
				Int("day_snapshots", snapshots).
				Msg("Snapshot persisted")
		}
	}

	if rate := float64(len(result.Failed)) / float64(result.TotalScrapes); rate > maxFailureRate {
		return result, &QualityError{FailedPairs: len(result.Failed), TotalScrapes: result.TotalScrapes}
	}

	return result, nil
}

// collectPair fetches one (timeframe, category) leaderboard under the
// per-pair retry budget with a fixed delay between attempts.
func (s *Service) collectPair(ctx context.Context, timeframe, category string, limit int) ([]models.LeaderboardUser, error) {
	var users []models.LeaderboardUser

	backoff := retry.WithMaxRetries(uint64(s.maxRetries-1), retry.NewConstant(s.retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		users, err = s.client.Leaderboard(ctx, timeframe, category, limit)
		if err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Ensure Service implements SnapshotService
var _ interfaces.SnapshotService = (*Service)(nil)
