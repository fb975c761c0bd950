package snapshot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/polyfolio/internal/common"
	"github.com/bobmcallan/polyfolio/internal/interfaces"
	"github.com/bobmcallan/polyfolio/internal/models"
)

// stubClient fails the categories listed in failing and counts attempts
// per (timeframe, category) pair.
type stubClient struct {
	interfaces.PolymarketClient

	failing  map[string]int // pair -> number of failures before succeeding (-1 = always)
	attempts map[string]int
}

func newStubClient() *stubClient {
	return &stubClient{
		failing:  make(map[string]int),
		attempts: make(map[string]int),
	}
}

func (s *stubClient) Leaderboard(ctx context.Context, timeframe, category string, total int) ([]models.LeaderboardUser, error) {
	pair := timeframe + "/" + category
	s.attempts[pair]++

	if n, ok := s.failing[pair]; ok && (n < 0 || s.attempts[pair] <= n) {
		return nil, fmt.Errorf("upstream error for %s", pair)
	}

	users := make([]models.LeaderboardUser, total)
	for i := range users {
		users[i] = models.LeaderboardUser{
			Rank:     i + 1,
			Address:  fmt.Sprintf("0x%s-%d", category, i),
			PnL:      float64(i) * 100,
			Volume:   float64(i) * 1000,
			UserName: fmt.Sprintf("%s-user-%d", category, i),
		}
	}
	return users, nil
}

type memStore struct {
	appends []int // record counts per Append call
}

func (m *memStore) Append(date time.Time, entries []models.LeaderboardEntry) (string, error) {
	m.appends = append(m.appends, len(entries))
	return "leaderboard_test.csv", nil
}

func (m *memStore) ReadDay(date time.Time) ([]models.LeaderboardEntry, error) {
	return nil, nil
}

func (m *memStore) DayStats(date time.Time) (int, int, error) {
	return 0, 0, nil
}

func newTestService(client interfaces.PolymarketClient, store interfaces.SnapshotStore) *Service {
	return NewService(client, store, common.NewSilentLogger(), 3, time.Millisecond)
}

func TestCollectSweepsAllPairs(t *testing.T) {
	client := newStubClient()
	store := &memStore{}
	svc := newTestService(client, store)

	result, err := svc.Collect(context.Background(), []string{"day", "week"}, 5)
	require.NoError(t, err)

	assert.Equal(t, 20, result.TotalScrapes)
	assert.Empty(t, result.Failed)
	assert.Len(t, result.Entries, 20*5)

	// Every pair was hit exactly once.
	assert.Len(t, client.attempts, 20)
	for pair, n := range client.attempts {
		assert.Equal(t, 1, n, pair)
	}

	// One persist per sweep.
	assert.Equal(t, []int{100}, store.appends)
}

func TestCollectNormalizesEntries(t *testing.T) {
	client := newStubClient()
	svc := newTestService(client, &memStore{})

	before := time.Now().UTC()
	result, err := svc.Collect(context.Background(), []string{"week"}, 2)
	require.NoError(t, err)

	require.NotEmpty(t, result.Entries)
	first := result.Entries[0]
	assert.Equal(t, "week", first.Timeframe)
	assert.Equal(t, "overall", first.Category)
	assert.Equal(t, 1, first.Rank)
	assert.False(t, first.Timestamp.Before(before))

	// One capture timestamp for the whole sweep.
	for _, e := range result.Entries {
		assert.Equal(t, first.Timestamp, e.Timestamp)
	}
}

func TestCollectRetriesTransientFailures(t *testing.T) {
	client := newStubClient()
	client.failing["day/sports"] = 2 // fails twice, succeeds on the third attempt
	svc := newTestService(client, &memStore{})

	result, err := svc.Collect(context.Background(), []string{"day"}, 3)
	require.NoError(t, err)

	assert.Empty(t, result.Failed)
	assert.Equal(t, 3, client.attempts["day/sports"])
	assert.Len(t, result.Entries, 10*3)
}

func TestCollectAttemptBudgetIsTotalAttempts(t *testing.T) {
	client := newStubClient()
	client.failing["day/overall"] = -1
	svc := NewService(client, &memStore{}, common.NewSilentLogger(), 3, time.Millisecond)

	_, err := svc.Collect(context.Background(), []string{"day"}, 2)
	require.NoError(t, err)

	// max_retries bounds total attempts, not attempts after the first.
	assert.Equal(t, 3, client.attempts["day/overall"])
}

func TestCollectToleratesFailuresAtThreshold(t *testing.T) {
	client := newStubClient()
	// 3 of 10 pairs fail permanently: exactly the threshold, still a pass.
	client.failing["day/sports"] = -1
	client.failing["day/crypto"] = -1
	client.failing["day/weather"] = -1
	store := &memStore{}
	svc := newTestService(client, store)

	result, err := svc.Collect(context.Background(), []string{"day"}, 4)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"day/sports", "day/crypto", "day/weather"}, result.Failed)
	assert.Len(t, result.Entries, 7*4)
	// Each failed pair exhausted its three-attempt budget.
	assert.Equal(t, 3, client.attempts["day/sports"])
	assert.Equal(t, []int{28}, store.appends)
}

func TestCollectReportsDegradedSweep(t *testing.T) {
	client := newStubClient()
	for _, cat := range []string{"sports", "crypto", "weather", "tech"} {
		client.failing["day/"+cat] = -1
	}
	store := &memStore{}
	svc := newTestService(client, store)

	result, err := svc.Collect(context.Background(), []string{"day"}, 4)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "4 of 10 pairs failed")

	var qerr *QualityError
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, 4, qerr.FailedPairs)
	assert.Equal(t, 10, qerr.TotalScrapes)

	// The partial result is persisted before quality is judged.
	require.NotNil(t, result)
	assert.Len(t, result.Failed, 4)
	assert.Equal(t, []int{24}, store.appends)
}
