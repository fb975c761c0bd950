package analyzer

import (
	"bytes"
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

type stubClient struct {
	interfaces.PolymarketClient

	closed    []models.ClosedPosition
	open      []models.OpenPosition
	fills     map[string][]models.TradeFill // event id -> fills
	failEvent string                        // event id whose trade walk errors
	events    map[string]string             // slug -> id

	eventLookups int
	tradeWalks   []string // event ids requested
}

func (s *stubClient) AllClosedPositions(ctx context.Context, address string, window models.TimeWindow) ([]models.ClosedPosition, error) {
	var out []models.ClosedPosition
	for _, p := range s.closed {
		if window.Contains(p.Timestamp) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubClient) AllOpenPositions(ctx context.Context, address string) ([]models.OpenPosition, error) {
	return s.open, nil
}

func (s *stubClient) AllTrades(ctx context.Context, address string, opts ...interfaces.TradeOption) ([]models.TradeFill, error) {
	p := &interfaces.TradeParams{}
	for _, opt := range opts {
		opt(p)
	}
	s.tradeWalks = append(s.tradeWalks, p.EventID)
	if s.failEvent != "" && p.EventID == s.failEvent {
		return nil, fmt.Errorf("trade fetch for event %s failed", p.EventID)
	}
	return s.fills[p.EventID], nil
}

func (s *stubClient) EventBySlug(ctx context.Context, slug string) (*models.Event, error) {
	s.eventLookups++
	id, ok := s.events[slug]
	if !ok {
		return nil, fmt.Errorf("event %q not found", slug)
	}
	return &models.Event{ID: id, Slug: slug}, nil
}

func newTestService(client interfaces.PolymarketClient) *Service {
	return NewService(client, common.NewSilentLogger())
}

func TestRunFullPipeline(t *testing.T) {
	closedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	client := &stubClient{
		closed: []models.ClosedPosition{
			{Asset: "A", Title: "Market A", EventSlug: "event-a", Timestamp: closedAt, RealizedPnL: 50, AvgPrice: 0.5, TotalBought: 100},
			{Asset: "A", Title: "Market A", EventSlug: "event-a", Timestamp: closedAt.Add(time.Hour), RealizedPnL: -20},
		},
		open: []models.OpenPosition{
			{Asset: "B", Title: "Market B", EventSlug: "event-b", CashPnL: 5, AvgPrice: 0.25, TotalBought: 40, CurPrice: 0.375},
		},
		fills: map[string][]models.TradeFill{
			"11": {
				{Asset: "A", Side: models.TradeSideBuy, Size: 100, Price: 0.5, Timestamp: closedAt.Add(-48 * time.Hour), Name: "trader-one"},
				{Asset: "A", Side: models.TradeSideSell, Size: 50, Price: 0.6, Timestamp: closedAt.Add(-24 * time.Hour), Name: "trader-one"},
			},
		},
		events: map[string]string{"event-a": "11", "event-b": "22"},
	}

	report, err := newTestService(client).Run(context.Background(), "0xabc", models.TimeWindow{})
	require.NoError(t, err)

	// Duplicate closed rows for A fold into one: P&L sums, closed holds.
	require.Len(t, report.Positions, 2)
	byAsset := map[string]models.Position{}
	for _, p := range report.Positions {
		byAsset[p.Asset] = p
	}

	a := byAsset["A"]
	assert.True(t, a.Closed)
	assert.InDelta(t, 30, a.RealizedPnL, 0.001)
	assert.Equal(t, closedAt.Add(time.Hour), a.Timestamp)
	assert.Equal(t, "11", a.EventID)

	// The open row carries cash P&L in the unified column and sorts at
	// FarFuture since it has no end date.
	b := byAsset["B"]
	assert.False(t, b.Closed)
	assert.InDelta(t, 5, b.RealizedPnL, 0.001)
	assert.Equal(t, models.FarFuture, b.Timestamp)
	assert.Equal(t, "22", b.EventID)

	// Trades come back latest first: signed sizes, derived values joined
	// from position state.
	require.Len(t, report.Trades, 2)
	sell, buy := report.Trades[0], report.Trades[1]
	assert.True(t, sell.Timestamp.After(buy.Timestamp))
	assert.InDelta(t, 50, buy.Value, 0.001)
	assert.InDelta(t, -50, sell.Size, 0.001)
	assert.InDelta(t, -30, sell.Value, 0.001)
	assert.True(t, buy.Closed, "joined from position A")

	// Portfolio rollup.
	p := report.Portfolio
	assert.InDelta(t, 30, p.RealizedPnL, 0.001)
	assert.InDelta(t, 5, p.UnrealizedPnL, 0.001)
	assert.InDelta(t, 35, p.TotalPnL, 0.001)
	assert.InDelta(t, 50, p.TotalInvested, 0.001)
	assert.InDelta(t, 70, p.OverallROI, 0.001)
	assert.Equal(t, 1, p.ClosedCount)
	assert.Equal(t, 1, p.OpenCount)
	assert.InDelta(t, 100, p.WinRate, 0.001)

	assert.Equal(t, "trader-one", report.UserName)
	// One trade walk per resolved event.
	assert.ElementsMatch(t, []string{"11", "22"}, client.tradeWalks)
}

func TestRunSkipsFailedTradeWalk(t *testing.T) {
	closedAt := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	client := &stubClient{
		closed: []models.ClosedPosition{
			{Asset: "A", EventSlug: "event-a", Timestamp: closedAt, RealizedPnL: 10},
			{Asset: "C", EventSlug: "event-c", Timestamp: closedAt, RealizedPnL: 20},
		},
		fills: map[string][]models.TradeFill{
			"11": {{Asset: "A", Side: models.TradeSideBuy, Size: 10, Price: 0.5, Timestamp: closedAt}},
			"33": {{Asset: "C", Side: models.TradeSideBuy, Size: 10, Price: 0.5, Timestamp: closedAt}},
		},
		failEvent: "33",
		events:    map[string]string{"event-a": "11", "event-c": "33"},
	}

	report, err := newTestService(client).Run(context.Background(), "0xabc", models.TimeWindow{})
	require.NoError(t, err, "one failed event walk must not abort the run")

	// Only event 11's trades made it; position C is still reported.
	require.Len(t, report.Trades, 1)
	assert.Equal(t, "A", report.Trades[0].Asset)
	assert.Len(t, report.Positions, 2)
}

func TestRunAppliesWindow(t *testing.T) {
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	client := &stubClient{
		closed: []models.ClosedPosition{
			{Asset: "in", EventSlug: "e-in", Timestamp: base.Add(24 * time.Hour), RealizedPnL: 10},
			{Asset: "out", EventSlug: "e-out", Timestamp: base.Add(-24 * time.Hour), RealizedPnL: 99},
		},
		fills: map[string][]models.TradeFill{
			"1": {
				{Asset: "in", Side: models.TradeSideBuy, Size: 10, Price: 0.5, Timestamp: base.Add(12 * time.Hour)},
				{Asset: "in", Side: models.TradeSideBuy, Size: 10, Price: 0.5, Timestamp: base.Add(-30 * 24 * time.Hour)},
			},
		},
		events: map[string]string{"e-in": "1", "e-out": "2"},
	}

	window := models.TimeWindow{Start: base, End: base.Add(48 * time.Hour)}
	report, err := newTestService(client).Run(context.Background(), "0xabc", window)
	require.NoError(t, err)

	require.Len(t, report.Positions, 1)
	assert.Equal(t, "in", report.Positions[0].Asset)
	require.Len(t, report.Trades, 1)
	assert.Equal(t, "in", report.Trades[0].Asset)
}

func TestLoadPositionsReturnsLatestFirst(t *testing.T) {
	older := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(30 * 24 * time.Hour)
	client := &stubClient{
		closed: []models.ClosedPosition{
			{Asset: "old", Timestamp: older, RealizedPnL: 1},
			{Asset: "new", Timestamp: newer, RealizedPnL: 2},
		},
		open: []models.OpenPosition{
			{Asset: "undated", CashPnL: 3},
		},
	}

	positions, err := newTestService(client).LoadPositions(context.Background(), "0xabc", models.TimeWindow{})
	require.NoError(t, err)

	require.Len(t, positions, 3)
	assert.Equal(t, "undated", positions[0].Asset, "FarFuture sorts ahead of dated rows")
	assert.Equal(t, "new", positions[1].Asset)
	assert.Equal(t, "old", positions[2].Asset)
}

func TestResolveEventIDsLooksUpEachSlugOnce(t *testing.T) {
	client := &stubClient{events: map[string]string{"shared": "7"}}
	svc := newTestService(client)

	positions := []models.Position{
		{Asset: "a", EventSlug: "shared"},
		{Asset: "b", EventSlug: "shared"},
		{Asset: "c", EventSlug: "missing"},
		{Asset: "d"},
	}
	svc.ResolveEventIDs(context.Background(), positions)

	assert.Equal(t, 2, client.eventLookups, "one per distinct slug")
	assert.Equal(t, "7", positions[0].EventID)
	assert.Equal(t, "7", positions[1].EventID)
	// A failed lookup leaves the id empty without failing the run.
	assert.Empty(t, positions[2].EventID)
	assert.Empty(t, positions[3].EventID)
}

func TestPositionTrades(t *testing.T) {
	report := &models.AnalysisReport{
		Trades: []models.Trade{
			{Asset: "a", Size: 1},
			{Asset: "b", Size: 2},
			{Asset: "a", Size: 3},
		},
	}

	trades := newTestService(&stubClient{}).PositionTrades(report, "a")
	require.Len(t, trades, 2)
	assert.InDelta(t, 1, trades[0].Size, 0.001)
	assert.InDelta(t, 3, trades[1].Size, 0.001)
}

func TestChartRendersPNG(t *testing.T) {
	base := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	report := &models.AnalysisReport{
		UserName: "trader-one",
		Trades: []models.Trade{
			{Asset: "a", Timestamp: base, TradePnL: 10},
			{Asset: "a", Timestamp: base.Add(24 * time.Hour), TradePnL: -4},
			{Asset: "a", Timestamp: base.Add(48 * time.Hour), TradePnL: 7},
		},
	}

	png, err := newTestService(&stubClient{}).Chart(report)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}

func TestChartNeedsTwoTrades(t *testing.T) {
	report := &models.AnalysisReport{
		Trades: []models.Trade{{Asset: "a"}},
	}
	_, err := newTestService(&stubClient{}).Chart(report)
	require.Error(t, err)
}
