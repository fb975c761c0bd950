// Package polymarket provides a client for Polymarket's public APIs
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/polyfolio/internal/common"
	"github.com/bobmcallan/polyfolio/internal/interfaces"
	"github.com/bobmcallan/polyfolio/internal/models"
)

const (
	DefaultDataBaseURL  = "https://data-api.polymarket.com"
	DefaultGammaBaseURL = "https://gamma-api.polymarket.com"
	DefaultClobBaseURL  = "https://clob.polymarket.com"
	DefaultTimeout      = 30 * time.Second
	DefaultPageDelay    = 500 * time.Millisecond
	DefaultCooldown     = 5 * time.Second

	// MaxOffset is the API's documented pagination ceiling. Walks that reach
	// it return what they have collected with a warning.
	MaxOffset = 10000

	leaderboardBatchSize = 20
	openPositionsLimit   = 500
	closedPositionsLimit = 25
	tradesLimit          = 500
	activityLimit        = 500

	// earlyStopPages is the number of consecutive pages without an in-window
	// record after which a time-filtered closed-positions walk stops.
	earlyStopPages = 5
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

// flexInt handles JSON values that may be either a number or a string.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var ff flexFloat64
	if err := ff.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = flexInt(ff)
	return nil
}

// Client implements the PolymarketClient interface
type Client struct {
	dataBaseURL  string
	gammaBaseURL string
	clobBaseURL  string
	httpClient   *http.Client
	logger       *common.Logger
	limiter      *rate.Limiter
	cooldown     time.Duration
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithDataBaseURL sets the data API base URL
func WithDataBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.dataBaseURL = baseURL
	}
}

// WithGammaBaseURL sets the gamma API base URL
func WithGammaBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.gammaBaseURL = baseURL
	}
}

// WithClobBaseURL sets the CLOB API base URL
func WithClobBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.clobBaseURL = baseURL
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithPageDelay sets the courtesy pause between successive requests.
// Zero disables pacing entirely.
func WithPageDelay(delay time.Duration) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
}

// WithCooldown sets the pause applied after an HTTP 429 before the same
// request is re-issued
func WithCooldown(cooldown time.Duration) ClientOption {
	return func(c *Client) {
		c.cooldown = cooldown
	}
}

// NewClient creates a new Polymarket client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		dataBaseURL:  DefaultDataBaseURL,
		gammaBaseURL: DefaultGammaBaseURL,
		clobBaseURL:  DefaultClobBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:  rate.NewLimiter(rate.Every(DefaultPageDelay), 1),
		cooldown: DefaultCooldown,
		logger:   common.NewSilentLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a Polymarket API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Polymarket API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// sleep pauses for d or until the context is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// get performs a paced GET request and decodes the JSON response.
// An HTTP 429 is retried on the same request after the cooldown, without
// bound and never counts against any retry budget. Every other
// non-2xx status is returned as an *APIError.
func (c *Client) get(ctx context.Context, base, path string, params url.Values, result interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	reqURL := base + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")

		c.logger.Debug().Str("url", path).Msg("Polymarket API request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to execute request: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			c.logger.Warn().
				Str("endpoint", path).
				Dur("cooldown", c.cooldown).
				Msg("Rate limited, waiting before retrying same request")
			if err := sleep(ctx, c.cooldown); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return &APIError{
				StatusCode: resp.StatusCode,
				Message:    string(body),
				Endpoint:   path,
			}
		}

		err = json.NewDecoder(resp.Body).Decode(result)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}
}

// fetchAll walks an offset-paginated list endpoint to exhaustion, issuing one
// request per page and concatenating results in request order. It stops on a
// short page, truncates at maxResults (0 means unbounded) without issuing a
// further request, and stops with a warning when the next offset would reach
// the API's pagination ceiling. The offset always advances by the requested
// limit, never by the received count.
func fetchAll[T any](ctx context.Context, c *Client, endpoint string, limit, maxResults int, page func(ctx context.Context, limit, offset int) ([]T, error)) ([]T, error) {
	var all []T
	offset := 0

	for {
		batch, err := page(ctx, limit, offset)
		if err != nil {
			return nil, err
		}

		all = append(all, batch...)

		c.logger.Info().
			Str("endpoint", endpoint).
			Int("fetched", len(batch)).
			Int("total", len(all)).
			Msg("Fetched page")

		// The caller's bound wins even when the final page is short.
		if maxResults > 0 && len(all) >= maxResults {
			all = all[:maxResults]
			break
		}

		if len(batch) < limit {
			break
		}

		if offset+limit >= MaxOffset {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("offset", offset+limit).
				Msg("Reached API pagination limit, returning collected records")
			break
		}

		offset += limit
	}

	return all, nil
}

// Leaderboard retrieves up to total ranked entries for one (timeframe,
// category) pair, in batches of 20, stopping early on a short batch.
func (c *Client) Leaderboard(ctx context.Context, timeframe, category string, total int) ([]models.LeaderboardUser, error) {
	page := func(ctx context.Context, limit, offset int) ([]models.LeaderboardUser, error) {
		params := url.Values{}
		params.Set("timePeriod", timeframe)
		params.Set("orderBy", "PNL")
		params.Set("category", category)
		params.Set("limit", strconv.Itoa(limit))
		params.Set("offset", strconv.Itoa(offset))

		var resp []leaderboardUserResponse
		if err := c.get(ctx, c.dataBaseURL, "/v1/leaderboard", params, &resp); err != nil {
			return nil, err
		}

		users := make([]models.LeaderboardUser, len(resp))
		for i, u := range resp {
			users[i] = models.LeaderboardUser{
				Rank:     int(u.Rank),
				Address:  u.ProxyWallet,
				PnL:      float64(u.PnL),
				Volume:   float64(u.Vol),
				UserName: u.UserName,
			}
		}
		return users, nil
	}

	return fetchAll(ctx, c, "/v1/leaderboard", leaderboardBatchSize, total, page)
}

type leaderboardUserResponse struct {
	Rank        flexInt     `json:"rank"`
	ProxyWallet string      `json:"proxyWallet"`
	PnL         flexFloat64 `json:"pnl"`
	Vol         flexFloat64 `json:"vol"`
	UserName    string      `json:"userName"`
}

// AllOpenPositions walks /positions to exhaustion for an account
func (c *Client) AllOpenPositions(ctx context.Context, address string) ([]models.OpenPosition, error) {
	page := func(ctx context.Context, limit, offset int) ([]models.OpenPosition, error) {
		params := url.Values{}
		params.Set("user", address)
		params.Set("limit", strconv.Itoa(limit))
		params.Set("offset", strconv.Itoa(offset))
		params.Set("sortBy", "CURRENT")
		params.Set("sortDirection", "DESC")

		var resp []openPositionResponse
		if err := c.get(ctx, c.dataBaseURL, "/positions", params, &resp); err != nil {
			return nil, err
		}

		positions := make([]models.OpenPosition, len(resp))
		for i, p := range resp {
			positions[i] = models.OpenPosition{
				Asset:        p.Asset,
				Title:        p.Title,
				EventSlug:    p.EventSlug,
				AvgPrice:     p.AvgPrice,
				TotalBought:  p.TotalBought,
				CurPrice:     p.CurPrice,
				CashPnL:      p.CashPnL,
				InitialValue: p.InitialValue,
				CurrentValue: p.CurrentValue,
				EndDate:      parseEndDate(p.EndDate),
			}
		}
		return positions, nil
	}

	return fetchAll(ctx, c, "/positions", openPositionsLimit, 0, page)
}

type openPositionResponse struct {
	Asset        string  `json:"asset"`
	Title        string  `json:"title"`
	EventSlug    string  `json:"eventSlug"`
	AvgPrice     float64 `json:"avgPrice"`
	TotalBought  float64 `json:"totalBought"`
	CurPrice     float64 `json:"curPrice"`
	CashPnL      float64 `json:"cashPnl"`
	InitialValue float64 `json:"initialValue"`
	CurrentValue float64 `json:"currentValue"`
	EndDate      string  `json:"endDate"`
}

// AllClosedPositions walks /closed-positions to exhaustion. With a non-zero
// window the walk requests time-descending server sort and stops after five
// consecutive pages containing no in-window record, then filters the result
// to exactly the window ; the early stop is an optimization, not the filter.
func (c *Client) AllClosedPositions(ctx context.Context, address string, window models.TimeWindow) ([]models.ClosedPosition, error) {
	sortBy := "REALIZEDPNL"
	if !window.IsZero() {
		sortBy = "TIMESTAMP"
	}

	page := func(ctx context.Context, limit, offset int) ([]models.ClosedPosition, error) {
		params := url.Values{}
		params.Set("user", address)
		params.Set("limit", strconv.Itoa(limit))
		params.Set("offset", strconv.Itoa(offset))
		params.Set("sortBy", sortBy)
		params.Set("sortDirection", "DESC")

		var resp []closedPositionResponse
		if err := c.get(ctx, c.dataBaseURL, "/closed-positions", params, &resp); err != nil {
			return nil, err
		}

		positions := make([]models.ClosedPosition, len(resp))
		for i, p := range resp {
			positions[i] = models.ClosedPosition{
				Asset:       p.Asset,
				Title:       p.Title,
				EventSlug:   p.EventSlug,
				AvgPrice:    p.AvgPrice,
				TotalBought: p.TotalBought,
				RealizedPnL: p.RealizedPnL,
				Timestamp:   time.Unix(p.Timestamp, 0).UTC(),
				EndDate:     parseEndDate(p.EndDate),
			}
		}
		return positions, nil
	}

	if window.IsZero() {
		return fetchAll(ctx, c, "/closed-positions", closedPositionsLimit, 0, page)
	}

	// Time-filtered walk with early stopping. Assumes the server honors the
	// descending timestamp sort, so pages past the window are strictly older.
	var all []models.ClosedPosition
	offset := 0
	staleBatches := 0

	for {
		batch, err := page(ctx, closedPositionsLimit, offset)
		if err != nil {
			return nil, err
		}

		all = append(all, batch...)

		inWindow := false
		for _, p := range batch {
			if window.Contains(p.Timestamp) {
				inWindow = true
				break
			}
		}
		if inWindow {
			staleBatches = 0
		} else {
			staleBatches++
			if staleBatches >= earlyStopPages {
				c.logger.Info().
					Int("pages", earlyStopPages).
					Msg("No in-window closed positions in recent pages, stopping fetch")
				break
			}
		}

		c.logger.Info().
			Str("endpoint", "/closed-positions").
			Int("fetched", len(batch)).
			Int("total", len(all)).
			Msg("Fetched page")

		if len(batch) < closedPositionsLimit {
			break
		}

		if offset+closedPositionsLimit >= MaxOffset {
			c.logger.Warn().
				Str("endpoint", "/closed-positions").
				Int("offset", offset+closedPositionsLimit).
				Msg("Reached API pagination limit, returning collected records")
			break
		}

		offset += closedPositionsLimit
	}

	filtered := make([]models.ClosedPosition, 0, len(all))
	for _, p := range all {
		if window.Contains(p.Timestamp) {
			filtered = append(filtered, p)
		}
	}
	c.logger.Info().
		Int("total", len(all)).
		Int("in_window", len(filtered)).
		Msg("Date filtering applied to closed positions")

	return filtered, nil
}

type closedPositionResponse struct {
	Asset       string  `json:"asset"`
	Title       string  `json:"title"`
	EventSlug   string  `json:"eventSlug"`
	AvgPrice    float64 `json:"avgPrice"`
	TotalBought float64 `json:"totalBought"`
	RealizedPnL float64 `json:"realizedPnl"`
	Timestamp   int64   `json:"timestamp"`
	EndDate     string  `json:"endDate"`
}

// AllTrades walks /trades to exhaustion for an account. Both maker and taker
// fills are returned. A threshold filter type and amount must be supplied
// together; the combination is validated before any request is issued.
func (c *Client) AllTrades(ctx context.Context, address string, opts ...interfaces.TradeOption) ([]models.TradeFill, error) {
	p := &interfaces.TradeParams{}
	for _, opt := range opts {
		opt(p)
	}

	if (p.FilterType != "") != p.HasAmount {
		return nil, fmt.Errorf("filterType and filterAmount must be provided together")
	}

	page := func(ctx context.Context, limit, offset int) ([]models.TradeFill, error) {
		params := url.Values{}
		params.Set("user", address)
		params.Set("limit", strconv.Itoa(limit))
		params.Set("offset", strconv.Itoa(offset))
		params.Set("takerOnly", "false")
		if p.Market != "" {
			params.Set("market", p.Market)
		}
		if p.EventID != "" {
			params.Set("eventId", p.EventID)
		}
		if p.MakerAddress != "" {
			params.Set("makerAddress", p.MakerAddress)
		}
		if p.Side != "" {
			params.Set("side", p.Side)
		}
		if p.FilterType != "" {
			params.Set("filterType", p.FilterType)
			params.Set("filterAmount", strconv.FormatFloat(p.FilterAmount, 'f', -1, 64))
		}

		var resp []tradeResponse
		if err := c.get(ctx, c.dataBaseURL, "/trades", params, &resp); err != nil {
			return nil, err
		}

		fills := make([]models.TradeFill, len(resp))
		for i, t := range resp {
			fills[i] = models.TradeFill{
				Asset:     t.Asset,
				Side:      t.Side,
				Size:      t.Size,
				Price:     t.Price,
				Timestamp: time.Unix(t.Timestamp, 0).UTC(),
				Title:     t.Title,
				EventSlug: t.EventSlug,
				Name:      t.Name,
			}
		}
		return fills, nil
	}

	return fetchAll(ctx, c, "/trades", tradesLimit, p.MaxResults, page)
}

type tradeResponse struct {
	Asset     string  `json:"asset"`
	Side      string  `json:"side"`
	Size      float64 `json:"size"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
	Title     string  `json:"title"`
	EventSlug string  `json:"eventSlug"`
	Name      string  `json:"name"`
}

// AllActivity walks /activity to exhaustion for an account
func (c *Client) AllActivity(ctx context.Context, address string, opts ...interfaces.ActivityOption) ([]models.Activity, error) {
	p := &interfaces.ActivityParams{Type: "TRADE"}
	for _, opt := range opts {
		opt(p)
	}

	page := func(ctx context.Context, limit, offset int) ([]models.Activity, error) {
		params := url.Values{}
		params.Set("user", address)
		params.Set("limit", strconv.Itoa(limit))
		params.Set("offset", strconv.Itoa(offset))
		params.Set("sortBy", "TIMESTAMP")
		params.Set("sortDirection", "DESC")
		params.Set("type", p.Type)
		if p.Market != "" {
			params.Set("market", p.Market)
		}
		if p.EventID != "" {
			params.Set("eventId", p.EventID)
		}
		if p.Start > 0 {
			params.Set("start", strconv.FormatInt(p.Start, 10))
		}
		if p.End > 0 {
			params.Set("end", strconv.FormatInt(p.End, 10))
		}
		if p.Side != "" {
			params.Set("side", p.Side)
		}

		var resp []activityResponse
		if err := c.get(ctx, c.dataBaseURL, "/activity", params, &resp); err != nil {
			return nil, err
		}

		activities := make([]models.Activity, len(resp))
		for i, a := range resp {
			activities[i] = models.Activity{
				Asset:     a.Asset,
				Type:      a.Type,
				Side:      a.Side,
				Size:      a.Size,
				USDCSize:  a.USDCSize,
				Price:     a.Price,
				Timestamp: time.Unix(a.Timestamp, 0).UTC(),
				Title:     a.Title,
				EventSlug: a.EventSlug,
			}
		}
		return activities, nil
	}

	return fetchAll(ctx, c, "/activity", activityLimit, p.MaxResults, page)
}

type activityResponse struct {
	Asset     string  `json:"asset"`
	Type      string  `json:"type"`
	Side      string  `json:"side"`
	Size      float64 `json:"size"`
	USDCSize  float64 `json:"usdcSize"`
	Price     float64 `json:"price"`
	Timestamp int64   `json:"timestamp"`
	Title     string  `json:"title"`
	EventSlug string  `json:"eventSlug"`
}

// EventBySlug resolves one event slug to its event record
func (c *Client) EventBySlug(ctx context.Context, slug string) (*models.Event, error) {
	var event models.Event
	if err := c.get(ctx, c.gammaBaseURL, "/events/slug/"+url.PathEscape(slug), nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// MarketBySlug resolves one market slug to its market record
func (c *Client) MarketBySlug(ctx context.Context, slug string) (*models.Market, error) {
	var market models.Market
	if err := c.get(ctx, c.gammaBaseURL, "/markets/slug/"+url.PathEscape(slug), nil, &market); err != nil {
		return nil, err
	}
	return &market, nil
}

// Markets retrieves one page of gamma markets
func (c *Client) Markets(ctx context.Context, limit, offset int, closed bool) ([]models.Market, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))
	params.Set("closed", strconv.FormatBool(closed))

	var markets []models.Market
	if err := c.get(ctx, c.gammaBaseURL, "/markets", params, &markets); err != nil {
		return nil, err
	}
	return markets, nil
}

// PortfolioValue retrieves the total value of an account's open positions.
// Closed position profits are not included.
func (c *Client) PortfolioValue(ctx context.Context, address string) (float64, error) {
	params := url.Values{}
	params.Set("user", address)

	var resp []struct {
		User  string  `json:"user"`
		Value float64 `json:"value"`
	}
	if err := c.get(ctx, c.dataBaseURL, "/value", params, &resp); err != nil {
		return 0, err
	}
	if len(resp) == 0 {
		return 0, nil
	}
	return resp[0].Value, nil
}

// UserPnL sums mark-to-market cash P&L over an account's open positions
func (c *Client) UserPnL(ctx context.Context, address string) (*models.UserPnL, error) {
	positions, err := c.AllOpenPositions(ctx, address)
	if err != nil {
		return nil, err
	}

	result := &models.UserPnL{Address: address}
	for _, p := range positions {
		result.TotalCashPnL += p.CashPnL
		result.TotalInitialValue += p.InitialValue
		result.TotalCurrentValue += p.CurrentValue
	}
	if result.TotalInitialValue > 0 {
		result.PercentPnL = result.TotalCashPnL / result.TotalInitialValue * 100
	}
	return result, nil
}

// TradedCount retrieves the number of unique markets an account has traded
func (c *Client) TradedCount(ctx context.Context, address string) (int, error) {
	params := url.Values{}
	params.Set("user", address)

	var resp struct {
		Total int `json:"total"`
	}
	if err := c.get(ctx, c.dataBaseURL, "/traded", params, &resp); err != nil {
		return 0, err
	}
	return resp.Total, nil
}

// Midpoint retrieves the CLOB midpoint price for one outcome token
func (c *Client) Midpoint(ctx context.Context, tokenID string) (float64, error) {
	params := url.Values{}
	params.Set("token_id", tokenID)

	var resp struct {
		Mid flexFloat64 `json:"mid"`
	}
	if err := c.get(ctx, c.clobBaseURL, "/midpoint", params, &resp); err != nil {
		return 0, err
	}
	return float64(resp.Mid), nil
}

// TopHolders retrieves the top holders for the given condition ids
func (c *Client) TopHolders(ctx context.Context, market string, limit, minBalance int) ([]models.MarketHolders, error) {
	params := url.Values{}
	params.Set("market", market)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("minBalance", strconv.Itoa(minBalance))

	var holders []models.MarketHolders
	if err := c.get(ctx, c.dataBaseURL, "/holders", params, &holders); err != nil {
		return nil, err
	}
	return holders, nil
}

// parseEndDate converts an API end-date string to a time pointer. Empty or
// unparseable values mean the market has no known resolution date.
func parseEndDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// Ensure Client implements PolymarketClient
var _ interfaces.PolymarketClient = (*Client)(nil)
