package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"SilverScan/internal/domain/models"
	domrepo "SilverScan/internal/domain/repository"
	"SilverScan/internal/service/calendar"
	"SilverScan/internal/service/ratelimit"
	xhttp "SilverScan/pkg/http"
	"SilverScan/pkg/logger"
)

const DefaultBaseURL = "https://query1.finance.yahoo.com"

var (
	// ErrNoData means the upstream answered but carried no usable bars.
	ErrNoData = errors.New("yahoo: no data for symbol")
	// ErrThrottled means the local rate limiter refused the request.
	ErrThrottled = errors.New("yahoo: request throttled")
)

// Client fetches historical candles from the public chart endpoint. The
// lookback window per interval follows the interval table; intraday series
// are clipped to regular session bars before anyone downstream sees them.
type Client struct {
	baseURL  string
	client   *xhttp.Client
	cal      *calendar.Calendar
	limiter  *ratelimit.Limiter
	log      *logger.Logger
	attempts int
}

type Option func(*Client)

// WithBaseURL overrides the upstream host, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithAttempts sets how many times one fetch is tried.
func WithAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithRateLimiter guards the upstream with a per-symbol token bucket.
func WithRateLimiter(l *ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *Client) { c.client = hc }
}

func NewClient(cal *calendar.Calendar, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		client:   xhttp.NewClient(xhttp.WithTimeout(10 * time.Second)),
		cal:      cal,
		log:      log,
		attempts: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns up to limit candles for symbol at the given interval, oldest
// first. limit <= 0 returns the full lookback window.
func (c *Client) Fetch(ctx context.Context, symbol string, iv domrepo.Interval, limit int) ([]models.Candle, error) {
	if symbol == "" {
		return nil, fmt.Errorf("yahoo: symbol required")
	}
	if c.limiter != nil && !c.limiter.Allow("yahoo:"+symbol, 5, 1) {
		return nil, fmt.Errorf("%w: %s", ErrThrottled, symbol)
	}

	from, to, err := c.cal.TradingRange(time.Time{}, iv.LookbackDays(), iv.Intraday())
	if err != nil {
		return nil, fmt.Errorf("yahoo: resolve range: %w", err)
	}

	var payload chartResponse
	for attempt := 1; attempt <= c.attempts; attempt++ {
		err = c.client.SendAndParse(ctx, &xhttp.RequestOptions{
			Method: xhttp.MethodGet,
			URL:    fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, url.PathEscape(symbol)),
			Headers: map[string]string{
				"User-Agent": "Mozilla/5.0 (compatible; silverscan/1.0)",
			},
			QueryParams: map[string][]string{
				"period1":        {strconv.FormatInt(from.Unix(), 10)},
				"period2":        {strconv.FormatInt(to.Unix(), 10)},
				"interval":       {string(iv)},
				"includePrePost": {"false"},
				"events":         {"div,split"},
			},
		}, &payload)
		if err == nil {
			break
		}
		c.log.Warn("chart fetch attempt failed",
			logger.String("symbol", symbol),
			logger.String("interval", string(iv)),
			logger.Int("attempt", attempt),
			logger.Error(err))
		select {
		case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, fmt.Errorf("yahoo: fetch %s after %d attempts: %w", symbol, c.attempts, err)
	}

	if e := payload.Chart.Error; e != nil {
		return nil, fmt.Errorf("yahoo: upstream %s: %s", e.Code, e.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNoData, symbol, iv)
	}

	candles, dropped := toCandles(payload.Chart.Result[0])
	if dropped > 0 {
		c.log.Warn("dropped malformed bars",
			logger.String("symbol", symbol),
			logger.Int("dropped", dropped))
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: %s %s", ErrNoData, symbol, iv)
	}

	if iv.Intraday() {
		candles = c.cal.FilterSession(candles)
		if len(candles) == 0 {
			return nil, fmt.Errorf("%w: %s %s outside market hours", ErrNoData, symbol, iv)
		}
	}
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

var _ domrepo.MarketFetcher = (*Client)(nil)
