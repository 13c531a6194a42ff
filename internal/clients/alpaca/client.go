// Package alpaca is the Alpaca market data client. It serves daily bars,
// stock snapshots and option chains over REST, behind a rate limiter, a
// circuit breaker and the sqlite response cache.
package alpaca

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
	_ "time/tzdata" // exchange calendar dates need America/New_York everywhere

	"github.com/aristath/bullbear/internal/clientdata"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	DefaultDataURL    = "https://data.alpaca.markets"
	DefaultTradingURL = "https://paper-api.alpaca.markets"
)

// ErrNoData is returned when the API answers but has nothing for the symbol
var ErrNoData = errors.New("no data returned")

// APIError is a non-2xx answer from the API
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alpaca API error %d: %s", e.Status, e.Body)
}

// Config holds client settings. Zero fields take defaults.
type Config struct {
	APIKey            string
	APISecret         string
	DataURL           string
	TradingURL        string
	Feed              string // stock data feed, "iex" or "sip"
	RequestsPerMinute int
	Timeout           time.Duration
}

// Client talks to the Alpaca data and trading APIs
type Client struct {
	data     *resty.Client
	trading  *resty.Client
	feed     string
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	cache    *clientdata.Repository
	location *time.Location
	now      func() time.Time
	log      zerolog.Logger
}

// NewClient creates a client. cache is optional; nil disables caching.
func NewClient(cfg Config, cache *clientdata.Repository, log zerolog.Logger) *Client {
	if cfg.DataURL == "" {
		cfg.DataURL = DefaultDataURL
	}
	if cfg.TradingURL == "" {
		cfg.TradingURL = DefaultTradingURL
	}
	if cfg.Feed == "" {
		cfg.Feed = "iex"
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 180
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	log = log.With().Str("client", "alpaca").Logger()

	newResty := func(base string) *resty.Client {
		return resty.New().
			SetBaseURL(base).
			SetTimeout(cfg.Timeout).
			SetHeader("APCA-API-KEY-ID", cfg.APIKey).
			SetHeader("APCA-API-SECRET-KEY", cfg.APISecret).
			SetHeader("Accept", "application/json")
	}

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "alpaca",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A 4xx other than 429 is an answer, not an outage
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})

	perSecond := rate.Limit(float64(cfg.RequestsPerMinute) / 60)
	return &Client{
		data:     newResty(cfg.DataURL),
		trading:  newResty(cfg.TradingURL),
		feed:     cfg.Feed,
		limiter:  rate.NewLimiter(perSecond, 5),
		breaker:  breaker,
		cache:    cache,
		location: loc,
		now:      time.Now,
		log:      log,
	}
}

// SetClock overrides the clock used for cache lifetimes and option
// expiration windows.
func (c *Client) SetClock(now func() time.Time) {
	c.now = now
}

// get performs one rate-limited GET through the circuit breaker and decodes
// the JSON body into out.
func (c *Client) get(ctx context.Context, rc *resty.Client, path string, params map[string]string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := rc.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(path)
		if err != nil {
			return nil, fmt.Errorf("request %s failed: %w", path, err)
		}
		if resp.IsError() {
			return nil, &APIError{Status: resp.StatusCode(), Body: resp.String()}
		}
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return nil, fmt.Errorf("failed to parse %s response: %w", path, err)
		}
		return nil, nil
	})
	return err
}

// cached wraps fetch with a cache-first lookup and a stale fallback when
// fetch fails.
func cached[T any](c *Client, table, key string, ttl time.Duration, fetch func() (T, error)) (T, error) {
	var zero T
	if c.cache != nil {
		var hit T
		if ok, err := c.cache.LoadFresh(table, key, &hit); err == nil && ok {
			return hit, nil
		}
	}

	v, err := fetch()
	if err != nil {
		if c.cache != nil {
			var stale T
			if ok, cerr := c.cache.LoadStale(table, key, &stale); cerr == nil && ok {
				c.log.Warn().Err(err).Str("table", table).Str("key", key).Msg("API failed, using stale cached data")
				return stale, nil
			}
		}
		return zero, err
	}

	if c.cache != nil {
		if err := c.cache.Store(table, key, v, ttl); err != nil {
			c.log.Warn().Err(err).Str("table", table).Msg("Failed to cache response")
		}
	}
	return v, nil
}

// tradingDate maps an API timestamp to its exchange calendar date, as UTC
// midnight.
func (c *Client) tradingDate(t time.Time) time.Time {
	y, m, d := t.In(c.location).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
