// Package yahoo reads corporate event dates and fallback price history from
// Yahoo Finance.
package yahoo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/aristath/bullbear/internal/clientdata"
	"github.com/aristath/bullbear/internal/domain"
	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/piquette/finance-go/quote"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when Yahoo has no record of a symbol
var ErrNotFound = errors.New("symbol not found")

// source is the slice of the finance-go API the client uses
type source interface {
	Equity(symbol string) (*finance.Equity, error)
	Quote(symbol string) (*finance.Quote, error)
	Bars(symbol string, start, end time.Time) ([]finance.ChartBar, error)
}

type financeSource struct{}

func (financeSource) Equity(symbol string) (*finance.Equity, error) {
	return equity.Get(symbol)
}

func (financeSource) Quote(symbol string) (*finance.Quote, error) {
	return quote.Get(symbol)
}

func (financeSource) Bars(symbol string, start, end time.Time) ([]finance.ChartBar, error) {
	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})
	var bars []finance.ChartBar
	for iter.Next() {
		bars = append(bars, *iter.Bar())
	}
	return bars, iter.Err()
}

// Client serves corporate events, quotes and daily bars
type Client struct {
	src      source
	cache    *clientdata.Repository
	location *time.Location
	log      zerolog.Logger
}

// NewClient creates a Yahoo client. cache is optional.
func NewClient(cache *clientdata.Repository, log zerolog.Logger) *Client {
	return newClient(financeSource{}, cache, log)
}

func newClient(src source, cache *clientdata.Repository, log zerolog.Logger) *Client {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	return &Client{
		src:      src,
		cache:    cache,
		location: loc,
		log:      log.With().Str("client", "yahoo").Logger(),
	}
}

// GetCorporateEvents returns the next earnings and dividend dates. Yahoo
// does not publish the ex-dividend date on the quote endpoint, so it stays
// absent.
func (c *Client) GetCorporateEvents(ctx context.Context, symbol string) (*domain.CorporateEvents, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(symbol)

	if c.cache != nil {
		var hit domain.CorporateEvents
		if ok, err := c.cache.LoadFresh(clientdata.TableYahooEvents, symbol, &hit); err == nil && ok {
			return &hit, nil
		}
	}

	eq, err := c.src.Equity(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch events for %s: %w", symbol, err)
	}
	if eq == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}

	events := &domain.CorporateEvents{
		EarningsDate: c.unixDate(eq.EarningsTimestamp),
		DividendDate: c.unixDate(eq.DividendDate),
	}
	if c.cache != nil {
		if err := c.cache.Store(clientdata.TableYahooEvents, symbol, events, clientdata.TTLEvents); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache events")
		}
	}
	return events, nil
}

// GetQuote returns the regular market price, previous close and volume.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(symbol)

	q, err := c.src.Quote(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}
	if q == nil || q.RegularMarketPrice == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}

	out := &domain.Quote{Symbol: symbol, LastPrice: ptr(q.RegularMarketPrice)}
	if q.RegularMarketPreviousClose != 0 {
		out.PreviousClose = ptr(q.RegularMarketPreviousClose)
	}
	if q.RegularMarketVolume != 0 {
		out.Volume = ptr(float64(q.RegularMarketVolume))
	}
	return out, nil
}

// GetDailyBars returns daily bars in [start, end], oldest first.
func (c *Client) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbol = strings.ToUpper(symbol)
	key := symbol + "|" + start.Format("2006-01-02") + "|" + end.Format("2006-01-02")

	if c.cache != nil {
		var hit []domain.Bar
		if ok, err := c.cache.LoadFresh(clientdata.TableYahooBars, key, &hit); err == nil && ok {
			return hit, nil
		}
	}

	raw, err := c.src.Bars(symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history for %s: %w", symbol, err)
	}

	bars := make([]domain.Bar, 0, len(raw))
	for _, b := range raw {
		closePrice, _ := b.Close.Float64()
		if closePrice == 0 {
			continue
		}
		open, _ := b.Open.Float64()
		high, _ := b.High.Float64()
		low, _ := b.Low.Float64()
		y, m, d := time.Unix(int64(b.Timestamp), 0).In(c.location).Date()
		bars = append(bars, domain.Bar{
			Date:   time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: float64(b.Volume),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: no history for %s", ErrNotFound, symbol)
	}

	if c.cache != nil {
		if err := c.cache.Store(clientdata.TableYahooBars, key, bars, clientdata.TTLRecentBars); err != nil {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache history")
		}
	}
	return bars, nil
}

func (c *Client) unixDate(ts int) *string {
	if ts <= 0 {
		return nil
	}
	s := time.Unix(int64(ts), 0).In(c.location).Format("2006-01-02")
	return &s
}

func ptr(v float64) *float64 {
	return &v
}
