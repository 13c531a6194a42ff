// Package indicators builds per-ticker indicator snapshots from market data
// and persists them as daily CSV files.
package indicators

import (
	"context"
	"fmt"
	"time"

	"github.com/aristath/bullbear/internal/domain"
	"github.com/aristath/bullbear/pkg/formulas"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// indicatorLookbackDays bounds the OHLC window used for the technical
	// indicators.
	indicatorLookbackDays = 365
	// rangeLookbackDays covers the YTD start and the trailing 52 weeks.
	rangeLookbackDays = 730
	rsiWindow         = 150
)

// Stats counts the outcome of a batch
type Stats struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}

// Builder produces indicator snapshots. Quotes and events are optional: a
// nil provider leaves the related fields absent.
type Builder struct {
	history     domain.HistoryProvider
	quotes      domain.QuoteProvider
	events      domain.EventsProvider
	now         func() time.Time
	concurrency int
	log         zerolog.Logger
}

// NewBuilder creates a snapshot builder
func NewBuilder(
	history domain.HistoryProvider,
	quotes domain.QuoteProvider,
	events domain.EventsProvider,
	log zerolog.Logger,
) *Builder {
	return &Builder{
		history:     history,
		quotes:      quotes,
		events:      events,
		now:         time.Now,
		concurrency: 4,
		log:         log.With().Str("component", "indicator_builder").Logger(),
	}
}

// SetClock overrides the clock used to decide whether a build is live.
func (b *Builder) SetClock(now func() time.Time) {
	b.now = now
}

// SetConcurrency bounds how many tickers BuildAll processes at once.
func (b *Builder) SetConcurrency(n int) {
	if n > 0 {
		b.concurrency = n
	}
}

// Build produces the snapshot of one ticker as of date.
//
// When date is today and a quote provider is set, prices come from the live
// quote and corporate events are attached. Otherwise the snapshot is
// historical: prices come from the last bars on or before date and no
// events are attached. Provider failures leave fields absent. The only
// error is context cancellation.
func (b *Builder) Build(ctx context.Context, ticker string, date time.Time) (domain.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}

	asOf := endOfDay(date)
	bars := b.loadBars(ctx, ticker, asOf)
	values := computeIndicators(bars, asOf)

	snap := domain.NewSnapshot(ticker, date.Format("2006-01-02"), values)
	b.applyPrices(&snap, bars)

	if b.isLive(date) {
		b.applyQuote(ctx, &snap)
		b.applyEvents(ctx, &snap)
	}

	if err := ctx.Err(); err != nil {
		return domain.Snapshot{}, err
	}
	return snap, nil
}

// BuildAll builds snapshots for every ticker on one date. Blank tickers are
// skipped. Results keep the input order.
func (b *Builder) BuildAll(ctx context.Context, tickers []string, date time.Time) ([]domain.Snapshot, Stats, error) {
	results := make([]*domain.Snapshot, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)
	for i, ticker := range tickers {
		if ticker == "" {
			continue
		}
		i, ticker := i, ticker
		g.Go(func() error {
			snap, err := b.Build(gctx, ticker, date)
			if err != nil {
				return err
			}
			results[i] = &snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, fmt.Errorf("failed to build snapshots: %w", err)
	}

	var stats Stats
	snapshots := make([]domain.Snapshot, 0, len(tickers))
	for _, snap := range results {
		if snap == nil {
			stats.Skipped++
			continue
		}
		stats.Processed++
		snapshots = append(snapshots, *snap)
	}

	b.log.Info().
		Str("date", date.Format("2006-01-02")).
		Int("processed", stats.Processed).
		Int("skipped", stats.Skipped).
		Msg("Built indicator snapshots")

	return snapshots, stats, nil
}

func (b *Builder) isLive(date time.Time) bool {
	y1, m1, d1 := date.Date()
	y2, m2, d2 := b.now().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func (b *Builder) loadBars(ctx context.Context, ticker string, asOf time.Time) []domain.Bar {
	if b.history == nil {
		return nil
	}
	start := asOf.AddDate(0, 0, -rangeLookbackDays)
	bars, err := b.history.GetDailyBars(ctx, ticker, start, asOf)
	if err != nil {
		b.log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to load history, indicators will be absent")
		return nil
	}

	kept := bars[:0:0]
	for _, bar := range bars {
		if !bar.Date.After(asOf) {
			kept = append(kept, bar)
		}
	}
	return kept
}

func (b *Builder) applyPrices(snap *domain.Snapshot, bars []domain.Bar) {
	if len(bars) == 0 {
		return
	}
	last := bars[len(bars)-1]
	snap.CurrentPrice = round(last.Close)
	if len(bars) > 1 {
		prev := bars[len(bars)-2].Close
		snap.PreviousClose = round(prev)
		q := domain.Quote{LastPrice: &last.Close, PreviousClose: &prev}
		snap.PercentChange = formulas.Round2Ptr(q.PercentChange())
	}
}

func (b *Builder) applyQuote(ctx context.Context, snap *domain.Snapshot) {
	if b.quotes == nil {
		return
	}
	quote, err := b.quotes.GetQuote(ctx, snap.Ticker)
	if err != nil {
		b.log.Warn().Err(err).Str("ticker", snap.Ticker).Msg("Failed to load quote, using last bar")
		return
	}
	if quote.LastPrice != nil {
		snap.CurrentPrice = formulas.Round2Ptr(quote.LastPrice)
	}
	if quote.PreviousClose != nil {
		snap.PreviousClose = formulas.Round2Ptr(quote.PreviousClose)
	}
	if pct := quote.PercentChange(); pct != nil {
		snap.PercentChange = formulas.Round2Ptr(pct)
	}
	if quote.Volume != nil {
		values := snap.Values()
		values[domain.IndicatorLatestVolume] = *quote.Volume
		*snap = rebuild(*snap, values)
	}
}

func (b *Builder) applyEvents(ctx context.Context, snap *domain.Snapshot) {
	if b.events == nil {
		return
	}
	events, err := b.events.GetCorporateEvents(ctx, snap.Ticker)
	if err != nil {
		b.log.Warn().Err(err).Str("ticker", snap.Ticker).Msg("Failed to load corporate events")
		return
	}
	snap.EarningsDate = events.EarningsDate
	snap.DividendDate = events.DividendDate
	snap.ExDividendDate = events.ExDividendDate
}

// rebuild copies snap with a new value set
func rebuild(snap domain.Snapshot, values map[domain.Indicator]float64) domain.Snapshot {
	out := domain.NewSnapshot(snap.Ticker, snap.Date, values)
	out.CurrentPrice = snap.CurrentPrice
	out.PreviousClose = snap.PreviousClose
	out.PercentChange = snap.PercentChange
	out.EarningsDate = snap.EarningsDate
	out.DividendDate = snap.DividendDate
	out.ExDividendDate = snap.ExDividendDate
	return out
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

func round(v float64) *float64 {
	r := formulas.Round2(v)
	return &r
}
