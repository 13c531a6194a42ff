package indicators

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/bullbear/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	bars map[string][]domain.Bar
	err  error
}

func (f *fakeHistory) GetDailyBars(_ context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.Bar
	for _, b := range f.bars[symbol] {
		if !b.Date.Before(start) && !b.Date.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeQuotes struct {
	quote *domain.Quote
	err   error
}

func (f *fakeQuotes) GetQuote(context.Context, string) (*domain.Quote, error) {
	return f.quote, f.err
}

type fakeEvents struct {
	events *domain.CorporateEvents
}

func (f *fakeEvents) GetCorporateEvents(context.Context, string) (*domain.CorporateEvents, error) {
	return f.events, nil
}

func ptr(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }

// risingBars returns n daily bars ending on end with a steady uptrend and a
// constant 2.0 high-low range.
func risingBars(end time.Time, n int) []domain.Bar {
	bars := make([]domain.Bar, n)
	start := end.AddDate(0, 0, -(n - 1))
	for i := range bars {
		c := 100 + float64(i)*0.1
		bars[i] = domain.Bar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000 + float64(i),
		}
	}
	return bars
}

func TestBuilderHistorical(t *testing.T) {
	asOf := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	bars := risingBars(asOf.AddDate(0, 0, 10), 510) // includes bars after asOf

	history := &fakeHistory{bars: map[string][]domain.Bar{"AAPL": bars}}
	events := &fakeEvents{events: &domain.CorporateEvents{EarningsDate: strPtr("2024-06-01")}}
	b := NewBuilder(history, &fakeQuotes{quote: &domain.Quote{LastPrice: ptr(1)}}, events, zerolog.Nop())
	b.SetClock(func() time.Time { return time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC) })

	snap, err := b.Build(context.Background(), "AAPL", asOf)
	require.NoError(t, err)

	assert.Equal(t, "AAPL", snap.Ticker)
	assert.Equal(t, "2024-05-15", snap.Date)

	// last bar on asOf is index 499
	require.NotNil(t, snap.CurrentPrice)
	assert.InDelta(t, 149.9, *snap.CurrentPrice, 1e-9)
	require.NotNil(t, snap.PreviousClose)
	assert.InDelta(t, 149.8, *snap.PreviousClose, 1e-9)
	assert.Nil(t, snap.EarningsDate, "historical snapshots carry no events")

	for _, ind := range domain.AllIndicators {
		assert.True(t, snap.Has(ind), "missing %s", ind)
	}
	assert.InDelta(t, 2.0, *snap.Value(domain.IndicatorATR14), 0.01)
	assert.InDelta(t, 100.0, *snap.Value(domain.IndicatorRangePosPct), 1e-9)
	assert.InDelta(t, 0.0, *snap.Value(domain.IndicatorPctFrom52WHigh), 1e-9)
	assert.Greater(t, *snap.Value(domain.IndicatorSMA20), *snap.Value(domain.IndicatorSMA200))
	assert.Equal(t, 1499.0, *snap.Value(domain.IndicatorLatestVolume))
}

func TestBuilderLive(t *testing.T) {
	today := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	history := &fakeHistory{bars: map[string][]domain.Bar{"MSFT": risingBars(today, 300)}}
	quotes := &fakeQuotes{quote: &domain.Quote{LastPrice: ptr(131.234), PreviousClose: ptr(125), Volume: ptr(5e6)}}
	events := &fakeEvents{events: &domain.CorporateEvents{
		EarningsDate: strPtr("2024-05-20"),
		DividendDate: strPtr("2024-06-13"),
	}}
	b := NewBuilder(history, quotes, events, zerolog.Nop())
	b.SetClock(func() time.Time { return today.Add(15 * time.Hour) })

	snap, err := b.Build(context.Background(), "MSFT", today)
	require.NoError(t, err)

	assert.Equal(t, 131.23, *snap.CurrentPrice)
	assert.Equal(t, 125.0, *snap.PreviousClose)
	assert.InDelta(t, 4.99, *snap.PercentChange, 1e-9)
	assert.Equal(t, 5e6, *snap.Value(domain.IndicatorLatestVolume))
	assert.Equal(t, "2024-05-20", *snap.EarningsDate)
	assert.Equal(t, "2024-06-13", *snap.DividendDate)
	assert.Nil(t, snap.ExDividendDate)
	assert.True(t, snap.Has(domain.IndicatorSMA200))
}

func TestBuilderDegradesOnFailures(t *testing.T) {
	today := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	b := NewBuilder(
		&fakeHistory{err: errors.New("upstream down")},
		&fakeQuotes{err: errors.New("upstream down")},
		nil,
		zerolog.Nop(),
	)
	b.SetClock(func() time.Time { return today })

	snap, err := b.Build(context.Background(), "TSLA", today)
	require.NoError(t, err)
	assert.Equal(t, "TSLA", snap.Ticker)
	assert.Nil(t, snap.CurrentPrice)
	assert.Empty(t, snap.Values())
}

func TestBuilderShortHistory(t *testing.T) {
	asOf := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	history := &fakeHistory{bars: map[string][]domain.Bar{"NEW": risingBars(asOf, 25)}}
	b := NewBuilder(history, nil, nil, zerolog.Nop())

	snap, err := b.Build(context.Background(), "NEW", asOf)
	require.NoError(t, err)
	assert.True(t, snap.Has(domain.IndicatorSMA20))
	assert.True(t, snap.Has(domain.IndicatorRSI14))
	assert.False(t, snap.Has(domain.IndicatorSMA50))
	assert.False(t, snap.Has(domain.IndicatorSMA200))
	assert.False(t, snap.Has(domain.IndicatorADX14))
}

func TestBuildAll(t *testing.T) {
	asOf := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	history := &fakeHistory{bars: map[string][]domain.Bar{
		"A": risingBars(asOf, 60),
		"B": risingBars(asOf, 60),
		"C": risingBars(asOf, 60),
	}}
	b := NewBuilder(history, nil, nil, zerolog.Nop())
	b.SetConcurrency(2)

	snaps, stats, err := b.BuildAll(context.Background(), []string{"C", "", "A", "B"}, asOf)
	require.NoError(t, err)
	assert.Equal(t, Stats{Processed: 3, Skipped: 1}, stats)
	require.Len(t, snaps, 3)
	assert.Equal(t, "C", snaps[0].Ticker)
	assert.Equal(t, "A", snaps[1].Ticker)
	assert.Equal(t, "B", snaps[2].Ticker)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = b.BuildAll(ctx, []string{"A"}, asOf)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir(), zerolog.Nop())

	snap := domain.NewSnapshot("AAPL", "2024-03-04", map[domain.Indicator]float64{
		domain.IndicatorSMA50:        180.25,
		domain.IndicatorRSI14:        0,
		domain.IndicatorPctYTDReturn: -3.5,
	})
	snap.CurrentPrice = ptr(175.1)
	snap.EarningsDate = strPtr("2024-04-25")

	empty := domain.NewSnapshot("ZZZ", "2024-03-04", nil)

	path, err := store.Write("2024-03-04", []domain.Snapshot{snap, empty})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Dir(), "indicators_2024-03-04.csv"), path)

	got, err := store.Read("2024-03-04")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "AAPL", got[0].Ticker)
	assert.Equal(t, 175.1, *got[0].CurrentPrice)
	assert.Nil(t, got[0].PreviousClose)
	assert.Equal(t, snap.Values(), got[0].Values())
	assert.Equal(t, "2024-04-25", *got[0].EarningsDate)
	assert.Nil(t, got[0].DividendDate)

	assert.Nil(t, got[1].CurrentPrice)
	assert.Empty(t, got[1].Values())
}

func TestStoreReadTolerant(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zerolog.Nop())

	// backtest-era files lack the ytd block and carry odd values
	csv := "ticker,current_price,basic_snapshot,rsi_14,sma_50,earnings_date\n" +
		"AAPL,101.5,{'price': 1},abc,99,None\n" +
		"MSFT,nan,,55.5,,2024-05-01\n" +
		"SHORT,42\n" +
		"NVDA,inf,,-Infinity,+Inf,\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "indicators_2024-01-08.csv"), []byte(csv), 0o644))

	got, err := store.Read("2024-01-08")
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, 101.5, *got[0].CurrentPrice)
	assert.Nil(t, got[0].Value(domain.IndicatorRSI14), "unparseable cell is absent")
	assert.Equal(t, 99.0, *got[0].Value(domain.IndicatorSMA50))
	assert.Nil(t, got[0].EarningsDate)
	assert.False(t, got[0].Has(domain.IndicatorPctYTDReturn))

	assert.Nil(t, got[1].CurrentPrice)
	assert.Equal(t, 55.5, *got[1].Value(domain.IndicatorRSI14))
	assert.Equal(t, "2024-05-01", *got[1].EarningsDate)

	assert.Equal(t, 42.0, *got[2].CurrentPrice)

	assert.Equal(t, "NVDA", got[3].Ticker)
	assert.Nil(t, got[3].CurrentPrice, "infinite price is absent")
	assert.False(t, got[3].Has(domain.IndicatorRSI14))
	assert.False(t, got[3].Has(domain.IndicatorSMA50))
}

func TestStoreWriteDropsNonFinite(t *testing.T) {
	store := NewStore(t.TempDir(), zerolog.Nop())
	snap := domain.NewSnapshot("AAPL", "2024-01-08", map[domain.Indicator]float64{
		domain.IndicatorHigh52W: math.Inf(1),
		domain.IndicatorSMA50:   99,
	})
	snap.CurrentPrice = ptr(100)
	_, err := store.Write("2024-01-08", []domain.Snapshot{snap})
	require.NoError(t, err)

	got, err := store.Read("2024-01-08")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].Has(domain.IndicatorHigh52W))
	assert.Equal(t, 99.0, *got[0].Value(domain.IndicatorSMA50))
}

func TestStoreMissingAndListing(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, zerolog.Nop())

	_, err := store.Read("2024-01-01")
	assert.ErrorIs(t, err, ErrSnapshotsNotFound)

	_, err = store.ReadPrices()
	assert.ErrorIs(t, err, ErrSnapshotsNotFound)

	for _, date := range []string{"2024-01-15", "2024-01-01", "2024-01-08"} {
		snap := domain.NewSnapshot("AAPL", date, nil)
		snap.CurrentPrice = ptr(100)
		_, err := store.Write(date, []domain.Snapshot{snap})
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "indicators_latest.csv"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))

	dates, err := store.Dates()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-01-08", "2024-01-15"}, dates)

	prices, err := store.ReadPrices()
	require.NoError(t, err)
	assert.Len(t, prices, 3)
	assert.Equal(t, 100.0, *prices["2024-01-08"]["AAPL"])
}
