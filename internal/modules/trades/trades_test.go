package trades

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aristath/bullbear/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func opt(strike, bid, ask, oi float64) OptionQuote {
	return OptionQuote{Strike: strike, Bid: ptr(bid), Ask: ptr(ask), OpenInterest: ptr(oi)}
}

func TestFindBullPutSpreads(t *testing.T) {
	// deliberately unsorted
	puts := []OptionQuote{
		opt(85, 1.0, 1.1, 300),
		opt(95, 3.0, 3.2, 100),
		opt(80, 0.5, 0.6, 400),
		opt(90, 1.8, 2.0, 200),
	}

	spreads := FindBullPutSpreads(puts, 100)
	require.Len(t, spreads, 3)

	want := []struct {
		short, long, credit float64
	}{
		{95, 90, 1.0},
		{90, 85, 0.7},
		{85, 80, 0.4},
	}
	for i, w := range want {
		s := spreads[i]
		assert.Equal(t, StrategyBullPut, s.Strategy)
		assert.Equal(t, w.short, s.ShortStrike)
		assert.Equal(t, w.long, s.LongStrike)
		assert.InDelta(t, w.credit, s.Credit(), 1e-9)
		assert.Equal(t, 5.0, s.Width)
		assert.InDelta(t, s.Width*100, s.MaxLoss+s.MaxProfit, 1e-9)
		assert.InDelta(t, w.credit*100, s.MaxProfit, 1e-9)
	}

	first := spreads[0]
	assert.Equal(t, 5.0, first.PercentFromStrike)
	assert.Equal(t, 20.0, first.PercentProfitOfWidth)
	assert.Equal(t, 150.0, first.AvgOI)
	assert.Equal(t, 3.0, first.ShortStrikePrice)
	assert.Equal(t, 2.0, first.LongStrikeCredit)
	assert.Equal(t, 100.0, first.CurrentPrice)
	assert.Empty(t, first.Ticker)
}

func TestFindBullPutSpreadsFiltering(t *testing.T) {
	tests := []struct {
		name  string
		puts  []OptionQuote
		price float64
		want  int
	}{
		{
			name:  "short strike at price",
			puts:  []OptionQuote{opt(100, 3, 3.1, 0), opt(95, 1, 1.1, 0)},
			price: 100,
		},
		{
			name:  "no credit",
			puts:  []OptionQuote{opt(95, 1.0, 1.1, 0), opt(90, 1.0, 1.0, 0)},
			price: 100,
		},
		{
			name:  "missing short bid",
			puts:  []OptionQuote{{Strike: 95, Ask: ptr(2)}, opt(90, 0.5, 0.6, 0)},
			price: 100,
		},
		{
			name:  "NaN long ask",
			puts:  []OptionQuote{opt(95, 2, 2.1, 0), {Strike: 90, Bid: ptr(1), Ask: ptr(math.NaN())}},
			price: 100,
		},
		{
			name:  "missing open interest counts as zero",
			puts:  []OptionQuote{{Strike: 95, Bid: ptr(2), Ask: ptr(2.1)}, {Strike: 90, Bid: ptr(0.5), Ask: ptr(0.6)}},
			price: 100,
			want:  1,
		},
		{
			name:  "single strike",
			puts:  []OptionQuote{opt(95, 2, 2.1, 0)},
			price: 100,
		},
		{
			name: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindBullPutSpreads(tt.puts, tt.price)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestFindBearCallSpreads(t *testing.T) {
	calls := []OptionQuote{
		opt(110, 1.0, 1.1, 10),
		opt(100, 5.0, 5.2, 10), // at the money, excluded
		opt(105, 2.5, 2.6, 30),
		opt(115, 0.4, 0.5, 50),
	}

	spreads := FindBearCallSpreads(calls, 100)
	require.Len(t, spreads, 2)

	assert.Equal(t, StrategyBearCall, spreads[0].Strategy)
	assert.Equal(t, 105.0, spreads[0].ShortStrike)
	assert.Equal(t, 110.0, spreads[0].LongStrike)
	assert.InDelta(t, 1.4, spreads[0].Credit(), 1e-9)
	assert.Equal(t, 5.0, spreads[0].PercentFromStrike)
	assert.Equal(t, 20.0, spreads[0].AvgOI)

	assert.Equal(t, 110.0, spreads[1].ShortStrike)
	assert.Equal(t, 115.0, spreads[1].LongStrike)
	for _, s := range spreads {
		assert.InDelta(t, s.Width*100, s.MaxLoss+s.MaxProfit, 1e-9)
	}
}

func TestSelectExpirations(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) // Wednesday

	available := []string{"2024-05-03", "2024-05-10", "2024-05-17", "2024-05-24", "2024-06-14", "bogus"}
	got := SelectExpirations(available, now, DefaultWeekOffsets)
	// +2w 05-15 -> 05-17; +4w 05-29 -> 05-24; +6w 06-12 -> 06-14
	assert.Equal(t, []string{"2024-05-17", "2024-05-24", "2024-06-14"}, got)

	// sparse chains collapse onto the same expiration
	got = SelectExpirations([]string{"2024-05-03", "2024-06-21"}, now, DefaultWeekOffsets)
	assert.Equal(t, []string{"2024-05-03", "2024-06-21"}, got)

	// ties go to the earlier listed expiration
	got = SelectExpirations([]string{"2024-05-14", "2024-05-16"}, now, []int{2})
	assert.Equal(t, []string{"2024-05-14"}, got)

	assert.Nil(t, SelectExpirations(nil, now, DefaultWeekOffsets))
	assert.Nil(t, SelectExpirations([]string{"x"}, now, DefaultWeekOffsets))
}

func TestFridayExpiries(t *testing.T) {
	format := func(ts []time.Time) []string {
		var out []string
		for _, t := range ts {
			out = append(out, t.Format("2006-01-02"))
		}
		return out
	}

	// Wednesday
	got := FridayExpiries(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, []string{"2024-05-03", "2024-05-17", "2024-05-31", "2024-06-21"}, format(got))

	// Saturday rolls to next Friday; a Friday stays
	got = FridayExpiries(time.Date(2024, 5, 4, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-05-10", format(got)[0])
	got = FridayExpiries(time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-05-03", format(got)[0])
}

type fakeChains struct {
	expirations map[string][]string
	chains      map[string]*domain.OptionChain
	failChain   string
}

func (f *fakeChains) GetExpirations(_ context.Context, symbol string) ([]string, error) {
	exps, ok := f.expirations[symbol]
	if !ok {
		return nil, errors.New("unknown symbol")
	}
	return exps, nil
}

func (f *fakeChains) GetOptionChain(_ context.Context, symbol, expiration string) (*domain.OptionChain, error) {
	if expiration == f.failChain {
		return nil, errors.New("chain unavailable")
	}
	return f.chains[symbol+"/"+expiration], nil
}

type fakeQuotes map[string]float64

func (f fakeQuotes) GetQuote(_ context.Context, symbol string) (*domain.Quote, error) {
	p, ok := f[symbol]
	if !ok {
		return nil, errors.New("no quote")
	}
	return &domain.Quote{Symbol: symbol, LastPrice: &p}, nil
}

func manyPuts(top float64, n int) []OptionQuote {
	var out []OptionQuote
	for i := 0; i < n; i++ {
		strike := top - float64(i)*5
		out = append(out, opt(strike, 0.1*float64(n-i)+0.05, 0.1*float64(n-i), 10))
	}
	return out
}

func TestGenerator(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	chains := &fakeChains{
		expirations: map[string][]string{
			"AAPL": {"2024-05-17", "2024-05-31", "2024-06-14"},
			"TSLA": {"2024-05-17"},
			"MSFT": {"2024-05-17"},
		},
		chains: map[string]*domain.OptionChain{
			"AAPL/2024-05-17": {Expiration: "2024-05-17", Puts: manyPuts(95, 10)},
			"AAPL/2024-06-14": {Expiration: "2024-06-14", Puts: manyPuts(95, 3)},
			"TSLA/2024-05-17": {Expiration: "2024-05-17", Calls: []OptionQuote{opt(210, 3, 3.1, 5), opt(220, 1, 1.2, 5)}},
		},
		failChain: "2024-05-31",
	}
	quotes := fakeQuotes{"AAPL": 100, "TSLA": 200}

	g := NewGenerator(chains, quotes, Config{}, zerolog.Nop())
	g.SetClock(func() time.Time { return now })

	got, err := g.Generate(context.Background(), []string{"aapl", "MSFT"}, []string{"TSLA"})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "AAPL", got[0].Ticker)
	assert.Equal(t, "2024-05-17", got[0].Expiration)
	require.Len(t, got[0].BullPutSpreads, 5, "capped at five")
	assert.Equal(t, 95.0, got[0].BullPutSpreads[0].ShortStrike, "enumeration order, not profitability")
	for _, s := range got[0].BullPutSpreads {
		assert.Equal(t, "AAPL", s.Ticker)
		assert.Equal(t, "2024-05-17", s.Expiration)
	}

	assert.Equal(t, "2024-06-14", got[1].Expiration)
	assert.Len(t, got[1].BullPutSpreads, 2)

	assert.Equal(t, "TSLA", got[2].Ticker)
	assert.Empty(t, got[2].BullPutSpreads)
	require.Len(t, got[2].BearCallSpreads, 1)
	assert.Equal(t, 200.0, got[2].CurrentPrice)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Generate(ctx, []string{"AAPL"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGeneratorFallsBackToFridayExpiries(t *testing.T) {
	// Wednesday: Fridays 05-03, 05-17, 05-31, 06-21; offsets pick 05-17, 05-31, 06-21
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	chains := &fakeChains{
		chains: map[string]*domain.OptionChain{
			"NVDA/2024-05-17": {Expiration: "2024-05-17", Puts: manyPuts(95, 3)},
		},
		failChain: "2024-05-31",
	}
	g := NewGenerator(chains, fakeQuotes{"NVDA": 100}, Config{}, zerolog.Nop())
	g.SetClock(func() time.Time { return now })

	got, err := g.Generate(context.Background(), []string{"NVDA"}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1, "06-21 has no chain and 05-31 fails")
	assert.Equal(t, "2024-05-17", got[0].Expiration)
	assert.Len(t, got[0].BullPutSpreads, 2)
}

func TestWriter(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, zerolog.Nop())

	_, _, err := w.ReadLatest()
	assert.ErrorIs(t, err, ErrTradesNotFound)

	spreads := FindBullPutSpreads([]OptionQuote{opt(95, 3.0, 3.2, 100), opt(90, 1.8, 2.0, 200)}, 100)
	require.Len(t, spreads, 1)
	spreads[0].Ticker = "AAPL"
	spreads[0].Expiration = "2024-05-17"
	incomplete := spreads[0]
	incomplete.Expiration = ""

	candidates := []Candidate{
		{Ticker: "AAPL", Expiration: "2024-05-17", CurrentPrice: 100, BullPutSpreads: []Spread{spreads[0], incomplete}},
		{Ticker: "TSLA", Expiration: "2024-05-17", CurrentPrice: 200},
	}

	jsonPath, csvPath, err := w.Write("2024-05-03", candidates)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "bull_bear_trades_2024-05-03.json"), jsonPath)
	assert.Equal(t, filepath.Join(dir, "bull_bear_trades_summary_2024-05-03.csv"), csvPath)

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2, "incomplete spread is skipped")
	assert.Equal(t, strings.Join(SummaryColumns, ","), lines[0])
	assert.Equal(t, "AAPL,100,Bull Put,5,95,90,3,2,400,100,5,20,150,2024-05-17", lines[1])

	date, latest, err := w.ReadLatest()
	require.NoError(t, err)
	assert.Equal(t, "2024-05-03", date)
	require.Len(t, latest, 2)
	assert.Equal(t, candidates[0].BullPutSpreads, latest[0].BullPutSpreads)
}
