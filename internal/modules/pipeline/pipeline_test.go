package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aristath/bullbear/internal/domain"
	"github.com/aristath/bullbear/internal/modules/analysis"
	"github.com/aristath/bullbear/internal/modules/backtest"
	"github.com/aristath/bullbear/internal/modules/indicators"
	"github.com/aristath/bullbear/internal/modules/strategy"
	"github.com/aristath/bullbear/internal/modules/trades"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ruleDocument = `{
  "indicators": {"sma_50": "", "sma_200": ""},
  "strategies": [
    {"name": "Trend", "kind": "sma_crossover", "combo": ["sma_50", "sma_200"], "type": "trend", "weight": 3}
  ]
}`

type fakeHistory map[string][]domain.Bar

func (f fakeHistory) GetDailyBars(_ context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	var out []domain.Bar
	for _, b := range f[symbol] {
		if !b.Date.Before(start) && !b.Date.After(end) {
			out = append(out, b)
		}
	}
	return out, nil
}

type fakeQuotes map[string]float64

func (f fakeQuotes) GetQuote(_ context.Context, symbol string) (*domain.Quote, error) {
	p, ok := f[symbol]
	if !ok {
		return nil, errors.New("no quote")
	}
	return &domain.Quote{Symbol: symbol, LastPrice: &p}, nil
}

type fakeChains struct{}

func (fakeChains) GetExpirations(context.Context, string) ([]string, error) {
	return []string{"2024-05-17", "2024-05-24", "2024-06-14"}, nil
}

func (fakeChains) GetOptionChain(_ context.Context, _, expiration string) (*domain.OptionChain, error) {
	return &domain.OptionChain{
		Expiration: expiration,
		Puts: []domain.OptionQuote{
			{Strike: 140, Bid: ptr(2), Ask: ptr(2.2), OpenInterest: ptr(100)},
			{Strike: 135, Bid: ptr(0.9), Ask: ptr(1), OpenInterest: ptr(50)},
		},
	}, nil
}

type fakeUploader struct {
	paths []string
}

func (f *fakeUploader) Upload(_ context.Context, localPath string) (string, error) {
	f.paths = append(f.paths, localPath)
	return "reports/" + filepath.Base(localPath), nil
}

func ptr(v float64) *float64 { return &v }

func risingBars(end time.Time, n int) []domain.Bar {
	bars := make([]domain.Bar, n)
	start := end.AddDate(0, 0, -(n - 1))
	for i := range bars {
		c := 100 + float64(i)*0.1
		bars[i] = domain.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1000}
	}
	return bars
}

func newTestPipeline(t *testing.T, today time.Time, uploader *fakeUploader) (*Pipeline, Deps) {
	t.Helper()
	dir := t.TempDir()
	log := zerolog.Nop()

	rules, err := strategy.ParseRuleSet([]byte(ruleDocument))
	require.NoError(t, err)
	evaluator := strategy.NewEvaluator(rules, strategy.Config{Now: func() time.Time { return today }}, log)

	history := fakeHistory{"AAPL": risingBars(today, 510)}
	generator := trades.NewGenerator(fakeChains{}, fakeQuotes{"AAPL": 150}, trades.Config{}, log)
	generator.SetClock(func() time.Time { return today })

	snapshots := indicators.NewStore(filepath.Join(dir, "stock_data"), log)
	historical := indicators.NewStore(filepath.Join(dir, "backtest", "indicators"), log)
	analyzer := analysis.NewAnalyzer(evaluator, log)
	analyses := analysis.NewStore(filepath.Join(dir, "analysis"), log)
	harness, err := backtest.NewHarness(backtest.DefaultConfig(), log)
	require.NoError(t, err)

	deps := Deps{
		Builder:     indicators.NewBuilder(history, nil, nil, log),
		Snapshots:   snapshots,
		History:     historical,
		Analyzer:    analyzer,
		Analyses:    analyses,
		Generator:   generator,
		TradeWriter: trades.NewWriter(filepath.Join(dir, "trades"), log),
		ReportDir:   filepath.Join(dir, "reports"),
		Preparer:    analysis.NewPreparer(historical, analyzer, analyses, log),
		Backtests:   backtest.NewRunner(analyses, historical, harness, filepath.Join(dir, "backtest"), log),
	}
	if uploader != nil {
		deps.Uploader = uploader
	}

	p := New(deps, log)
	p.SetClock(func() time.Time { return today })
	return p, deps
}

func TestRunDailyOnFriday(t *testing.T) {
	friday := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	uploader := &fakeUploader{}
	p, deps := newTestPipeline(t, friday, uploader)

	res, err := p.RunDaily(context.Background(), []string{"AAPL"}, Options{Upload: true})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "2024-05-03", res.Date)
	assert.Equal(t, 1, res.Snapshots.Processed)
	assert.Equal(t, 1, res.Analysis.Processed)
	assert.FileExists(t, res.SnapshotPath)
	assert.FileExists(t, res.AnalysisPath)
	assert.FileExists(t, res.ReportPath)
	assert.FileExists(t, res.TradesJSONPath)
	assert.FileExists(t, res.TradesCSVPath)
	assert.Equal(t, 3, res.Candidates, "one candidate per selected expiration")

	records, err := deps.Analyses.Read(analysis.PrefixDaily, "2024-05-03")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, strategy.SignalStronglyBullish, records[0].CombinedSignal.Text)

	assert.Len(t, uploader.paths, 5)
	assert.Len(t, res.Uploaded, 5)
	assert.Contains(t, res.Uploaded, "reports/"+filepath.Base(res.ReportPath))
}

func TestRunDailySkipsTradesOnOtherDays(t *testing.T) {
	wednesday := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	uploader := &fakeUploader{}
	p, _ := newTestPipeline(t, wednesday, uploader)

	res, err := p.RunDaily(context.Background(), []string{"AAPL"}, Options{})
	require.NoError(t, err)

	assert.Empty(t, res.TradesJSONPath)
	assert.Empty(t, res.TradesCSVPath)
	assert.Zero(t, res.Candidates)
	assert.Empty(t, uploader.paths, "upload not requested")
}

func TestRunDailyForceTrades(t *testing.T) {
	wednesday := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	p, _ := newTestPipeline(t, wednesday, nil)

	res, err := p.RunDaily(context.Background(), []string{"AAPL"}, Options{ForceTrades: true, Upload: true})
	require.NoError(t, err)

	assert.FileExists(t, res.TradesCSVPath)
	assert.Positive(t, res.Candidates)
	assert.Empty(t, res.Uploaded, "no uploader configured")
}

func TestRunDailyNoTickers(t *testing.T) {
	p, _ := newTestPipeline(t, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), nil)

	_, err := p.RunDaily(context.Background(), nil, Options{})
	assert.ErrorIs(t, err, ErrNoTickers)
}

func TestRunDailyCancelled(t *testing.T) {
	p, _ := newTestPipeline(t, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.RunDaily(ctx, []string{"AAPL"}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunTradesFromLatestAnalysis(t *testing.T) {
	wednesday := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	p, deps := newTestPipeline(t, wednesday, nil)

	_, err := p.RunTrades(context.Background())
	require.Error(t, err, "no analysis yet")

	_, err = p.RunDaily(context.Background(), []string{"AAPL"}, Options{})
	require.NoError(t, err)

	res, err := p.RunTrades(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01", res.Date)
	assert.Equal(t, deps.Analyses.Path(analysis.PrefixDaily, "2024-05-01"), res.AnalysisPath)
	assert.Positive(t, res.Candidates)

	data, err := os.ReadFile(res.TradesCSVPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "AAPL,150,Bull Put")
}

func TestBuildHistory(t *testing.T) {
	friday := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	p, deps := newTestPipeline(t, friday, nil)
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	stats, err := p.BuildHistory(context.Background(), []string{"AAPL"}, start, end, false)
	require.NoError(t, err)
	assert.Equal(t, HistoryStats{Dates: 5, Written: 5}, stats, "Mondays after today are not built")

	dates, err := deps.History.Dates()
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-04-01", "2024-04-08", "2024-04-15", "2024-04-22", "2024-04-29"}, dates)

	daily, err := deps.Snapshots.Dates()
	require.NoError(t, err)
	assert.Empty(t, daily, "history never lands in the daily directory")

	stats, err = p.BuildHistory(context.Background(), []string{"AAPL"}, start, end, false)
	require.NoError(t, err)
	assert.Equal(t, HistoryStats{Dates: 5, Existing: 5}, stats)

	stats, err = p.BuildHistory(context.Background(), []string{"AAPL"}, start, end, true)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Written)
}

func TestAnalyzeStoredSnapshots(t *testing.T) {
	friday := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	p, deps := newTestPipeline(t, friday, nil)

	_, _, err := p.Analyze("2024-05-03")
	require.ErrorIs(t, err, indicators.ErrSnapshotsNotFound)

	_, _, err = p.BuildSnapshots(context.Background(), []string{"AAPL"}, friday)
	require.NoError(t, err)

	path, stats, err := p.Analyze("2024-05-03")
	require.NoError(t, err)
	assert.Equal(t, deps.Analyses.Path(analysis.PrefixDaily, "2024-05-03"), path)
	assert.Equal(t, 1, stats.Processed)
}

func TestRunBacktest(t *testing.T) {
	friday := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	p, deps := newTestPipeline(t, friday, nil)
	start := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

	res, err := p.RunBacktest(context.Background(), []string{"AAPL"}, start, friday)
	require.NoError(t, err)

	assert.Equal(t, 5, res.History.Written)
	assert.Equal(t, 5, res.Prepare.Written)
	require.NotNil(t, res.Summary)
	assert.Equal(t, 5, res.Summary.Days)
	assert.Equal(t, 5, res.Summary.Selected)

	summary, err := deps.Backtests.LatestSummary()
	require.NoError(t, err)
	assert.Equal(t, res.Summary.RunID, summary.RunID)
}

func pricedSnapshot(ticker, date string, price float64) domain.Snapshot {
	snap := domain.NewSnapshot(ticker, date, nil)
	snap.CurrentPrice = &price
	return snap
}

func TestBacktestForwardPricesIgnoreDailySnapshots(t *testing.T) {
	friday := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	_, deps := newTestPipeline(t, friday, nil)

	mondays := []string{"2024-01-01", "2024-01-08", "2024-01-15", "2024-01-22", "2024-01-29", "2024-02-05"}
	for i, date := range mondays {
		_, err := deps.History.Write(date, []domain.Snapshot{pricedSnapshot("AAPL", date, 100+float64(i))})
		require.NoError(t, err)
	}
	_, err := deps.Snapshots.Write("2024-01-02", []domain.Snapshot{pricedSnapshot("AAPL", "2024-01-02", 999)})
	require.NoError(t, err)

	stats, err := deps.Preparer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(mondays), stats.Dates)
	assert.Equal(t, len(mondays), stats.Written)

	records, err := deps.Analyses.Read(analysis.PrefixBacktest, "2024-01-01")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Price5D)
	assert.Equal(t, 105.0, *records[0].Price5D, "five Mondays later")

	_, err = deps.Analyses.Read(analysis.PrefixBacktest, "2024-01-02")
	assert.ErrorIs(t, err, analysis.ErrAnalysisNotFound)
}
