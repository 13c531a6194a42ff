package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/bullbear/internal/modules/analysis"
	"github.com/aristath/bullbear/internal/modules/backtest"
	"github.com/aristath/bullbear/internal/modules/report"
	"github.com/aristath/bullbear/internal/modules/strategy"
	"github.com/aristath/bullbear/internal/modules/trades"
	"github.com/aristath/bullbear/internal/scheduler"
)

type fakeSummaries struct {
	summary *backtest.Summary
}

func (f fakeSummaries) LatestSummary() (*backtest.Summary, error) {
	if f.summary == nil {
		return nil, os.ErrNotExist
	}
	return f.summary, nil
}

type envelopeResponse struct {
	Data     json.RawMessage        `json:"data"`
	Metadata map[string]interface{} `json:"metadata"`
}

func record(ticker, text string, earningsNearby bool) analysis.Record {
	price := 100.0
	return analysis.Record{
		Ticker:         ticker,
		CombinedSignal: strategy.CombinedSignal{Text: text},
		EarningsNearby: earningsNearby,
		CurrentPrice:   &price,
		Signals: map[string]strategy.Outcome{
			"Trend": {Signal: strategy.LabelStronglyBullish, Category: "trend", Weight: 3},
		},
	}
}

func setupServer(t *testing.T, jobs ...scheduler.Job) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	log := zerolog.Nop()

	analyses := analysis.NewStore(filepath.Join(dir, "analysis"), log)
	_, err := analyses.Write(analysis.PrefixDaily, "2024-05-02", []analysis.Record{
		record("AAPL", strategy.SignalStronglyBullish, false),
	})
	require.NoError(t, err)
	_, err = analyses.Write(analysis.PrefixDaily, "2024-05-03", []analysis.Record{
		record("AAPL", strategy.SignalStronglyBullish, false),
		record("MSFT", strategy.SignalStronglyBullish, true),
		record("TSLA", strategy.SignalStronglyBearish, false),
	})
	require.NoError(t, err)

	writer := trades.NewWriter(filepath.Join(dir, "trades"), log)
	_, _, err = writer.Write("2024-05-03", []trades.Candidate{{
		Ticker:       "AAPL",
		Expiration:   "2024-05-17",
		CurrentPrice: 100,
		BullPutSpreads: []trades.Spread{
			{Ticker: "AAPL", Strategy: trades.StrategyBullPut, ShortStrike: 95, LongStrike: 90, Expiration: "2024-05-17"},
		},
	}})
	require.NoError(t, err)

	reportDir := filepath.Join(dir, "reports")
	s := New(Config{
		Log:       log,
		Port:      0,
		DevMode:   true,
		Analyses:  analyses,
		Backtests: fakeSummaries{summary: &backtest.Summary{RunID: "run-1", Trials: 12}},
		Trades:    writer,
		ReportDir: reportDir,
		Jobs:      jobs,
	})
	return s, reportDir
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelopeResponse {
	t.Helper()
	var env envelopeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.NotEmpty(t, env.Metadata["timestamp"])
	return env
}

func TestHealth(t *testing.T) {
	s, _ := setupServer(t)

	for _, path := range []string{"/health", "/api/health"} {
		rec := get(t, s, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "healthy")
	}
}

func TestLatestAnalysis(t *testing.T) {
	s, _ := setupServer(t)

	rec := get(t, s, "/api/analysis/latest")
	require.Equal(t, http.StatusOK, rec.Code)

	env := decode(t, rec)
	assert.Equal(t, "2024-05-03", env.Metadata["date"])
	assert.Equal(t, float64(3), env.Metadata["count"])

	var records []analysis.Record
	require.NoError(t, json.Unmarshal(env.Data, &records))
	assert.Equal(t, "AAPL", records[0].Ticker)
}

func TestAnalysisByDate(t *testing.T) {
	s, _ := setupServer(t)

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"existing", "/api/analysis/2024-05-02", http.StatusOK},
		{"missing", "/api/analysis/2024-01-01", http.StatusNotFound},
		{"bad date", "/api/analysis/yesterday", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, tt.path)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestAnalysisSignals(t *testing.T) {
	s, _ := setupServer(t)

	tests := []struct {
		name   string
		query  string
		status int
		want   []string
	}{
		{"bullish", "?signal=strongly%20bullish", http.StatusOK, []string{"AAPL", "MSFT"}},
		{"bullish without earnings", "?signal=Strongly%20Bullish&exclude_earnings=true", http.StatusOK, []string{"AAPL"}},
		{"bearish", "?signal=Strongly%20Bearish", http.StatusOK, []string{"TSLA"}},
		{"none", "?signal=Neutral", http.StatusOK, []string{}},
		{"bad flag", "?signal=Neutral&exclude_earnings=maybe", http.StatusBadRequest, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s, "/api/analysis/2024-05-03/signals"+tt.query)
			require.Equal(t, tt.status, rec.Code)
			if tt.want == nil {
				return
			}
			var got []string
			require.NoError(t, json.Unmarshal(decode(t, rec).Data, &got))
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("grouped", func(t *testing.T) {
		rec := get(t, s, "/api/analysis/2024-05-03/signals")
		require.Equal(t, http.StatusOK, rec.Code)
		var groups map[string][]string
		require.NoError(t, json.Unmarshal(decode(t, rec).Data, &groups))
		assert.Equal(t, []string{"AAPL", "MSFT"}, groups[strategy.SignalStronglyBullish])
		assert.Equal(t, []string{"TSLA"}, groups[strategy.SignalStronglyBearish])
	})
}

func TestBacktestSummary(t *testing.T) {
	s, _ := setupServer(t)

	rec := get(t, s, "/api/backtest/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "run-1", env.Metadata["run_id"])

	s.backtests = fakeSummaries{}
	rec = get(t, s, "/api/backtest/summary")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLatestTrades(t *testing.T) {
	s, _ := setupServer(t)

	rec := get(t, s, "/api/trades/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	env := decode(t, rec)
	assert.Equal(t, "2024-05-03", env.Metadata["date"])
	assert.Equal(t, float64(1), env.Metadata["spreads"])

	var candidates []trades.Candidate
	require.NoError(t, json.Unmarshal(env.Data, &candidates))
	require.Len(t, candidates, 1)
	assert.Equal(t, 95.0, candidates[0].BullPutSpreads[0].ShortStrike)
}

func TestDailyReport(t *testing.T) {
	s, reportDir := setupServer(t)

	rec := get(t, s, "/api/report/daily")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "TSLA")

	require.NoError(t, os.MkdirAll(reportDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(reportDir, report.FileName("2024-05-02")), []byte("<html>stored</html>"), 0o644))
	rec = get(t, s, "/api/report/daily?date=2024-05-02")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "stored")

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/report/daily?date=2023-01-02").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/report/daily?date=02/05/2024").Code)
}

func TestSystemStatus(t *testing.T) {
	s, _ := setupServer(t)

	rec := get(t, s, "/api/system/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status SystemStatus
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &status))
	assert.NotEmpty(t, status.GoVersion)
	assert.Positive(t, status.Goroutines)
	assert.Nil(t, status.CacheDB)
}

func TestTriggerJob(t *testing.T) {
	var calls atomic.Int32
	done := make(chan struct{})
	job := scheduler.NewFuncJob("daily_pipeline", time.Second, func(ctx context.Context) error {
		calls.Add(1)
		close(done)
		return nil
	})
	failing := scheduler.NewFuncJob("backtest", time.Second, func(ctx context.Context) error {
		return errors.New("boom")
	})
	s, _ := setupServer(t, job, failing)

	rec := get(t, s, "/api/jobs")
	require.Equal(t, http.StatusOK, rec.Code)
	var names []string
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &names))
	assert.Equal(t, []string{"backtest", "daily_pipeline"}, names)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/daily_pipeline", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
	s.system.Wait()
	assert.Equal(t, int32(1), calls.Load())

	req = httptest.NewRequest(http.MethodPost, "/api/jobs/unknown", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
