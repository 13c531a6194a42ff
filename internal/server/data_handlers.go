package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aristath/bullbear/internal/modules/analysis"
	"github.com/aristath/bullbear/internal/modules/report"
	"github.com/aristath/bullbear/internal/modules/trades"
)

// handleLatestAnalysis handles GET /api/analysis/latest
func (s *Server) handleLatestAnalysis(w http.ResponseWriter, r *http.Request) {
	date, records, err := s.analyses.Latest(analysis.PrefixDaily)
	if err != nil {
		s.writeStoreError(w, err, "Failed to load latest analysis")
		return
	}
	writeJSON(w, http.StatusOK, envelope(records, map[string]interface{}{
		"date":  date,
		"count": len(records),
	}), s.log)
}

// handleAnalysisByDate handles GET /api/analysis/{date}
func (s *Server) handleAnalysisByDate(w http.ResponseWriter, r *http.Request) {
	date, ok := s.dateParam(w, r)
	if !ok {
		return
	}
	records, err := s.analyses.Read(analysis.PrefixDaily, date)
	if err != nil {
		s.writeStoreError(w, err, "Failed to load analysis")
		return
	}
	writeJSON(w, http.StatusOK, envelope(records, map[string]interface{}{
		"date":  date,
		"count": len(records),
	}), s.log)
}

// handleAnalysisSignals handles GET /api/analysis/{date}/signals
//
// Query parameters: signal (combined text, case-insensitive) and
// exclude_earnings (bool). Without a signal the records are grouped by
// combined text.
func (s *Server) handleAnalysisSignals(w http.ResponseWriter, r *http.Request) {
	date, ok := s.dateParam(w, r)
	if !ok {
		return
	}

	excludeEarnings := false
	if v := r.URL.Query().Get("exclude_earnings"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "exclude_earnings must be a boolean", s.log)
			return
		}
		excludeEarnings = parsed
	}

	records, err := s.analyses.Read(analysis.PrefixDaily, date)
	if err != nil {
		s.writeStoreError(w, err, "Failed to load analysis")
		return
	}

	if signal := r.URL.Query().Get("signal"); signal != "" {
		tickers := analysis.TickersBySignal(records, signal, excludeEarnings)
		if tickers == nil {
			tickers = []string{}
		}
		writeJSON(w, http.StatusOK, envelope(tickers, map[string]interface{}{
			"date":             date,
			"signal":           signal,
			"exclude_earnings": excludeEarnings,
		}), s.log)
		return
	}

	groups := make(map[string][]string)
	for text, recs := range analysis.GroupBySignal(records, excludeEarnings) {
		for _, rec := range recs {
			groups[text] = append(groups[text], rec.Ticker)
		}
	}
	writeJSON(w, http.StatusOK, envelope(groups, map[string]interface{}{
		"date":             date,
		"exclude_earnings": excludeEarnings,
	}), s.log)
}

// handleBacktestSummary handles GET /api/backtest/summary
func (s *Server) handleBacktestSummary(w http.ResponseWriter, r *http.Request) {
	if s.backtests == nil {
		writeError(w, http.StatusServiceUnavailable, "backtest not configured", s.log)
		return
	}
	summary, err := s.backtests.LatestSummary()
	if err != nil {
		s.writeStoreError(w, err, "Failed to load backtest summary")
		return
	}
	writeJSON(w, http.StatusOK, envelope(summary, map[string]interface{}{
		"run_id": summary.RunID,
	}), s.log)
}

// handleLatestTrades handles GET /api/trades/latest
func (s *Server) handleLatestTrades(w http.ResponseWriter, r *http.Request) {
	if s.trades == nil {
		writeError(w, http.StatusServiceUnavailable, "trades not configured", s.log)
		return
	}
	date, candidates, err := s.trades.ReadLatest()
	if err != nil {
		s.writeStoreError(w, err, "Failed to load trade candidates")
		return
	}
	spreads := 0
	for _, c := range candidates {
		spreads += len(c.Spreads())
	}
	writeJSON(w, http.StatusOK, envelope(candidates, map[string]interface{}{
		"date":       date,
		"candidates": len(candidates),
		"spreads":    spreads,
	}), s.log)
}

// handleDailyReport handles GET /api/report/daily?date=YYYY-MM-DD
//
// Serves the stored report file when present and renders one from the
// analysis otherwise. Without a date the latest analysis is used.
func (s *Server) handleDailyReport(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD", s.log)
			return
		}
	}

	var records []analysis.Record
	var err error
	if date == "" {
		date, records, err = s.analyses.Latest(analysis.PrefixDaily)
	} else if s.reportDir != "" {
		path := filepath.Join(s.reportDir, report.FileName(date))
		if _, statErr := os.Stat(path); statErr == nil {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			http.ServeFile(w, r, path)
			return
		}
		records, err = s.analyses.Read(analysis.PrefixDaily, date)
	} else {
		records, err = s.analyses.Read(analysis.PrefixDaily, date)
	}
	if err != nil {
		s.writeStoreError(w, err, "Failed to load analysis")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.Build(date, records).RenderHTML(w); err != nil {
		s.log.Error().Err(err).Str("date", date).Msg("Failed to render report")
	}
}

func (s *Server) dateParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := chi.URLParam(r, "date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD", s.log)
		return "", false
	}
	return date, true
}

// writeStoreError maps missing files to 404 and anything else to 500.
func (s *Server) writeStoreError(w http.ResponseWriter, err error, msg string) {
	if errors.Is(err, analysis.ErrAnalysisNotFound) ||
		errors.Is(err, trades.ErrTradesNotFound) ||
		errors.Is(err, os.ErrNotExist) {
		writeError(w, http.StatusNotFound, err.Error(), s.log)
		return
	}
	s.log.Error().Err(err).Msg(msg)
	writeError(w, http.StatusInternalServerError, msg, s.log)
}
