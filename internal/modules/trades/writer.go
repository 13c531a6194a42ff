package trades

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// ErrTradesNotFound is returned when no candidate file exists
var ErrTradesNotFound = errors.New("trade candidates not found")

const (
	jsonPrefix = "bull_bear_trades_"
	csvPrefix  = "bull_bear_trades_summary_"
)

// SummaryColumns is the flat candidate table header
var SummaryColumns = []string{
	"ticker", "current_price", "strategy", "percent_from_strike", "short_strike", "long_strike",
	"short_strike_price", "long_strike_credit", "max_loss", "max_profit", "width",
	"percent_profit_of_width", "avg_oi", "expiration",
}

// Writer persists candidate documents and their flat summaries
type Writer struct {
	dir string
	log zerolog.Logger
}

// NewWriter creates a writer rooted at dir
func NewWriter(dir string, log zerolog.Logger) *Writer {
	return &Writer{
		dir: dir,
		log: log.With().Str("component", "trade_writer").Logger(),
	}
}

// Write stores the candidates of date as a JSON document and a CSV summary
// of every spread. Spreads with missing fields are left out of the summary.
func (w *Writer) Write(date string, candidates []Candidate) (jsonPath, csvPath string, err error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", "", fmt.Errorf("failed to create trades directory: %w", err)
	}
	if candidates == nil {
		candidates = []Candidate{}
	}

	data, err := json.MarshalIndent(candidates, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal candidates: %w", err)
	}
	jsonPath = filepath.Join(w.dir, jsonPrefix+date+".json")
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("failed to write candidates: %w", err)
	}

	csvPath = filepath.Join(w.dir, csvPrefix+date+".csv")
	f, err := os.Create(csvPath)
	if err != nil {
		return "", "", fmt.Errorf("failed to create summary: %w", err)
	}
	rows, err := w.writeSummary(f, candidates)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to write summary: %w", err)
	}

	w.log.Info().
		Str("json", jsonPath).
		Str("csv", csvPath).
		Int("candidates", len(candidates)).
		Int("rows", rows).
		Msg("Wrote trade candidates")
	return jsonPath, csvPath, nil
}

func (w *Writer) writeSummary(f *os.File, candidates []Candidate) (int, error) {
	cw := csv.NewWriter(f)
	if err := cw.Write(SummaryColumns); err != nil {
		return 0, err
	}

	rows := 0
	for _, c := range candidates {
		for _, s := range c.Spreads() {
			if missing := missingField(s); missing != "" {
				w.log.Warn().Str("ticker", s.Ticker).Str("field", missing).Msg("Skipping spread with missing field")
				continue
			}
			if err := cw.Write(summaryRow(s)); err != nil {
				return rows, err
			}
			rows++
		}
	}
	cw.Flush()
	return rows, cw.Error()
}

// ReadLatest loads the most recent candidate document.
func (w *Writer) ReadLatest() (string, []Candidate, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", nil, fmt.Errorf("failed to list trades directory: %w", err)
	}

	var dates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, jsonPrefix) || strings.HasPrefix(name, csvPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		dates = append(dates, strings.TrimSuffix(strings.TrimPrefix(name, jsonPrefix), ".json"))
	}
	if len(dates) == 0 {
		return "", nil, fmt.Errorf("%w in %s", ErrTradesNotFound, w.dir)
	}
	sort.Strings(dates)
	date := dates[len(dates)-1]

	data, err := os.ReadFile(filepath.Join(w.dir, jsonPrefix+date+".json"))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read candidates: %w", err)
	}
	var candidates []Candidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return "", nil, fmt.Errorf("failed to parse candidates: %w", err)
	}
	return date, candidates, nil
}

func missingField(s Spread) string {
	switch {
	case s.Ticker == "":
		return "ticker"
	case s.Strategy == "":
		return "strategy"
	case s.Expiration == "":
		return "expiration"
	}
	for name, v := range map[string]float64{
		"current_price": s.CurrentPrice,
		"short_strike":  s.ShortStrike,
		"long_strike":   s.LongStrike,
		"max_loss":      s.MaxLoss,
		"max_profit":    s.MaxProfit,
		"width":         s.Width,
		"avg_oi":        s.AvgOI,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return name
		}
	}
	return ""
}

func summaryRow(s Spread) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []string{
		s.Ticker,
		f(s.CurrentPrice),
		s.Strategy,
		f(s.PercentFromStrike),
		f(s.ShortStrike),
		f(s.LongStrike),
		f(s.ShortStrikePrice),
		f(s.LongStrikeCredit),
		f(s.MaxLoss),
		f(s.MaxProfit),
		f(s.Width),
		f(s.PercentProfitOfWidth),
		f(s.AvgOI),
		s.Expiration,
	}
}
