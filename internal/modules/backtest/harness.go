package backtest

import (
	"fmt"

	"github.com/aristath/bullbear/internal/modules/analysis"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SelectedSignal is the combined text a record needs to enter the backtest
const SelectedSignal = "Strongly Bullish"

// Day is the stored analysis of one entry date
type Day struct {
	Date    string
	Records []analysis.Record
}

// Trial is one simulated spread: one ticker, entry date, protection level
// and holding period.
type Trial struct {
	Date            string   `json:"date"`
	Ticker          string   `json:"ticker"`
	EntryPrice      float64  `json:"entry_price"`
	ExitPrice       *float64 `json:"exit_price"`
	Protection      float64  `json:"protection"`
	HoldingDays     int      `json:"holding_days"`
	Breached        bool     `json:"breached"`
	ProtectionPrice float64  `json:"protection_price"`
	ActualMove      *float64 `json:"actual_move"`
	PctMove         *float64 `json:"pct_move"`
	CombinedValue   float64  `json:"combined_signal_value"`
	CombinedText    string   `json:"combined_signal_text"`
	Breaches5D      int      `json:"breaches_5d"`
	Breaches10D     int      `json:"breaches_10d"`
	Breaches25D     int      `json:"breaches_25d"`
}

// Result is the outcome of a harness run. Selected counts strongly bullish
// records and Skipped the ones among them without an entry price.
type Result struct {
	RunID      string      `json:"run_id"`
	Trials     []Trial     `json:"trials"`
	Aggregates []Aggregate `json:"aggregates"`
	Selected   int         `json:"selected"`
	Skipped    int         `json:"skipped"`
}

// Harness simulates spreads over stored analysis
type Harness struct {
	cfg Config
	log zerolog.Logger
}

// NewHarness creates a harness. The config is validated and copied.
func NewHarness(cfg Config, log zerolog.Logger) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	return &Harness{
		cfg: cfg.clone(),
		log: log.With().Str("component", "backtest_harness").Logger(),
	}, nil
}

// Config returns a copy of the harness parameters.
func (h *Harness) Config() Config {
	return h.cfg.clone()
}

// Run simulates every strongly bullish record of every day against every
// protection level and holding period. index supplies the daily prices for
// the breach counters.
//
// A trial whose exit price is absent is kept and counts as not breached.
func (h *Harness) Run(days []Day, index *analysis.DateIndex) Result {
	res := Result{RunID: uuid.New().String()}

	for _, day := range days {
		for _, rec := range day.Records {
			if !analysis.HasSignal(rec, SelectedSignal) {
				continue
			}
			res.Selected++

			if rec.EntryPrice == nil {
				res.Skipped++
				h.log.Warn().Str("date", day.Date).Str("ticker", rec.Ticker).Msg("Skipping record without entry price")
				continue
			}

			res.Trials = append(res.Trials, h.simulate(day.Date, rec, index)...)
		}
	}

	res.Aggregates = WinRates(res.Trials)
	h.log.Info().
		Str("run_id", res.RunID).
		Int("days", len(days)).
		Int("selected", res.Selected).
		Int("skipped", res.Skipped).
		Int("trials", len(res.Trials)).
		Msg("Backtest complete")
	return res
}

func (h *Harness) simulate(date string, rec analysis.Record, index *analysis.DateIndex) []Trial {
	entry := *rec.EntryPrice
	counts := BreachCounts(index, date, rec.Ticker, entry, h.cfg.ProtectionLevels[0])

	trials := make([]Trial, 0, len(h.cfg.ProtectionLevels)*len(h.cfg.HoldingPeriods))
	for _, p := range h.cfg.ProtectionLevels {
		floor := entry * (1 - p)
		for _, holding := range h.cfg.HoldingPeriods {
			exit := rec.PriceAfter(holding)

			t := Trial{
				Date:            date,
				Ticker:          rec.Ticker,
				EntryPrice:      entry,
				ExitPrice:       exit,
				Protection:      p,
				HoldingDays:     holding,
				Breached:        exit != nil && *exit < floor,
				ProtectionPrice: floor,
				CombinedValue:   rec.CombinedSignal.Value,
				CombinedText:    rec.CombinedSignal.Text,
				Breaches5D:      counts[5],
				Breaches10D:     counts[10],
				Breaches25D:     counts[25],
			}
			if exit != nil {
				move := *exit - entry
				t.ActualMove = &move
				if entry != 0 {
					pct := move / entry * 100
					t.PctMove = &pct
				}
			}
			trials = append(trials, t)
		}
	}
	return trials
}

// BreachCounts counts, for each of the BreachWindows, the trading days after
// date on which the ticker closed below entry*(1-protection). Counting stops
// at the end of the index and days without a price are skipped. An unknown
// date yields zero counts.
func BreachCounts(index *analysis.DateIndex, date, ticker string, entry, protection float64) map[int]int {
	floor := entry * (1 - protection)
	counts := make(map[int]int, len(BreachWindows))

	for _, window := range BreachWindows {
		counts[window] = 0
		if _, ok := index.Position(date); !ok {
			continue
		}
		for offset := 1; offset <= window; offset++ {
			d, ok := index.Offset(date, offset)
			if !ok {
				break
			}
			price := index.Price(d, ticker)
			if price != nil && *price < floor {
				counts[window]++
			}
		}
	}
	return counts
}
