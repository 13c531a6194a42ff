package analysis

import (
	"github.com/aristath/bullbear/internal/domain"
	"github.com/aristath/bullbear/internal/modules/strategy"
	"github.com/rs/zerolog"
)

// Analyzer turns snapshots into analysis records
type Analyzer struct {
	evaluator *strategy.Evaluator
	log       zerolog.Logger
}

// NewAnalyzer creates an analyzer around an evaluator
func NewAnalyzer(evaluator *strategy.Evaluator, log zerolog.Logger) *Analyzer {
	return &Analyzer{
		evaluator: evaluator,
		log:       log.With().Str("component", "analyzer").Logger(),
	}
}

// AnalyzeAll evaluates every snapshot. Snapshots without a ticker are
// skipped and counted.
func (a *Analyzer) AnalyzeAll(snapshots []domain.Snapshot) ([]Record, Stats) {
	records := make([]Record, 0, len(snapshots))
	var stats Stats

	for _, snap := range snapshots {
		if snap.Ticker == "" {
			stats.Skipped++
			a.log.Warn().Str("date", snap.Date).Msg("Skipping snapshot without ticker")
			continue
		}
		records = append(records, a.analyze(snap))
		stats.Processed++
	}

	a.log.Info().
		Int("processed", stats.Processed).
		Int("skipped", stats.Skipped).
		Msg("Analysis complete")
	return records, stats
}

// AnalyzeForBacktest evaluates the snapshots of date and attaches the entry
// price and the forward prices from index. Forward prices beyond the end of
// the index, or for tickers missing on the target date, stay absent.
func (a *Analyzer) AnalyzeForBacktest(date string, snapshots []domain.Snapshot, index *DateIndex) ([]Record, Stats) {
	records, stats := a.AnalyzeAll(snapshots)
	for i := range records {
		r := &records[i]
		r.EntryPrice = index.Price(date, r.Ticker)
		for _, n := range ForwardWindows {
			r.setPriceAfter(n, index.PriceAfter(date, r.Ticker, n))
		}
	}
	return records, stats
}

func (a *Analyzer) analyze(snap domain.Snapshot) Record {
	res := a.evaluator.Evaluate(snap)
	return Record{
		Ticker:         snap.Ticker,
		Signals:        res.Signals,
		CombinedSignal: res.Combined,
		EarningsNearby: res.EarningsNearby,
		EarningsDate:   res.EarningsDate,
		DaysToEarnings: res.DaysToEarnings,
		CurrentPrice:   snap.CurrentPrice,
		High52W:        snap.Value(domain.IndicatorHigh52W),
		Low52W:         snap.Value(domain.IndicatorLow52W),
	}
}
