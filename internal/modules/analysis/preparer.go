package analysis

import (
	"context"
	"fmt"

	"github.com/aristath/bullbear/internal/domain"
	"github.com/rs/zerolog"
)

// SnapshotSource supplies the stored indicator snapshots of past dates
type SnapshotSource interface {
	Dates() ([]string, error)
	Read(date string) ([]domain.Snapshot, error)
	ReadPrices() (map[string]map[string]*float64, error)
}

// PrepareStats summarises a preparation run
type PrepareStats struct {
	Dates   int `json:"dates"`
	Written int `json:"written"`
	Failed  int `json:"failed"`
	Records int `json:"records"`
}

// Preparer writes backtest analysis files from historical snapshots
type Preparer struct {
	snapshots SnapshotSource
	analyzer  *Analyzer
	store     *Store
	log       zerolog.Logger
}

// NewPreparer creates a backtest preparer
func NewPreparer(snapshots SnapshotSource, analyzer *Analyzer, store *Store, log zerolog.Logger) *Preparer {
	return &Preparer{
		snapshots: snapshots,
		analyzer:  analyzer,
		store:     store,
		log:       log.With().Str("component", "backtest_preparer").Logger(),
	}
}

// Run analyzes every snapshot date with forward prices and writes one
// backtest analysis file per date. The price history is required; a failure
// on one date is logged and the remaining dates still run.
func (p *Preparer) Run(ctx context.Context) (PrepareStats, error) {
	prices, err := p.snapshots.ReadPrices()
	if err != nil {
		return PrepareStats{}, fmt.Errorf("failed to load price history: %w", err)
	}
	index := NewDateIndex(prices)

	dates, err := p.snapshots.Dates()
	if err != nil {
		return PrepareStats{}, fmt.Errorf("failed to list snapshot dates: %w", err)
	}

	stats := PrepareStats{Dates: len(dates)}
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		snaps, err := p.snapshots.Read(date)
		if err != nil {
			stats.Failed++
			p.log.Error().Err(err).Str("date", date).Msg("Failed to read snapshots")
			continue
		}

		records, _ := p.analyzer.AnalyzeForBacktest(date, snaps, index)
		if _, err := p.store.Write(PrefixBacktest, date, records); err != nil {
			stats.Failed++
			p.log.Error().Err(err).Str("date", date).Msg("Failed to write backtest analysis")
			continue
		}
		stats.Written++
		stats.Records += len(records)
	}

	p.log.Info().
		Int("dates", stats.Dates).
		Int("written", stats.Written).
		Int("failed", stats.Failed).
		Msg("Backtest preparation complete")
	return stats, nil
}
