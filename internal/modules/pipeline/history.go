package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aristath/bullbear/internal/modules/analysis"
	"github.com/aristath/bullbear/internal/modules/backtest"
	"github.com/aristath/bullbear/internal/modules/indicators"
)

// HistoryStats summarises a historical snapshot build
type HistoryStats struct {
	Dates    int `json:"dates"`
	Written  int `json:"written"`
	Existing int `json:"existing"`
}

// BacktestResult collects the stages of a backtest refresh
type BacktestResult struct {
	History HistoryStats          `json:"history"`
	Prepare analysis.PrepareStats `json:"prepare"`
	Summary *backtest.Summary     `json:"summary"`
}

// BuildSnapshots builds and writes the snapshots of one date. The build is
// live when date is today.
func (p *Pipeline) BuildSnapshots(ctx context.Context, tickers []string, date time.Time) (string, indicators.Stats, error) {
	return p.buildInto(ctx, p.deps.Snapshots, tickers, date)
}

func (p *Pipeline) buildInto(ctx context.Context, store *indicators.Store, tickers []string, date time.Time) (string, indicators.Stats, error) {
	if len(tickers) == 0 {
		return "", indicators.Stats{}, ErrNoTickers
	}
	snaps, stats, err := p.deps.Builder.BuildAll(ctx, tickers, date)
	if err != nil {
		return "", stats, err
	}
	path, err := store.Write(date.Format("2006-01-02"), snaps)
	if err != nil {
		return "", stats, fmt.Errorf("failed to write snapshots: %w", err)
	}
	return path, stats, nil
}

// BuildHistory writes historical snapshots into the history store for every
// Monday in [start, end] that is not in the future. Mondays that already
// have a file are kept unless overwrite is set.
func (p *Pipeline) BuildHistory(ctx context.Context, tickers []string, start, end time.Time, overwrite bool) (HistoryStats, error) {
	if p.deps.History == nil {
		return HistoryStats{}, errors.New("history store not configured")
	}
	if len(tickers) == 0 {
		return HistoryStats{}, ErrNoTickers
	}
	if today := p.now(); end.After(today) {
		end = today
	}

	var stats HistoryStats
	for _, monday := range backtest.Mondays(start, end) {
		stats.Dates++
		if !overwrite {
			if _, err := os.Stat(p.deps.History.Path(monday.Format("2006-01-02"))); err == nil {
				stats.Existing++
				continue
			}
		}
		if _, _, err := p.buildInto(ctx, p.deps.History, tickers, monday); err != nil {
			return stats, err
		}
		stats.Written++
	}

	p.log.Info().
		Int("dates", stats.Dates).
		Int("written", stats.Written).
		Int("existing", stats.Existing).
		Msg("Historical snapshots built")
	return stats, nil
}

// Analyze evaluates the stored snapshots of date and writes the daily
// analysis file.
func (p *Pipeline) Analyze(date string) (string, analysis.Stats, error) {
	snaps, err := p.deps.Snapshots.Read(date)
	if err != nil {
		return "", analysis.Stats{}, err
	}
	records, stats := p.deps.Analyzer.AnalyzeAll(snaps)
	path, err := p.deps.Analyses.Write(analysis.PrefixDaily, date, records)
	if err != nil {
		return "", stats, fmt.Errorf("failed to write analysis: %w", err)
	}
	return path, stats, nil
}

// RunBacktest refreshes the Monday snapshots of [start, end], rewrites the
// backtest analysis files and replays them.
func (p *Pipeline) RunBacktest(ctx context.Context, tickers []string, start, end time.Time) (*BacktestResult, error) {
	if p.deps.Preparer == nil || p.deps.Backtests == nil {
		return nil, errors.New("backtest not configured")
	}

	res := &BacktestResult{}
	var err error
	if res.History, err = p.BuildHistory(ctx, tickers, start, end, false); err != nil {
		return nil, fmt.Errorf("failed to build history: %w", err)
	}
	if res.Prepare, err = p.deps.Preparer.Run(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare backtest: %w", err)
	}
	if res.Summary, err = p.deps.Backtests.Run(ctx, start, end); err != nil {
		return nil, fmt.Errorf("failed to run backtest: %w", err)
	}
	return res, nil
}
