// Package pipeline runs the end-of-day workflow: indicator snapshots,
// signal analysis, trade candidates on the trading weekday, the daily
// report and the optional upload of every output file.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/bullbear/internal/modules/analysis"
	"github.com/aristath/bullbear/internal/modules/backtest"
	"github.com/aristath/bullbear/internal/modules/indicators"
	"github.com/aristath/bullbear/internal/modules/report"
	"github.com/aristath/bullbear/internal/modules/strategy"
	"github.com/aristath/bullbear/internal/modules/trades"
	"github.com/aristath/bullbear/internal/storage"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrNoTickers is returned when a run is started without tickers
var ErrNoTickers = errors.New("no tickers to process")

// Deps are the components a pipeline drives. Generator, Uploader, History,
// Preparer and Backtests are optional.
type Deps struct {
	Builder     *indicators.Builder
	Snapshots   *indicators.Store
	History     *indicators.Store // Monday-only snapshots read by the backtest
	Analyzer    *analysis.Analyzer
	Analyses    *analysis.Store
	Generator   *trades.Generator
	TradeWriter *trades.Writer
	ReportDir   string
	Uploader    storage.Uploader
	Preparer    *analysis.Preparer
	Backtests   *backtest.Runner
}

// Options tune one run
type Options struct {
	// ForceTrades generates trade candidates on any weekday
	ForceTrades bool
	// Upload sends the output files to blob storage when an uploader is set
	Upload bool
}

// Result summarises one run
type Result struct {
	RunID          string           `json:"run_id"`
	Date           string           `json:"date"`
	Snapshots      indicators.Stats `json:"snapshots"`
	Analysis       analysis.Stats   `json:"analysis"`
	SnapshotPath   string           `json:"snapshot_path"`
	AnalysisPath   string           `json:"analysis_path"`
	ReportPath     string           `json:"report_path,omitempty"`
	TradesJSONPath string           `json:"trades_json_path,omitempty"`
	TradesCSVPath  string           `json:"trades_csv_path,omitempty"`
	Candidates     int              `json:"candidates"`
	Uploaded       []string         `json:"uploaded,omitempty"`
	Duration       time.Duration    `json:"duration"`
}

// Pipeline runs the daily workflow
type Pipeline struct {
	deps          Deps
	tradesWeekday time.Weekday
	now           func() time.Time
	log           zerolog.Logger
}

// New creates a pipeline. Trade candidates are generated on Fridays.
func New(deps Deps, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		deps:          deps,
		tradesWeekday: time.Friday,
		now:           time.Now,
		log:           log.With().Str("component", "pipeline").Logger(),
	}
}

// SetClock overrides the clock that dates the run.
func (p *Pipeline) SetClock(now func() time.Time) {
	p.now = now
}

// RunDaily executes the workflow for today. Snapshot and analysis failures
// abort the run; trade generation, the report and uploads are optional
// stages whose failures are logged.
func (p *Pipeline) RunDaily(ctx context.Context, tickers []string, opts Options) (*Result, error) {
	if len(tickers) == 0 {
		return nil, ErrNoTickers
	}
	started := time.Now()
	today := p.now()
	res := &Result{RunID: uuid.NewString(), Date: today.Format("2006-01-02")}
	log := p.log.With().Str("run_id", res.RunID).Str("date", res.Date).Logger()
	log.Info().Int("tickers", len(tickers)).Msg("Daily run started")

	snaps, stats, err := p.deps.Builder.BuildAll(ctx, tickers, today)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshots: %w", err)
	}
	res.Snapshots = stats
	if res.SnapshotPath, err = p.deps.Snapshots.Write(res.Date, snaps); err != nil {
		return nil, fmt.Errorf("failed to write snapshots: %w", err)
	}

	records, astats := p.deps.Analyzer.AnalyzeAll(snaps)
	res.Analysis = astats
	if res.AnalysisPath, err = p.deps.Analyses.Write(analysis.PrefixDaily, res.Date, records); err != nil {
		return nil, fmt.Errorf("failed to write analysis: %w", err)
	}

	if p.deps.Generator != nil && (opts.ForceTrades || today.Weekday() == p.tradesWeekday) {
		if err := p.runTrades(ctx, res, records); err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			log.Error().Err(err).Msg("Trade generation failed")
		}
	}

	if p.deps.ReportDir != "" {
		path, err := report.WriteHTML(p.deps.ReportDir, report.Build(res.Date, records))
		if err != nil {
			log.Error().Err(err).Msg("Failed to write daily report")
		} else {
			res.ReportPath = path
		}
	}

	if opts.Upload && p.deps.Uploader != nil {
		files := []string{res.SnapshotPath, res.AnalysisPath, res.ReportPath, res.TradesJSONPath, res.TradesCSVPath}
		keys, err := storage.UploadAll(ctx, p.deps.Uploader, files, log)
		if err != nil {
			log.Error().Err(err).Msg("Some uploads failed")
		}
		res.Uploaded = keys
	}

	res.Duration = time.Since(started)
	log.Info().
		Int("processed", res.Analysis.Processed).
		Int("candidates", res.Candidates).
		Dur("duration", res.Duration).
		Msg("Daily run completed")
	return res, nil
}

// RunTrades generates and writes trade candidates from the latest daily
// analysis file.
func (p *Pipeline) RunTrades(ctx context.Context) (*Result, error) {
	if p.deps.Generator == nil {
		return nil, errors.New("trade generator not configured")
	}
	date, records, err := p.deps.Analyses.Latest(analysis.PrefixDaily)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest analysis: %w", err)
	}
	res := &Result{RunID: uuid.NewString(), Date: date, AnalysisPath: p.deps.Analyses.Path(analysis.PrefixDaily, date)}
	if err := p.runTrades(ctx, res, records); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) runTrades(ctx context.Context, res *Result, records []analysis.Record) error {
	bullish := analysis.TickersBySignal(records, strategy.SignalStronglyBullish, true)
	bearish := analysis.TickersBySignal(records, strategy.SignalStronglyBearish, true)

	candidates, err := p.deps.Generator.Generate(ctx, bullish, bearish)
	if err != nil {
		return err
	}
	res.Candidates = len(candidates)
	res.TradesJSONPath, res.TradesCSVPath, err = p.deps.TradeWriter.Write(res.Date, candidates)
	if err != nil {
		return fmt.Errorf("failed to write trade candidates: %w", err)
	}
	return nil
}
