package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/aristath/bullbear/internal/modules/analysis"
	"github.com/aristath/bullbear/internal/modules/backtest"
	"github.com/aristath/bullbear/internal/modules/indicators"
	"github.com/aristath/bullbear/internal/modules/pipeline"
	"github.com/aristath/bullbear/internal/modules/strategy"
	"github.com/aristath/bullbear/internal/modules/trades"
	"github.com/aristath/bullbear/internal/storage"
	"github.com/rs/zerolog"
)

// InitializeServices builds the rule evaluator, the stores, the backtest
// and trade components and the pipeline that drives them. Settings are
// threaded into each component here and not read again.
func InitializeServices(ctx context.Context, container *Container, log zerolog.Logger) error {
	if container == nil || container.Config == nil {
		return errors.New("container cannot be nil")
	}
	cfg := container.Config
	settings := container.Settings

	rules, err := strategy.LoadRuleSet(cfg.RulesPath())
	if err != nil {
		return fmt.Errorf("failed to load strategy rules: %w", err)
	}
	container.Rules = rules
	container.Evaluator = strategy.NewEvaluator(rules, strategy.Config{
		Thresholds:         settings.Signals.Thresholds,
		EarningsWindowDays: &settings.Signals.EarningsWindowDays,
	}, log)

	container.Builder = indicators.NewBuilder(container.History, container.Quotes, container.Events, log)
	container.Builder.SetConcurrency(settings.Indicators.Concurrency)
	container.Snapshots = indicators.NewStore(cfg.SnapshotDir(), log)
	container.HistorySnapshots = indicators.NewStore(cfg.HistorySnapshotDir(), log)
	container.Analyzer = analysis.NewAnalyzer(container.Evaluator, log)
	container.Analyses = analysis.NewStore(cfg.AnalysisDir(), log)
	container.Preparer = analysis.NewPreparer(container.HistorySnapshots, container.Analyzer, container.Analyses, log)

	harness, err := backtest.NewHarness(settings.Backtest, log)
	if err != nil {
		return err
	}
	container.Harness = harness
	container.BacktestRunner = backtest.NewRunner(container.Analyses, container.HistorySnapshots, harness, cfg.BacktestDir(), log)

	if container.Chains != nil {
		container.Generator = trades.NewGenerator(container.Chains, container.Quotes, settings.Trades, log)
	}
	container.TradeWriter = trades.NewWriter(cfg.TradesDir(), log)

	if cfg.Storage.Bucket != "" {
		uploader, err := storage.NewS3Uploader(ctx, storage.Config{
			Bucket:          cfg.Storage.Bucket,
			Prefix:          cfg.Storage.Prefix,
			Region:          cfg.Storage.Region,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
		}, log)
		if err != nil {
			return fmt.Errorf("failed to initialize uploader: %w", err)
		}
		container.Uploader = uploader
	}

	deps := pipeline.Deps{
		Builder:     container.Builder,
		Snapshots:   container.Snapshots,
		History:     container.HistorySnapshots,
		Analyzer:    container.Analyzer,
		Analyses:    container.Analyses,
		Generator:   container.Generator,
		TradeWriter: container.TradeWriter,
		ReportDir:   cfg.ReportDir(),
		Uploader:    container.Uploader,
		Preparer:    container.Preparer,
		Backtests:   container.BacktestRunner,
	}
	container.Pipeline = pipeline.New(deps, log)

	log.Info().
		Int("rules", len(rules.Rules)).
		Bool("trades", container.Generator != nil).
		Bool("upload", container.Uploader != nil).
		Msg("Services initialized")
	return nil
}
