// Package di wires the application's components from configuration.
//
// The Container is the single source of truth for component instances: the
// CLI commands, the scheduler jobs and the HTTP server all read from it.
package di

import (
	"fmt"

	"github.com/aristath/bullbear/internal/clientdata"
	"github.com/aristath/bullbear/internal/clients/alpaca"
	"github.com/aristath/bullbear/internal/clients/yahoo"
	"github.com/aristath/bullbear/internal/config"
	"github.com/aristath/bullbear/internal/database"
	"github.com/aristath/bullbear/internal/domain"
	"github.com/aristath/bullbear/internal/modules/analysis"
	"github.com/aristath/bullbear/internal/modules/backtest"
	"github.com/aristath/bullbear/internal/modules/indicators"
	"github.com/aristath/bullbear/internal/modules/pipeline"
	"github.com/aristath/bullbear/internal/modules/strategy"
	"github.com/aristath/bullbear/internal/modules/trades"
	"github.com/aristath/bullbear/internal/storage"
)

// Container holds all dependencies for the application
type Container struct {
	Config   *config.Config
	Settings config.Settings

	// Cache of upstream API responses
	CacheDB    *database.DB
	ClientData *clientdata.Repository

	// Market data clients. Alpaca is nil without credentials.
	Alpaca *alpaca.Client
	Yahoo  *yahoo.Client

	// Providers resolved from the clients. Chains is nil without Alpaca.
	History domain.HistoryProvider
	Quotes  domain.QuoteProvider
	Events  domain.EventsProvider
	Chains  domain.OptionChainProvider

	Rules     *strategy.RuleSet
	Evaluator *strategy.Evaluator

	Builder          *indicators.Builder
	Snapshots        *indicators.Store
	HistorySnapshots *indicators.Store
	Analyzer         *analysis.Analyzer
	Analyses         *analysis.Store
	Preparer         *analysis.Preparer

	Harness        *backtest.Harness
	BacktestRunner *backtest.Runner

	Generator   *trades.Generator // nil without an option chain provider
	TradeWriter *trades.Writer

	Uploader storage.Uploader // nil unless a bucket is configured
	Pipeline *pipeline.Pipeline
}

// Close releases the cache database.
func (c *Container) Close() error {
	if c == nil || c.CacheDB == nil {
		return nil
	}
	if err := c.CacheDB.Close(); err != nil {
		return fmt.Errorf("failed to close cache database: %w", err)
	}
	return nil
}
