// Package main is the bullbear command line: it runs each stage of the
// pipeline on demand.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aristath/bullbear/internal/app"
	"github.com/aristath/bullbear/internal/config"
	"github.com/aristath/bullbear/internal/di"
)

var (
	container *di.Container
	log       zerolog.Logger
)

// rootCmd is the base command for the bullbear CLI
var rootCmd = &cobra.Command{
	Use:   "bullbear",
	Short: "Bull/bear indicator scoring, credit spread backtests and trade candidates",
	Long: `bullbear builds technical indicator snapshots for a ticker universe,
scores them against weighted strategy rules, backtests bull put spreads on
the strongly bullish signals and lists credit spread candidates.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var cfg *config.Config
		var settings config.Settings
		var err error
		cfg, settings, log, err = app.Bootstrap()
		if err != nil {
			return err
		}
		container, err = di.Wire(cmd.Context(), cfg, settings, log)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return container.Close()
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadTickers() ([]string, error) {
	return config.LoadTickers(container.Config.TickersPath())
}
