// Package main is the entry point of the bullbear daemon: it serves the HTTP
// API and runs the scheduled daily pipeline, weekly backtest and cache
// maintenance jobs.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/aristath/bullbear/internal/app"
	"github.com/aristath/bullbear/internal/di"
)

func main() {
	cfg, settings, log, err := app.Bootstrap()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Starting bullbear")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := di.Wire(ctx, cfg, settings, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	if err := app.Serve(ctx, container, log); err != nil {
		log.Error().Err(err).Msg("Server exited with error")
	}
}
