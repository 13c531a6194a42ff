// Package app holds the process bootstrap shared by the entry points.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/bullbear/internal/config"
	"github.com/aristath/bullbear/internal/di"
	"github.com/aristath/bullbear/internal/scheduler"
	"github.com/aristath/bullbear/internal/server"
	"github.com/aristath/bullbear/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Bootstrap loads the environment configuration, creates the logger and
// reads the settings file.
func Bootstrap() (*config.Config, config.Settings, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Settings{}, logger.New(logger.Config{Level: "info", Pretty: true}), err
	}

	logCfg := logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty}
	if cfg.LogToFile {
		logCfg.Dir = cfg.LogDir()
	}
	log := logger.New(logCfg)
	logger.SetGlobalLogger(log)

	if err := cfg.Validate(); err != nil {
		return nil, config.Settings{}, log, fmt.Errorf("invalid configuration: %w", err)
	}

	settings, err := config.LoadSettings(cfg.SettingsPath())
	if err != nil {
		return nil, config.Settings{}, log, err
	}
	return cfg, settings, log, nil
}

// Serve runs the HTTP API and the job scheduler until ctx is cancelled or
// the server fails.
func Serve(ctx context.Context, container *di.Container, log zerolog.Logger) error {
	sched := scheduler.New(log)
	jobs, err := di.RegisterJobs(container, sched, log)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Log:       log,
		Port:      container.Config.Port,
		DevMode:   container.Config.DevMode,
		Analyses:  container.Analyses,
		Backtests: container.BacktestRunner,
		Trades:    container.TradeWriter,
		ReportDir: container.Config.ReportDir(),
		CacheDB:   container.CacheDB,
		Jobs:      jobs.All(),
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sched.Start()
	log.Info().Int("port", container.Config.Port).Int("jobs", sched.Len()).Msg("Server started successfully")

	var serveErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server...")
	case serveErr = <-errCh:
		log.Error().Err(serveErr).Msg("Server failed")
	}

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
	return serveErr
}
