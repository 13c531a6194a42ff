package di

import (
	"context"
	"fmt"

	"github.com/aristath/bullbear/internal/config"
	"github.com/rs/zerolog"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
// 1. Open the cache database
// 2. Create the market data clients
// 3. Build the services and the pipeline
func Wire(ctx context.Context, cfg *config.Config, settings config.Settings, log zerolog.Logger) (*Container, error) {
	container, err := InitializeDatabases(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize databases: %w", err)
	}
	container.Settings = settings

	if err := InitializeClients(container, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize clients: %w", err)
	}

	if err := InitializeServices(ctx, container, log); err != nil {
		container.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")
	return container, nil
}
