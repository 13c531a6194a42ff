package di

import (
	"errors"

	"github.com/aristath/bullbear/internal/clients/alpaca"
	"github.com/aristath/bullbear/internal/clients/yahoo"
	"github.com/rs/zerolog"
)

// InitializeClients creates the market data clients and resolves the
// providers. Alpaca serves bars, quotes and option chains when credentials
// are configured, with Yahoo as the fallback for bars and quotes. Without
// Alpaca credentials Yahoo serves everything except option chains.
func InitializeClients(container *Container, log zerolog.Logger) error {
	if container == nil || container.Config == nil {
		return errors.New("container cannot be nil")
	}
	cfg := container.Config

	container.Yahoo = yahoo.NewClient(container.ClientData, log)
	container.Events = container.Yahoo

	if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
		log.Warn().Msg("Alpaca credentials not set, option chains unavailable")
		container.History = container.Yahoo
		container.Quotes = container.Yahoo
		return nil
	}

	container.Alpaca = alpaca.NewClient(alpaca.Config{
		APIKey:            cfg.Alpaca.APIKey,
		APISecret:         cfg.Alpaca.APISecret,
		DataURL:           cfg.Alpaca.DataURL,
		TradingURL:        cfg.Alpaca.TradingURL,
		Feed:              cfg.Alpaca.Feed,
		RequestsPerMinute: cfg.Alpaca.RequestsPerMinute,
	}, container.ClientData, log)

	container.History = &fallbackHistory{
		primary:   container.Alpaca,
		secondary: container.Yahoo,
		log:       log.With().Str("component", "history_provider").Logger(),
	}
	container.Quotes = &fallbackQuotes{
		primary:   container.Alpaca,
		secondary: container.Yahoo,
		log:       log.With().Str("component", "quote_provider").Logger(),
	}
	container.Chains = container.Alpaca
	return nil
}
