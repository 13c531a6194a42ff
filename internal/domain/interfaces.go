package domain

import (
	"context"
	"time"
)

// HistoryProvider supplies daily bars for a ticker, oldest first, covering
// [start, end].
type HistoryProvider interface {
	GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]Bar, error)
}

// QuoteProvider supplies the latest market snapshot for a ticker
type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
}

// EventsProvider supplies upcoming corporate events for a ticker
type EventsProvider interface {
	GetCorporateEvents(ctx context.Context, symbol string) (*CorporateEvents, error)
}

// OptionChainProvider supplies option chains for a ticker.
// GetExpirations returns available expirations (YYYY-MM-DD), ascending.
type OptionChainProvider interface {
	GetExpirations(ctx context.Context, symbol string) ([]string, error)
	GetOptionChain(ctx context.Context, symbol, expiration string) (*OptionChain, error)
}
