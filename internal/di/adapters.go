package di

import (
	"context"
	"errors"
	"time"

	"github.com/aristath/bullbear/internal/domain"
	"github.com/rs/zerolog"
)

// fallbackHistory reads bars from the primary provider and falls back to the
// secondary one when the primary fails or returns nothing.
type fallbackHistory struct {
	primary   domain.HistoryProvider
	secondary domain.HistoryProvider
	log       zerolog.Logger
}

func (f *fallbackHistory) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	bars, err := f.primary.GetDailyBars(ctx, symbol, start, end)
	if err == nil && len(bars) > 0 {
		return bars, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	f.log.Debug().Err(err).Str("symbol", symbol).Msg("Primary history unavailable, using fallback")

	fallback, ferr := f.secondary.GetDailyBars(ctx, symbol, start, end)
	if ferr != nil {
		return nil, errors.Join(err, ferr)
	}
	return fallback, nil
}

// fallbackQuotes reads quotes from the primary provider and falls back to
// the secondary one when the primary fails or has no last price.
type fallbackQuotes struct {
	primary   domain.QuoteProvider
	secondary domain.QuoteProvider
	log       zerolog.Logger
}

func (f *fallbackQuotes) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	q, err := f.primary.GetQuote(ctx, symbol)
	if err == nil && q != nil && q.LastPrice != nil {
		return q, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	f.log.Debug().Err(err).Str("symbol", symbol).Msg("Primary quote unavailable, using fallback")

	fallback, ferr := f.secondary.GetQuote(ctx, symbol)
	if ferr != nil {
		return nil, errors.Join(err, ferr)
	}
	return fallback, nil
}
