package alpaca

import (
	"context"
	"fmt"
	"strings"

	"github.com/aristath/bullbear/internal/clientdata"
	"github.com/aristath/bullbear/internal/domain"
)

type snapshotResponse struct {
	LatestTrade *struct {
		P float64 `json:"p"`
	} `json:"latestTrade"`
	DailyBar     *barJSON `json:"dailyBar"`
	PrevDailyBar *barJSON `json:"prevDailyBar"`
}

// GetQuote returns the latest trade price, the previous session close and
// today's volume. The last price falls back to today's bar close.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = strings.ToUpper(symbol)

	return cached(c, clientdata.TableAlpacaQuotes, symbol, clientdata.TTLQuote, func() (*domain.Quote, error) {
		var snap snapshotResponse
		params := map[string]string{"feed": c.feed}
		if err := c.get(ctx, c.data, "/v2/stocks/"+symbol+"/snapshot", params, &snap); err != nil {
			return nil, fmt.Errorf("failed to fetch snapshot for %s: %w", symbol, err)
		}

		q := &domain.Quote{Symbol: symbol}
		switch {
		case snap.LatestTrade != nil && snap.LatestTrade.P > 0:
			q.LastPrice = ptr(snap.LatestTrade.P)
		case snap.DailyBar != nil:
			q.LastPrice = ptr(snap.DailyBar.C)
		}
		if snap.PrevDailyBar != nil {
			q.PreviousClose = ptr(snap.PrevDailyBar.C)
		}
		if snap.DailyBar != nil {
			q.Volume = ptr(snap.DailyBar.V)
		}
		if q.LastPrice == nil {
			return nil, fmt.Errorf("%w: price for %s", ErrNoData, symbol)
		}
		return q, nil
	})
}

func ptr(v float64) *float64 {
	return &v
}
