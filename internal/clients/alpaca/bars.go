package alpaca

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/bullbear/internal/clientdata"
	"github.com/aristath/bullbear/internal/domain"
)

type barJSON struct {
	T time.Time `json:"t"`
	O float64   `json:"o"`
	H float64   `json:"h"`
	L float64   `json:"l"`
	C float64   `json:"c"`
	V float64   `json:"v"`
}

type barsResponse struct {
	Bars          []barJSON `json:"bars"`
	NextPageToken *string   `json:"next_page_token"`
}

// GetDailyBars returns split and dividend adjusted daily bars in [start,
// end], oldest first.
func (c *Client) GetDailyBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	symbol = strings.ToUpper(symbol)
	from, to := start.Format("2006-01-02"), end.Format("2006-01-02")

	ttl := clientdata.TTLHistoricalBars
	if !end.Before(c.tradingDate(c.now())) {
		ttl = clientdata.TTLRecentBars
	}
	key := symbol + "|" + from + "|" + to

	return cached(c, clientdata.TableAlpacaBars, key, ttl, func() ([]domain.Bar, error) {
		return c.fetchBars(ctx, symbol, from, to)
	})
}

func (c *Client) fetchBars(ctx context.Context, symbol, from, to string) ([]domain.Bar, error) {
	params := map[string]string{
		"timeframe":  "1Day",
		"start":      from,
		"end":        to,
		"adjustment": "all",
		"feed":       c.feed,
		"limit":      "10000",
	}

	var bars []domain.Bar
	for {
		var page barsResponse
		if err := c.get(ctx, c.data, "/v2/stocks/"+symbol+"/bars", params, &page); err != nil {
			return nil, fmt.Errorf("failed to fetch bars for %s: %w", symbol, err)
		}
		for _, b := range page.Bars {
			bars = append(bars, domain.Bar{
				Date:   c.tradingDate(b.T),
				Open:   b.O,
				High:   b.H,
				Low:    b.L,
				Close:  b.C,
				Volume: b.V,
			})
		}
		if page.NextPageToken == nil || *page.NextPageToken == "" {
			break
		}
		params["page_token"] = *page.NextPageToken
	}

	if len(bars) == 0 {
		return nil, fmt.Errorf("%w: bars for %s", ErrNoData, symbol)
	}
	c.log.Debug().Str("symbol", symbol).Int("bars", len(bars)).Msg("Fetched daily bars")
	return bars, nil
}
