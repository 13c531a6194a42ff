package alpaca

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aristath/bullbear/internal/clientdata"
	"github.com/aristath/bullbear/internal/domain"
)

// expirationHorizonDays bounds how far ahead expirations are listed.
const expirationHorizonDays = 70

type contractJSON struct {
	Symbol         string  `json:"symbol"`
	ExpirationDate string  `json:"expiration_date"`
	Type           string  `json:"type"`
	StrikePrice    string  `json:"strike_price"`
	OpenInterest   *string `json:"open_interest"`
}

type contractsResponse struct {
	Contracts     []contractJSON `json:"option_contracts"`
	NextPageToken *string        `json:"next_page_token"`
}

type optionSnapshotJSON struct {
	LatestQuote *struct {
		Bid float64 `json:"bp"`
		Ask float64 `json:"ap"`
	} `json:"latestQuote"`
}

type optionSnapshotsResponse struct {
	Snapshots     map[string]optionSnapshotJSON `json:"snapshots"`
	NextPageToken *string                       `json:"next_page_token"`
}

// GetExpirations lists the distinct expirations of active contracts on
// symbol within the next ten weeks, ascending.
func (c *Client) GetExpirations(ctx context.Context, symbol string) ([]string, error) {
	symbol = strings.ToUpper(symbol)
	today := c.tradingDate(c.now())
	params := map[string]string{
		"underlying_symbols":  symbol,
		"status":              "active",
		"expiration_date_gte": today.Format("2006-01-02"),
		"expiration_date_lte": today.AddDate(0, 0, expirationHorizonDays).Format("2006-01-02"),
	}
	key := symbol + "|" + today.Format("2006-01-02")

	return cached(c, clientdata.TableAlpacaExpirations, key, clientdata.TTLExpirations, func() ([]string, error) {
		contracts, err := c.listContracts(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to list expirations for %s: %w", symbol, err)
		}

		seen := make(map[string]bool)
		var out []string
		for _, ct := range contracts {
			if ct.ExpirationDate != "" && !seen[ct.ExpirationDate] {
				seen[ct.ExpirationDate] = true
				out = append(out, ct.ExpirationDate)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: expirations for %s", ErrNoData, symbol)
		}
		sort.Strings(out)
		return out, nil
	})
}

// GetOptionChain joins the contracts of one expiration (strike, type, open
// interest) with their latest quotes (bid, ask). Contracts without a quote
// keep nil bid and ask.
func (c *Client) GetOptionChain(ctx context.Context, symbol, expiration string) (*domain.OptionChain, error) {
	symbol = strings.ToUpper(symbol)
	key := symbol + "|" + expiration

	return cached(c, clientdata.TableAlpacaOptionChains, key, clientdata.TTLOptionChain, func() (*domain.OptionChain, error) {
		contracts, err := c.listContracts(ctx, map[string]string{
			"underlying_symbols": symbol,
			"status":             "active",
			"expiration_date":    expiration,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list contracts for %s %s: %w", symbol, expiration, err)
		}
		quotes, err := c.optionQuotes(ctx, symbol, expiration)
		if err != nil {
			return nil, fmt.Errorf("failed to load option quotes for %s %s: %w", symbol, expiration, err)
		}

		chain := &domain.OptionChain{Expiration: expiration}
		for _, ct := range contracts {
			strike, err := strconv.ParseFloat(ct.StrikePrice, 64)
			if err != nil {
				c.log.Debug().Str("contract", ct.Symbol).Str("strike", ct.StrikePrice).Msg("Skipping contract with bad strike")
				continue
			}
			q := domain.OptionQuote{Strike: strike}
			if ct.OpenInterest != nil {
				if oi, err := strconv.ParseFloat(*ct.OpenInterest, 64); err == nil {
					q.OpenInterest = &oi
				}
			}
			if snap, ok := quotes[ct.Symbol]; ok && snap.LatestQuote != nil {
				q.Bid = ptr(snap.LatestQuote.Bid)
				q.Ask = ptr(snap.LatestQuote.Ask)
			}

			switch ct.Type {
			case "call":
				chain.Calls = append(chain.Calls, q)
			case "put":
				chain.Puts = append(chain.Puts, q)
			}
		}
		if len(chain.Calls) == 0 && len(chain.Puts) == 0 {
			return nil, fmt.Errorf("%w: option chain for %s %s", ErrNoData, symbol, expiration)
		}
		return chain, nil
	})
}

func (c *Client) listContracts(ctx context.Context, params map[string]string) ([]contractJSON, error) {
	params["limit"] = "10000"

	var all []contractJSON
	for {
		var page contractsResponse
		if err := c.get(ctx, c.trading, "/v2/options/contracts", params, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Contracts...)
		if page.NextPageToken == nil || *page.NextPageToken == "" {
			return all, nil
		}
		params["page_token"] = *page.NextPageToken
	}
}

func (c *Client) optionQuotes(ctx context.Context, symbol, expiration string) (map[string]optionSnapshotJSON, error) {
	params := map[string]string{
		"feed":            "indicative",
		"expiration_date": expiration,
		"limit":           "1000",
	}

	out := make(map[string]optionSnapshotJSON)
	for {
		var page optionSnapshotsResponse
		if err := c.get(ctx, c.data, "/v1beta1/options/snapshots/"+symbol, params, &page); err != nil {
			return nil, err
		}
		for k, v := range page.Snapshots {
			out[k] = v
		}
		if page.NextPageToken == nil || *page.NextPageToken == "" {
			return out, nil
		}
		params["page_token"] = *page.NextPageToken
	}
}
