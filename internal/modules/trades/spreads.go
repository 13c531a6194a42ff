// Package trades turns strongly bullish and bearish tickers into credit
// spread candidates from live option chains.
package trades

import (
	"math"
	"sort"

	"github.com/aristath/bullbear/internal/domain"
	"github.com/aristath/bullbear/pkg/formulas"
)

// OptionQuote is one option contract
type OptionQuote = domain.OptionQuote

// Chain is the option chain of one expiration
type Chain = domain.OptionChain

// Strategy names
const (
	StrategyBullPut  = "Bull Put"
	StrategyBearCall = "Bear Call"
)

// Spread is a two-leg vertical credit spread. Dollar amounts are per
// contract (100 shares); all values are rounded to two decimals.
type Spread struct {
	Ticker               string  `json:"ticker"`
	CurrentPrice         float64 `json:"current_price"`
	Strategy             string  `json:"strategy"`
	PercentFromStrike    float64 `json:"percent_from_strike"`
	ShortStrike          float64 `json:"short_strike"`
	LongStrike           float64 `json:"long_strike"`
	ShortStrikePrice     float64 `json:"short_strike_price"`
	LongStrikeCredit     float64 `json:"long_strike_credit"`
	MaxLoss              float64 `json:"max_loss"`
	MaxProfit            float64 `json:"max_profit"`
	Width                float64 `json:"width"`
	PercentProfitOfWidth float64 `json:"percent_profit_of_width"`
	AvgOI                float64 `json:"avg_oi"`
	Expiration           string  `json:"expiration"`
}

// Credit is the premium collected per share.
func (s Spread) Credit() float64 {
	return s.ShortStrikePrice - s.LongStrikeCredit
}

// FindBullPutSpreads pairs adjacent put strikes from the highest down,
// selling the higher strike and buying the next lower one. Pairs are kept
// only when both strikes are below price, the short bid and long ask are
// known and the net credit is positive. Ticker and expiration are left
// blank for the caller.
func FindBullPutSpreads(puts []OptionQuote, price float64) []Spread {
	sorted := sortedByStrike(puts, true)

	var spreads []Spread
	for i := 0; i+1 < len(sorted); i++ {
		short, long := sorted[i], sorted[i+1]
		if !known(short.Bid) || !known(long.Ask) {
			continue
		}
		if short.Strike >= price || long.Strike >= price {
			continue
		}
		credit := *short.Bid - *long.Ask
		if credit <= 0 {
			continue
		}
		spreads = append(spreads, newSpread(StrategyBullPut, short, long, price, credit, short.Strike-long.Strike, price-short.Strike))
	}
	return spreads
}

// FindBearCallSpreads pairs adjacent call strikes from the lowest up,
// selling the lower strike and buying the next higher one, with both
// strikes above price.
func FindBearCallSpreads(calls []OptionQuote, price float64) []Spread {
	sorted := sortedByStrike(calls, false)

	var spreads []Spread
	for i := 0; i+1 < len(sorted); i++ {
		short, long := sorted[i], sorted[i+1]
		if !known(short.Bid) || !known(long.Ask) {
			continue
		}
		if short.Strike <= price || long.Strike <= price {
			continue
		}
		credit := *short.Bid - *long.Ask
		if credit <= 0 {
			continue
		}
		spreads = append(spreads, newSpread(StrategyBearCall, short, long, price, credit, long.Strike-short.Strike, short.Strike-price))
	}
	return spreads
}

func newSpread(strategy string, short, long OptionQuote, price, credit, width, distance float64) Spread {
	var pctOfWidth float64
	if width != 0 {
		pctOfWidth = 100 * credit / width
	}
	return Spread{
		CurrentPrice:         formulas.Round2(price),
		Strategy:             strategy,
		PercentFromStrike:    formulas.Round2(100 * distance / price),
		ShortStrike:          formulas.Round2(short.Strike),
		LongStrike:           formulas.Round2(long.Strike),
		ShortStrikePrice:     formulas.Round2(*short.Bid),
		LongStrikeCredit:     formulas.Round2(*long.Ask),
		MaxLoss:              formulas.Round2((width - credit) * 100),
		MaxProfit:            formulas.Round2(credit * 100),
		Width:                formulas.Round2(width),
		PercentProfitOfWidth: formulas.Round2(pctOfWidth),
		AvgOI:                formulas.Round2((openInterest(short) + openInterest(long)) / 2),
	}
}

func sortedByStrike(quotes []OptionQuote, descending bool) []OptionQuote {
	sorted := make([]OptionQuote, len(quotes))
	copy(sorted, quotes)
	sort.SliceStable(sorted, func(i, j int) bool {
		if descending {
			return sorted[i].Strike > sorted[j].Strike
		}
		return sorted[i].Strike < sorted[j].Strike
	})
	return sorted
}

func known(v *float64) bool {
	return v != nil && !math.IsNaN(*v)
}

func openInterest(q OptionQuote) float64 {
	if !known(q.OpenInterest) {
		return 0
	}
	return *q.OpenInterest
}
