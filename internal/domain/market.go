package domain

import "time"

// Bar is one daily OHLCV bar
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Quote is the latest market snapshot for a ticker
type Quote struct {
	Symbol        string   `json:"symbol"`
	LastPrice     *float64 `json:"last_price,omitempty"`
	PreviousClose *float64 `json:"previous_close,omitempty"`
	Volume        *float64 `json:"volume,omitempty"`
}

// PercentChange returns the change from the previous close in percent,
// or nil when either price is missing or the previous close is zero.
func (q Quote) PercentChange() *float64 {
	if q.LastPrice == nil || q.PreviousClose == nil || *q.PreviousClose == 0 {
		return nil
	}
	v := 100.0 * (*q.LastPrice - *q.PreviousClose) / *q.PreviousClose
	return &v
}

// CorporateEvents holds the next known event dates (YYYY-MM-DD) for a ticker
type CorporateEvents struct {
	EarningsDate   *string `json:"earnings_date,omitempty"`
	DividendDate   *string `json:"dividend_date,omitempty"`
	ExDividendDate *string `json:"ex_dividend_date,omitempty"`
}

// OptionQuote is one contract of an option chain
type OptionQuote struct {
	Strike       float64  `json:"strike"`
	Bid          *float64 `json:"bid,omitempty"`
	Ask          *float64 `json:"ask,omitempty"`
	OpenInterest *float64 `json:"open_interest,omitempty"`
}

// OptionChain holds calls and puts for one expiration
type OptionChain struct {
	Expiration string        `json:"expiration"` // YYYY-MM-DD
	Calls      []OptionQuote `json:"calls"`
	Puts       []OptionQuote `json:"puts"`
}
