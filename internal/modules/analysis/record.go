// Package analysis runs the strategy evaluator over batches of indicator
// snapshots and persists the results as daily JSON files.
package analysis

import (
	"github.com/aristath/bullbear/internal/modules/strategy"
)

// Forward holding windows, in trading days, recorded for backtests
var ForwardWindows = []int{5, 10, 25}

// Record is the analysis of one ticker on one date
type Record struct {
	Ticker         string                      `json:"ticker"`
	Signals        map[string]strategy.Outcome `json:"signals"`
	CombinedSignal strategy.CombinedSignal     `json:"combined_signal"`
	EarningsNearby bool                        `json:"earnings_nearby"`
	EarningsDate   *string                     `json:"earnings_date"`
	DaysToEarnings *int                        `json:"days_to_earnings"`
	CurrentPrice   *float64                    `json:"current_price"`
	High52W        *float64                    `json:"high_52w"`
	Low52W         *float64                    `json:"low_52w"`

	// Backtest enrichment
	EntryPrice *float64 `json:"entry_price,omitempty"`
	Price5D    *float64 `json:"price_5d,omitempty"`
	Price10D   *float64 `json:"price_10d,omitempty"`
	Price25D   *float64 `json:"price_25d,omitempty"`
}

// PriceAfter returns the recorded price the given number of trading days
// after the record date. Only the ForwardWindows are recorded.
func (r Record) PriceAfter(days int) *float64 {
	switch days {
	case 5:
		return r.Price5D
	case 10:
		return r.Price10D
	case 25:
		return r.Price25D
	default:
		return nil
	}
}

func (r *Record) setPriceAfter(days int, price *float64) {
	switch days {
	case 5:
		r.Price5D = price
	case 10:
		r.Price10D = price
	case 25:
		r.Price25D = price
	}
}

// Stats counts the outcome of a batch
type Stats struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
}
