package formulas

import (
	"github.com/markcheno/go-talib"
)

// CalculateSMA calculates the Simple Moving Average
//
// Args:
//
//	closes: Array of closing prices
//	length: SMA period (20, 50 or 200 for snapshots)
//
// Returns:
//
//	Current SMA value or nil if insufficient data
func CalculateSMA(closes []float64, length int) *float64 {
	if length <= 0 || len(closes) < length {
		return nil
	}

	return lastValid(talib.Sma(closes, length))
}

// CalculateEMA calculates the Exponential Moving Average
//
// EMA Formula:
//
//	EMA_today = (Price_today × multiplier) + (EMA_yesterday × (1 - multiplier))
//	where multiplier = 2 / (period + 1)
//
// Unlike the SMA fallback used by some scorers, snapshots need a full window:
// fewer than length closes yields nil.
func CalculateEMA(closes []float64, length int) *float64 {
	if length <= 0 || len(closes) < length {
		return nil
	}

	return lastValid(talib.Ema(closes, length))
}

// MACD holds the most recent MACD line, signal line and histogram values
type MACD struct {
	Line      float64 `json:"macd"`
	Signal    float64 `json:"macd_signal"`
	Histogram float64 `json:"macd_hist"`
}

// CalculateMACD calculates MACD(fast, slow, signal), typically (12, 26, 9).
// Returns nil until both the MACD line and its signal line are defined.
func CalculateMACD(closes []float64, fast, slow, signal int) *MACD {
	if fast <= 0 || slow <= fast || signal <= 0 {
		return nil
	}
	if len(closes) < slow+signal-1 {
		return nil
	}

	line, sig, hist := talib.Macd(closes, fast, slow, signal)
	last := len(closes) - 1
	if last >= len(sig) || isNaN(line[last]) || isNaN(sig[last]) {
		return nil
	}

	return &MACD{
		Line:      line[last],
		Signal:    sig[last],
		Histogram: hist[last],
	}
}
