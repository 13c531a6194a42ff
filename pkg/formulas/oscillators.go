package formulas

import (
	"github.com/markcheno/go-talib"
)

// CalculateRSI calculates the Relative Strength Index
//
// RSI Formula:
//
//	RSI = 100 - (100 / (1 + RS))
//	where RS = Average Gain / Average Loss over N periods
//
// Returns:
//
//	Current RSI value (0-100) or nil if insufficient data
func CalculateRSI(closes []float64, length int) *float64 {
	if length <= 0 || len(closes) < length+1 {
		return nil
	}

	return lastValid(talib.Rsi(closes, length))
}

// CalculateATR calculates the Average True Range over period bars.
func CalculateATR(highs, lows, closes []float64, period int) *float64 {
	if !sameLength(highs, lows, closes) || period <= 0 || len(closes) < period+1 {
		return nil
	}

	return lastValid(talib.Atr(highs, lows, closes, period))
}

// CalculateADX calculates the Average Directional Index over period bars.
// ADX needs roughly two periods of history before its first value.
func CalculateADX(highs, lows, closes []float64, period int) *float64 {
	if !sameLength(highs, lows, closes) || period <= 0 || len(closes) < 2*period+1 {
		return nil
	}

	return lastValid(talib.Adx(highs, lows, closes, period))
}

func sameLength(series ...[]float64) bool {
	for _, s := range series[1:] {
		if len(s) != len(series[0]) {
			return false
		}
	}
	return true
}
