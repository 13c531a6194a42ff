package formulas

import (
	"github.com/markcheno/go-talib"
)

// BollingerBands represents Bollinger Bands values
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// CalculateBollingerBands calculates Bollinger Bands
//
// Bollinger Bands Formula:
//
//	Middle Band = N-day SMA
//	Upper Band = Middle + (k × std deviation)
//	Lower Band = Middle - (k × std deviation)
//
// Returns:
//
//	BollingerBands struct or nil if insufficient data
func CalculateBollingerBands(closes []float64, length int, stdDevMultiplier float64) *BollingerBands {
	if length <= 0 || len(closes) < length {
		return nil
	}

	// MAType 0 = SMA (Simple Moving Average)
	upper, middle, lower := talib.BBands(closes, length, stdDevMultiplier, stdDevMultiplier, 0)

	last := len(upper) - 1
	if last < 0 || isNaN(upper[last]) {
		return nil
	}

	return &BollingerBands{
		Upper:  upper[last],
		Middle: middle[last],
		Lower:  lower[last],
	}
}
