// Package domain provides core domain models and types.
package domain

import "fmt"

// Indicator names one technical value carried by a Snapshot.
// The string form is the column name used in indicator files and the name
// strategies reference in their combos.
type Indicator string

const (
	IndicatorLatestVolume   Indicator = "latest_volume"
	IndicatorRSI14          Indicator = "rsi_14"
	IndicatorSMA20          Indicator = "sma_20"
	IndicatorSMA50          Indicator = "sma_50"
	IndicatorSMA200         Indicator = "sma_200"
	IndicatorEMA12          Indicator = "ema_12"
	IndicatorEMA20          Indicator = "ema_20"
	IndicatorEMA50          Indicator = "ema_50"
	IndicatorEMA200         Indicator = "ema_200"
	IndicatorMACD           Indicator = "macd"
	IndicatorMACDSignal     Indicator = "macd_signal"
	IndicatorBBUpper        Indicator = "bb_upper"
	IndicatorBBMiddle       Indicator = "bb_middle"
	IndicatorBBLower        Indicator = "bb_lower"
	IndicatorATR14          Indicator = "atr_14"
	IndicatorADX14          Indicator = "adx_14"
	IndicatorSupport20      Indicator = "support_20"
	IndicatorResistance20   Indicator = "resistance_20"
	IndicatorSupport75      Indicator = "support_75"
	IndicatorResistance75   Indicator = "resistance_75"
	IndicatorSupport200     Indicator = "support_200"
	IndicatorResistance200  Indicator = "resistance_200"
	IndicatorPctYTDReturn   Indicator = "pct_ytd_return"
	IndicatorLow52W         Indicator = "low_52w"
	IndicatorHigh52W        Indicator = "high_52w"
	IndicatorRangePosPct    Indicator = "range_pos_pct"
	IndicatorPctFrom52WHigh Indicator = "pct_from_52w_high"
	IndicatorPctFrom52WLow  Indicator = "pct_from_52w_low"
)

// AllIndicators lists every indicator in indicator file column order.
var AllIndicators = []Indicator{
	IndicatorLatestVolume,
	IndicatorRSI14,
	IndicatorSMA20, IndicatorSMA50, IndicatorSMA200,
	IndicatorEMA12, IndicatorEMA20, IndicatorEMA50, IndicatorEMA200,
	IndicatorMACD, IndicatorMACDSignal,
	IndicatorBBUpper, IndicatorBBMiddle, IndicatorBBLower,
	IndicatorATR14, IndicatorADX14,
	IndicatorSupport20, IndicatorResistance20,
	IndicatorSupport75, IndicatorResistance75,
	IndicatorSupport200, IndicatorResistance200,
	IndicatorPctYTDReturn, IndicatorLow52W, IndicatorHigh52W, IndicatorRangePosPct,
	IndicatorPctFrom52WHigh, IndicatorPctFrom52WLow,
}

var knownIndicators = func() map[Indicator]bool {
	m := make(map[Indicator]bool, len(AllIndicators))
	for _, ind := range AllIndicators {
		m[ind] = true
	}
	return m
}()

// ParseIndicator validates an indicator name.
func ParseIndicator(name string) (Indicator, error) {
	ind := Indicator(name)
	if !knownIndicators[ind] {
		return "", fmt.Errorf("unknown indicator %q", name)
	}
	return ind, nil
}

func (i Indicator) String() string {
	return string(i)
}
