package indicators

import (
	"time"

	"github.com/aristath/bullbear/internal/domain"
	"github.com/aristath/bullbear/pkg/formulas"
)

// computeIndicators derives every indicator value the bars support.
// Values are rounded to two decimals; unsupported ones are left out.
func computeIndicators(bars []domain.Bar, asOf time.Time) map[domain.Indicator]float64 {
	values := make(map[domain.Indicator]float64)
	if len(bars) == 0 {
		return values
	}

	set := func(ind domain.Indicator, v *float64) {
		if v != nil {
			values[ind] = formulas.Round2(*v)
		}
	}

	dated := make([]formulas.DatedClose, len(bars))
	for i, bar := range bars {
		dated[i] = formulas.DatedClose{Date: bar.Date, Close: bar.Close}
	}

	window := recent(bars, asOf.AddDate(0, 0, -indicatorLookbackDays))
	closes := make([]float64, len(window))
	highs := make([]float64, len(window))
	lows := make([]float64, len(window))
	for i, bar := range window {
		closes[i] = bar.Close
		highs[i] = bar.High
		lows[i] = bar.Low
	}

	values[domain.IndicatorLatestVolume] = bars[len(bars)-1].Volume

	rsiCloses := closes
	if len(rsiCloses) > rsiWindow {
		rsiCloses = rsiCloses[len(rsiCloses)-rsiWindow:]
	}
	set(domain.IndicatorRSI14, formulas.CalculateRSI(rsiCloses, 14))

	set(domain.IndicatorSMA20, formulas.CalculateSMA(closes, 20))
	set(domain.IndicatorSMA50, formulas.CalculateSMA(closes, 50))
	set(domain.IndicatorSMA200, formulas.CalculateSMA(closes, 200))
	set(domain.IndicatorEMA12, formulas.CalculateEMA(closes, 12))
	set(domain.IndicatorEMA20, formulas.CalculateEMA(closes, 20))
	set(domain.IndicatorEMA50, formulas.CalculateEMA(closes, 50))
	set(domain.IndicatorEMA200, formulas.CalculateEMA(closes, 200))

	if macd := formulas.CalculateMACD(closes, 12, 26, 9); macd != nil {
		set(domain.IndicatorMACD, &macd.Line)
		set(domain.IndicatorMACDSignal, &macd.Signal)
	}

	if bb := formulas.CalculateBollingerBands(closes, 20, 2); bb != nil {
		set(domain.IndicatorBBUpper, &bb.Upper)
		set(domain.IndicatorBBMiddle, &bb.Middle)
		set(domain.IndicatorBBLower, &bb.Lower)
	}

	set(domain.IndicatorATR14, formulas.CalculateATR(highs, lows, closes, 14))
	set(domain.IndicatorADX14, formulas.CalculateADX(highs, lows, closes, 14))

	for _, lvl := range []struct {
		window              int
		support, resistance domain.Indicator
	}{
		{20, domain.IndicatorSupport20, domain.IndicatorResistance20},
		{75, domain.IndicatorSupport75, domain.IndicatorResistance75},
		{200, domain.IndicatorSupport200, domain.IndicatorResistance200},
	} {
		support, resistance := formulas.SupportResistance(highs, lows, lvl.window)
		set(lvl.support, support)
		set(lvl.resistance, resistance)
	}

	rs := formulas.CalculateRangeStats(dated, asOf)
	set(domain.IndicatorPctYTDReturn, rs.YTDReturn)
	set(domain.IndicatorLow52W, rs.Low52W)
	set(domain.IndicatorHigh52W, rs.High52W)
	set(domain.IndicatorRangePosPct, rs.RangePosPct)
	set(domain.IndicatorPctFrom52WHigh, rs.PctFrom52WHigh)
	set(domain.IndicatorPctFrom52WLow, rs.PctFrom52WLow)

	return values
}

func recent(bars []domain.Bar, since time.Time) []domain.Bar {
	for i, bar := range bars {
		if !bar.Date.Before(since) {
			return bars[i:]
		}
	}
	return nil
}
