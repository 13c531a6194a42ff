package strategy

import "fmt"

// Kind identifies the evaluation logic of a rule
type Kind string

const (
	KindSMACrossover           Kind = "sma_crossover"
	KindEMACrossover           Kind = "ema_crossover"
	KindADXTrend               Kind = "adx_trend"
	KindMACDCrossover          Kind = "macd_crossover"
	KindRSIBollinger           Kind = "rsi_bollinger"
	KindSupportConfirmation    Kind = "support_confirmation"
	KindResistanceConfirmation Kind = "resistance_confirmation"
	KindHighVolatility         Kind = "high_volatility"
	KindRelativeStrength       Kind = "relative_strength"
)

// Params tunes a rule. Nil fields take the defaults of the kind; an explicit
// zero is kept.
type Params struct {
	ADXThreshold       *float64 `json:"adx_threshold,omitempty"`
	Overbought         *float64 `json:"overbought,omitempty"`
	Oversold           *float64 `json:"oversold,omitempty"`
	ATRThreshold       *float64 `json:"atr_threshold,omitempty"`
	BandWidthThreshold *float64 `json:"band_width_threshold,omitempty"`
}

// tuning is Params with every default resolved
type tuning struct {
	adxThreshold       float64
	overbought         float64
	oversold           float64
	atrThreshold       float64
	bandWidthThreshold float64
}

func (p Params) resolve() tuning {
	return tuning{
		adxThreshold:       valueOr(p.ADXThreshold, 20),
		overbought:         valueOr(p.Overbought, 70),
		oversold:           valueOr(p.Oversold, 30),
		atrThreshold:       valueOr(p.ATRThreshold, 1.0),
		bandWidthThreshold: valueOr(p.BandWidthThreshold, 0.05),
	}
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

// Inputs are the values a rule sees: the current price and the combo
// values in combo order. Both are always present when a rule is evaluated.
type Inputs struct {
	Price  float64
	Values []float64
}

// Verdict is the raw result of a kind's evaluation
type Verdict struct {
	Label Label
	// Score is set only by relative_strength
	Score *float64
}

type kindSpec struct {
	minCombo int
	eval     func(in Inputs, p tuning) Verdict
}

var kinds = map[Kind]kindSpec{
	KindSMACrossover:           {minCombo: 2, eval: crossover(LabelStronglyBullish, LabelStronglyBearish)},
	KindEMACrossover:           {minCombo: 2, eval: crossover(LabelMediumBullish, LabelMediumBearish)},
	KindMACDCrossover:          {minCombo: 2, eval: crossover(LabelBullishCrossover, LabelBearishCrossover)},
	KindADXTrend:               {minCombo: 3, eval: evalADXTrend},
	KindRSIBollinger:           {minCombo: 3, eval: evalRSIBollinger},
	KindSupportConfirmation:    {minCombo: 1, eval: evalSupport},
	KindResistanceConfirmation: {minCombo: 1, eval: evalResistance},
	KindHighVolatility:         {minCombo: 3, eval: evalHighVolatility},
	KindRelativeStrength:       {minCombo: 3, eval: evalRelativeStrength},
}

// legacyKinds resolves rule names of older strategy documents that carry no
// explicit kind.
var legacyKinds = map[string]Kind{
	"Trend Crossover: SMA":                           KindSMACrossover,
	"Trend Crossover: EMA":                           KindEMACrossover,
	"Trend Strength with ADX":                        KindADXTrend,
	"MACD Crossover":                                 KindMACDCrossover,
	"Overbought/Oversold with RSI & Bollinger Bands": KindRSIBollinger,
	"Support Confirmation for Bull Put":              KindSupportConfirmation,
	"Resistance Confirmation for Bear Call":          KindResistanceConfirmation,
	"High Volatility Opportunity":                    KindHighVolatility,
	"Relative Strength & Position for Bull Put":      KindRelativeStrength,
}

// ParseKind validates a kind name.
func ParseKind(name string) (Kind, error) {
	k := Kind(name)
	if _, ok := kinds[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
	return k, nil
}

// MinCombo returns the number of combo indicators the kind reads.
func (k Kind) MinCombo() int {
	return kinds[k].minCombo
}

// Evaluate runs the kind's logic.
func (k Kind) Evaluate(in Inputs, p Params) Verdict {
	spec, ok := kinds[k]
	if !ok {
		return Verdict{Label: LabelNeutral}
	}
	return spec.eval(in, p.resolve())
}

func crossover(above, below Label) func(Inputs, tuning) Verdict {
	return func(in Inputs, _ tuning) Verdict {
		a, b := in.Values[0], in.Values[1]
		switch {
		case a > b:
			return Verdict{Label: above}
		case a < b:
			return Verdict{Label: below}
		default:
			return Verdict{Label: LabelNeutral}
		}
	}
}

func evalADXTrend(in Inputs, p tuning) Verdict {
	adx, fast, slow := in.Values[0], in.Values[1], in.Values[2]
	if adx > p.adxThreshold {
		if fast > slow {
			return Verdict{Label: LabelStronglyBullish}
		}
		if fast < slow {
			return Verdict{Label: LabelStronglyBearish}
		}
	}
	return Verdict{Label: LabelWeaklyNeutral}
}

// combo: rsi, bb_upper, bb_lower
func evalRSIBollinger(in Inputs, p tuning) Verdict {
	rsi, upper, lower := in.Values[0], in.Values[1], in.Values[2]
	switch {
	case rsi > p.overbought && in.Price > upper:
		return Verdict{Label: LabelStronglyOverbought}
	case rsi < p.oversold && in.Price < lower:
		return Verdict{Label: LabelStronglyOversold}
	default:
		return Verdict{Label: LabelNeutral}
	}
}

func evalSupport(in Inputs, _ tuning) Verdict {
	for _, level := range in.Values {
		if !(in.Price > level) {
			return Verdict{Label: LabelWeaklyBullish}
		}
	}
	return Verdict{Label: LabelStronglyBullish}
}

func evalResistance(in Inputs, _ tuning) Verdict {
	for _, level := range in.Values {
		if !(in.Price < level) {
			return Verdict{Label: LabelWeaklyBearish}
		}
	}
	return Verdict{Label: LabelStronglyBearish}
}

// combo: atr, bb_upper, bb_lower
func evalHighVolatility(in Inputs, p tuning) Verdict {
	atr, upper, lower := in.Values[0], in.Values[1], in.Values[2]
	if in.Price != 0 && atr > p.atrThreshold && (upper-lower)/in.Price > p.bandWidthThreshold {
		return Verdict{Label: LabelHighVolatility}
	}
	return Verdict{Label: LabelNormalVolatility}
}

// Relative strength cutpoints, in percent
const (
	ytdStrong       = 10.0
	ytdModerate     = 0.5
	ytdWeak         = -10.0
	ytdVeryWeak     = -20.0
	fromLowStrong   = 50.0
	fromLowModerate = 20.0
	fromLowNear     = 5.0
	fromHighClose   = -20.0
	fromHighMid     = -40.0
	fromHighFar     = -50.0
)

// combo: pct_ytd_return, pct_from_52w_low, pct_from_52w_high.
// Scenarios are checked in order and the first match wins.
func evalRelativeStrength(in Inputs, _ tuning) Verdict {
	ytd, fromLow, fromHigh := in.Values[0], in.Values[1], in.Values[2]

	score := func(label Label, s float64) Verdict {
		return Verdict{Label: label, Score: &s}
	}

	switch {
	case ytd > ytdStrong && fromLow > fromLowStrong && fromHigh > fromHighMid:
		return score(LabelStronglyBullish, 1.0)
	case ((ytdModerate <= ytd && ytd <= ytdStrong) || (ytdWeak < ytd && ytd < ytdModerate)) &&
		fromLow > fromLowModerate && fromHigh > fromHighFar:
		return score(LabelMediumBullish, 0.6)
	case ytdWeak <= ytd && ytd <= ytdModerate &&
		fromLowNear <= fromLow && fromLow <= fromLowStrong &&
		fromHighFar <= fromHigh && fromHigh <= fromHighClose:
		return score(LabelNeutral, 0.2)
	case ytd < ytdWeak && fromLow < fromLowModerate && fromHigh < fromHighMid:
		return score(LabelWeaklyBearish, -0.4)
	case ytd < ytdVeryWeak && fromLow <= fromLowNear:
		return score(LabelStronglyBearish, -1.0)
	default:
		return score(LabelNeutral, 0.0)
	}
}

// scoreStrength maps a relative strength score onto the strength scale
func scoreStrength(score float64) Strength {
	switch score {
	case 1.0:
		return 3
	case 0.6:
		return 2
	case -0.4:
		return -1
	case -1.0:
		return -3
	default:
		return 0
	}
}
