// Package strategy evaluates indicator snapshots against weighted rules and
// combines the rule verdicts into one bull/bear signal.
package strategy

// Label is the verdict one rule gives for one snapshot
type Label string

const (
	LabelStronglyBullish    Label = "strongly bullish"
	LabelMediumBullish      Label = "medium bullish"
	LabelWeaklyBullish      Label = "weakly bullish"
	LabelNeutral            Label = "neutral"
	LabelWeaklyNeutral      Label = "weakly neutral"
	LabelWeaklyBearish      Label = "weakly bearish"
	LabelMediumBearish      Label = "medium bearish"
	LabelStronglyBearish    Label = "strongly bearish"
	LabelBullishCrossover   Label = "bullish crossover"
	LabelBearishCrossover   Label = "bearish crossover"
	LabelStronglyOverbought Label = "strongly overbought"
	LabelStronglyOversold   Label = "strongly oversold"
	LabelHighVolatility     Label = "high volatility"
	LabelNormalVolatility   Label = "normal volatility"

	// LabelInsufficientData marks a rule whose inputs were incomplete
	LabelInsufficientData Label = "Insufficient data"
)

// Strength is a signed score in [-3, 3]
type Strength int

var labelStrength = map[Label]Strength{
	LabelStronglyBullish:    3,
	LabelMediumBullish:      2,
	LabelBullishCrossover:   2,
	LabelWeaklyBullish:      1,
	LabelNeutral:            0,
	LabelWeaklyNeutral:      0,
	LabelNormalVolatility:   0,
	LabelHighVolatility:     0,
	LabelWeaklyBearish:      -1,
	LabelMediumBearish:      -2,
	LabelBearishCrossover:   -2,
	LabelStronglyBearish:    -3,
	LabelStronglyOverbought: 1,
	LabelStronglyOversold:   -1,
}

// Strength returns the score of the label. ok is false for
// LabelInsufficientData and for labels outside the vocabulary.
func (l Label) Strength() (Strength, bool) {
	s, ok := labelStrength[l]
	return s, ok
}

func (l Label) String() string {
	return string(l)
}

// Combined signal texts
const (
	SignalStronglyBullish = "Strongly Bullish"
	SignalMediumBullish   = "Medium Bullish"
	SignalWeaklyBullish   = "Weakly Bullish"
	SignalNeutral         = "Neutral"
	SignalWeaklyBearish   = "Weakly Bearish"
	SignalMediumBearish   = "Medium Bearish"
	SignalStronglyBearish = "Strongly Bearish"
)

// Thresholds are the cutpoints that turn a combined value into a text.
// A value must be strictly above a bullish cutpoint or strictly below the
// negated bearish cutpoint to earn that label.
type Thresholds struct {
	Strong float64 `json:"strong" yaml:"strong"`
	Medium float64 `json:"medium" yaml:"medium"`
	Weak   float64 `json:"weak" yaml:"weak"`
}

// DefaultThresholds is the production cutpoint set used by the daily
// analysis and the backtest.
func DefaultThresholds() Thresholds {
	return Thresholds{Strong: 1.25, Medium: 0.75, Weak: 0.25}
}

// LegacyThresholds is the looser set the old daily report used.
func LegacyThresholds() Thresholds {
	return Thresholds{Strong: 1.0, Medium: 0.5, Weak: 0.25}
}

// Validate checks that the cutpoints are positive and ordered.
func (t Thresholds) Validate() error {
	if !(t.Weak > 0 && t.Weak < t.Medium && t.Medium < t.Strong) {
		return errInvalidThresholds(t)
	}
	return nil
}

// Label maps a combined value to its text.
func (t Thresholds) Label(value float64) string {
	switch {
	case value > t.Strong:
		return SignalStronglyBullish
	case value > t.Medium:
		return SignalMediumBullish
	case value > t.Weak:
		return SignalWeaklyBullish
	case value < -t.Strong:
		return SignalStronglyBearish
	case value < -t.Medium:
		return SignalMediumBearish
	case value < -t.Weak:
		return SignalWeaklyBearish
	default:
		return SignalNeutral
	}
}
