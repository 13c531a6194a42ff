package strategy

import (
	"time"

	"github.com/aristath/bullbear/internal/domain"
	"github.com/rs/zerolog"
)

// Outcome is the verdict of one rule for one snapshot
type Outcome struct {
	Signal   Label     `json:"signal"`
	Category string    `json:"type"`
	Weight   float64   `json:"weight"`
	Strength *Strength `json:"strength,omitempty"` // nil when data was insufficient
	Score    *float64  `json:"score,omitempty"`
}

// CombinedSignal is the weighted summary of all rule outcomes
type CombinedSignal struct {
	Value float64 `json:"value"`
	Text  string  `json:"text"`
}

// Result is the evaluation of one snapshot
type Result struct {
	Ticker         string
	Signals        map[string]Outcome
	Combined       CombinedSignal
	EarningsDate   *string
	DaysToEarnings *int
	EarningsNearby bool
}

// Config holds the evaluator's tunables. Zero thresholds and a nil earnings
// window take defaults.
type Config struct {
	Thresholds Thresholds
	// EarningsWindowDays of 0 flags only same-day earnings
	EarningsWindowDays *int
	// Now supplies "today" for earnings proximity
	Now func() time.Time
}

// Evaluator scores snapshots against a rule set
type Evaluator struct {
	rules      *RuleSet
	thresholds Thresholds
	window     int
	now        func() time.Time
	log        zerolog.Logger
}

// NewEvaluator creates an evaluator. The rule set and config are not
// modified afterwards.
func NewEvaluator(rules *RuleSet, cfg Config, log zerolog.Logger) *Evaluator {
	if cfg.Thresholds == (Thresholds{}) {
		cfg.Thresholds = DefaultThresholds()
	}
	window := DefaultEarningsWindowDays
	if cfg.EarningsWindowDays != nil {
		window = *cfg.EarningsWindowDays
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Evaluator{
		rules:      rules,
		thresholds: cfg.Thresholds,
		window:     window,
		now:        cfg.Now,
		log:        log.With().Str("component", "strategy_evaluator").Logger(),
	}
}

// Rules returns the rule set in use.
func (e *Evaluator) Rules() *RuleSet {
	return e.rules
}

// Thresholds returns the cutpoints in use.
func (e *Evaluator) Thresholds() Thresholds {
	return e.thresholds
}

// Evaluate runs every rule against the snapshot and combines the results.
//
// A rule whose combo has an absent value, or any rule when the current
// price is absent, is reported as insufficient data and is left out of both
// sides of the weighted average.
func (e *Evaluator) Evaluate(snap domain.Snapshot) Result {
	res := Result{
		Ticker:       snap.Ticker,
		Signals:      make(map[string]Outcome, len(e.rules.Rules)),
		EarningsDate: snap.EarningsDate,
	}

	var weighted, totalWeight float64
	for _, rule := range e.rules.Rules {
		out := e.evaluateRule(rule, snap)
		res.Signals[rule.Name] = out
		if out.Strength == nil {
			continue
		}
		weighted += float64(*out.Strength) * rule.Weight
		totalWeight += rule.Weight
	}

	var value float64
	if totalWeight > 0 {
		value = weighted / totalWeight
	}
	res.Combined = CombinedSignal{Value: value, Text: e.thresholds.Label(value)}

	days, nearby, err := earningsProximity(snap.EarningsDate, e.now(), e.window)
	if err != nil {
		e.log.Warn().Err(err).Str("ticker", snap.Ticker).Msg("Ignoring earnings date")
	}
	res.DaysToEarnings = days
	res.EarningsNearby = nearby

	return res
}

func (e *Evaluator) evaluateRule(rule Rule, snap domain.Snapshot) Outcome {
	out := Outcome{Category: rule.Category, Weight: rule.Weight, Signal: LabelInsufficientData}
	if snap.CurrentPrice == nil {
		return out
	}

	values := make([]float64, len(rule.Combo))
	for i, ind := range rule.Combo {
		v := snap.Value(ind)
		if v == nil {
			return out
		}
		values[i] = *v
	}

	verdict := rule.Kind.Evaluate(Inputs{Price: *snap.CurrentPrice, Values: values}, rule.Params)

	var strength Strength
	if verdict.Score != nil {
		strength = scoreStrength(*verdict.Score)
	} else {
		s, ok := verdict.Label.Strength()
		if !ok {
			e.log.Warn().Str("rule", rule.Name).Str("label", string(verdict.Label)).Msg("Label has no strength, scoring as neutral")
		}
		strength = s
	}

	out.Signal = verdict.Label
	out.Strength = &strength
	out.Score = verdict.Score
	return out
}
