// Package backtest replays stored analysis files to measure how often a
// bull put spread placed below a strongly bullish ticker would have held.
package backtest

import (
	"errors"
	"fmt"
)

// BreachWindows are the windows, in trading days, of the breach counters
var BreachWindows = []int{5, 10, 25}

// Config is the immutable parameter set of a backtest run
type Config struct {
	// ProtectionLevels are fractions below entry (0.10 = short strike 10%
	// under entry). The first level drives the breach counters.
	ProtectionLevels []float64 `json:"protection_levels" yaml:"protection_levels"`
	// HoldingPeriods are in trading days
	HoldingPeriods []int `json:"holding_periods" yaml:"holding_periods"`
}

// DefaultConfig returns the production backtest parameters.
func DefaultConfig() Config {
	return Config{
		ProtectionLevels: []float64{0.10, 0.07, 0.05},
		HoldingPeriods:   []int{5, 10, 25},
	}
}

// Validate checks ranges and duplicates. Protection levels must be strictly
// monotonic, ascending or descending; the caller's first level is the one
// the breach counters use.
func (c Config) Validate() error {
	if len(c.ProtectionLevels) == 0 {
		return errors.New("no protection levels")
	}
	if len(c.HoldingPeriods) == 0 {
		return errors.New("no holding periods")
	}

	seenP := make(map[float64]bool)
	for _, p := range c.ProtectionLevels {
		if p <= 0 || p >= 1 {
			return fmt.Errorf("protection level %v outside (0, 1)", p)
		}
		if seenP[p] {
			return fmt.Errorf("duplicate protection level %v", p)
		}
		seenP[p] = true
	}
	if !strictlyMonotonic(c.ProtectionLevels) {
		return fmt.Errorf("protection levels %v are not strictly ordered", c.ProtectionLevels)
	}

	seenH := make(map[int]bool)
	for _, h := range c.HoldingPeriods {
		if h <= 0 {
			return fmt.Errorf("holding period %d must be positive", h)
		}
		if seenH[h] {
			return fmt.Errorf("duplicate holding period %d", h)
		}
		seenH[h] = true
	}
	return nil
}

func (c Config) clone() Config {
	return Config{
		ProtectionLevels: append([]float64(nil), c.ProtectionLevels...),
		HoldingPeriods:   append([]int(nil), c.HoldingPeriods...),
	}
}

func strictlyMonotonic(levels []float64) bool {
	up, down := true, true
	for i := 1; i < len(levels); i++ {
		if levels[i] <= levels[i-1] {
			up = false
		}
		if levels[i] >= levels[i-1] {
			down = false
		}
	}
	return up || down
}
