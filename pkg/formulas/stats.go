// Package formulas provides the technical indicator math used to build
// indicator snapshots. Every calculation returns nil when the input series
// is too short, never a zero placeholder.
package formulas

import (
	"math"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Min returns the smallest value or nil for an empty series
func Min(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := floats.Min(values)
	return &v
}

// Max returns the largest value or nil for an empty series
func Max(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := floats.Max(values)
	return &v
}

// Mean returns the arithmetic mean or nil for an empty series
func Mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := stat.Mean(values, nil)
	return &v
}

// VolumeSpike reports whether the latest volume exceeds threshold times the
// mean of the preceding window volumes.
func VolumeSpike(volumes []float64, window int, threshold float64) bool {
	if window <= 0 || len(volumes) < window+1 {
		return false
	}
	avg := stat.Mean(volumes[len(volumes)-window-1:len(volumes)-1], nil)
	return volumes[len(volumes)-1] > avg*threshold
}

// Round2 rounds half away from zero to two decimal places.
// Non-finite values are returned unchanged.
func Round2(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Round2Ptr rounds an optional value, preserving nil.
func Round2Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := Round2(*v)
	return &r
}

// lastValid returns the final element of a talib output series, or nil when
// the series is empty or the value is still in the lookback (NaN).
func lastValid(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	if isNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// isNaN checks if a float64 is NaN
func isNaN(f float64) bool {
	return f != f
}
