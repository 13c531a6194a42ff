package formulas

// Level is a swing point that qualified as support or resistance
type Level struct {
	Index int     `json:"index"`
	Price float64 `json:"price"`
}

// SwingOptions tunes swing level detection
type SwingOptions struct {
	SwingWindow     int     // bars before/after that must sit beyond the swing point
	RejectionWindow int     // lookback used to count rejections at a level
	Tolerance       float64 // absolute price distance counted as a touch
	MinRejections   int     // touches needed to confirm a level
}

// DefaultSwingOptions returns the snapshot defaults for a level window.
func DefaultSwingOptions(window int) SwingOptions {
	return SwingOptions{
		SwingWindow:     3,
		RejectionWindow: window,
		Tolerance:       0.5,
		MinRejections:   2,
	}
}

// FindSwingLevels identifies strong support and resistance levels.
//
// A swing low at i has lows[i-w] > lows[i] and lows[i+w] > lows[i] (a swing
// high mirrors this on highs). The level is strong when at least
// MinRejections bars in [i-RejectionWindow, i) sit within Tolerance of it.
// Levels are returned in index order.
func FindSwingLevels(highs, lows []float64, opts SwingOptions) (supports, resistances []Level) {
	w := opts.SwingWindow
	if w <= 0 || len(highs) != len(lows) {
		return nil, nil
	}

	for i := w; i < len(lows)-w; i++ {
		if lows[i-w] > lows[i] && lows[i+w] > lows[i] {
			if countTouches(lows, i, lows[i], opts) >= opts.MinRejections {
				supports = append(supports, Level{Index: i, Price: lows[i]})
			}
		}
		if highs[i-w] < highs[i] && highs[i+w] < highs[i] {
			if countTouches(highs, i, highs[i], opts) >= opts.MinRejections {
				resistances = append(resistances, Level{Index: i, Price: highs[i]})
			}
		}
	}

	return supports, resistances
}

func countTouches(series []float64, idx int, level float64, opts SwingOptions) int {
	start := idx - opts.RejectionWindow
	if start < 0 {
		start = 0
	}

	count := 0
	for _, v := range series[start:idx] {
		d := v - level
		if d < 0 {
			d = -d
		}
		if d < opts.Tolerance {
			count++
		}
	}
	return count
}

// SupportResistance returns the support and resistance for the trailing
// window of bars: the most recent strong swing level, falling back to the
// window's min low / max high. Both are nil when there are no bars.
func SupportResistance(highs, lows []float64, window int) (support, resistance *float64) {
	if window <= 0 || len(highs) == 0 || len(highs) != len(lows) {
		return nil, nil
	}

	h := tail(highs, window)
	l := tail(lows, window)

	supports, resistances := FindSwingLevels(h, l, DefaultSwingOptions(window))
	if len(supports) > 0 {
		v := supports[len(supports)-1].Price
		support = &v
	} else {
		support = Min(l)
	}
	if len(resistances) > 0 {
		v := resistances[len(resistances)-1].Price
		resistance = &v
	} else {
		resistance = Max(h)
	}

	return support, resistance
}

func tail(series []float64, n int) []float64 {
	if len(series) <= n {
		return series
	}
	return series[len(series)-n:]
}
