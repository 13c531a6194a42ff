package backtest

import (
	"gonum.org/v1/gonum/stat"
)

// Aggregate is the win rate of one protection level and holding period.
// AbsentExits counts trials without an exit price; they are included in Wins.
type Aggregate struct {
	Protection  float64  `json:"protection"`
	HoldingDays int      `json:"holding_days"`
	Total       int      `json:"total"`
	Wins        int      `json:"wins"`
	Losses      int      `json:"losses"`
	WinRate     float64  `json:"win_rate"`
	AbsentExits int      `json:"absent_exits"`
	AvgPctMove  *float64 `json:"avg_pct_move,omitempty"`
}

type aggregateKey struct {
	protection float64
	holding    int
}

// WinRates groups trials by protection level and holding period, in the
// order the pairs first appear. A trial wins when it is not breached, which
// includes trials without an exit price.
func WinRates(trials []Trial) []Aggregate {
	var order []aggregateKey
	groups := make(map[aggregateKey][]Trial)
	for _, t := range trials {
		k := aggregateKey{t.Protection, t.HoldingDays}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], t)
	}

	out := make([]Aggregate, 0, len(order))
	for _, k := range order {
		group := groups[k]
		agg := Aggregate{Protection: k.protection, HoldingDays: k.holding, Total: len(group)}

		outcomes := make([]float64, len(group))
		var moves []float64
		for i, t := range group {
			if !t.Breached {
				agg.Wins++
				outcomes[i] = 1
			}
			if t.ExitPrice == nil {
				agg.AbsentExits++
			}
			if t.PctMove != nil {
				moves = append(moves, *t.PctMove)
			}
		}
		agg.Losses = agg.Total - agg.Wins
		if agg.Total > 0 {
			agg.WinRate = stat.Mean(outcomes, nil)
		}
		if len(moves) > 0 {
			avg := stat.Mean(moves, nil)
			agg.AvgPctMove = &avg
		}
		out = append(out, agg)
	}
	return out
}
