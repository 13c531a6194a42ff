package backtest

import "time"

// Mondays returns every Monday in [start, end], at midnight in start's
// location.
func Mondays(start, end time.Time) []time.Time {
	y, m, d := start.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, start.Location())
	for day.Weekday() != time.Monday {
		day = day.AddDate(0, 0, 1)
	}

	var out []time.Time
	for !day.After(end) {
		out = append(out, day)
		day = day.AddDate(0, 0, 7)
	}
	return out
}
