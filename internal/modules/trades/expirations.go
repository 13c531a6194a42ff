package trades

import (
	"time"
)

// DefaultWeekOffsets are the target horizons, in weeks, of the expirations
// traded.
var DefaultWeekOffsets = []int{2, 4, 6}

// SelectExpirations picks, for each week offset, the available expiration
// (YYYY-MM-DD) closest to now plus that many weeks. Ties go to the earlier
// entry of available. The result is deduplicated and keeps offset order;
// unparseable entries are ignored.
func SelectExpirations(available []string, now time.Time, weekOffsets []int) []string {
	type parsed struct {
		raw  string
		date time.Time
	}
	var exps []parsed
	for _, s := range available {
		d, err := time.Parse("2006-01-02", s)
		if err != nil {
			continue
		}
		exps = append(exps, parsed{raw: s, date: d})
	}
	if len(exps) == 0 {
		return nil
	}

	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	var chosen []string
	seen := make(map[string]bool)
	for _, weeks := range weekOffsets {
		target := today.AddDate(0, 0, 7*weeks)
		best := exps[0]
		bestDiff := absDays(best.date, target)
		for _, e := range exps[1:] {
			if diff := absDays(e.date, target); diff < bestDiff {
				best, bestDiff = e, diff
			}
		}
		if !seen[best.raw] {
			seen[best.raw] = true
			chosen = append(chosen, best.raw)
		}
	}
	return chosen
}

func absDays(a, b time.Time) int {
	days := int(a.Sub(b).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}

// FridayExpiries returns the Friday of the current week (the coming Friday
// on weekends) and the first Friday on or after today plus 15, 30 and 45
// days.
func FridayExpiries(today time.Time) []time.Time {
	y, m, d := today.Date()
	base := time.Date(y, m, d, 0, 0, 0, 0, today.Location())

	out := []time.Time{upcomingFriday(base)}
	for _, days := range []int{15, 30, 45} {
		out = append(out, upcomingFriday(base.AddDate(0, 0, days)))
	}
	return out
}

func upcomingFriday(t time.Time) time.Time {
	ahead := (int(time.Friday) - int(t.Weekday()) + 7) % 7
	return t.AddDate(0, 0, ahead)
}

func fridayDates(now time.Time) []string {
	fridays := FridayExpiries(now)
	out := make([]string, len(fridays))
	for i, f := range fridays {
		out[i] = f.Format("2006-01-02")
	}
	return out
}
