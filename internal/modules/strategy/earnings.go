package strategy

import (
	"fmt"
	"strings"
	"time"
)

// DefaultEarningsWindowDays is how close an earnings date must be to count
// as nearby.
const DefaultEarningsWindowDays = 10

// EarningsProximity returns the whole days from today until earningsDate and
// whether that falls inside the default window. Absent, blank and past dates
// give (nil, false, nil). An unparseable date gives (nil, false, err).
func EarningsProximity(earningsDate *string, today time.Time) (*int, bool, error) {
	return earningsProximity(earningsDate, today, DefaultEarningsWindowDays)
}

func earningsProximity(earningsDate *string, today time.Time, window int) (*int, bool, error) {
	if earningsDate == nil {
		return nil, false, nil
	}
	raw := strings.TrimSpace(*earningsDate)
	if raw == "" {
		return nil, false, nil
	}

	date, err := parseCalendarDate(raw)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse earnings date %q: %w", raw, err)
	}

	y, m, d := today.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	days := int(date.Sub(start).Hours() / 24)
	if days < 0 {
		return nil, false, nil
	}
	return &days, days <= window, nil
}

// parseCalendarDate accepts YYYY-MM-DD, optionally followed by a time part.
func parseCalendarDate(s string) (time.Time, error) {
	if len(s) > 10 && (s[10] == ' ' || s[10] == 'T') {
		s = s[:10]
	}
	return time.Parse("2006-01-02", s)
}
