package formulas

import (
	"sort"
	"time"
)

// DatedClose is one daily close
type DatedClose struct {
	Date  time.Time
	Close float64
}

// RangeStats is the year-to-date and 52-week block of a snapshot.
// Percentages are expressed in percent (12.5 means 12.5%).
type RangeStats struct {
	YTDReturn      *float64 `json:"pct_ytd_return"`
	Low52W         *float64 `json:"low_52w"`
	High52W        *float64 `json:"high_52w"`
	RangePosPct    *float64 `json:"range_pos_pct"`
	PctFrom52WHigh *float64 `json:"pct_from_52w_high"`
	PctFrom52WLow  *float64 `json:"pct_from_52w_low"`
}

// CalculateRangeStats computes YTD return and 52-week range statistics as of
// today. The 52-week window is the trailing 365 calendar days; YTD starts on
// January 1st of today's year. Closes after today are ignored. Values are
// rounded to two decimals.
func CalculateRangeStats(closes []DatedClose, today time.Time) RangeStats {
	sorted := make([]DatedClose, 0, len(closes))
	for _, c := range closes {
		if !c.Date.After(today) {
			sorted = append(sorted, c)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	var stats RangeStats

	ytdStart := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
	var ytd []float64
	for _, c := range sorted {
		if !c.Date.Before(ytdStart) {
			ytd = append(ytd, c.Close)
		}
	}
	if len(ytd) > 0 && ytd[0] != 0 {
		r := Round2((ytd[len(ytd)-1] - ytd[0]) / ytd[0] * 100)
		stats.YTDReturn = &r
	}

	oneYearAgo := today.AddDate(0, 0, -365)
	var window []float64
	for _, c := range sorted {
		if !c.Date.Before(oneYearAgo) {
			window = append(window, c.Close)
		}
	}
	if len(window) == 0 {
		return stats
	}

	low := *Min(window)
	high := *Max(window)
	last := window[len(window)-1]

	rangePos := 100.0
	if high != low {
		rangePos = (last - low) / (high - low) * 100
	}

	stats.Low52W = Round2Ptr(&low)
	stats.High52W = Round2Ptr(&high)
	stats.RangePosPct = Round2Ptr(&rangePos)
	if high != 0 {
		fromHigh := Round2((last - high) / high * 100)
		stats.PctFrom52WHigh = &fromHigh
	}
	if low != 0 {
		fromLow := Round2((last - low) / low * 100)
		stats.PctFrom52WLow = &fromLow
	}

	return stats
}
