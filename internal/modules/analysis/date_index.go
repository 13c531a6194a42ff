package analysis

import "sort"

// DateIndex is an ascending list of trading dates with the price of every
// ticker on each date. Lookups past either end of history, or for tickers
// missing on a date, return nothing rather than failing.
type DateIndex struct {
	dates  []string
	pos    map[string]int
	prices map[string]map[string]*float64
}

// NewDateIndex builds an index from date -> ticker -> price. Dates are
// YYYY-MM-DD strings and sort chronologically.
func NewDateIndex(prices map[string]map[string]*float64) *DateIndex {
	dates := make([]string, 0, len(prices))
	for d := range prices {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	pos := make(map[string]int, len(dates))
	for i, d := range dates {
		pos[d] = i
	}
	return &DateIndex{dates: dates, pos: pos, prices: prices}
}

// Dates returns all dates in ascending order.
func (ix *DateIndex) Dates() []string {
	out := make([]string, len(ix.dates))
	copy(out, ix.dates)
	return out
}

// Len is the number of dates.
func (ix *DateIndex) Len() int {
	return len(ix.dates)
}

// Position returns the position of date in the index.
func (ix *DateIndex) Position(date string) (int, bool) {
	p, ok := ix.pos[date]
	return p, ok
}

// Offset returns the date n positions after date.
func (ix *DateIndex) Offset(date string, n int) (string, bool) {
	p, ok := ix.pos[date]
	if !ok {
		return "", false
	}
	target := p + n
	if target < 0 || target >= len(ix.dates) {
		return "", false
	}
	return ix.dates[target], true
}

// Price returns the ticker's price on date, or nil.
func (ix *DateIndex) Price(date, ticker string) *float64 {
	day, ok := ix.prices[date]
	if !ok {
		return nil
	}
	p := day[ticker]
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// PriceAfter returns the ticker's price n positions after date, or nil.
func (ix *DateIndex) PriceAfter(date, ticker string, n int) *float64 {
	d, ok := ix.Offset(date, n)
	if !ok {
		return nil
	}
	return ix.Price(d, ticker)
}
