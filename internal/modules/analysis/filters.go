package analysis

import "strings"

// FilterOptions selects records
type FilterOptions struct {
	ExcludeEarningsNearby bool
	OnlyStronglyBullish   bool
	// Signal keeps only records whose combined text matches, ignoring case
	Signal string
}

// Filter returns the records matching opts, in input order.
func Filter(records []Record, opts FilterOptions) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if opts.ExcludeEarningsNearby && r.EarningsNearby {
			continue
		}
		if opts.OnlyStronglyBullish && !HasSignal(r, "Strongly Bullish") {
			continue
		}
		if opts.Signal != "" && !HasSignal(r, opts.Signal) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// HasSignal reports whether the combined text equals text, ignoring case.
func HasSignal(r Record, text string) bool {
	return strings.EqualFold(r.CombinedSignal.Text, text)
}

// TickersBySignal returns the tickers whose combined text equals text.
func TickersBySignal(records []Record, text string, excludeEarningsNearby bool) []string {
	var tickers []string
	for _, r := range Filter(records, FilterOptions{Signal: text, ExcludeEarningsNearby: excludeEarningsNearby}) {
		tickers = append(tickers, r.Ticker)
	}
	return tickers
}

// GroupBySignal buckets records by combined text.
func GroupBySignal(records []Record, excludeEarningsNearby bool) map[string][]Record {
	groups := make(map[string][]Record)
	for _, r := range Filter(records, FilterOptions{ExcludeEarningsNearby: excludeEarningsNearby}) {
		groups[r.CombinedSignal.Text] = append(groups[r.CombinedSignal.Text], r)
	}
	return groups
}
