package domain

// Snapshot is the indicator record for one ticker on one date.
//
// Every value may be absent. Absent prices and dates are nil pointers and
// absent indicators have no entry; nothing is defaulted to zero. A Snapshot
// is not modified after construction: NewSnapshot copies the value map and
// Value returns copies.
type Snapshot struct {
	Ticker         string
	Date           string // YYYY-MM-DD
	CurrentPrice   *float64
	PreviousClose  *float64
	PercentChange  *float64
	EarningsDate   *string
	DividendDate   *string
	ExDividendDate *string

	values map[Indicator]float64
}

// NewSnapshot creates a snapshot holding a copy of values.
func NewSnapshot(ticker, date string, values map[Indicator]float64) Snapshot {
	copied := make(map[Indicator]float64, len(values))
	for k, v := range values {
		copied[k] = v
	}
	return Snapshot{
		Ticker: ticker,
		Date:   date,
		values: copied,
	}
}

// Value returns the indicator value, or nil when absent.
func (s Snapshot) Value(ind Indicator) *float64 {
	v, ok := s.values[ind]
	if !ok {
		return nil
	}
	return &v
}

// Has reports whether the indicator is present.
func (s Snapshot) Has(ind Indicator) bool {
	_, ok := s.values[ind]
	return ok
}

// Values returns a copy of all present indicator values.
func (s Snapshot) Values() map[Indicator]float64 {
	copied := make(map[Indicator]float64, len(s.values))
	for k, v := range s.values {
		copied[k] = v
	}
	return copied
}
