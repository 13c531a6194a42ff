package clientdata

import "time"

// TTLs added to now when storing.
const (
	TTLHistoricalBars = 7 * 24 * time.Hour // bars ending before today never change
	TTLRecentBars     = 4 * time.Hour
	TTLQuote          = 10 * time.Minute
	TTLExpirations    = 12 * time.Hour
	TTLOptionChain    = 15 * time.Minute
	TTLEvents         = 24 * time.Hour
)
