// Package clientdata caches upstream API responses in sqlite as JSON blobs
// with expiration timestamps, so repeated runs on the same day stay off the
// network.
package clientdata

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Cache tables
const (
	TableAlpacaBars         = "alpaca_bars"
	TableAlpacaQuotes       = "alpaca_quotes"
	TableAlpacaExpirations  = "alpaca_expirations"
	TableAlpacaOptionChains = "alpaca_option_chains"
	TableYahooEvents        = "yahoo_events"
	TableYahooBars          = "yahoo_bars"
)

// AllTables lists every cache table for cleanup.
var AllTables = []string{
	TableAlpacaBars,
	TableAlpacaQuotes,
	TableAlpacaExpirations,
	TableAlpacaOptionChains,
	TableYahooEvents,
	TableYahooBars,
}

var validTables = func() map[string]bool {
	m := make(map[string]bool, len(AllTables))
	for _, t := range AllTables {
		m[t] = true
	}
	return m
}()

// Repository provides cache operations
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new client data repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// SetClock overrides the clock used for expiry.
func (r *Repository) SetClock(now func() time.Time) {
	r.now = now
}

// Table names are interpolated into SQL, so only known tables pass.
func validateTable(table string) error {
	if !validTables[table] {
		return fmt.Errorf("invalid table name: %s", table)
	}
	return nil
}

// Store upserts data under key with expiration now+ttl.
func (r *Repository) Store(table, key string, data interface{}, ttl time.Duration) error {
	if err := validateTable(table); err != nil {
		return err
	}
	blob, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	query := fmt.Sprintf("INSERT OR REPLACE INTO %s (key, data, expires_at) VALUES (?, ?, ?)", table)
	if _, err := r.db.Exec(query, key, string(blob), r.now().Add(ttl).Unix()); err != nil {
		return fmt.Errorf("failed to store data in %s: %w", table, err)
	}
	return nil
}

// GetIfFresh returns the entry only if it has not expired. A miss returns
// nil, nil.
func (r *Repository) GetIfFresh(table, key string) (json.RawMessage, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT data FROM %s WHERE key = ? AND expires_at > ?", table)
	return r.scan(table, r.db.QueryRow(query, key, r.now().Unix()))
}

// Get returns the entry regardless of expiry, for use as a fallback when
// the upstream call fails. A miss returns nil, nil.
func (r *Repository) Get(table, key string) (json.RawMessage, error) {
	if err := validateTable(table); err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT data FROM %s WHERE key = ?", table)
	return r.scan(table, r.db.QueryRow(query, key))
}

func (r *Repository) scan(table string, row *sql.Row) (json.RawMessage, error) {
	var data string
	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get data from %s: %w", table, err)
	}
	return json.RawMessage(data), nil
}

// LoadFresh decodes the fresh entry of key into v and reports whether
// there was one.
func (r *Repository) LoadFresh(table, key string, v interface{}) (bool, error) {
	raw, err := r.GetIfFresh(table, key)
	if err != nil || raw == nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", table, err)
	}
	return true, nil
}

// LoadStale is LoadFresh ignoring expiry.
func (r *Repository) LoadStale(table, key string, v interface{}) (bool, error) {
	raw, err := r.Get(table, key)
	if err != nil || raw == nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", table, err)
	}
	return true, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(table, key string) error {
	if err := validateTable(table); err != nil {
		return err
	}
	if _, err := r.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE key = ?", table), key); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return nil
}

// DeleteExpired removes expired rows of table and returns how many.
func (r *Repository) DeleteExpired(table string) (int64, error) {
	if err := validateTable(table); err != nil {
		return 0, err
	}
	result, err := r.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE expires_at < ?", table), r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired from %s: %w", table, err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected for %s: %w", table, err)
	}
	return deleted, nil
}

// DeleteAllExpired runs DeleteExpired over every table.
func (r *Repository) DeleteAllExpired() (map[string]int64, error) {
	results := make(map[string]int64)
	for _, table := range AllTables {
		deleted, err := r.DeleteExpired(table)
		if err != nil {
			return results, err
		}
		results[table] = deleted
	}
	return results, nil
}
