package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// File name prefixes
const (
	PrefixDaily    = "bull_bear_analysis"
	PrefixBacktest = "bull_put_analysis"
)

// ErrAnalysisNotFound is returned when no analysis file exists for a date
var ErrAnalysisNotFound = errors.New("analysis not found")

// Store keeps analysis records as <prefix>_YYYY-MM-DD.json files
type Store struct {
	dir string
	log zerolog.Logger
}

// NewStore creates a store rooted at dir
func NewStore(dir string, log zerolog.Logger) *Store {
	return &Store{
		dir: dir,
		log: log.With().Str("component", "analysis_store").Logger(),
	}
}

// Dir returns the directory the store works in.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path for prefix and date.
func (s *Store) Path(prefix, date string) string {
	return filepath.Join(s.dir, prefix+"_"+date+".json")
}

// Write stores the records of one date as an indented JSON array.
func (s *Store) Write(prefix, date string, records []Record) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create analysis directory: %w", err)
	}
	if records == nil {
		records = []Record{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal analysis: %w", err)
	}

	path := s.Path(prefix, date)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write analysis file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to move analysis file into place: %w", err)
	}

	s.log.Info().Str("path", path).Int("records", len(records)).Msg("Wrote analysis file")
	return path, nil
}

// Read loads the records of one date.
func (s *Store) Read(prefix, date string) ([]Record, error) {
	path := s.Path(prefix, date)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAnalysisNotFound, path)
		}
		return nil, fmt.Errorf("failed to read analysis file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return records, nil
}

// Dates lists the dates with a file for prefix, ascending.
func (s *Store) Dates(prefix string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list analysis directory: %w", err)
	}

	head := prefix + "_"
	var dates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, head) || !strings.HasSuffix(name, ".json") {
			continue
		}
		date := strings.TrimSuffix(strings.TrimPrefix(name, head), ".json")
		if _, err := time.Parse("2006-01-02", date); err != nil {
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

// Latest loads the most recent file for prefix.
func (s *Store) Latest(prefix string) (string, []Record, error) {
	dates, err := s.Dates(prefix)
	if err != nil {
		return "", nil, err
	}
	if len(dates) == 0 {
		return "", nil, fmt.Errorf("%w: no %s files in %s", ErrAnalysisNotFound, prefix, s.dir)
	}
	date := dates[len(dates)-1]
	records, err := s.Read(prefix, date)
	if err != nil {
		return "", nil, err
	}
	return date, records, nil
}
