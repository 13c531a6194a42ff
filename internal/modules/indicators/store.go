package indicators

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/bullbear/internal/domain"
	"github.com/rs/zerolog"
)

// ErrSnapshotsNotFound is returned when no indicator file exists for a date
var ErrSnapshotsNotFound = errors.New("indicator snapshots not found")

const (
	filePrefix = "indicators_"
	fileSuffix = ".csv"
)

// Columns is the indicator file header
var Columns = func() []string {
	cols := []string{"ticker", "current_price", "basic_snapshot", "previous_close", "percent_change"}
	for _, ind := range domain.AllIndicators {
		cols = append(cols, string(ind))
	}
	return append(cols, "earnings_date", "dividend_date", "ex_dividend_date")
}()

// Store reads and writes indicators_YYYY-MM-DD.csv files in one directory
type Store struct {
	dir string
	log zerolog.Logger
}

// NewStore creates a store rooted at dir
func NewStore(dir string, log zerolog.Logger) *Store {
	return &Store{
		dir: dir,
		log: log.With().Str("component", "indicator_store").Logger(),
	}
}

// Dir returns the directory the store works in.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path for a date.
func (s *Store) Path(date string) string {
	return filepath.Join(s.dir, filePrefix+date+fileSuffix)
}

// Write stores the snapshots of one date, replacing any existing file.
func (s *Store) Write(date string, snapshots []domain.Snapshot) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create indicator directory: %w", err)
	}

	path := s.Path(date)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("failed to create indicator file: %w", err)
	}

	if err := writeSnapshots(f, snapshots); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to close indicator file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to move indicator file into place: %w", err)
	}

	s.log.Info().Str("path", path).Int("rows", len(snapshots)).Msg("Wrote indicator file")
	return path, nil
}

func writeSnapshots(w io.Writer, snapshots []domain.Snapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, snap := range snapshots {
		row := []string{
			snap.Ticker,
			formatFloat(snap.CurrentPrice),
			formatFloat(snap.CurrentPrice),
			formatFloat(snap.PreviousClose),
			formatFloat(snap.PercentChange),
		}
		for _, ind := range domain.AllIndicators {
			row = append(row, formatFloat(snap.Value(ind)))
		}
		row = append(row, formatString(snap.EarningsDate), formatString(snap.DividendDate), formatString(snap.ExDividendDate))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", snap.Ticker, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush indicator file: %w", err)
	}
	return nil
}

// Read loads the snapshots of one date. A missing file returns
// ErrSnapshotsNotFound. Unparseable cells become absent values.
func (s *Store) Read(date string) ([]domain.Snapshot, error) {
	path := s.Path(date)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotsNotFound, path)
		}
		return nil, fmt.Errorf("failed to open indicator file: %w", err)
	}
	defer f.Close()

	snaps, err := s.parse(f, date)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return snaps, nil
}

func (s *Store) parse(r io.Reader, date string) ([]domain.Snapshot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col["ticker"]; !ok {
		return nil, errors.New("header has no ticker column")
	}

	var snapshots []domain.Snapshot
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.log.Warn().Err(err).Int("line", line).Msg("Skipping malformed row")
			continue
		}

		cell := func(name string) string {
			i, ok := col[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		ticker := cell("ticker")
		num := func(name string) *float64 {
			v, err := parseFloat(cell(name))
			if err != nil {
				s.log.Warn().Str("ticker", ticker).Str("field", name).Str("value", cell(name)).Msg("Unparseable number, treating as absent")
			}
			return v
		}

		values := make(map[domain.Indicator]float64)
		for _, ind := range domain.AllIndicators {
			if v := num(string(ind)); v != nil {
				values[ind] = *v
			}
		}

		snap := domain.NewSnapshot(ticker, date, values)
		snap.CurrentPrice = num("current_price")
		snap.PreviousClose = num("previous_close")
		snap.PercentChange = num("percent_change")
		snap.EarningsDate = parseString(cell("earnings_date"))
		snap.DividendDate = parseString(cell("dividend_date"))
		snap.ExDividendDate = parseString(cell("ex_dividend_date"))
		snapshots = append(snapshots, snap)
	}
	return snapshots, nil
}

// Dates lists the dates that have an indicator file, ascending.
func (s *Store) Dates() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list indicator directory: %w", err)
	}

	var dates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		date := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		if _, err := time.Parse("2006-01-02", date); err != nil {
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

// ReadAll loads every readable indicator file as date -> ticker -> snapshot.
func (s *Store) ReadAll() (map[string]map[string]domain.Snapshot, error) {
	dates, err := s.Dates()
	if err != nil {
		return nil, err
	}

	all := make(map[string]map[string]domain.Snapshot, len(dates))
	for _, date := range dates {
		snaps, err := s.Read(date)
		if err != nil {
			s.log.Warn().Err(err).Str("date", date).Msg("Skipping unreadable indicator file")
			continue
		}
		byTicker := make(map[string]domain.Snapshot, len(snaps))
		for _, snap := range snaps {
			byTicker[snap.Ticker] = snap
		}
		all[date] = byTicker
	}
	return all, nil
}

// ReadPrices loads the current price of every ticker on every date, the
// input of a forward price index. Missing prices are nil.
func (s *Store) ReadPrices() (map[string]map[string]*float64, error) {
	all, err := s.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("%w: no indicator files in %s", ErrSnapshotsNotFound, s.dir)
	}

	prices := make(map[string]map[string]*float64, len(all))
	for date, byTicker := range all {
		day := make(map[string]*float64, len(byTicker))
		for ticker, snap := range byTicker {
			day[ticker] = snap.CurrentPrice
		}
		prices[date] = day
	}
	return prices, nil
}

func parseFloat(s string) (*float64, error) {
	switch strings.ToLower(s) {
	case "", "nan", "none", "null":
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil, fmt.Errorf("non-finite value %q", s)
	}
	return &v, nil
}

func parseString(s string) *string {
	switch strings.ToLower(s) {
	case "", "nan", "none", "null", "nat":
		return nil
	}
	return &s
}

func formatFloat(v *float64) string {
	if v == nil || math.IsInf(*v, 0) || math.IsNaN(*v) {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
