package backtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aristath/bullbear/internal/modules/analysis"
	"github.com/rs/zerolog"
)

// Output file names
const (
	ResultsFile = "backtest_results.csv"
	SummaryFile = "backtest_summary.json"
)

// PriceSource supplies date -> ticker -> price for the whole replay period
type PriceSource interface {
	ReadPrices() (map[string]map[string]*float64, error)
}

// Summary is the JSON companion of the results table
type Summary struct {
	RunID       string      `json:"run_id"`
	GeneratedAt time.Time   `json:"generated_at"`
	Start       string      `json:"start"`
	End         string      `json:"end"`
	Config      Config      `json:"config"`
	Days        int         `json:"days"`
	Selected    int         `json:"selected"`
	Skipped     int         `json:"skipped"`
	Trials      int         `json:"trials"`
	Aggregates  []Aggregate `json:"aggregates"`
}

// Runner replays the weekly backtest analysis files of a period
type Runner struct {
	analyses *analysis.Store
	prices   PriceSource
	harness  *Harness
	outDir   string
	now      func() time.Time
	log      zerolog.Logger
}

// NewRunner creates a runner writing its reports to outDir
func NewRunner(analyses *analysis.Store, prices PriceSource, harness *Harness, outDir string, log zerolog.Logger) *Runner {
	return &Runner{
		analyses: analyses,
		prices:   prices,
		harness:  harness,
		outDir:   outDir,
		now:      time.Now,
		log:      log.With().Str("component", "backtest_runner").Logger(),
	}
}

// Run loads the analysis file of every Monday in [start, end], runs the
// harness and writes the results table and summary. Mondays without a file
// are skipped. The price history is required.
func (r *Runner) Run(ctx context.Context, start, end time.Time) (*Summary, error) {
	prices, err := r.prices.ReadPrices()
	if err != nil {
		return nil, fmt.Errorf("failed to load price history: %w", err)
	}
	index := analysis.NewDateIndex(prices)

	var days []Day
	for _, monday := range Mondays(start, end) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		date := monday.Format("2006-01-02")
		records, err := r.analyses.Read(analysis.PrefixBacktest, date)
		if err != nil {
			if errors.Is(err, analysis.ErrAnalysisNotFound) {
				r.log.Debug().Str("date", date).Msg("No analysis for week")
			} else {
				r.log.Warn().Err(err).Str("date", date).Msg("Skipping unreadable analysis")
			}
			continue
		}
		days = append(days, Day{Date: date, Records: records})
	}

	res := r.harness.Run(days, index)

	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := r.writeResults(res.Trials); err != nil {
		return nil, err
	}

	summary := &Summary{
		RunID:       res.RunID,
		GeneratedAt: r.now().UTC(),
		Start:       start.Format("2006-01-02"),
		End:         end.Format("2006-01-02"),
		Config:      r.harness.Config(),
		Days:        len(days),
		Selected:    res.Selected,
		Skipped:     res.Skipped,
		Trials:      len(res.Trials),
		Aggregates:  res.Aggregates,
	}
	if err := r.writeSummary(summary); err != nil {
		return nil, err
	}

	for _, agg := range res.Aggregates {
		r.log.Info().
			Float64("protection", agg.Protection).
			Int("holding_days", agg.HoldingDays).
			Float64("win_rate", agg.WinRate).
			Int("wins", agg.Wins).
			Int("total", agg.Total).
			Int("absent_exits", agg.AbsentExits).
			Msgf("Protection %.0f%%, holding %dd: win rate %.2f%% (%d/%d)",
				agg.Protection*100, agg.HoldingDays, agg.WinRate*100, agg.Wins, agg.Total)
	}
	return summary, nil
}

// LatestSummary reads the summary of the last run.
func (r *Runner) LatestSummary() (*Summary, error) {
	return ReadSummary(filepath.Join(r.outDir, SummaryFile))
}

// ReadSummary loads a summary file.
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backtest summary: %w", err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse backtest summary: %w", err)
	}
	return &s, nil
}

func (r *Runner) writeResults(trials []Trial) error {
	path := filepath.Join(r.outDir, ResultsFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	if err := WriteCSV(f, trials); err != nil {
		f.Close()
		return fmt.Errorf("failed to write results: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close results file: %w", err)
	}
	r.log.Info().Str("path", path).Int("rows", len(trials)).Msg("Wrote backtest results")
	return nil
}

func (r *Runner) writeSummary(s *Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	path := filepath.Join(r.outDir, SummaryFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}
