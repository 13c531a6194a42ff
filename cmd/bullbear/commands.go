package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aristath/bullbear/internal/app"
	"github.com/aristath/bullbear/internal/di"
	"github.com/aristath/bullbear/internal/modules/pipeline"
)

const dateLayout = "2006-01-02"

var (
	indicatorsDate      string
	indicatorsFrom      string
	indicatorsTo        string
	indicatorsOverwrite bool

	analyzeDate string

	backtestFrom string
	backtestTo   string

	runForceTrades bool
	runUpload      bool
)

var indicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "Build indicator snapshots",
	Long: `Build indicator snapshots for every ticker in tickers.json.

With --date (default today) one snapshot file is written; a build for today
uses live quotes and corporate events. With --from and --to a historical
file is written for every Monday of the range.

Examples:
  bullbear indicators
  bullbear indicators --date 2024-05-03
  bullbear indicators --from 2023-05-01 --to 2024-04-29`,
	RunE: runIndicators,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score stored snapshots against the strategy rules",
	RunE:  runAnalyze,
}

var prepareBacktestCmd = &cobra.Command{
	Use:   "prepare-backtest",
	Short: "Write backtest analysis files with forward prices for every snapshot date",
	RunE:  runPrepareBacktest,
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay the weekly backtest analysis files",
	Long: `Replay the backtest analysis file of every Monday in [--from, --to]
and write backtest_results.csv and backtest_summary.json. The range defaults
to the last 52 weeks.`,
	RunE: runBacktest,
}

var tradesCmd = &cobra.Command{
	Use:   "trades",
	Short: "Generate credit spread candidates from the latest daily analysis",
	RunE:  runTrades,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daily pipeline once",
	RunE:  runDaily,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and run the scheduled jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Serve(cmd.Context(), container, log)
	},
}

func init() {
	rootCmd.AddCommand(indicatorsCmd, analyzeCmd, prepareBacktestCmd, backtestCmd, tradesCmd, runCmd, serveCmd)

	indicatorsCmd.Flags().StringVar(&indicatorsDate, "date", "", "Snapshot date (YYYY-MM-DD, default today)")
	indicatorsCmd.Flags().StringVar(&indicatorsFrom, "from", "", "First date of a historical range")
	indicatorsCmd.Flags().StringVar(&indicatorsTo, "to", "", "Last date of a historical range")
	indicatorsCmd.Flags().BoolVar(&indicatorsOverwrite, "overwrite", false, "Rebuild Mondays that already have a file")
	indicatorsCmd.MarkFlagsRequiredTogether("from", "to")
	indicatorsCmd.MarkFlagsMutuallyExclusive("date", "from")

	analyzeCmd.Flags().StringVar(&analyzeDate, "date", "", "Snapshot date to analyze (YYYY-MM-DD, default today)")

	backtestCmd.Flags().StringVar(&backtestFrom, "from", "", "First Monday of the replay (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&backtestTo, "to", "", "Last day of the replay (YYYY-MM-DD, default today)")

	runCmd.Flags().BoolVar(&runForceTrades, "force-trades", false, "Generate trade candidates on any weekday")
	runCmd.Flags().BoolVar(&runUpload, "upload", false, "Upload output files (default UPLOAD_OUTPUT)")
}

func runIndicators(cmd *cobra.Command, args []string) error {
	tickers, err := loadTickers()
	if err != nil {
		return err
	}

	if indicatorsFrom != "" {
		from, to, err := parseRange(indicatorsFrom, indicatorsTo)
		if err != nil {
			return err
		}
		stats, err := container.Pipeline.BuildHistory(cmd.Context(), tickers, from, to, indicatorsOverwrite)
		if err != nil {
			return err
		}
		return printJSON(stats)
	}

	date, err := parseDateOrToday(indicatorsDate)
	if err != nil {
		return err
	}
	path, stats, err := container.Pipeline.BuildSnapshots(cmd.Context(), tickers, date)
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{"path": path, "stats": stats})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	date, err := parseDateOrToday(analyzeDate)
	if err != nil {
		return err
	}
	path, stats, err := container.Pipeline.Analyze(date.Format(dateLayout))
	if err != nil {
		return err
	}
	return printJSON(map[string]interface{}{"path": path, "stats": stats})
}

func runPrepareBacktest(cmd *cobra.Command, args []string) error {
	stats, err := container.Preparer.Run(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func runBacktest(cmd *cobra.Command, args []string) error {
	to, err := parseDateOrToday(backtestTo)
	if err != nil {
		return err
	}
	from := to.Add(-di.BacktestWindow)
	if backtestFrom != "" {
		if from, to, err = parseRange(backtestFrom, to.Format(dateLayout)); err != nil {
			return err
		}
	}
	summary, err := container.BacktestRunner.Run(cmd.Context(), from, to)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

func runTrades(cmd *cobra.Command, args []string) error {
	res, err := container.Pipeline.RunTrades(cmd.Context())
	if err != nil {
		return err
	}
	return printJSON(res)
}

func runDaily(cmd *cobra.Command, args []string) error {
	tickers, err := loadTickers()
	if err != nil {
		return err
	}
	upload := container.Config.UploadOutput
	if cmd.Flags().Changed("upload") {
		upload = runUpload
	}
	res, err := container.Pipeline.RunDaily(cmd.Context(), tickers, pipeline.Options{
		ForceTrades: runForceTrades,
		Upload:      upload,
	})
	if err != nil {
		return err
	}
	return printJSON(res)
}

func parseDateOrToday(s string) (time.Time, error) {
	if s == "" {
		y, m, d := time.Now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	start, err := parseDateOrToday(from)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := parseDateOrToday(to)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("--to is before --from")
	}
	return start, end, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
