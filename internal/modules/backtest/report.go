package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/aristath/bullbear/pkg/formulas"
)

// ReportColumns is the backtest results header
var ReportColumns = []string{
	"date", "ticker", "entry_price", "exit_price", "protection", "holding_days", "breached",
	"protection_price", "actual_move", "pct_move",
	"combined_signal_value", "combined_signal_text",
	"breaches_5d", "breaches_10d", "breaches_25d",
}

// WriteCSV writes trials as the backtest results table. Numbers are rounded
// to two decimals here and nowhere else; absent values are empty cells.
func WriteCSV(w io.Writer, trials []Trial) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ReportColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, t := range trials {
		row := []string{
			t.Date,
			t.Ticker,
			num(t.EntryPrice),
			optNum(t.ExitPrice),
			num(t.Protection),
			strconv.Itoa(t.HoldingDays),
			strconv.FormatBool(t.Breached),
			num(t.ProtectionPrice),
			optNum(t.ActualMove),
			optNum(t.PctMove),
			num(t.CombinedValue),
			t.CombinedText,
			strconv.Itoa(t.Breaches5D),
			strconv.Itoa(t.Breaches10D),
			strconv.Itoa(t.Breaches25D),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write trial %s/%s: %w", t.Date, t.Ticker, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func num(v float64) string {
	return strconv.FormatFloat(formulas.Round2(v), 'f', -1, 64)
}

func optNum(v *float64) string {
	if v == nil {
		return ""
	}
	return num(*v)
}
