// Package report renders the daily signal report: the strongly bullish,
// strongly bearish and neutral tickers of one analysis run.
package report

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aristath/bullbear/internal/modules/analysis"
	"github.com/aristath/bullbear/internal/modules/strategy"
)

// Row is one ticker line of a section
type Row struct {
	Ticker       string   `json:"ticker"`
	CurrentPrice *float64 `json:"current_price"`
	High52W      *float64 `json:"high_52w"`
	Low52W       *float64 `json:"low_52w"`
	Reason       string   `json:"reason"`
}

// Section is the table of one combined signal
type Section struct {
	Title  string       `json:"title"`
	Signal string       `json:"signal"`
	Color  template.CSS `json:"-"`
	Rows   []Row        `json:"rows"`
}

// Report is the rendered-ready daily report
type Report struct {
	Date      string    `json:"date"`
	Subject   string    `json:"subject"`
	PlainText string    `json:"plain_text"`
	Sections  []Section `json:"sections"`
}

var sections = []struct {
	title, signal string
	color         template.CSS
}{
	{"Strongly Bullish Stocks", strategy.SignalStronglyBullish, "#2e8b57"},
	{"Strongly Bearish Stocks", strategy.SignalStronglyBearish, "#b22222"},
	{"Neutral Stocks", strategy.SignalNeutral, "#4682b4"},
}

// Build groups records by combined signal. Records keep their input order
// within a section.
func Build(date string, records []analysis.Record) Report {
	if len(records) == 0 {
		return Report{
			Date:      date,
			Subject:   "No Analysis",
			PlainText: "No analysis file found for today.",
		}
	}

	r := Report{
		Date:      date,
		Subject:   "Bull & Bear Daily Signal Report - " + date,
		PlainText: "See attached HTML for today's signal tables.",
	}
	for _, s := range sections {
		sec := Section{Title: s.title, Signal: s.signal, Color: s.color}
		for _, rec := range records {
			if rec.CombinedSignal.Text != s.signal {
				continue
			}
			sec.Rows = append(sec.Rows, Row{
				Ticker:       rec.Ticker,
				CurrentPrice: rec.CurrentPrice,
				High52W:      rec.High52W,
				Low52W:       rec.Low52W,
				Reason:       Reason(rec.Signals, s.signal),
			})
		}
		r.Sections = append(r.Sections, sec)
	}
	return r
}

// Reason lists, alphabetically, the rules whose label contains signal
// (case-insensitive), or "N/A".
func Reason(signals map[string]strategy.Outcome, signal string) string {
	needle := strings.ToLower(signal)
	var names []string
	for name, o := range signals {
		if strings.Contains(strings.ToLower(string(o.Signal)), needle) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "N/A"
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

var page = template.Must(template.New("report").Funcs(template.FuncMap{
	"price": func(v *float64) string {
		if v == nil {
			return ""
		}
		return fmt.Sprintf("%.2f", *v)
	},
	"lower": strings.ToLower,
}).Parse(`<html>
<body style="font-family:sans-serif;">
<div style="font-size:2em;font-weight:bold;color:#4682b4;margin-bottom:10px;">Bull &amp; Bear Daily Signal Report</div>
{{- range .Sections}}
<h2 style="color:#333;">{{.Title}}</h2>
{{- if .Rows}}
<table style="border-collapse:collapse;width:100%;margin-bottom:20px;font-size:14px;">
<thead><tr style="background:{{.Color}};color:white;text-align:left;">
<th>Ticker</th><th>Current Price</th><th>52W High</th><th>52W Low</th><th>Reason</th>
</tr></thead>
<tbody>
{{- range .Rows}}
<tr><td>{{.Ticker}}</td><td>{{price .CurrentPrice}}</td><td>{{price .High52W}}</td><td>{{price .Low52W}}</td><td>{{.Reason}}</td></tr>
{{- end}}
</tbody></table>
{{- else}}
<p style="color:gray;">No {{lower .Signal}} stocks today.</p>
{{- end}}
{{- else}}
<p>No analysis file found for today.</p>
{{- end}}
<p style="font-size:0.9em;color:#888;">Generated on {{.Date}}</p>
</body>
</html>
`))

// RenderHTML writes the report page.
func (r Report) RenderHTML(w io.Writer) error {
	return page.Execute(w, r)
}

// FileName is the HTML file name of the report of date
func FileName(date string) string {
	return "daily_report_" + date + ".html"
}

// WriteHTML renders the report into dir and returns the file path.
func WriteHTML(dir string, r Report) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(dir, FileName(r.Date))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}
	if err := r.RenderHTML(f); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
