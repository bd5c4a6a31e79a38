package outwriter

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/KaramelBytes/insightloom/internal/gateway"
	"github.com/KaramelBytes/insightloom/internal/pipeline"
)

// writeTable renders the human-readable view, one section per filled slot.
func writeTable(w io.Writer, res *pipeline.Result, opt Options) error {
	p := newPalette(opt.Color)
	width := termWidth(opt.Width)

	fmt.Fprintf(w, "Status: %s  Request: %s  Duration: %s\n", p.status(res.Status), res.RequestID, res.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Query: %s\n", res.Query)
	if res.Error != "" {
		fmt.Fprintf(w, "%s %s\n", p.bad.Sprint("✗ Error:"), res.Error)
	}
	for _, step := range res.Fallbacks {
		fmt.Fprintf(w, "%s %s step used its default\n", p.warn.Sprint("⚠ Warning:"), step)
	}

	if pr := res.ParsedRequest; pr != nil {
		section(w, p, "Request")
		rows := [][]string{
			{"Report type", pr.ReportType},
			{"Data sources", strings.Join(pr.DataSources, ", ")},
			{"Filters", orNone(strings.Join(filterPairs(pr.Filters), ", "))},
			{"Urgency", pr.Urgency},
			{"Value impact", pr.ValueImpact},
			{"Focus", truncate(pr.ReportFocus, messageWidth(width, 25))},
			{"Requestor", fmt.Sprintf("%s (%s, %s)", pr.Requestor, pr.UserRole, pr.Department)},
		}
		if err := renderTable(w, []string{"Field", "Value"}, rows, false); err != nil {
			return err
		}
	}

	if wf := res.Workflow; wf != nil {
		section(w, p, "Workflow: "+wf.Name)
		rows := make([][]string, 0, len(wf.Stages))
		for _, s := range wf.Stages {
			rows = append(rows, []string{s.ID, s.Name, strings.Join(s.Approvers, ", "), s.Type, s.Requires, strconv.FormatFloat(s.TimeoutHours, 'f', -1, 64)})
		}
		if err := renderTable(w, []string{"Stage", "Name", "Approvers", "Type", "Requires", "Timeout (h)"}, rows, false); err != nil {
			return err
		}
		if wf.Reason != "" {
			fmt.Fprintf(w, "%s\n", p.dim.Sprint(wf.Reason))
		}
	}

	if len(res.RecordsFetched) > 0 {
		section(w, p, "Records fetched")
		keys := sortedKeys(res.RecordsFetched)
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, humanize.Comma(int64(res.RecordsFetched[k]))})
		}
		if err := renderTable(w, []string{"Table", "Rows"}, rows, true); err != nil {
			return err
		}
	}

	if res.AggregatedData != nil {
		section(w, p, "Aggregates")
		if err := renderTable(w, []string{"Summary", "Metric", "Value"}, aggregateRows(res), false); err != nil {
			return err
		}
	}

	if res.Anomalies != nil {
		section(w, p, "Anomalies")
		if len(res.Anomalies) == 0 {
			fmt.Fprintln(w, "No anomalies detected.")
		} else {
			msgW := messageWidth(width, 40)
			rows := make([][]string, 0, len(res.Anomalies))
			for _, f := range res.Anomalies {
				rows = append(rows, []string{p.severity(string(f.Severity)), f.Type, truncate(f.Message, msgW)})
			}
			if err := renderTable(w, []string{"Severity", "Type", "Message"}, rows, false); err != nil {
				return err
			}
		}
	}

	if len(res.Insights) > 0 {
		section(w, p, "Insights")
		for _, s := range res.Insights {
			fmt.Fprintf(w, "• %s\n", s)
		}
	}

	if res.Forecasts != nil {
		section(w, p, "Forecasts")
		if len(res.Forecasts) == 0 {
			fmt.Fprintln(w, "Not enough history for a forecast.")
		} else {
			keys := sortedKeys(res.Forecasts)
			rows := make([][]string, 0, len(keys))
			for _, k := range keys {
				f := res.Forecasts[k]
				rows = append(rows, []string{k, string(f.Direction), fmt.Sprintf("%.2f%%", f.GrowthRate), f.Prediction})
			}
			if err := renderTable(w, []string{"Series", "Direction", "Growth", "Prediction"}, rows, false); err != nil {
				return err
			}
		}
	}

	if res.Report != "" {
		section(w, p, "Report")
		fmt.Fprintln(w, strings.TrimRight(res.Report, "\n"))
	}
	return nil
}

func section(w io.Writer, p palette, title string) {
	fmt.Fprintf(w, "\n%s\n", p.info.Sprint(title))
}

func renderTable(w io.Writer, headers []string, rows [][]string, alignRight bool) error {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	if alignRight {
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignRight
		})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

// SourceRow is one line of the sources listing.
type SourceRow struct {
	Key   string
	Table string
	Rows  int
}

// WriteSources renders the data source catalogue with row counts.
func WriteSources(w io.Writer, rows []SourceRow, opt Options) error {
	switch opt.Format {
	case JSONOut:
		out := make([]map[string]any, 0, len(rows))
		for _, r := range rows {
			out = append(out, map[string]any{"source": r.Key, "table": r.Table, "rows": r.Rows})
		}
		return writeJSON(w, out)
	case MarkdownOut:
		fmt.Fprintln(w, "| Source | Table | Rows |")
		fmt.Fprintln(w, "| --- | --- | ---: |")
		for _, r := range rows {
			fmt.Fprintf(w, "| %s | %s | %d |\n", r.Key, r.Table, r.Rows)
		}
		return nil
	}
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{r.Key, r.Table, humanize.Comma(int64(r.Rows))})
	}
	return renderTable(w, []string{"Source", "Table", "Rows"}, data, false)
}

// aggregateRows flattens the summaries into (summary, metric, value) rows.
func aggregateRows(res *pipeline.Result) [][]string {
	m, _ := pipeline.Sanitize(res.AggregatedData).(map[string]any)
	var rows [][]string
	for _, name := range sortedKeys(m) {
		metrics, _ := m[name].(map[string]any)
		label := strings.TrimSuffix(name, "_summary")
		for _, k := range sortedKeys(metrics) {
			rows = append(rows, []string{label, k, formatValue(metrics[k])})
		}
	}
	return rows
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "n/a"
	case float64:
		return humanize.CommafWithDigits(x, 2)
	case int:
		return humanize.Comma(int64(x))
	case string:
		return x
	}
	return fmt.Sprint(v)
}

// filterPairs renders the active filters as name=value.
func filterPairs(f gateway.FilterSet) []string {
	var out []string
	add := func(name string, v *string) {
		if v != nil {
			out = append(out, name+"="+*v)
		}
	}
	add("date_from", f.DateFrom)
	add("date_to", f.DateTo)
	add("region", f.Region)
	add("product", f.Product)
	add("industry", f.Industry)
	if f.MinAmount != nil {
		out = append(out, "min_amount="+strconv.FormatFloat(*f.MinAmount, 'f', -1, 64))
	}
	add("transaction_type", f.TransactionType)
	return out
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
