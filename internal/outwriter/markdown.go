package outwriter

import (
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/insightloom/internal/pipeline"
)

// writeMarkdown renders a self-contained markdown document.
func writeMarkdown(w io.Writer, res *pipeline.Result) error {
	var b strings.Builder
	title := "Report"
	if res.ParsedRequest != nil && res.ParsedRequest.ReportFocus != "" {
		title = res.ParsedRequest.ReportFocus
	}
	fmt.Fprintf(&b, "# %s\n\n", mdEscape(title))
	fmt.Fprintf(&b, "- Status: **%s**\n", res.Status)
	fmt.Fprintf(&b, "- Request: `%s`\n", res.RequestID)
	fmt.Fprintf(&b, "- Query: %s\n", mdEscape(res.Query))
	if !res.StartedAt.IsZero() {
		fmt.Fprintf(&b, "- Generated: %s\n", res.StartedAt.Format("2006-01-02 15:04 MST"))
	}
	if res.Error != "" {
		fmt.Fprintf(&b, "\n> **Error:** %s\n", mdEscape(res.Error))
	}
	if len(res.Fallbacks) > 0 {
		fmt.Fprintf(&b, "\n> Default values were used for: %s\n", strings.Join(res.Fallbacks, ", "))
	}

	if res.Report != "" {
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(res.Report, "\n"))
		b.WriteString("\n")
	}

	if len(res.RecordsFetched) > 0 {
		b.WriteString("\n## Data\n\n| Table | Rows |\n| --- | ---: |\n")
		for _, k := range sortedKeys(res.RecordsFetched) {
			fmt.Fprintf(&b, "| %s | %d |\n", k, res.RecordsFetched[k])
		}
		if res.ParsedRequest != nil {
			if f := filterPairs(res.ParsedRequest.Filters); len(f) > 0 {
				fmt.Fprintf(&b, "\nFilters: `%s`\n", strings.Join(f, "`, `"))
			}
		}
	}

	if res.AggregatedData != nil {
		b.WriteString("\n## Aggregates\n\n| Summary | Metric | Value |\n| --- | --- | ---: |\n")
		for _, r := range aggregateRows(res) {
			fmt.Fprintf(&b, "| %s | %s | %s |\n", r[0], r[1], r[2])
		}
	}

	if res.Anomalies != nil {
		b.WriteString("\n## Anomalies\n\n")
		if len(res.Anomalies) == 0 {
			b.WriteString("None detected.\n")
		}
		for _, f := range res.Anomalies {
			fmt.Fprintf(&b, "- **%s** (%s): %s\n", f.Type, f.Severity, mdEscape(f.Message))
		}
	}

	if len(res.Insights) > 0 {
		b.WriteString("\n## Insights\n\n")
		for _, s := range res.Insights {
			fmt.Fprintf(&b, "- %s\n", mdEscape(s))
		}
	}

	if len(res.Forecasts) > 0 {
		b.WriteString("\n## Forecasts\n\n")
		for _, k := range sortedKeys(res.Forecasts) {
			f := res.Forecasts[k]
			fmt.Fprintf(&b, "- %s: %s (%.2f%%). %s\n", k, f.Direction, f.GrowthRate, f.Prediction)
		}
	}

	if wf := res.Workflow; wf != nil {
		fmt.Fprintf(&b, "\n## Approval workflow: %s\n\n", mdEscape(wf.Name))
		for i, s := range wf.Stages {
			fmt.Fprintf(&b, "%d. %s: %s (%s, %s, %gh)\n", i+1, mdEscape(s.Name), strings.Join(s.Approvers, ", "), s.Type, s.Requires, s.TimeoutHours)
		}
		if wf.Reason != "" {
			fmt.Fprintf(&b, "\n_%s_\n", mdEscape(wf.Reason))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func mdEscape(s string) string {
	return strings.NewReplacer("|", "\\|", "\n", " ").Replace(s)
}
