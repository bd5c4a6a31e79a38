package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KaramelBytes/insightloom/internal/analysis"
	"github.com/KaramelBytes/insightloom/internal/gateway"
	"github.com/KaramelBytes/insightloom/internal/utils"
)

// reportInput bundles what the report prompt needs.
type reportInput struct {
	focus      string
	aggregates analysis.Aggregates
	tables     gateway.Tables
	insights   []string
	anomalies  []analysis.Finding
	forecasts  map[string]analysis.ForecastResult
}

func indentJSON(v any) string {
	b, err := json.MarshalIndent(Sanitize(v), "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// dataSummary renders the aggregates as JSON followed by per-table profiles,
// trimmed to the prompt token budget.
func (p *Pipeline) dataSummary(in reportInput) string {
	aggregates := indentJSON(in.aggregates)
	profile := analysis.ProfileTables(in.tables, analysis.DefaultProfileOptions())
	p.log.Debug("data summary tokens: %v", utils.TokenBreakdown(map[string]string{"aggregates": aggregates, "profile": profile}))
	out := aggregates
	if profile != "" {
		out += "\n\n" + profile
	}
	return utils.TruncateToTokenLimit(out, p.promptTokenLimit)
}

func (p *Pipeline) reportPrompt(in reportInput) string {
	focus := in.focus
	if strings.TrimSpace(focus) == "" {
		focus = "General Report"
	}
	var b strings.Builder
	b.WriteString("Generate a professional business report based on this data:\n\n")
	fmt.Fprintf(&b, "Report Focus: %s\n\n", focus)
	b.WriteString("Data Summary:\n")
	b.WriteString(p.dataSummary(in))
	b.WriteString("\n\nKey Insights:\n")
	for _, s := range in.insights {
		b.WriteString("- " + s + "\n")
	}
	b.WriteString("\nAnomalies Detected:\n")
	if len(in.anomalies) > 0 {
		b.WriteString(indentJSON(in.anomalies))
	} else {
		b.WriteString("None")
	}
	b.WriteString("\n\nForecasts:\n")
	if len(in.forecasts) > 0 {
		b.WriteString(indentJSON(in.forecasts))
	} else {
		b.WriteString("None")
	}
	b.WriteString(`

Generate the report with:
1. Executive Summary
2. Key Findings
3. Detailed Analysis
4. Anomalies & Alerts
5. Recommendations
6. Future Outlook`)
	return b.String()
}

func (p *Pipeline) report(ctx context.Context, in reportInput, res *Result) string {
	text, err := p.complete(ctx, p.reportPrompt(in))
	if err == nil && strings.TrimSpace(text) == "" {
		err = fmt.Errorf("empty report")
	}
	if err != nil {
		se := &StepError{Step: StepReport, Err: err}
		p.log.Warn("%v", se)
		res.fallback(se)
		return fmt.Sprintf("Error generating report: %v", err)
	}
	return text
}
