package outwriter

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/insightloom/internal/analysis"
	"github.com/KaramelBytes/insightloom/internal/gateway"
	"github.com/KaramelBytes/insightloom/internal/pipeline"
)

func sampleResult() *pipeline.Result {
	count := 1
	maxV := 100000.0
	return &pipeline.Result{
		Status:    pipeline.StatusCompleted,
		Query:     "Show me Q3 sales performance",
		RequestID: "req-1",
		ParsedRequest: &pipeline.ParsedRequest{
			ReportType:  "sales",
			DataSources: []string{"erp_sales"},
			Filters:     gateway.FilterSet{DateFrom: gateway.StringPtr("2025-07-01"), MinAmount: gateway.FloatPtr(50)},
			Urgency:     "normal",
			ValueImpact: "medium",
			ReportFocus: "Q3 sales performance",
			Requestor:   "Dana Analyst",
			Department:  "Sales",
			UserRole:    "Manager",
		},
		Workflow: func() *pipeline.Workflow {
			wf := pipeline.DefaultWorkflow(time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC))
			return &wf
		}(),
		DataSourcesUsed: []string{"sales_transactions"},
		RecordsFetched:  map[string]int{"sales_transactions": 1234},
		AggregatedData: &analysis.Aggregates{Sales: &analysis.SalesSummary{
			TotalRevenue: 1234567.891, TotalTransactions: 1234, AvgTransaction: math.NaN(), TopProduct: "Product A", TopRegion: "North",
		}},
		Anomalies: []analysis.Finding{{Type: "high_value_transaction", Severity: analysis.SeverityMedium, Message: "Found 1 unusually high-value transactions", Count: &count, MaxValue: &maxV}},
		Insights:  []string{"Top performing product is Product A"},
		Forecasts: map[string]analysis.ForecastResult{"sales_trend": {Direction: analysis.Up, GrowthRate: 12.5, Prediction: "Sales expected to increase by 12.5%"}},
		Report:    "## Executive Summary\nAll good.\n",
		Fallbacks: []string{"workflow"},
		StartedAt: time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": TableOut, "TABLE": TableOut, "json": JSONOut, "md": MarkdownOut, "markdown": MarkdownOut} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("csv")
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(), Options{Format: JSONOut}))

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "completed", m["status"])
	assert.Equal(t, float64(1500), m["duration_ms"])
	sales := m["aggregated_data"].(map[string]any)["sales_summary"].(map[string]any)
	assert.Nil(t, sales["avg_transaction"])
	assert.Equal(t, "Product A", sales["top_product"])
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(), Options{Format: TableOut, Width: 120}))
	out := buf.String()

	assert.Contains(t, out, "Status: completed")
	assert.Contains(t, out, "⚠ Warning: workflow step used its default")
	assert.Contains(t, out, "date_from=2025-07-01, min_amount=50")
	assert.Contains(t, out, "Manager Review")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "1,234,567.89")
	assert.Contains(t, out, "n/a")
	assert.Contains(t, out, "high_value_transaction")
	assert.Contains(t, out, "• Top performing product is Product A")
	assert.Contains(t, out, "12.50%")
	assert.Contains(t, out, "## Executive Summary")
	assert.NotContains(t, out, "\x1b[")
}

func TestWriteTableColorAndError(t *testing.T) {
	res := sampleResult()
	res.Status = pipeline.StatusError
	res.Error = "fetch failed: boom"
	res.Report = ""
	res.Anomalies = []analysis.Finding{}
	res.Forecasts = map[string]analysis.ForecastResult{}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, res, Options{Format: TableOut, Color: true, Width: 80}))
	out := buf.String()
	assert.Contains(t, out, "\x1b[")
	assert.Contains(t, out, "fetch failed: boom")
	assert.Contains(t, out, "No anomalies detected.")
	assert.Contains(t, out, "Not enough history for a forecast.")
	assert.NotContains(t, out, "\nReport\n")
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, sampleResult(), Options{Format: MarkdownOut}))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "# Q3 sales performance\n"))
	assert.Contains(t, out, "- Status: **completed**")
	assert.Contains(t, out, "| sales_transactions | 1234 |")
	assert.Contains(t, out, "| sales | total_revenue | 1,234,567.89 |")
	assert.Contains(t, out, "- **high_value_transaction** (medium)")
	assert.Contains(t, out, "1. Manager Review: Manager (sequential, single, 24h)")
	assert.Contains(t, out, "Filters: `date_from=2025-07-01`, `min_amount=50`")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.md")
	require.NoError(t, WriteFile(path, sampleResult(), Options{Format: MarkdownOut, Color: true}))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "# Q3 sales performance")
	assert.NotContains(t, string(b), "\x1b[")
}

func TestWriteSources(t *testing.T) {
	rows := []SourceRow{{Key: "erp_sales", Table: "sales_transactions", Rows: 2000}}

	var buf bytes.Buffer
	require.NoError(t, WriteSources(&buf, rows, Options{Format: TableOut}))
	assert.Contains(t, buf.String(), "2,000")

	buf.Reset()
	require.NoError(t, WriteSources(&buf, rows, Options{Format: JSONOut}))
	var out []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "sales_transactions", out[0]["table"])

	buf.Reset()
	require.NoError(t, WriteSources(&buf, rows, Options{Format: MarkdownOut}))
	assert.Contains(t, buf.String(), "| erp_sales | sales_transactions | 2000 |")
}

func TestResolveColor(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, ResolveColor("always", &buf))
	assert.False(t, ResolveColor("never", &buf))
	assert.False(t, ResolveColor("auto", &buf))
}

func TestTruncateAndWidth(t *testing.T) {
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, 20, messageWidth(30, 25))
	assert.Equal(t, 100, messageWidth(500, 25))
	assert.Equal(t, 55, messageWidth(80, 25))
	assert.Equal(t, 132, termWidth(132))
}
