package pipeline

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/insightloom/internal/analysis"
)

func TestSanitizeReplacesNonFiniteAtAnyDepth(t *testing.T) {
	nan := math.NaN()
	in := map[string]any{
		"a": nan,
		"b": []any{1.5, math.Inf(1), map[string]any{"c": math.Inf(-1), "d": "ok"}},
		"e": struct {
			F float64  `json:"f"`
			G *float64 `json:"g,omitempty"`
			H []float32
			I float64 `json:"-"`
		}{F: nan, G: &nan, H: []float32{float32(math.Inf(1)), 2}},
	}
	out := Sanitize(in).(map[string]any)

	assert.Nil(t, out["a"])
	b := out["b"].([]any)
	assert.Equal(t, 1.5, b[0])
	assert.Nil(t, b[1])
	assert.Equal(t, map[string]any{"c": nil, "d": "ok"}, b[2])
	e := out["e"].(map[string]any)
	assert.Nil(t, e["f"])
	assert.Nil(t, e["g"])
	assert.Equal(t, []any{nil, float64(2)}, e["H"])
	assert.NotContains(t, e, "I")

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	var back any
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, raw, mustMarshal(t, Sanitize(back)))
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestResultMarshalJSONIsFinite(t *testing.T) {
	inf := math.Inf(1)
	res := &Result{
		Status:    StatusCompleted,
		Query:     "q",
		RequestID: "r-1",
		AggregatedData: &analysis.Aggregates{
			Financial: &analysis.FinancialSummary{TotalRevenue: math.NaN()},
		},
		Anomalies: []analysis.Finding{{Type: "x", Severity: analysis.SeverityHigh, AverageValue: &inf}},
		Forecasts: map[string]analysis.ForecastResult{},
		StartedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
	}
	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "completed", m["status"])
	assert.Equal(t, float64(1500), m["duration_ms"])
	assert.Equal(t, "2025-01-02T03:04:05Z", m["started_at"])
	assert.Nil(t, m["aggregated_data"].(map[string]any)["financial_summary"].(map[string]any)["total_revenue"])
	assert.Nil(t, m["anomalies"].([]any)[0].(map[string]any)["average_value"])
	// Ran but empty stays present; never reached stays absent.
	assert.Equal(t, map[string]any{}, m["forecasts"])
	assert.NotContains(t, m, "report")
	assert.NotContains(t, m, "workflow")
}

func TestErrorsUnwrap(t *testing.T) {
	base := assert.AnError
	se := &StepError{Step: StepParse, Err: base}
	assert.ErrorIs(t, se, base)
	assert.Contains(t, se.Error(), "parse step fell back")

	fe := &FatalError{Stage: StepFetch, Err: base}
	assert.ErrorIs(t, fe, base)
	assert.Equal(t, "fetch failed: "+base.Error(), fe.Error())
}
