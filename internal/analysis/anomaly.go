package analysis

import (
	"fmt"

	"github.com/KaramelBytes/insightloom/internal/gateway"
)

// Severity grades a finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Finding is one anomaly reported by a Rule. Optional figures are nil
// when the rule does not produce them.
type Finding struct {
	Type         string   `json:"type"`
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	Count        *int     `json:"count,omitempty"`
	MaxValue     *float64 `json:"max_value,omitempty"`
	RecentValue  *float64 `json:"recent_value,omitempty"`
	AverageValue *float64 `json:"average_value,omitempty"`
}

// Rule inspects the fetched tables and reports zero or more findings.
type Rule interface {
	Name() string
	Evaluate(tables gateway.Tables) ([]Finding, error)
}

// DefaultRules returns the built-in rules in evaluation order.
func DefaultRules() []Rule {
	return []Rule{HighValueRule{Sigma: 3}, MarginDropRule{Ratio: 0.8}}
}

// Detect runs the default rules.
func Detect(tables gateway.Tables) ([]Finding, error) {
	return DetectWith(tables, DefaultRules()...)
}

// DetectWith runs rules in order and concatenates their findings.
func DetectWith(tables gateway.Tables, rules ...Rule) ([]Finding, error) {
	findings := []Finding{}
	for _, r := range rules {
		fs, err := r.Evaluate(tables)
		if err != nil {
			return findings, fmt.Errorf("rule %s: %w", r.Name(), err)
		}
		findings = append(findings, fs...)
	}
	return findings, nil
}

// HighValueRule flags sales whose total exceeds mean + Sigma*std, using
// the sample standard deviation.
type HighValueRule struct {
	Sigma float64
}

func (HighValueRule) Name() string { return "high_value_transaction" }

func (h HighValueRule) Evaluate(tables gateway.Tables) ([]Finding, error) {
	t, ok := tables.Get(gateway.SalesTransactions)
	if !ok || t.Len() == 0 {
		return nil, nil
	}
	total := column{t, "total", true}
	if err := total.check(); err != nil {
		return nil, err
	}
	vals := make([]float64, 0, t.Len())
	var acc welford
	for i := range t.Rows {
		v, ok, err := total.at(i)
		if err != nil {
			return nil, err
		}
		if ok {
			vals = append(vals, v)
			acc.add(v)
		}
	}
	if acc.n == 0 {
		return nil, nil
	}
	threshold := acc.mean + h.Sigma*acc.std()
	count, maxV := 0, 0.0
	for _, v := range vals {
		if v > threshold {
			if count == 0 || v > maxV {
				maxV = v
			}
			count++
		}
	}
	if count == 0 {
		return nil, nil
	}
	return []Finding{{
		Type:     "high_value_transaction",
		Severity: SeverityMedium,
		Message:  fmt.Sprintf("Detected %d unusually high-value transactions", count),
		Count:    &count,
		MaxValue: &maxV,
	}}, nil
}

// MarginDropRule compares the most recent month's profit margin (the first
// financial row) with the mean over all rows.
type MarginDropRule struct {
	Ratio float64
}

func (MarginDropRule) Name() string { return "profit_margin_drop" }

func (m MarginDropRule) Evaluate(tables gateway.Tables) ([]Finding, error) {
	t, ok := tables.Get(gateway.FinancialRecords)
	if !ok || t.Len() < 2 {
		return nil, nil
	}
	margin := column{t, "profit_margin", true}
	if err := margin.check(); err != nil {
		return nil, err
	}
	recent, ok, err := margin.at(0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var acc welford
	for i := range t.Rows {
		v, ok, err := margin.at(i)
		if err != nil {
			return nil, err
		}
		if ok {
			acc.add(v)
		}
	}
	avg := acc.mean
	if !(recent < avg*m.Ratio) {
		return nil, nil
	}
	return []Finding{{
		Type:         "profit_margin_drop",
		Severity:     SeverityHigh,
		Message:      fmt.Sprintf("Profit margin dropped to %.2f%% (avg: %.2f%%)", recent, avg),
		RecentValue:  &recent,
		AverageValue: &avg,
	}}, nil
}
