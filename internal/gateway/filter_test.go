package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) time.Time {
	t, _ := time.Parse(DateLayout, s)
	return t
}

func salesFixture() *Table {
	return NewTable(SalesTransactions, []Row{
		{"transaction_id": "t1", "date": d("2025-06-30"), "region": "North", "product": "Product A", "total": 100.0, "customer_id": "c1"},
		{"transaction_id": "t2", "date": d("2025-07-01"), "region": "south", "product": "Product B", "total": 250.0, "customer_id": "c2"},
		{"transaction_id": "t3", "date": d("2025-09-30"), "region": "North", "product": "Product A", "total": 900.0, "customer_id": "c1"},
		{"transaction_id": "t4", "date": d("2025-10-01"), "region": "East", "product": "Product C", "total": 50.0},
		{"transaction_id": "t5", "region": "North", "total": 10.0},
	})
}

func ids(t *Table) []string {
	out := make([]string, 0, t.Len())
	for _, r := range t.Rows {
		out = append(out, r.Str(t.Kind.Schema().Key))
	}
	return out
}

func TestApply_DateRangeInclusiveByDay(t *testing.T) {
	f := FilterSet{DateFrom: StringPtr("2025-07-01"), DateTo: StringPtr("2025-09-30")}
	got := f.Apply(salesFixture(), nil)
	// t5 has no date and is retained.
	assert.Equal(t, []string{"t2", "t3", "t5"}, ids(got))
}

func TestApply_CaseInsensitiveEquality(t *testing.T) {
	f := FilterSet{Region: StringPtr("SOUTH")}
	assert.Equal(t, []string{"t2"}, ids(f.Apply(salesFixture(), nil)))

	f = FilterSet{Region: StringPtr("north"), Product: StringPtr("product a")}
	// t5 lacks product, so only the region predicate applies to it.
	assert.Equal(t, []string{"t1", "t3", "t5"}, ids(f.Apply(salesFixture(), nil)))
}

func TestApply_MinAmountUsesKindAmountColumn(t *testing.T) {
	f := FilterSet{MinAmount: FloatPtr(250)}
	assert.Equal(t, []string{"t2", "t3"}, ids(f.Apply(salesFixture(), nil)))

	fin := NewTable(FinancialRecords, []Row{
		{"month": "2025-12", "revenue": 1000.0},
		{"month": "2025-11", "revenue": 10.0},
	})
	assert.Equal(t, []string{"2025-12"}, ids(f.Apply(fin, nil)))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	src := salesFixture()
	out := FilterSet{Region: StringPtr("North")}.Apply(src, nil)
	out.Rows[0]["region"] = "changed"
	assert.Equal(t, 5, src.Len())
	assert.Equal(t, "North", src.Rows[0].Str("region"))
}

func TestApply_IndustryThroughLookup(t *testing.T) {
	opps := NewTable(Opportunities, []Row{
		{"opportunity_id": "o1", "customer_id": "c1", "value": 1.0},
		{"opportunity_id": "o2", "customer_id": "c2", "value": 1.0},
		{"opportunity_id": "o3", "customer_id": "unknown", "value": 1.0},
	})
	customers := NewTable(Customers, []Row{
		{"customer_id": "c1", "industry": "Retail"},
		{"customer_id": "c2", "industry": "Finance"},
	})
	f := FilterSet{Industry: StringPtr("retail")}
	require.True(t, f.NeedsIndustryJoin(Opportunities))
	assert.False(t, f.NeedsIndustryJoin(SalesTransactions))

	// Rows whose customer cannot be resolved do not join and are dropped.
	got := f.Apply(opps, IndustryIndex(customers))
	assert.Equal(t, []string{"o1"}, ids(got))

	// Without a lookup the filter is inapplicable.
	assert.Equal(t, 3, f.Apply(opps, nil).Len())
}

func TestFilterSet_UnmarshalLoose(t *testing.T) {
	var f FilterSet
	err := json.Unmarshal([]byte(`{
		"date_from": "2025-07-01", "date_to": null, "region": "null",
		"product": "", "industry": "Retail", "min_amount": "1,500.50",
		"transaction_type": "any", "unknown": 3
	}`), &f)
	require.NoError(t, err)
	require.NotNil(t, f.DateFrom)
	assert.Equal(t, "2025-07-01", *f.DateFrom)
	assert.Nil(t, f.DateTo)
	assert.Nil(t, f.Region)
	assert.Nil(t, f.Product)
	assert.Nil(t, f.TransactionType)
	require.NotNil(t, f.MinAmount)
	assert.InDelta(t, 1500.50, *f.MinAmount, 1e-9)
	assert.Equal(t, []string{"date_from", "industry", "min_amount"}, f.Active())
}

func TestFilterSet_Normalize(t *testing.T) {
	f := FilterSet{DateFrom: StringPtr("Q3"), DateTo: StringPtr("2025-09-30"), Region: StringPtr("  ")}
	got, dropped := f.Normalize()
	assert.Nil(t, got.DateFrom)
	assert.Nil(t, got.Region)
	require.NotNil(t, got.DateTo)
	assert.ElementsMatch(t, []string{"date_from", "region"}, dropped)
	assert.False(t, got.IsEmpty())
	assert.True(t, FilterSet{}.IsEmpty())
}

func TestParseNumeric(t *testing.T) {
	cases := map[string]float64{
		"1234":      1234,
		"1,234":     1234,
		"1,234.56":  1234.56,
		"1.234,56":  1234.56,
		"12,5":      12.5,
		"$99.90":    99.9,
		"45%":       45,
		"1 234,5":   1234.5,
		"-3.25":     -3.25,
		"1,234,567": 1234567,
	}
	for in, want := range cases {
		got, ok := ParseNumeric(in)
		if assert.True(t, ok, in) {
			assert.InDelta(t, want, got, 1e-9, in)
		}
	}
	_, ok := ParseNumeric("abc")
	assert.False(t, ok)
	_, ok = ParseNumeric("")
	assert.False(t, ok)
}
