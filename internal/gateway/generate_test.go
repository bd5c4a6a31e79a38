package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byKind(tables []*Table) map[Kind]*Table {
	out := map[Kind]*Table{}
	for _, t := range tables {
		out[t.Kind] = t
	}
	return out
}

func TestGenerate_SizesAndOrder(t *testing.T) {
	ts := byKind(Generate(42))
	require.Len(t, ts, len(AllKinds()))

	assert.Equal(t, GenCustomers, ts[Customers].Len())
	assert.Equal(t, GenSales, ts[SalesTransactions].Len())
	assert.Equal(t, 12, ts[FinancialRecords].Len())
	assert.Equal(t, GenInventory, ts[Inventory].Len())
	assert.Equal(t, GenOpportunities, ts[Opportunities].Len())
	assert.Equal(t, GenBusinessTransactions, ts[BusinessTransactions].Len())

	fin := ts[FinancialRecords].Rows
	assert.Equal(t, "2025-12", fin[0].Str("month"))
	assert.Equal(t, "2025-01", fin[len(fin)-1].Str("month"))

	sales := ts[SalesTransactions].Rows
	for i := 1; i < len(sales); i++ {
		prev, _ := sales[i-1].Time("date")
		cur, _ := sales[i].Time("date")
		assert.False(t, cur.Before(prev), "sales not sorted at %d", i)
		assert.Equal(t, 2025, cur.Year())
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := byKind(Generate(7))
	b := byKind(Generate(7))
	c := byKind(Generate(8))
	for _, k := range AllKinds() {
		assert.Equal(t, a[k].Rows, b[k].Rows, k.String())
	}
	assert.NotEqual(t, a[SalesTransactions].Rows, c[SalesTransactions].Rows)
}

func TestGenerate_Interlinked(t *testing.T) {
	ts := byKind(Generate(42))
	customers := map[string]Row{}
	for _, r := range ts[Customers].Rows {
		customers[r.Str("customer_id")] = r
	}
	for _, k := range []Kind{SalesTransactions, Opportunities, BusinessTransactions} {
		for _, r := range ts[k].Rows {
			c, ok := customers[r.Str("customer_id")]
			require.True(t, ok, "%s row references unknown customer", k)
			assert.Equal(t, c.Str("company_name"), r.Str("customer"))
		}
	}
	for _, r := range ts[SalesTransactions].Rows {
		q, _ := r.Float("quantity")
		p, _ := r.Float("unit_price")
		total, _ := r.Float("total")
		assert.InDelta(t, q*p, total, 0.01)
	}
}
