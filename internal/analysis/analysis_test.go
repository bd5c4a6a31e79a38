package analysis

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/insightloom/internal/gateway"
)

func tables(ts ...*gateway.Table) gateway.Tables {
	out := gateway.Tables{}
	for _, t := range ts {
		out[t.Kind] = t
	}
	return out
}

func salesRows(totals ...float64) *gateway.Table {
	rows := make([]gateway.Row, len(totals))
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range totals {
		rows[i] = gateway.Row{
			"transaction_id": fmt.Sprintf("t%03d", i),
			"date":           base,
			"product":        "Product A",
			"region":         "North",
			"quantity":       1,
			"total":          v,
		}
	}
	return gateway.NewTable(gateway.SalesTransactions, rows)
}

func TestAggregate_EmptySales(t *testing.T) {
	agg, err := Aggregate(tables(gateway.NewTable(gateway.SalesTransactions, nil)))
	require.NoError(t, err)
	require.NotNil(t, agg.Sales)
	assert.Equal(t, SalesSummary{TopProduct: NotAvailable, TopRegion: NotAvailable}, *agg.Sales)
	assert.Nil(t, agg.CRM)
	assert.Nil(t, agg.Financial)
}

func TestAggregate_SalesTopGroupsAndTies(t *testing.T) {
	tbl := gateway.NewTable(gateway.SalesTransactions, []gateway.Row{
		{"product": "B", "region": "West", "total": 100.0, "quantity": 2},
		{"product": "A", "region": "East", "total": 100.0, "quantity": 3},
		{"product": "C", "region": "East", "total": 50.0, "quantity": nil},
	})
	agg, err := Aggregate(tables(tbl))
	require.NoError(t, err)
	s := agg.Sales
	assert.Equal(t, 250.0, s.TotalRevenue)
	assert.Equal(t, 3, s.TotalTransactions)
	assert.InDelta(t, 83.333, s.AvgTransaction, 1e-3)
	// B and A tie at 100; the first seen wins.
	assert.Equal(t, "B", s.TopProduct)
	assert.Equal(t, "East", s.TopRegion)
	assert.Equal(t, 5, s.TotalQuantity)
}

func TestAggregate_CRMConversion(t *testing.T) {
	tbl := gateway.NewTable(gateway.Customers, []gateway.Row{
		{"customer_id": "1", "industry": "Retail", "deal_value": 10.0, "stage": "Closed Won"},
		{"customer_id": "2", "industry": "Finance", "deal_value": 30.0, "stage": "Lead"},
		{"customer_id": "3", "industry": "Retail", "deal_value": 25.0, "stage": "Proposal"},
		{"customer_id": "4", "industry": "Finance", "deal_value": 1.0, "stage": "Closed Lost"},
	})
	agg, err := Aggregate(tables(tbl))
	require.NoError(t, err)
	assert.Equal(t, 25.0, agg.CRM.ConversionRate)
	assert.Equal(t, 4, agg.CRM.TotalCustomers)
	assert.Equal(t, 66.0, agg.CRM.TotalDealValue)
	assert.Equal(t, 16.5, agg.CRM.AvgDealValue)
	assert.Equal(t, "Retail", agg.CRM.TopIndustry)
}

func TestAggregate_SupplementalSummaries(t *testing.T) {
	opps := gateway.NewTable(gateway.Opportunities, []gateway.Row{
		{"value": 1000.0, "probability": 50, "stage": "Closed Won"},
		{"value": 2000.0, "probability": 10, "stage": "Proposal"},
	})
	inv := gateway.NewTable(gateway.Inventory, []gateway.Row{
		{"quantity_on_hand": 10, "reorder_level": 50, "unit_cost": 2.5},
		{"quantity_on_hand": 100, "reorder_level": 50, "unit_cost": 1.0},
	})
	txns := gateway.NewTable(gateway.BusinessTransactions, []gateway.Row{
		{"amount": 10.0, "status": "Completed"},
		{"amount": 5.0, "status": "Pending"},
		{"amount": 1.0, "status": "Failed"},
	})
	agg, err := Aggregate(tables(opps, inv, txns))
	require.NoError(t, err)
	assert.Equal(t, OpportunitySummary{TotalOpportunities: 2, TotalValue: 3000, WeightedPipeline: 700, Won: 1}, *agg.Opportunity)
	assert.Equal(t, InventorySummary{TotalItems: 2, TotalUnits: 110, BelowReorder: 1, StockValue: 125}, *agg.Inventory)
	assert.Equal(t, TransactionSummary{TotalTransactions: 3, Completed: 1, Pending: 1, TotalAmount: 16}, *agg.Transactions)
}

func TestAggregate_MalformedTable(t *testing.T) {
	tbl := gateway.NewTable(gateway.SalesTransactions, []gateway.Row{
		{"total": 10.0},
		{"total": "not-a-number"},
	})
	_, err := Aggregate(tables(tbl))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedTable)
	var me *MalformedError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, 1, me.Row)
	assert.Equal(t, "total", me.Column)

	missing := gateway.NewTable(gateway.FinancialRecords, []gateway.Row{{"month": "2025-01", "revenue": 1.0}})
	_, err = Aggregate(tables(missing))
	assert.ErrorIs(t, err, ErrMalformedTable)
}

func TestDetect_HighValue(t *testing.T) {
	totals := make([]float64, 100)
	for i := range totals {
		totals[i] = 100
	}
	findings, err := Detect(tables(salesRows(append(totals, 100000)...)))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, "high_value_transaction", f.Type)
	assert.Equal(t, SeverityMedium, f.Severity)
	require.NotNil(t, f.Count)
	assert.Equal(t, 1, *f.Count)
	require.NotNil(t, f.MaxValue)
	assert.Equal(t, 100000.0, *f.MaxValue)
	assert.Equal(t, "Detected 1 unusually high-value transactions", f.Message)

	findings, err = Detect(tables(salesRows(totals...)))
	require.NoError(t, err)
	assert.Empty(t, findings)

	// A single row has zero deviation and cannot exceed its own mean.
	findings, err = Detect(tables(salesRows(5)))
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func financial(margins ...float64) *gateway.Table {
	rows := make([]gateway.Row, len(margins))
	for i, m := range margins {
		rows[i] = gateway.Row{"month": fmt.Sprintf("2025-%02d", 12-i), "revenue": 100.0, "expenses": 100 - m, "profit": m, "profit_margin": m}
	}
	return gateway.NewTable(gateway.FinancialRecords, rows)
}

func TestDetect_MarginDrop(t *testing.T) {
	findings, err := Detect(tables(financial(10)))
	require.NoError(t, err)
	assert.Empty(t, findings, "fewer than two rows never yields a margin finding")

	findings, err = Detect(tables(financial(10, 30, 30, 30)))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	f := findings[0]
	assert.Equal(t, "profit_margin_drop", f.Type)
	assert.Equal(t, SeverityHigh, f.Severity)
	assert.Equal(t, 10.0, *f.RecentValue)
	assert.Equal(t, 25.0, *f.AverageValue)
	assert.Equal(t, "Profit margin dropped to 10.00% (avg: 25.00%)", f.Message)

	findings, err = Detect(tables(financial(29, 30, 30, 30)))
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestDetect_SalesFindingsPrecedeFinancial(t *testing.T) {
	totals := make([]float64, 50)
	for i := range totals {
		totals[i] = 1
	}
	findings, err := Detect(tables(financial(1, 40, 40), salesRows(append(totals, 1e6)...)))
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "high_value_transaction", findings[0].Type)
	assert.Equal(t, "profit_margin_drop", findings[1].Type)
}

type stubRule struct{ name string }

func (s stubRule) Name() string { return s.name }
func (s stubRule) Evaluate(gateway.Tables) ([]Finding, error) {
	return []Finding{{Type: s.name, Severity: SeverityLow, Message: "stub"}}, nil
}

func TestDetectWith_CustomRulesKeepOrder(t *testing.T) {
	findings, err := DetectWith(gateway.Tables{}, stubRule{"a"}, stubRule{"b"})
	require.NoError(t, err)
	require.Len(t, findings, 2)
	assert.Equal(t, "a", findings[0].Type)
	assert.Equal(t, "b", findings[1].Type)
}

func TestInsights(t *testing.T) {
	agg := Aggregates{
		Sales:     &SalesSummary{TopProduct: "Widget", TopRegion: "North", AvgTransaction: 1234.5},
		CRM:       &CRMSummary{ConversionRate: 25, TopIndustry: "Retail"},
		Financial: &FinancialSummary{TotalRevenue: 200, TotalProfit: 24.6},
	}
	assert.Equal(t, []string{
		"Top performing product is Widget",
		"Top performing region is North",
		"Average transaction value is $1,234.50",
		"Deal conversion rate is 25.0%",
		"Retail sector has highest deal values",
		"Overall profit margin is 12.3%",
	}, Insights(agg))

	agg.Financial.TotalRevenue = 0
	assert.NotContains(t, Insights(agg), "Overall profit margin is 12.3%")
	assert.Empty(t, Insights(Aggregates{}))
}

func dailySales(values ...float64) *gateway.Table {
	var rows []gateway.Row
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range values {
		// Two rows per day exercise the per-day sum.
		rows = append(rows,
			gateway.Row{"date": base.AddDate(0, 0, i), "total": v / 2},
			gateway.Row{"date": base.AddDate(0, 0, i).Add(5 * time.Hour), "total": v / 2},
		)
	}
	return gateway.NewTable(gateway.SalesTransactions, rows)
}

func TestForecast(t *testing.T) {
	got, err := Forecast(tables(dailySales(1, 2, 3, 4, 5, 6, 7)))
	require.NoError(t, err)
	assert.Empty(t, got, "seven distinct dates are not enough")

	vals := []float64{10, 10, 10, 10, 10, 10, 10, 20, 20, 20, 20, 20, 20, 20}
	got, err = Forecast(tables(dailySales(vals...)))
	require.NoError(t, err)
	require.Contains(t, got, SalesTrendKey)
	trend := got[SalesTrendKey]
	assert.InDelta(t, 100.0, trend.GrowthRate, 1e-9)
	assert.Equal(t, Up, trend.Direction)
	assert.Equal(t, "Sales are trending upward", trend.Prediction)

	rev := []float64{20, 20, 20, 20, 20, 20, 20, 20, 10, 10, 10, 10, 10, 10, 10}
	got, err = Forecast(tables(dailySales(rev...)))
	require.NoError(t, err)
	assert.Equal(t, Down, got[SalesTrendKey].Direction)
	assert.Equal(t, -50.0, got[SalesTrendKey].GrowthRate)

	zero := make([]float64, 10)
	got, err = Forecast(tables(dailySales(zero...)))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got[SalesTrendKey].GrowthRate)
	assert.Equal(t, Down, got[SalesTrendKey].Direction)
}

func TestProfileTables(t *testing.T) {
	ts := gateway.Tables{}
	for _, tbl := range gateway.Generate(42) {
		ts[tbl.Kind] = tbl
	}
	md := ProfileTables(ts, DefaultProfileOptions())
	assert.Contains(t, md, "[TABLE SALES_TRANSACTIONS]")
	assert.Contains(t, md, "- total: numeric")
	assert.Contains(t, md, "- date: datetime")
	assert.Contains(t, md, "- region: categorical")

	empty := ProfileTable(gateway.NewTable(gateway.Inventory, nil), DefaultProfileOptions())
	assert.Equal(t, 0, empty.Rows)
	assert.Contains(t, empty.Markdown(), "no rows matched")
}

func TestMedianMAD(t *testing.T) {
	med, mad := medianMAD([]float64{1, 2, 3, 4, 100})
	assert.Equal(t, 3.0, med)
	assert.Equal(t, 1.0, mad)
}

func TestAggregate_StageComparisonsAreExact(t *testing.T) {
	customers := gateway.NewTable(gateway.Customers, []gateway.Row{
		{"customer_id": "1", "industry": "Retail", "deal_value": 10.0, "stage": "Closed Won"},
		{"customer_id": "2", "industry": "Retail", "deal_value": 10.0, "stage": "closed won"},
	})
	opps := gateway.NewTable(gateway.Opportunities, []gateway.Row{
		{"value": 1000.0, "probability": 50, "stage": "Closed Won"},
		{"value": 1000.0, "probability": 50, "stage": "CLOSED WON"},
	})
	agg, err := Aggregate(tables(customers, opps))
	if err != nil {
		t.Fatal(err)
	}
	if agg.CRM.ConversionRate != 50 {
		t.Fatalf("expected conversion 50, got %v", agg.CRM.ConversionRate)
	}
	if agg.Opportunity.Won != 1 {
		t.Fatalf("expected 1 won opportunity, got %d", agg.Opportunity.Won)
	}
}
