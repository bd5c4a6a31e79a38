// Package analysis computes summaries, anomaly findings, insights and
// short-term forecasts over the tables returned by the gateway. Every
// function treats its input tables as read-only.
package analysis

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/insightloom/internal/gateway"
)

// NotAvailable fills categorical summary fields when there is nothing to rank.
const NotAvailable = "N/A"

// ErrMalformedTable marks tables whose required columns are missing or
// hold non-numeric values.
var ErrMalformedTable = errors.New("malformed table")

// MalformedError describes where a table failed validation.
type MalformedError struct {
	Kind   gateway.Kind
	Column string
	Row    int // -1 when the column itself is missing
	Value  any
}

func (e *MalformedError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("malformed table %s: missing column %q", e.Kind, e.Column)
	}
	return fmt.Sprintf("malformed table %s: column %q row %d: non-numeric value %v", e.Kind, e.Column, e.Row, e.Value)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedTable }

type SalesSummary struct {
	TotalRevenue      float64 `json:"total_revenue"`
	TotalTransactions int     `json:"total_transactions"`
	AvgTransaction    float64 `json:"avg_transaction"`
	TopProduct        string  `json:"top_product"`
	TopRegion         string  `json:"top_region"`
	TotalQuantity     int     `json:"total_quantity"`
}

type CRMSummary struct {
	TotalCustomers int     `json:"total_customers"`
	TotalDealValue float64 `json:"total_deal_value"`
	AvgDealValue   float64 `json:"avg_deal_value"`
	ConversionRate float64 `json:"conversion_rate"`
	TopIndustry    string  `json:"top_industry"`
}

type FinancialSummary struct {
	TotalRevenue    float64 `json:"total_revenue"`
	TotalExpenses   float64 `json:"total_expenses"`
	TotalProfit     float64 `json:"total_profit"`
	AvgProfitMargin float64 `json:"avg_profit_margin"`
}

type TransactionSummary struct {
	TotalTransactions int     `json:"total_transactions"`
	Completed         int     `json:"completed"`
	Pending           int     `json:"pending"`
	TotalAmount       float64 `json:"total_amount"`
}

type OpportunitySummary struct {
	TotalOpportunities int     `json:"total_opportunities"`
	TotalValue         float64 `json:"total_value"`
	WeightedPipeline   float64 `json:"weighted_pipeline"`
	Won                int     `json:"won"`
}

type InventorySummary struct {
	TotalItems   int     `json:"total_items"`
	TotalUnits   int     `json:"total_units"`
	BelowReorder int     `json:"below_reorder"`
	StockValue   float64 `json:"stock_value"`
}

// Aggregates holds one summary per fetched table kind. Kinds that were not
// fetched stay nil and are omitted from JSON.
type Aggregates struct {
	Sales        *SalesSummary       `json:"sales_summary,omitempty"`
	CRM          *CRMSummary         `json:"crm_summary,omitempty"`
	Financial    *FinancialSummary   `json:"financial_summary,omitempty"`
	Transactions *TransactionSummary `json:"transaction_summary,omitempty"`
	Opportunity  *OpportunitySummary `json:"opportunity_summary,omitempty"`
	Inventory    *InventorySummary   `json:"inventory_summary,omitempty"`
}

// Empty reports whether no summary was produced.
func (a Aggregates) Empty() bool {
	return a.Sales == nil && a.CRM == nil && a.Financial == nil &&
		a.Transactions == nil && a.Opportunity == nil && a.Inventory == nil
}

// Aggregate summarizes every table present in tables.
func Aggregate(tables gateway.Tables) (Aggregates, error) {
	var out Aggregates
	for _, k := range gateway.AllKinds() {
		t, ok := tables.Get(k)
		if !ok {
			continue
		}
		var err error
		switch k {
		case gateway.SalesTransactions:
			out.Sales, err = summarizeSales(t)
		case gateway.Customers:
			out.CRM, err = summarizeCRM(t)
		case gateway.FinancialRecords:
			out.Financial, err = summarizeFinancial(t)
		case gateway.BusinessTransactions:
			out.Transactions, err = summarizeTransactions(t)
		case gateway.Opportunities:
			out.Opportunity, err = summarizeOpportunities(t)
		case gateway.Inventory:
			out.Inventory, err = summarizeInventory(t)
		}
		if err != nil {
			return out, err
		}
	}
	return out, nil
}

// column reads numeric values of one column. Nil and non-finite cells are
// skipped; a cell that does not coerce to a number, or a required column
// absent from a non-empty table, is a MalformedError.
type column struct {
	t        *gateway.Table
	name     string
	required bool
}

func (c column) check() error {
	if c.required && c.t.Len() > 0 && !c.t.HasColumn(c.name) {
		return &MalformedError{Kind: c.t.Kind, Column: c.name, Row: -1}
	}
	return nil
}

func (c column) at(i int) (float64, bool, error) {
	r := c.t.Rows[i]
	if !r.Has(c.name) || gateway.IsNonFinite(r[c.name]) {
		return 0, false, nil
	}
	v, ok := r.Float(c.name)
	if !ok {
		return 0, false, &MalformedError{Kind: c.t.Kind, Column: c.name, Row: i, Value: r[c.name]}
	}
	return v, true, nil
}

func checkAll(cols ...column) error {
	for _, c := range cols {
		if err := c.check(); err != nil {
			return err
		}
	}
	return nil
}

func summarizeSales(t *gateway.Table) (*SalesSummary, error) {
	total := column{t, "total", true}
	qty := column{t, "quantity", false}
	if err := checkAll(total, qty); err != nil {
		return nil, err
	}
	s := &SalesSummary{TotalTransactions: t.Len()}
	var products, regions argmax
	var acc welford
	for i, r := range t.Rows {
		v, ok, err := total.at(i)
		if err != nil {
			return nil, err
		}
		if ok {
			acc.add(v)
			s.TotalRevenue += v
			if r.Has("product") {
				products.add(r.Str("product"), v)
			}
			if r.Has("region") {
				regions.add(r.Str("region"), v)
			}
		}
		q, ok, err := qty.at(i)
		if err != nil {
			return nil, err
		}
		if ok {
			s.TotalQuantity += int(q)
		}
	}
	s.AvgTransaction = acc.mean
	s.TopProduct = products.top()
	s.TopRegion = regions.top()
	return s, nil
}

func summarizeCRM(t *gateway.Table) (*CRMSummary, error) {
	deal := column{t, "deal_value", true}
	if err := deal.check(); err != nil {
		return nil, err
	}
	s := &CRMSummary{TotalCustomers: t.Len()}
	var industries argmax
	var acc welford
	won := 0
	for i, r := range t.Rows {
		v, ok, err := deal.at(i)
		if err != nil {
			return nil, err
		}
		if ok {
			acc.add(v)
			s.TotalDealValue += v
			if r.Has("industry") {
				industries.add(r.Str("industry"), v)
			}
		}
		if r.Str("stage") == "Closed Won" {
			won++
		}
	}
	s.AvgDealValue = acc.mean
	if s.TotalCustomers > 0 {
		s.ConversionRate = float64(won) / float64(s.TotalCustomers) * 100
	}
	s.TopIndustry = industries.top()
	return s, nil
}

func summarizeFinancial(t *gateway.Table) (*FinancialSummary, error) {
	rev := column{t, "revenue", true}
	exp := column{t, "expenses", true}
	profit := column{t, "profit", true}
	margin := column{t, "profit_margin", true}
	if err := checkAll(rev, exp, profit, margin); err != nil {
		return nil, err
	}
	s := &FinancialSummary{}
	var acc welford
	for i := range t.Rows {
		for _, c := range []struct {
			col column
			dst *float64
		}{{rev, &s.TotalRevenue}, {exp, &s.TotalExpenses}, {profit, &s.TotalProfit}} {
			v, ok, err := c.col.at(i)
			if err != nil {
				return nil, err
			}
			if ok {
				*c.dst += v
			}
		}
		m, ok, err := margin.at(i)
		if err != nil {
			return nil, err
		}
		if ok {
			acc.add(m)
		}
	}
	s.AvgProfitMargin = acc.mean
	return s, nil
}

func summarizeTransactions(t *gateway.Table) (*TransactionSummary, error) {
	amount := column{t, "amount", true}
	if err := amount.check(); err != nil {
		return nil, err
	}
	s := &TransactionSummary{TotalTransactions: t.Len()}
	for i, r := range t.Rows {
		v, ok, err := amount.at(i)
		if err != nil {
			return nil, err
		}
		if ok {
			s.TotalAmount += v
		}
		switch r.Str("status") {
		case "Completed":
			s.Completed++
		case "Pending":
			s.Pending++
		}
	}
	return s, nil
}

func summarizeOpportunities(t *gateway.Table) (*OpportunitySummary, error) {
	value := column{t, "value", true}
	prob := column{t, "probability", false}
	if err := checkAll(value, prob); err != nil {
		return nil, err
	}
	s := &OpportunitySummary{TotalOpportunities: t.Len()}
	for i, r := range t.Rows {
		v, ok, err := value.at(i)
		if err != nil {
			return nil, err
		}
		p, pok, err := prob.at(i)
		if err != nil {
			return nil, err
		}
		if ok {
			s.TotalValue += v
			if pok {
				s.WeightedPipeline += v * p / 100
			}
		}
		if r.Str("stage") == "Closed Won" {
			s.Won++
		}
	}
	return s, nil
}

func summarizeInventory(t *gateway.Table) (*InventorySummary, error) {
	qty := column{t, "quantity_on_hand", true}
	reorder := column{t, "reorder_level", false}
	cost := column{t, "unit_cost", false}
	if err := checkAll(qty, reorder, cost); err != nil {
		return nil, err
	}
	s := &InventorySummary{TotalItems: t.Len()}
	for i := range t.Rows {
		q, ok, err := qty.at(i)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		s.TotalUnits += int(q)
		lvl, lok, err := reorder.at(i)
		if err != nil {
			return nil, err
		}
		if lok && q < lvl {
			s.BelowReorder++
		}
		c, cok, err := cost.at(i)
		if err != nil {
			return nil, err
		}
		if cok {
			s.StockValue += q * c
		}
	}
	return s, nil
}
