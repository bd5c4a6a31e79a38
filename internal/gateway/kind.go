// Package gateway maps requested data-source names and filters to immutable,
// filtered tables. Backends (in-memory, CSV, SQL) implement DataSource.
package gateway

import "strings"

// Kind enumerates the table kinds the gateway can serve.
type Kind int

const (
	SalesTransactions Kind = iota + 1
	FinancialRecords
	Customers
	Opportunities
	BusinessTransactions
	Inventory
)

// AllKinds returns every kind in a stable order.
func AllKinds() []Kind {
	return []Kind{SalesTransactions, FinancialRecords, Customers, Opportunities, BusinessTransactions, Inventory}
}

// String returns the data-source key of the table, e.g. "sales_transactions".
func (k Kind) String() string {
	switch k {
	case SalesTransactions:
		return "sales_transactions"
	case FinancialRecords:
		return "financial_records"
	case Customers:
		return "customers"
	case Opportunities:
		return "opportunities"
	case BusinessTransactions:
		return "business_transactions"
	case Inventory:
		return "inventory"
	default:
		return "unknown"
	}
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range AllKinds() {
		if k.String() == s {
			return k, true
		}
	}
	return 0, false
}

// Source keys used by parsed requests.
const (
	SourceERPSales         = "erp_sales"
	SourceERPFinancial     = "erp_financial"
	SourceERPInventory     = "erp_inventory"
	SourceCRMCustomers     = "crm_customers"
	SourceCRMOpportunities = "crm_opportunities"
	SourceTransactions     = "transactions"
)

// SourceKeys lists every recognized source key in catalogue order.
func SourceKeys() []string {
	return []string{SourceERPSales, SourceERPFinancial, SourceERPInventory, SourceCRMCustomers, SourceCRMOpportunities, SourceTransactions}
}

// KindForSource resolves a source key to its table kind.
// Unknown keys report false and are skipped by the gateway.
func KindForSource(key string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case SourceERPSales:
		return SalesTransactions, true
	case SourceERPFinancial:
		return FinancialRecords, true
	case SourceERPInventory:
		return Inventory, true
	case SourceCRMCustomers:
		return Customers, true
	case SourceCRMOpportunities:
		return Opportunities, true
	case SourceTransactions:
		return BusinessTransactions, true
	default:
		return 0, false
	}
}

// ColumnType is the scalar type of a column.
type ColumnType int

const (
	ColString ColumnType = iota
	ColNumber
	ColInt
	ColDate
)

// Column describes one column of a table kind.
type Column struct {
	Name string
	Type ColumnType
}

// Schema is the fixed column layout of a table kind plus the columns
// filters resolve against. Empty DateColumn/AmountColumn means the filter
// does not apply to the kind.
type Schema struct {
	Columns      []Column
	Key          string
	DateColumn   string
	AmountColumn string
	// OrderBy is the documented row order every source must reproduce.
	OrderBy string
}

// Schema returns the layout for k.
func (k Kind) Schema() Schema {
	switch k {
	case SalesTransactions:
		return Schema{
			Columns: []Column{
				{"transaction_id", ColString}, {"date", ColDate}, {"customer", ColString},
				{"customer_id", ColString}, {"industry", ColString}, {"product", ColString},
				{"quantity", ColInt}, {"unit_price", ColNumber}, {"total", ColNumber},
				{"region", ColString}, {"sales_rep", ColString}, {"status", ColString},
			},
			Key: "transaction_id", DateColumn: "date", AmountColumn: "total",
			OrderBy: "date ASC, transaction_id ASC",
		}
	case FinancialRecords:
		// Most recent month first; the margin-drop rule relies on it.
		return Schema{
			Columns: []Column{
				{"month", ColString}, {"revenue", ColNumber}, {"expenses", ColNumber},
				{"profit", ColNumber}, {"profit_margin", ColNumber},
			},
			Key: "month", AmountColumn: "revenue",
			OrderBy: "month DESC",
		}
	case Customers:
		return Schema{
			Columns: []Column{
				{"customer_id", ColString}, {"company_name", ColString}, {"contact_person", ColString},
				{"email", ColString}, {"phone", ColString}, {"industry", ColString},
				{"deal_value", ColNumber}, {"stage", ColString}, {"last_contact", ColDate},
				{"account_manager", ColString},
			},
			Key: "customer_id", AmountColumn: "deal_value",
			OrderBy: "company_name ASC, customer_id ASC",
		}
	case Opportunities:
		return Schema{
			Columns: []Column{
				{"opportunity_id", ColString}, {"customer", ColString}, {"customer_id", ColString},
				{"opportunity_name", ColString}, {"value", ColNumber}, {"stage", ColString},
				{"probability", ColInt}, {"close_date", ColDate}, {"owner", ColString},
			},
			Key: "opportunity_id", DateColumn: "close_date", AmountColumn: "value",
			OrderBy: "close_date ASC, opportunity_id ASC",
		}
	case BusinessTransactions:
		return Schema{
			Columns: []Column{
				{"transaction_id", ColString}, {"date", ColDate}, {"customer", ColString},
				{"customer_id", ColString}, {"industry", ColString}, {"type", ColString},
				{"amount", ColNumber}, {"status", ColString}, {"reference", ColString},
				{"description", ColString},
			},
			Key: "transaction_id", DateColumn: "date", AmountColumn: "amount",
			OrderBy: "date ASC, transaction_id ASC",
		}
	case Inventory:
		return Schema{
			Columns: []Column{
				{"product_id", ColString}, {"product_name", ColString}, {"category", ColString},
				{"quantity_on_hand", ColInt}, {"reorder_level", ColInt}, {"unit_cost", ColNumber},
				{"warehouse", ColString},
			},
			Key:     "product_id",
			OrderBy: "product_name ASC, product_id ASC",
		}
	default:
		return Schema{}
	}
}

// ColumnNames returns the schema column names in order.
func (s Schema) ColumnNames() []string {
	out := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		out[i] = c.Name
	}
	return out
}

// TypeOf returns the declared type of col, or ColString when unknown.
func (s Schema) TypeOf(col string) ColumnType {
	for _, c := range s.Columns {
		if c.Name == col {
			return c.Type
		}
	}
	return ColString
}
