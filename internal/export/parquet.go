// Package export writes fetched gateway tables to Parquet files using
// github.com/parquet-go/parquet-go.
package export

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/KaramelBytes/insightloom/internal/gateway"
)

// SalesRow maps to the sales_transactions table.
type SalesRow struct {
	TransactionID string     `parquet:"transaction_id,snappy"`
	Date          *time.Time `parquet:"date,optional,snappy"`
	Customer      string     `parquet:"customer,snappy"`
	CustomerID    string     `parquet:"customer_id,snappy"`
	Industry      string     `parquet:"industry,snappy"`
	Product       string     `parquet:"product,snappy"`
	Quantity      *int64     `parquet:"quantity,optional,snappy"`
	UnitPrice     *float64   `parquet:"unit_price,optional,snappy"`
	Total         *float64   `parquet:"total,optional,snappy"`
	Region        string     `parquet:"region,snappy"`
	SalesRep      string     `parquet:"sales_rep,snappy"`
	Status        string     `parquet:"status,snappy"`
}

// FinancialRow maps to the financial_records table.
type FinancialRow struct {
	Month        string   `parquet:"month,snappy"`
	Revenue      *float64 `parquet:"revenue,optional,snappy"`
	Expenses     *float64 `parquet:"expenses,optional,snappy"`
	Profit       *float64 `parquet:"profit,optional,snappy"`
	ProfitMargin *float64 `parquet:"profit_margin,optional,snappy"`
}

// CustomerRow maps to the customers table.
type CustomerRow struct {
	CustomerID     string     `parquet:"customer_id,snappy"`
	CompanyName    string     `parquet:"company_name,snappy"`
	ContactPerson  string     `parquet:"contact_person,snappy"`
	Email          string     `parquet:"email,snappy"`
	Phone          string     `parquet:"phone,snappy"`
	Industry       string     `parquet:"industry,snappy"`
	DealValue      *float64   `parquet:"deal_value,optional,snappy"`
	Stage          string     `parquet:"stage,snappy"`
	LastContact    *time.Time `parquet:"last_contact,optional,snappy"`
	AccountManager string     `parquet:"account_manager,snappy"`
}

// OpportunityRow maps to the opportunities table.
type OpportunityRow struct {
	OpportunityID   string     `parquet:"opportunity_id,snappy"`
	Customer        string     `parquet:"customer,snappy"`
	CustomerID      string     `parquet:"customer_id,snappy"`
	OpportunityName string     `parquet:"opportunity_name,snappy"`
	Value           *float64   `parquet:"value,optional,snappy"`
	Stage           string     `parquet:"stage,snappy"`
	Probability     *int64     `parquet:"probability,optional,snappy"`
	CloseDate       *time.Time `parquet:"close_date,optional,snappy"`
	Owner           string     `parquet:"owner,snappy"`
}

// TransactionRow maps to the business_transactions table.
type TransactionRow struct {
	TransactionID string     `parquet:"transaction_id,snappy"`
	Date          *time.Time `parquet:"date,optional,snappy"`
	Customer      string     `parquet:"customer,snappy"`
	CustomerID    string     `parquet:"customer_id,snappy"`
	Industry      string     `parquet:"industry,snappy"`
	Type          string     `parquet:"type,snappy"`
	Amount        *float64   `parquet:"amount,optional,snappy"`
	Status        string     `parquet:"status,snappy"`
	Reference     string     `parquet:"reference,snappy"`
	Description   string     `parquet:"description,snappy"`
}

// InventoryRow maps to the inventory table.
type InventoryRow struct {
	ProductID      string   `parquet:"product_id,snappy"`
	ProductName    string   `parquet:"product_name,snappy"`
	Category       string   `parquet:"category,snappy"`
	QuantityOnHand *int64   `parquet:"quantity_on_hand,optional,snappy"`
	ReorderLevel   *int64   `parquet:"reorder_level,optional,snappy"`
	UnitCost       *float64 `parquet:"unit_cost,optional,snappy"`
	Warehouse      string   `parquet:"warehouse,snappy"`
}

// WriteTable writes t to outputPath with the row struct of its kind and
// returns the number of rows written.
func WriteTable(t *gateway.Table, outputPath string) (int, error) {
	if t == nil {
		return 0, fmt.Errorf("nothing to export")
	}
	switch t.Kind {
	case gateway.SalesTransactions:
		return writeRows(outputPath, ConvertSales(t))
	case gateway.FinancialRecords:
		return writeRows(outputPath, ConvertFinancial(t))
	case gateway.Customers:
		return writeRows(outputPath, ConvertCustomers(t))
	case gateway.Opportunities:
		return writeRows(outputPath, ConvertOpportunities(t))
	case gateway.BusinessTransactions:
		return writeRows(outputPath, ConvertTransactions(t))
	case gateway.Inventory:
		return writeRows(outputPath, ConvertInventory(t))
	}
	return 0, fmt.Errorf("unsupported table kind %s", t.Kind)
}

func writeRows[T any](outputPath string, data []T) (int, error) {
	file, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	n, err := writer.Write(data)
	if err != nil {
		_ = writer.Close()
		return n, fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return n, fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return n, nil
}

// ConvertSales maps sales rows to SalesRow.
func ConvertSales(t *gateway.Table) []SalesRow {
	out := make([]SalesRow, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = SalesRow{
			TransactionID: r.Str("transaction_id"),
			Date:          timePtr(r, "date"),
			Customer:      r.Str("customer"),
			CustomerID:    r.Str("customer_id"),
			Industry:      r.Str("industry"),
			Product:       r.Str("product"),
			Quantity:      intPtr(r, "quantity"),
			UnitPrice:     floatPtr(r, "unit_price"),
			Total:         floatPtr(r, "total"),
			Region:        r.Str("region"),
			SalesRep:      r.Str("sales_rep"),
			Status:        r.Str("status"),
		}
	}
	return out
}

// ConvertFinancial maps financial rows to FinancialRow.
func ConvertFinancial(t *gateway.Table) []FinancialRow {
	out := make([]FinancialRow, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = FinancialRow{
			Month:        r.Str("month"),
			Revenue:      floatPtr(r, "revenue"),
			Expenses:     floatPtr(r, "expenses"),
			Profit:       floatPtr(r, "profit"),
			ProfitMargin: floatPtr(r, "profit_margin"),
		}
	}
	return out
}

// ConvertCustomers maps customer rows to CustomerRow.
func ConvertCustomers(t *gateway.Table) []CustomerRow {
	out := make([]CustomerRow, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = CustomerRow{
			CustomerID:     r.Str("customer_id"),
			CompanyName:    r.Str("company_name"),
			ContactPerson:  r.Str("contact_person"),
			Email:          r.Str("email"),
			Phone:          r.Str("phone"),
			Industry:       r.Str("industry"),
			DealValue:      floatPtr(r, "deal_value"),
			Stage:          r.Str("stage"),
			LastContact:    timePtr(r, "last_contact"),
			AccountManager: r.Str("account_manager"),
		}
	}
	return out
}

// ConvertOpportunities maps opportunity rows to OpportunityRow.
func ConvertOpportunities(t *gateway.Table) []OpportunityRow {
	out := make([]OpportunityRow, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = OpportunityRow{
			OpportunityID:   r.Str("opportunity_id"),
			Customer:        r.Str("customer"),
			CustomerID:      r.Str("customer_id"),
			OpportunityName: r.Str("opportunity_name"),
			Value:           floatPtr(r, "value"),
			Stage:           r.Str("stage"),
			Probability:     intPtr(r, "probability"),
			CloseDate:       timePtr(r, "close_date"),
			Owner:           r.Str("owner"),
		}
	}
	return out
}

// ConvertTransactions maps business transaction rows to TransactionRow.
func ConvertTransactions(t *gateway.Table) []TransactionRow {
	out := make([]TransactionRow, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = TransactionRow{
			TransactionID: r.Str("transaction_id"),
			Date:          timePtr(r, "date"),
			Customer:      r.Str("customer"),
			CustomerID:    r.Str("customer_id"),
			Industry:      r.Str("industry"),
			Type:          r.Str("type"),
			Amount:        floatPtr(r, "amount"),
			Status:        r.Str("status"),
			Reference:     r.Str("reference"),
			Description:   r.Str("description"),
		}
	}
	return out
}

// ConvertInventory maps inventory rows to InventoryRow.
func ConvertInventory(t *gateway.Table) []InventoryRow {
	out := make([]InventoryRow, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = InventoryRow{
			ProductID:      r.Str("product_id"),
			ProductName:    r.Str("product_name"),
			Category:       r.Str("category"),
			QuantityOnHand: intPtr(r, "quantity_on_hand"),
			ReorderLevel:   intPtr(r, "reorder_level"),
			UnitCost:       floatPtr(r, "unit_cost"),
			Warehouse:      r.Str("warehouse"),
		}
	}
	return out
}

// Unparseable cells become nulls.
func floatPtr(r gateway.Row, col string) *float64 {
	v, ok := r.Float(col)
	if !ok {
		return nil
	}
	return &v
}

func intPtr(r gateway.Row, col string) *int64 {
	v, ok := r.Float(col)
	if !ok {
		return nil
	}
	n := int64(v)
	return &n
}

func timePtr(r gateway.Row, col string) *time.Time {
	v, ok := r.Time(col)
	if !ok {
		return nil
	}
	v = v.UTC()
	return &v
}
