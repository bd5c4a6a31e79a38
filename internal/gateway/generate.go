package gateway

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generated table sizes.
const (
	GenCustomers            = 100
	GenSales                = 200
	GenInventory            = 50
	GenOpportunities        = 80
	GenBusinessTransactions = 150
)

var (
	genIndustries  = []string{"Technology", "Finance", "Healthcare", "Retail", "Manufacturing"}
	genStages      = []string{"Lead", "Qualified", "Proposal", "Negotiation", "Closed Won", "Closed Lost"}
	genOppStages   = []string{"Prospecting", "Qualification", "Proposal", "Negotiation", "Closed Won"}
	genProducts    = []string{"Product A", "Product B", "Product C", "Product D", "Product E"}
	genRegions     = []string{"North", "South", "East", "West", "Central"}
	genSaleStatus  = []string{"Completed", "Pending", "Shipped"}
	genTxnTypes    = []string{"Purchase", "Sale", "Refund", "Payment"}
	genTxnStatus   = []string{"Completed", "Pending", "Failed", "Processing"}
	genCategories  = []string{"Electronics", "Furniture", "Supplies", "Equipment"}
	genWarehouses  = []string{"Warehouse A", "Warehouse B", "Warehouse C"}
	genTiers       = []string{"Pro", "Plus", "Elite", "Basic"}
	genProbability = []int{10, 25, 50, 75, 90, 100}
	genFirstNames  = []string{"Ava", "Noah", "Mia", "Liam", "Zoe", "Ethan", "Isla", "Omar", "Priya", "Lucas", "Nina", "Kenji"}
	genLastNames   = []string{"Patel", "Garcia", "Nguyen", "Smith", "Kowalski", "Okafor", "Rossi", "Tanaka", "Silva", "Meyer"}
	genCompanyA    = []string{"Blue", "North", "Bright", "Iron", "Summit", "Clear", "Vertex", "Harbor", "Pioneer", "Cedar"}
	genCompanyB    = []string{"Dynamics", "Labs", "Systems", "Holdings", "Works", "Partners", "Logistics", "Health", "Capital", "Foods"}
	genWords       = []string{"Nimbus", "Atlas", "Quartz", "Falcon", "Orbit", "Ember", "Delta", "Cobalt", "Lumen", "Sierra"}
)

type generator struct {
	rng *rand.Rand
}

func (g *generator) pick(xs []string) string { return xs[g.rng.Intn(len(xs))] }

func (g *generator) id() string {
	u, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}

func (g *generator) person() string { return g.pick(genFirstNames) + " " + g.pick(genLastNames) }

func (g *generator) dayOf2025() time.Time {
	return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, g.rng.Intn(365))
}

func (g *generator) uniform(lo, hi float64) float64 { return lo + g.rng.Float64()*(hi-lo) }

func round2(x float64) float64 { return math.Round(x*100) / 100 }

// Generate builds interlinked mock tables for the 2025 reporting year.
// The same seed always yields the same data. Sales and business
// transactions are ordered by date; financial records most recent first.
func Generate(seed int64) []*Table {
	g := &generator{rng: rand.New(rand.NewSource(seed))}

	customers := make([]Row, 0, GenCustomers)
	for i := 0; i < GenCustomers; i++ {
		company := fmt.Sprintf("%s %s", g.pick(genCompanyA), g.pick(genCompanyB))
		contact := g.person()
		customers = append(customers, Row{
			"customer_id":     g.id(),
			"company_name":    company,
			"contact_person":  contact,
			"email":           strings.ToLower(strings.ReplaceAll(contact, " ", ".")) + "@example.com",
			"phone":           fmt.Sprintf("+1-555-%04d", g.rng.Intn(10000)),
			"industry":        g.pick(genIndustries),
			"deal_value":      round2(g.uniform(10000, 500000)),
			"stage":           g.pick(genStages),
			"last_contact":    g.dayOf2025(),
			"account_manager": g.person(),
		})
	}
	sortByKey(customers, "company_name", "customer_id")

	sales := make([]Row, 0, GenSales)
	for i := 0; i < GenSales; i++ {
		c := customers[g.rng.Intn(len(customers))]
		qty := 1 + g.rng.Intn(100)
		price := round2(g.uniform(10, 1000))
		sales = append(sales, Row{
			"transaction_id": g.id(),
			"date":           g.dayOf2025(),
			"customer":       c["company_name"],
			"customer_id":    c["customer_id"],
			"industry":       c["industry"],
			"product":        g.pick(genProducts),
			"quantity":       qty,
			"unit_price":     price,
			"total":          round2(float64(qty) * price),
			"region":         g.pick(genRegions),
			"sales_rep":      c["account_manager"],
			"status":         g.pick(genSaleStatus),
		})
	}
	sortByDate(sales, "date", "transaction_id")

	financial := make([]Row, 0, 12)
	for month := 12; month >= 1; month-- {
		revenue := g.uniform(800000, 1500000)
		expenses := revenue * g.uniform(0.6, 0.8)
		financial = append(financial, Row{
			"month":         fmt.Sprintf("2025-%02d", month),
			"revenue":       round2(revenue),
			"expenses":      round2(expenses),
			"profit":        round2(revenue - expenses),
			"profit_margin": round2((revenue - expenses) / revenue * 100),
		})
	}

	inventory := make([]Row, 0, GenInventory)
	for i := 0; i < GenInventory; i++ {
		inventory = append(inventory, Row{
			"product_id":       g.id(),
			"product_name":     g.pick(genWords) + " " + g.pick(genTiers),
			"category":         g.pick(genCategories),
			"quantity_on_hand": g.rng.Intn(501),
			"reorder_level":    50 + g.rng.Intn(51),
			"unit_cost":        round2(g.uniform(10, 200)),
			"warehouse":        g.pick(genWarehouses),
		})
	}
	sortByKey(inventory, "product_name", "product_id")

	opps := make([]Row, 0, GenOpportunities)
	for i := 0; i < GenOpportunities; i++ {
		c := customers[g.rng.Intn(len(customers))]
		opps = append(opps, Row{
			"opportunity_id":   g.id(),
			"customer":         c["company_name"],
			"customer_id":      c["customer_id"],
			"opportunity_name": g.pick(genWords) + " " + g.pick([]string{"Expansion", "Renewal", "Migration", "Pilot", "Rollout"}),
			"value":            round2(g.uniform(50000, 1000000)),
			"stage":            g.pick(genOppStages),
			"probability":      genProbability[g.rng.Intn(len(genProbability))],
			"close_date":       g.dayOf2025(),
			"owner":            c["account_manager"],
		})
	}
	sortByDate(opps, "close_date", "opportunity_id")

	txns := make([]Row, 0, GenBusinessTransactions)
	for i := 0; i < GenBusinessTransactions; i++ {
		c := customers[g.rng.Intn(len(customers))]
		txns = append(txns, Row{
			"transaction_id": g.id(),
			"date":           g.dayOf2025(),
			"customer":       c["company_name"],
			"customer_id":    c["customer_id"],
			"industry":       c["industry"],
			"type":           g.pick(genTxnTypes),
			"amount":         round2(g.uniform(100, 50000)),
			"status":         g.pick(genTxnStatus),
			"reference":      fmt.Sprintf("TXN-%04d-%c%c%c%c", g.rng.Intn(10000), 'A'+g.rng.Intn(26), 'A'+g.rng.Intn(26), 'A'+g.rng.Intn(26), 'A'+g.rng.Intn(26)),
			"description":    fmt.Sprintf("%s order for %s", g.pick(genTxnTypes), c["company_name"]),
		})
	}
	sortByDate(txns, "date", "transaction_id")

	return []*Table{
		NewTable(SalesTransactions, sales),
		NewTable(FinancialRecords, financial),
		NewTable(Customers, customers),
		NewTable(Opportunities, opps),
		NewTable(BusinessTransactions, txns),
		NewTable(Inventory, inventory),
	}
}

func sortByDate(rows []Row, dateCol, idCol string) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := rows[i].Time(dateCol)
		b, _ := rows[j].Time(dateCol)
		if !a.Equal(b) {
			return a.Before(b)
		}
		return rows[i].Str(idCol) < rows[j].Str(idCol)
	})
}

func sortByKey(rows []Row, col, idCol string) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Str(col), rows[j].Str(col)
		if a != b {
			return a < b
		}
		return rows[i].Str(idCol) < rows[j].Str(idCol)
	})
}
