package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/insightloom/internal/gateway"
)

// ParsedRequest is the structured form of a free-text query.
type ParsedRequest struct {
	ReportType     string            `json:"report_type"`
	DataSources    []string          `json:"data_sources"`
	Filters        gateway.FilterSet `json:"filters"`
	Urgency        string            `json:"urgency"`
	ValueImpact    string            `json:"value_impact"`
	ReportFocus    string            `json:"report_focus"`
	Interpretation string            `json:"interpretation"`
	Requestor      string            `json:"requestor"`
	Department     string            `json:"department"`
	UserRole       string            `json:"user_role"`
}

var errNoSources = errors.New("parsed request names no data sources")

// DefaultParsedRequest is substituted when the parse step fails.
func DefaultParsedRequest(query string, user UserContext) ParsedRequest {
	p := ParsedRequest{
		ReportType:     "custom",
		DataSources:    []string{gateway.SourceERPSales},
		Urgency:        "normal",
		ValueImpact:    "medium",
		ReportFocus:    query,
		Interpretation: "General report request",
	}
	p.stampRequestor(user)
	return p
}

func (p *ParsedRequest) stampRequestor(user UserContext) {
	p.Requestor = orUnknown(user.FullName)
	p.Department = orUnknown(user.Department)
	p.UserRole = orUnknown(user.Role)
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}

func parsePrompt(query string, user UserContext, year int) string {
	var b strings.Builder
	b.WriteString("Parse this user query into a structured report request.\n\n")
	fmt.Fprintf(&b, "User Query: %q\n\n", query)
	b.WriteString("User Context:\n")
	fmt.Fprintf(&b, "- Name: %s\n", orUnknown(user.FullName))
	fmt.Fprintf(&b, "- Department: %s\n", orUnknown(user.Department))
	fmt.Fprintf(&b, "- Role: %s\n\n", orUnknown(user.Role))
	fmt.Fprintf(&b, "Assume the current reporting year is %d.\n", year)
	fmt.Fprintf(&b, "Any quarter references (Q1, Q2, Q3, Q4) should map to %d dates:\n", year)
	fmt.Fprintf(&b, "Q1 = %[1]d-01-01..%[1]d-03-31, Q2 = %[1]d-04-01..%[1]d-06-30, Q3 = %[1]d-07-01..%[1]d-09-30, Q4 = %[1]d-10-01..%[1]d-12-31.\n\n", year)
	b.WriteString("Available Data Sources:\n")
	b.WriteString("- erp_sales: ERP sales transactions (date, product, region, quantity, total)\n")
	b.WriteString("- erp_financial: ERP monthly financial records (revenue, expenses, profit)\n")
	b.WriteString("- erp_inventory: ERP inventory levels (stock, reorder level, warehouse)\n")
	b.WriteString("- crm_customers: CRM customers (industry, deal value, status)\n")
	b.WriteString("- crm_opportunities: CRM pipeline opportunities (stage, value, probability)\n")
	b.WriteString("- transactions: business transaction logs (type, amount, status)\n\n")
	b.WriteString("Determine:\n1. What data sources are needed\n2. What filters should be applied\n3. What type of report this is\n4. Urgency level\n5. Business value impact\n\n")
	b.WriteString(`Return ONLY valid JSON (no markdown):
{
  "report_type": "sales|financial|crm|executive|custom",
  "data_sources": ["erp_sales", "crm_customers", "transactions"],
  "filters": {
    "date_from": "YYYY-MM-DD or null",
    "date_to": "YYYY-MM-DD or null",
    "region": "region name or null",
    "product": "product name or null",
    "industry": "industry or null",
    "min_amount": number or null,
    "transaction_type": "type or null"
  },
  "urgency": "low|normal|high",
  "value_impact": "low|medium|high",
  "report_focus": "brief description of what user wants to know",
  "interpretation": "explain what the user is asking for"
}
`)
	return b.String()
}

// stripFences removes markdown code fences around a JSON answer.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func decodeParsedRequest(text string) (ParsedRequest, error) {
	var p ParsedRequest
	if err := json.Unmarshal([]byte(stripFences(text)), &p); err != nil {
		return ParsedRequest{}, fmt.Errorf("decode parsed request: %w", err)
	}
	if len(p.DataSources) == 0 {
		return ParsedRequest{}, errNoSources
	}
	return p, nil
}

func (p *Pipeline) parse(ctx context.Context, query string, user UserContext, res *Result) ParsedRequest {
	text, err := p.complete(ctx, parsePrompt(query, user, p.reportingYear))
	var parsed ParsedRequest
	if err == nil {
		parsed, err = decodeParsedRequest(text)
	}
	if err != nil {
		se := &StepError{Step: StepParse, Err: err}
		p.log.Warn("%v", se)
		res.fallback(se)
		return DefaultParsedRequest(query, user)
	}
	parsed.stampRequestor(user)
	return parsed
}
