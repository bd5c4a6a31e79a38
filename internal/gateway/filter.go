package gateway

import (
	"encoding/json"
	"strings"
	"time"
)

// FilterSet holds optional predicates narrowing a fetch. Nil fields are inactive.
type FilterSet struct {
	DateFrom        *string  `json:"date_from,omitempty"`
	DateTo          *string  `json:"date_to,omitempty"`
	Region          *string  `json:"region,omitempty"`
	Product         *string  `json:"product,omitempty"`
	Industry        *string  `json:"industry,omitempty"`
	MinAmount       *float64 `json:"min_amount,omitempty"`
	TransactionType *string  `json:"transaction_type,omitempty"`
}

// IndustryLookup resolves a customer id to its industry.
type IndustryLookup func(customerID string) (string, bool)

// UnmarshalJSON accepts the loose shapes produced by text-generation
// services: null, "null" and "" mean absent, min_amount may be a string.
func (f *FilterSet) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*f = FilterSet{}
	str := func(key string) *string {
		v, ok := raw[key]
		if !ok || v == nil {
			return nil
		}
		s := strings.TrimSpace(ToString(v))
		switch strings.ToLower(s) {
		case "", "null", "none", "n/a", "any", "all":
			return nil
		}
		return &s
	}
	f.DateFrom = str("date_from")
	f.DateTo = str("date_to")
	f.Region = str("region")
	f.Product = str("product")
	f.Industry = str("industry")
	f.TransactionType = str("transaction_type")
	if v, ok := raw["min_amount"]; ok && v != nil {
		if n, ok := ToFloat(v); ok {
			f.MinAmount = &n
		}
	}
	return nil
}

// Active lists the names of the non-nil filters.
func (f FilterSet) Active() []string {
	var out []string
	add := func(name string, set bool) {
		if set {
			out = append(out, name)
		}
	}
	add("date_from", f.DateFrom != nil)
	add("date_to", f.DateTo != nil)
	add("region", f.Region != nil)
	add("product", f.Product != nil)
	add("industry", f.Industry != nil)
	add("min_amount", f.MinAmount != nil)
	add("transaction_type", f.TransactionType != nil)
	return out
}

// IsEmpty reports whether no filter is active.
func (f FilterSet) IsEmpty() bool { return len(f.Active()) == 0 }

// Normalize drops filters that can never be evaluated (unparseable dates,
// blank strings) and returns the cleaned set plus the dropped names.
func (f FilterSet) Normalize() (FilterSet, []string) {
	var dropped []string
	blank := func(p **string, name string) {
		if *p != nil && strings.TrimSpace(**p) == "" {
			*p = nil
			dropped = append(dropped, name)
		}
	}
	blank(&f.Region, "region")
	blank(&f.Product, "product")
	blank(&f.Industry, "industry")
	blank(&f.TransactionType, "transaction_type")
	blank(&f.DateFrom, "date_from")
	blank(&f.DateTo, "date_to")
	if f.DateFrom != nil {
		if _, ok := ParseTime(*f.DateFrom); !ok {
			f.DateFrom = nil
			dropped = append(dropped, "date_from")
		}
	}
	if f.DateTo != nil {
		if _, ok := ParseTime(*f.DateTo); !ok {
			f.DateTo = nil
			dropped = append(dropped, "date_to")
		}
	}
	if f.MinAmount != nil && IsNonFinite(*f.MinAmount) {
		f.MinAmount = nil
		dropped = append(dropped, "min_amount")
	}
	return f, dropped
}

// NeedsIndustryJoin reports whether evaluating f on kind k requires
// resolving industries through the customers table.
func (f FilterSet) NeedsIndustryJoin(k Kind) bool {
	if f.Industry == nil {
		return false
	}
	s := k.Schema()
	hasIndustry, hasCustomer := false, false
	for _, c := range s.Columns {
		switch c.Name {
		case "industry":
			hasIndustry = true
		case "customer_id":
			hasCustomer = true
		}
	}
	return !hasIndustry && hasCustomer
}

type predicate struct {
	f        FilterSet
	from, to time.Time
	hasFrom  bool
	hasTo    bool
	schema   Schema
	lookup   IndustryLookup
}

func (f FilterSet) compile(k Kind, lookup IndustryLookup) predicate {
	p := predicate{f: f, schema: k.Schema(), lookup: lookup}
	if f.DateFrom != nil {
		if t, ok := ParseTime(*f.DateFrom); ok {
			p.from, p.hasFrom = day(t), true
		}
	}
	if f.DateTo != nil {
		if t, ok := ParseTime(*f.DateTo); ok {
			p.to, p.hasTo = day(t), true
		}
	}
	return p
}

// match is conjunctive; a row lacking the column a filter targets is kept.
func (p predicate) match(r Row) bool {
	if col := p.schema.DateColumn; col != "" && (p.hasFrom || p.hasTo) && r.Has(col) {
		if t, ok := r.Time(col); ok {
			d := day(t)
			if p.hasFrom && d.Before(p.from) {
				return false
			}
			if p.hasTo && d.After(p.to) {
				return false
			}
		}
	}
	if !equalIfPresent(r, "region", p.f.Region) {
		return false
	}
	if !equalIfPresent(r, "product", p.f.Product) {
		return false
	}
	if !equalIfPresent(r, "type", p.f.TransactionType) {
		return false
	}
	if p.f.Industry != nil {
		switch {
		case r.Has("industry"):
			if !strings.EqualFold(r.Str("industry"), *p.f.Industry) {
				return false
			}
		case p.lookup != nil && r.Has("customer_id"):
			ind, ok := p.lookup(r.Str("customer_id"))
			if !ok || !strings.EqualFold(ind, *p.f.Industry) {
				return false
			}
		}
	}
	if col := p.schema.AmountColumn; col != "" && p.f.MinAmount != nil && r.Has(col) {
		if v, ok := r.Float(col); ok && v < *p.f.MinAmount {
			return false
		}
	}
	return true
}

func equalIfPresent(r Row, col string, want *string) bool {
	if want == nil || !r.Has(col) {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(r.Str(col)), strings.TrimSpace(*want))
}

// Apply returns a new table holding copies of the rows of t matching f.
// t itself is never modified.
func (f FilterSet) Apply(t *Table, lookup IndustryLookup) *Table {
	if t == nil {
		return nil
	}
	p := f.compile(t.Kind, lookup)
	rows := make([]Row, 0, len(t.Rows))
	for _, r := range t.Rows {
		if p.match(r) {
			rows = append(rows, r.clone())
		}
	}
	cols := make([]string, len(t.Columns))
	copy(cols, t.Columns)
	return &Table{Kind: t.Kind, Columns: cols, Rows: rows}
}

// IndustryIndex builds a lookup from a customers table.
func IndustryIndex(customers *Table) IndustryLookup {
	idx := map[string]string{}
	if customers != nil {
		for _, r := range customers.Rows {
			if id := r.Str("customer_id"); id != "" {
				idx[id] = r.Str("industry")
			}
		}
	}
	return func(id string) (string, bool) {
		v, ok := idx[id]
		return v, ok
	}
}

// StringPtr and FloatPtr help build filter sets in code.
func StringPtr(s string) *string { return &s }

func FloatPtr(f float64) *float64 { return &f }
