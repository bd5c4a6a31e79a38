package gateway

import "context"

// MemorySource serves tables held in memory. It is safe for concurrent use:
// the stored tables are never modified and every Fetch returns copies.
type MemorySource struct {
	tables map[Kind]*Table
}

var _ DataSource = (*MemorySource)(nil)

// NewMemorySource stores copies of the given tables. A later table of the
// same kind replaces an earlier one.
func NewMemorySource(tables ...*Table) *MemorySource {
	m := &MemorySource{tables: make(map[Kind]*Table, len(tables))}
	for _, t := range tables {
		if t != nil {
			m.tables[t.Kind] = t.Clone()
		}
	}
	return m
}

// NewMockSource returns a MemorySource filled by Generate(seed).
func NewMockSource(seed int64) *MemorySource {
	return NewMemorySource(Generate(seed)...)
}

// Fetch implements DataSource. Kinds with no stored table yield an empty table.
func (m *MemorySource) Fetch(ctx context.Context, kind Kind, filters FilterSet) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, ok := m.tables[kind]
	if !ok {
		return NewTable(kind, nil), nil
	}
	var lookup IndustryLookup
	if filters.NeedsIndustryJoin(kind) {
		lookup = IndustryIndex(m.tables[Customers])
	}
	return filters.Apply(t, lookup), nil
}
