package gateway

import (
	"sort"
	"time"
)

// Row is one record: column name to scalar (float64, int, string, time.Time or nil).
type Row map[string]any

// Has reports whether the row carries a non-nil value for col.
func (r Row) Has(col string) bool {
	v, ok := r[col]
	return ok && v != nil
}

// Float coerces the value of col to float64. Numeric strings are accepted.
func (r Row) Float(col string) (float64, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return 0, false
	}
	return ToFloat(v)
}

// Str returns the value of col as a string ("" when absent).
func (r Row) Str(col string) string {
	v, ok := r[col]
	if !ok || v == nil {
		return ""
	}
	return ToString(v)
}

// Time returns the value of col as a time. Date strings are parsed.
func (r Row) Time(col string) (time.Time, bool) {
	v, ok := r[col]
	if !ok || v == nil {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		return ParseTime(t)
	default:
		return time.Time{}, false
	}
}

func (r Row) clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Table is a named, ordered collection of rows. Treat it as read-only once
// returned by a DataSource.
type Table struct {
	Kind    Kind
	Columns []string
	Rows    []Row
}

// NewTable builds a table of kind k. Columns are taken from the rows
// (schema order first, then any extra keys sorted); an empty table gets the
// full schema.
func NewTable(k Kind, rows []Row) *Table {
	if rows == nil {
		rows = []Row{}
	}
	return &Table{Kind: k, Columns: columnsOf(k, rows), Rows: rows}
}

func columnsOf(k Kind, rows []Row) []string {
	if len(rows) == 0 {
		return k.Schema().ColumnNames()
	}
	seen := map[string]bool{}
	for _, r := range rows {
		for c := range r {
			seen[c] = true
		}
	}
	var cols []string
	for _, c := range k.Schema().ColumnNames() {
		if seen[c] {
			cols = append(cols, c)
			delete(seen, c)
		}
	}
	var extra []string
	for c := range seen {
		extra = append(extra, c)
	}
	sort.Strings(extra)
	return append(cols, extra...)
}

// Len returns the row count; a nil table has zero rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether col is part of the table's columns.
func (t *Table) HasColumn(col string) bool {
	if t == nil {
		return false
	}
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Clone returns an independent copy; rows are copied, scalar values shared.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	rows := make([]Row, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = r.clone()
	}
	cols := make([]string, len(t.Columns))
	copy(cols, t.Columns)
	return &Table{Kind: t.Kind, Columns: cols, Rows: rows}
}

// Tables is the result of one gateway fetch, keyed by kind.
type Tables map[Kind]*Table

// Get returns the table of kind k and whether it was fetched.
func (ts Tables) Get(k Kind) (*Table, bool) {
	t, ok := ts[k]
	return t, ok && t != nil
}

// Counts maps each fetched table's key to its row count.
func (ts Tables) Counts() map[string]int {
	out := make(map[string]int, len(ts))
	for k, t := range ts {
		out[k.String()] = t.Len()
	}
	return out
}

// Keys returns the fetched table keys sorted.
func (ts Tables) Keys() []string {
	out := make([]string, 0, len(ts))
	for k := range ts {
		out = append(out, k.String())
	}
	sort.Strings(out)
	return out
}
