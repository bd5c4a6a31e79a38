package gateway

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SQLSource reads tables from a database migrated with Migrate. Each kind
// lives in a table of the same name. Filters are evaluated in Go with the
// same predicates as the other sources so results agree across backends.
type SQLSource struct {
	db      *sql.DB
	backend Backend
}

var _ DataSource = (*SQLSource)(nil)

// NewSQLSource wraps an open database. The source owns db after this call.
func NewSQLSource(db *sql.DB, backend Backend) *SQLSource {
	return &SQLSource{db: db, backend: backend}
}

// DB exposes the underlying handle for seeding and migrations.
func (s *SQLSource) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *SQLSource) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Fetch implements DataSource.
func (s *SQLSource) Fetch(ctx context.Context, kind Kind, filters FilterSet) (*Table, error) {
	t, err := s.load(ctx, kind)
	if err != nil {
		return nil, err
	}
	var lookup IndustryLookup
	if filters.NeedsIndustryJoin(kind) {
		customers, err := s.load(ctx, Customers)
		if err != nil {
			return nil, err
		}
		lookup = IndustryIndex(customers)
	}
	return filters.Apply(t, lookup), nil
}

func selectQuery(k Kind) string {
	s := k.Schema()
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s",
		strings.Join(s.ColumnNames(), ", "), k.String(), s.OrderBy)
}

func (s *SQLSource) load(ctx context.Context, kind Kind) (*Table, error) {
	schema := kind.Schema()
	if len(schema.Columns) == 0 {
		return nil, fmt.Errorf("no table for kind %d", kind)
	}
	rows, err := s.db.QueryContext(ctx, selectQuery(kind))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", kind, err)
	}
	defer func() { _ = rows.Close() }()

	var out []Row
	for rows.Next() {
		dest := make([]any, len(schema.Columns))
		for i, c := range schema.Columns {
			switch c.Type {
			case ColNumber:
				dest[i] = new(sql.NullFloat64)
			case ColInt:
				dest[i] = new(sql.NullInt64)
			default:
				dest[i] = new(sql.NullString)
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind, err)
		}
		row := make(Row, len(schema.Columns))
		for i, c := range schema.Columns {
			row[c.Name] = scanned(dest[i], c.Type)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	return NewTable(kind, out), nil
}

func scanned(v any, ct ColumnType) any {
	switch x := v.(type) {
	case *sql.NullFloat64:
		if x.Valid && !IsNonFinite(x.Float64) {
			return x.Float64
		}
	case *sql.NullInt64:
		if x.Valid {
			return int(x.Int64)
		}
	case *sql.NullString:
		if !x.Valid {
			return nil
		}
		if ct == ColDate {
			if t, ok := ParseTime(x.String); ok {
				return t
			}
		}
		return x.String
	}
	return nil
}

// Counts returns the row count of every kind's table.
func (s *SQLSource) Counts(ctx context.Context) (map[Kind]int, error) {
	out := make(map[Kind]int, len(AllKinds()))
	for _, k := range AllKinds() {
		var n int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+k.String()).Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", k, err)
		}
		out[k] = n
	}
	return out, nil
}
