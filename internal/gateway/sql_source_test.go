package gateway

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *SQLSource {
	t.Helper()
	db, err := OpenDB(BackendSQLite, filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	src := NewSQLSource(db, BackendSQLite)
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func TestMigrate_SQLiteUpDown(t *testing.T) {
	src := openSQLite(t)

	res, err := Migrate(src.DB(), BackendSQLite, -1)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, uint(6), res.To)

	res, err = Migrate(src.DB(), BackendSQLite, -1)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	res, err = Migrate(src.DB(), BackendSQLite, 2)
	require.NoError(t, err)
	assert.Equal(t, uint(2), res.To)

	_, err = Migrate(src.DB(), BackendSQLite, 0)
	require.NoError(t, err)

	_, err = Migrate(src.DB(), BackendSQLite, -1)
	require.NoError(t, err)
}

func TestMigrate_UnsupportedBackend(t *testing.T) {
	_, err := Migrate(nil, BackendCSV, -1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}

func TestSQLSource_MatchesMemorySource(t *testing.T) {
	src := openSQLite(t)
	_, err := Migrate(src.DB(), BackendSQLite, -1)
	require.NoError(t, err)

	tables := Generate(11)
	ctx := context.Background()
	require.NoError(t, Seed(ctx, src.DB(), BackendSQLite, tables))
	// Seeding twice replaces rather than duplicates.
	require.NoError(t, Seed(ctx, src.DB(), BackendSQLite, tables))

	counts, err := src.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, GenSales, counts[SalesTransactions])
	assert.Equal(t, 12, counts[FinancialRecords])

	mem := NewMemorySource(tables...)
	filters := []FilterSet{
		{},
		{DateFrom: StringPtr("2025-04-01"), DateTo: StringPtr("2025-06-30")},
		{Industry: StringPtr("Healthcare"), MinAmount: FloatPtr(1000)},
	}
	for _, f := range filters {
		for _, k := range AllKinds() {
			fromSQL, err := src.Fetch(ctx, k, f)
			require.NoError(t, err)
			fromMem, err := mem.Fetch(ctx, k, f)
			require.NoError(t, err)
			assert.Equal(t, ids(fromMem), ids(fromSQL), "%s %v", k, f.Active())
		}
	}

	fin, err := src.Fetch(ctx, FinancialRecords, FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, "2025-12", fin.Rows[0].Str("month"))
	_, isFloat := fin.Rows[0]["revenue"].(float64)
	assert.True(t, isFloat)

	sales, err := src.Fetch(ctx, SalesTransactions, FilterSet{})
	require.NoError(t, err)
	_, ok := sales.Rows[0].Time("date")
	assert.True(t, ok)
	_, isInt := sales.Rows[0]["quantity"].(int)
	assert.True(t, isInt)
}

func TestOpen_Backends(t *testing.T) {
	src, err := Open(Options{Backend: BackendMemory, Seed: 1})
	require.NoError(t, err)
	assert.IsType(t, &MemorySource{}, src)
	assert.NoError(t, CloseSource(src))

	_, err = Open(Options{Backend: BackendPostgres})
	assert.Error(t, err)

	_, err = Open(Options{Backend: "oracle"})
	assert.ErrorIs(t, err, ErrUnknownBackend)

	dbPath := filepath.Join(t.TempDir(), "x.db")
	src, err = Open(Options{Backend: BackendSQLite, DSN: dbPath})
	require.NoError(t, err)
	assert.IsType(t, &SQLSource{}, src)
	assert.NoError(t, CloseSource(src))
}
