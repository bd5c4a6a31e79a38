package gateway

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV_TypesCellsFromSchema(t *testing.T) {
	in := "transaction_id,date,total,quantity,region,note\n" +
		"t1,2025-07-04,\"1.234,50\",3,North,first\n" +
		"t2,07/05/2025,99%,,South,\n" +
		"t3,not a date,oops,2,East,x\n"
	tbl, err := ReadCSV(strings.NewReader(in), SalesTransactions)
	require.NoError(t, err)
	require.Equal(t, 3, tbl.Len())

	r := tbl.Rows[0]
	v, ok := r.Float("total")
	require.True(t, ok)
	assert.InDelta(t, 1234.5, v, 1e-9)
	assert.Equal(t, 3, r["quantity"])
	ts, ok := r.Time("date")
	require.True(t, ok)
	assert.Equal(t, "2025-07-04", ts.Format(DateLayout))

	assert.Equal(t, 99.0, tbl.Rows[1]["total"])
	assert.Nil(t, tbl.Rows[1]["quantity"])
	assert.Nil(t, tbl.Rows[1]["note"])

	// Unparseable cells keep their text.
	assert.Equal(t, "oops", tbl.Rows[2]["total"])
	assert.Equal(t, "not a date", tbl.Rows[2]["date"])

	assert.Contains(t, tbl.Columns, "note")
}

func TestReadCSV_EmptyInput(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(""), Inventory)
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, Inventory.Schema().ColumnNames(), tbl.Columns)
}

func TestCSVSource_RoundTripsGeneratedData(t *testing.T) {
	dir := t.TempDir()
	tables := Generate(3)
	require.NoError(t, WriteCSV(dir, tables))
	for _, k := range AllKinds() {
		_, err := os.Stat(filepath.Join(dir, k.String()+".csv"))
		require.NoError(t, err, k.String())
	}

	src, err := NewCSVSource(dir)
	require.NoError(t, err)
	mem := NewMemorySource(tables...)
	ctx := context.Background()
	f := FilterSet{Region: StringPtr("north"), Industry: StringPtr("Finance")}
	for _, k := range AllKinds() {
		fromCSV, err := src.Fetch(ctx, k, f)
		require.NoError(t, err)
		fromMem, err := mem.Fetch(ctx, k, f)
		require.NoError(t, err)
		assert.Equal(t, ids(fromMem), ids(fromCSV), k.String())
	}
}

func TestCSVSource_MissingFileAndDir(t *testing.T) {
	src, err := NewCSVSource(t.TempDir())
	require.NoError(t, err)
	tbl, err := src.Fetch(context.Background(), Customers, FilterSet{})
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())

	_, err = NewCSVSource(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
	_, err = NewCSVSource("")
	assert.Error(t, err)
}
