package gateway

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/insightloom/internal/utils"
)

// CSVSource reads one "<kind>.csv" file per table kind from a directory.
// Files are read on every Fetch so edits are picked up without restarts.
type CSVSource struct {
	dir string
}

var _ DataSource = (*CSVSource)(nil)

// NewCSVSource checks that dir exists and returns a source reading from it.
func NewCSVSource(dir string) (*CSVSource, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("csv backend requires a directory (set data.dir)")
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("csv directory: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("csv directory: %s is not a directory", dir)
	}
	return &CSVSource{dir: dir}, nil
}

// Path returns the file backing kind k.
func (s *CSVSource) Path(k Kind) string {
	return filepath.Join(s.dir, k.String()+".csv")
}

// Fetch implements DataSource. A missing file yields an empty table.
func (s *CSVSource) Fetch(ctx context.Context, kind Kind, filters FilterSet) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t, err := s.read(kind)
	if err != nil {
		return nil, err
	}
	var lookup IndustryLookup
	if filters.NeedsIndustryJoin(kind) {
		customers, err := s.read(Customers)
		if err != nil {
			return nil, err
		}
		lookup = IndustryIndex(customers)
	}
	return filters.Apply(t, lookup), nil
}

func (s *CSVSource) read(kind Kind) (*Table, error) {
	f, err := os.Open(s.Path(kind))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewTable(kind, nil), nil
		}
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, kind)
}

// ReadCSV decodes a CSV stream with a header row into a table of kind k.
// Cells are typed from the kind's schema; numbers accept locale separators
// and percent signs. A cell that fails to parse keeps its raw text so that
// downstream consumers can report the malformed value. Empty cells are nil.
func ReadCSV(r io.Reader, k Kind) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return NewTable(k, nil), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	schema := k.Schema()
	var rows []Row
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s line %d: %w", k, line, err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			if col == "" {
				continue
			}
			var cell string
			if i < len(rec) {
				cell = strings.TrimSpace(rec[i])
			}
			row[col] = typedCell(cell, schema.TypeOf(col))
		}
		rows = append(rows, row)
	}
	return NewTable(k, rows), nil
}

func typedCell(cell string, ct ColumnType) any {
	if cell == "" {
		return nil
	}
	if (ct == ColNumber || ct == ColInt) && IsNonFinite(cell) {
		return nil
	}
	switch ct {
	case ColNumber:
		if v, ok := ParseNumeric(cell); ok {
			return v
		}
	case ColInt:
		if v, ok := ParseNumeric(cell); ok {
			return int(math.Round(v))
		}
	case ColDate:
		if t, ok := ParseTime(cell); ok {
			return t
		}
	}
	return cell
}

// WriteCSV writes every table to "<dir>/<kind>.csv" with schema columns.
func WriteCSV(dir string, tables []*Table) error {
	if err := utils.EnsureDir(dir); err != nil {
		return fmt.Errorf("create csv directory: %w", err)
	}
	for _, t := range tables {
		if t == nil {
			continue
		}
		var b strings.Builder
		w := csv.NewWriter(&b)
		cols := t.Kind.Schema().ColumnNames()
		if err := w.Write(cols); err != nil {
			return err
		}
		for _, r := range t.Rows {
			rec := make([]string, len(cols))
			for i, c := range cols {
				rec[i] = csvCell(r[c])
			}
			if err := w.Write(rec); err != nil {
				return err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return fmt.Errorf("encode %s: %w", t.Kind, err)
		}
		path := filepath.Join(dir, t.Kind.String()+".csv")
		if err := utils.SafeWriteFile(path, []byte(b.String())); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}

func csvCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return x.Format(DateLayout)
	default:
		return ToString(x)
	}
}
