package analysis

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/KaramelBytes/insightloom/internal/gateway"
)

// ProfileOptions controls table profiling.
type ProfileOptions struct {
	// SampleRows determines how many example rows to include.
	SampleRows int
	// TopValues caps the categorical values listed per column.
	TopValues int
	// OutlierThreshold counts values with robust |z| above it; 0 disables.
	OutlierThreshold float64
}

// DefaultProfileOptions returns reasonable defaults for prompt summaries.
func DefaultProfileOptions() ProfileOptions {
	return ProfileOptions{SampleRows: 3, TopValues: 3, OutlierThreshold: 3.5}
}

// Profile is a compact, prompt-friendly description of one table.
type Profile struct {
	Name    string
	Rows    int
	Cols    []ColumnProfile
	Samples [][]string
	Notes   []string
}

// ColumnProfile captures inferred type and statistics per column.
type ColumnProfile struct {
	Name    string
	Kind    string // numeric|datetime|categorical|text
	NonNull int
	Missing int
	Unique  int
	// Numeric stats
	Min, Max, Mean, Std float64
	Outliers            int
	// Datetime range
	From, To time.Time
	// Categorical
	TopValues []ValueCount
}

// ValueCount is a categorical value and its frequency.
type ValueCount struct {
	Value string
	Count int
}

// ProfileTable profiles t column by column.
func ProfileTable(t *gateway.Table, opt ProfileOptions) *Profile {
	p := &Profile{Name: t.Kind.String(), Rows: t.Len()}
	if opt.SampleRows <= 0 {
		opt.SampleRows = 3
	}
	if opt.TopValues <= 0 {
		opt.TopValues = 3
	}
	for _, name := range t.Columns {
		p.Cols = append(p.Cols, profileColumn(t, name, opt))
	}
	for i, r := range t.Rows {
		if i >= opt.SampleRows {
			break
		}
		row := make([]string, len(t.Columns))
		for j, c := range t.Columns {
			row[j] = r.Str(c)
		}
		p.Samples = append(p.Samples, row)
	}
	if t.Len() == 0 {
		p.Notes = append(p.Notes, "no rows matched the request")
	}
	return p
}

func profileColumn(t *gateway.Table, name string, opt ProfileOptions) ColumnProfile {
	c := ColumnProfile{Name: name}
	var (
		acc    welford
		nums   []float64
		dates  int
		cats   = map[string]int{}
		hasNum bool
	)
	for _, r := range t.Rows {
		v, ok := r[name]
		if !ok || v == nil {
			c.Missing++
			continue
		}
		c.NonNull++
		switch x := v.(type) {
		case time.Time:
			dates++
			if c.From.IsZero() || x.Before(c.From) {
				c.From = x
			}
			if x.After(c.To) {
				c.To = x
			}
			continue
		case string:
			cats[x]++
			continue
		}
		if f, ok := gateway.ToFloat(v); ok {
			hasNum = true
			acc.add(f)
			nums = append(nums, f)
		}
	}
	c.Unique = len(cats)
	switch {
	case hasNum && acc.n >= dates && acc.n >= len(cats):
		c.Kind = "numeric"
		c.Min, c.Max, c.Mean, c.Std = acc.min, acc.max, acc.mean, acc.std()
		if opt.OutlierThreshold > 0 {
			med, mad := medianMAD(nums)
			if mad > 0 {
				for _, x := range nums {
					if math.Abs(0.6745*(x-med)/mad) > opt.OutlierThreshold {
						c.Outliers++
					}
				}
			}
		}
	case dates > 0 && dates >= len(cats):
		c.Kind = "datetime"
	case len(cats) > 0 && len(cats) <= max(10, c.NonNull/5):
		c.Kind = "categorical"
		c.TopValues = topValues(cats, opt.TopValues)
	default:
		c.Kind = "text"
	}
	return c
}

func topValues(cats map[string]int, n int) []ValueCount {
	out := make([]ValueCount, 0, len(cats))
	for v, k := range cats {
		out = append(out, ValueCount{Value: v, Count: k})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Value < out[j].Value
		}
		return out[i].Count > out[j].Count
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Markdown renders the profile in bracketed sections for prompts.
func (p *Profile) Markdown() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[TABLE %s]\n", strings.ToUpper(p.Name)))
	b.WriteString(fmt.Sprintf("Rows: %d, Columns: %d\n", p.Rows, len(p.Cols)))
	for _, c := range p.Cols {
		b.WriteString(fmt.Sprintf("- %s: %s (non-null %d, missing %d)", c.Name, c.Kind, c.NonNull, c.Missing))
		switch c.Kind {
		case "numeric":
			b.WriteString(fmt.Sprintf(": min %.4g, max %.4g, mean %.4g, std %.4g", c.Min, c.Max, c.Mean, c.Std))
			if c.Outliers > 0 {
				b.WriteString(fmt.Sprintf("; outliers: %d", c.Outliers))
			}
		case "datetime":
			b.WriteString(fmt.Sprintf(": %s to %s", c.From.Format(gateway.DateLayout), c.To.Format(gateway.DateLayout)))
		case "categorical":
			parts := make([]string, len(c.TopValues))
			for i, kv := range c.TopValues {
				parts[i] = fmt.Sprintf("%s(%d)", safeVal(kv.Value), kv.Count)
			}
			b.WriteString(": top " + strings.Join(parts, ", "))
			if c.Unique > len(c.TopValues) {
				b.WriteString(fmt.Sprintf("; unique=%d", c.Unique))
			}
		}
		b.WriteString("\n")
	}
	if len(p.Samples) > 0 {
		b.WriteString("| " + strings.Join(p.columnNames(), " | ") + " |\n")
		b.WriteString("|" + strings.Repeat(" --- |", len(p.Cols)) + "\n")
		for _, row := range p.Samples {
			vals := make([]string, len(row))
			for i, v := range row {
				if len(v) > 40 {
					v = v[:37] + "..."
				}
				vals[i] = safeVal(v)
			}
			b.WriteString("| " + strings.Join(vals, " | ") + " |\n")
		}
	}
	for _, n := range p.Notes {
		b.WriteString("Note: " + n + "\n")
	}
	return b.String()
}

func (p *Profile) columnNames() []string {
	out := make([]string, len(p.Cols))
	for i, c := range p.Cols {
		out[i] = c.Name
	}
	return out
}

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// ProfileTables profiles every table in key order and joins the markdown.
func ProfileTables(tables gateway.Tables, opt ProfileOptions) string {
	var b strings.Builder
	for _, k := range gateway.AllKinds() {
		t, ok := tables.Get(k)
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(ProfileTable(t, opt).Markdown())
	}
	return b.String()
}
