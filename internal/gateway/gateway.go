package gateway

import (
	"context"
	"fmt"
)

// DataSource returns the filtered table of one kind. Implementations must
// return a table independent of their internal state and preserve the row
// order documented by Kind.Schema().OrderBy.
type DataSource interface {
	Fetch(ctx context.Context, kind Kind, filters FilterSet) (*Table, error)
}

// Gateway resolves source keys to kinds and fetches them from a DataSource.
type Gateway struct {
	src DataSource
}

// New wraps a DataSource.
func New(src DataSource) *Gateway {
	return &Gateway{src: src}
}

// Fetch returns one table per recognized source key. Unknown keys are
// skipped silently; a missing key in the result means "no data for that
// source". Any DataSource error aborts the whole fetch.
func (g *Gateway) Fetch(ctx context.Context, sourceKeys []string, filters FilterSet) (Tables, error) {
	out := Tables{}
	for _, key := range sourceKeys {
		kind, ok := KindForSource(key)
		if !ok {
			continue
		}
		if _, done := out[kind]; done {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		t, err := g.src.Fetch(ctx, kind, filters)
		if err != nil {
			return out, fmt.Errorf("fetch %s (%s): %w", key, kind, err)
		}
		if t == nil {
			t = NewTable(kind, nil)
		}
		out[kind] = t
	}
	return out, nil
}

// FetchAll fetches every kind without filters.
func (g *Gateway) FetchAll(ctx context.Context) (Tables, error) {
	return g.Fetch(ctx, SourceKeys(), FilterSet{})
}
