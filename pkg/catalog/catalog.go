// Package catalog defines the boundary between idrstat and the remote
// metadata catalog.
//
// The interfaces mirror the catalog's query and search services: projection
// queries returning flat scalar rows, single and bulk object lookups, and a
// stateful full-text search probe. Everything above this package works with
// the typed records decoded in queries.go, never with raw rows.
package catalog

import (
	"context"
	"sort"
)

// Params holds named query parameters, referenced as :name in query text.
type Params map[string]any

// NewParams returns an empty parameter set.
func NewParams() Params {
	return Params{}
}

// AddString sets a string parameter and returns the set for chaining.
func (p Params) AddString(name, value string) Params {
	p[name] = value
	return p
}

// Names returns the parameter names in sorted order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Row is one flat tuple returned by a projection. Values are int64, string,
// []byte, float64, bool or nil.
type Row []any

// Pair is one key/value entry of a map annotation.
type Pair struct {
	Name  string
	Value string
}

// Object is a catalog object carrying map-valued metadata. Pairs keeps
// every entry in index order, duplicate keys included.
type Object struct {
	ID    int64
	Pairs []Pair
}

// QueryService runs read-only queries against the catalog.
type QueryService interface {
	// Projection returns zero or more flat rows.
	Projection(ctx context.Context, query string, params Params) ([]Row, error)

	// FindByQuery returns the first row of the query, or false when there is
	// none. Absence is not an error.
	FindByQuery(ctx context.Context, query string, params Params) (Row, bool, error)

	// FindAllByQuery fetches objects in bulk. The query yields
	// (object id, key, value) rows ordered by object id.
	FindAllByQuery(ctx context.Context, query string, params Params) ([]Object, error)
}

// SearchService is the catalog's full-text search oracle. Every probe is
// scoped to one object type and one term:
//
//	search.RestrictType("Plate")
//	if err := search.ByFullText(ctx, "GFP"); err != nil { ... }
//	found := search.HasNext()
//
// ByFullText returns an error satisfying errors.IsBadUsage for terms the
// oracle refuses; callers may recover from those.
type SearchService interface {
	RestrictType(typeName string)
	ByFullText(ctx context.Context, term string) error
	HasNext() bool
}

// Session is one authenticated connection to the catalog.
type Session interface {
	Query() QueryService
	Search() (SearchService, error)
	Close() error
}
