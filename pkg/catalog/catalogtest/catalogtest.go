// Package catalogtest provides scriptable catalog fakes for tests.
//
// Example Usage:
//
//	q := &catalogtest.QueryService{
//	    ProjectionFunc: func(query string, p catalog.Params) ([]catalog.Row, error) {
//	        return []catalog.Row{{int64(42), int64(1)}}, nil
//	    },
//	}
//	rows, _ := catalog.ScreenStats(ctx, q, "idr0001-study/screenA")
package catalogtest

import (
	"context"
	"maps"

	"github.com/idr/idrstat/pkg/catalog"
)

// Call records one query issued against the fake.
type Call struct {
	Method string
	Query  string
	Params catalog.Params
}

// QueryService is a catalog.QueryService whose answers come from function
// fields. A nil function answers with no rows.
type QueryService struct {
	ProjectionFunc     func(query string, params catalog.Params) ([]catalog.Row, error)
	FindByQueryFunc    func(query string, params catalog.Params) (catalog.Row, bool, error)
	FindAllByQueryFunc func(query string, params catalog.Params) ([]catalog.Object, error)

	Calls []Call
}

var _ catalog.QueryService = (*QueryService)(nil)

// Projection implements catalog.QueryService.
func (q *QueryService) Projection(_ context.Context, query string, params catalog.Params) ([]catalog.Row, error) {
	q.record("Projection", query, params)
	if q.ProjectionFunc != nil {
		return q.ProjectionFunc(query, params)
	}
	return nil, nil
}

// FindByQuery implements catalog.QueryService.
func (q *QueryService) FindByQuery(_ context.Context, query string, params catalog.Params) (catalog.Row, bool, error) {
	q.record("FindByQuery", query, params)
	if q.FindByQueryFunc != nil {
		return q.FindByQueryFunc(query, params)
	}
	return nil, false, nil
}

// FindAllByQuery implements catalog.QueryService.
func (q *QueryService) FindAllByQuery(_ context.Context, query string, params catalog.Params) ([]catalog.Object, error) {
	q.record("FindAllByQuery", query, params)
	if q.FindAllByQueryFunc != nil {
		return q.FindAllByQueryFunc(query, params)
	}
	return nil, nil
}

// CallsTo returns the recorded calls for one query text.
func (q *QueryService) CallsTo(query string) []Call {
	var calls []Call
	for _, c := range q.Calls {
		if c.Query == query {
			calls = append(calls, c)
		}
	}
	return calls
}

func (q *QueryService) record(method, query string, params catalog.Params) {
	q.Calls = append(q.Calls, Call{Method: method, Query: query, Params: maps.Clone(params)})
}

// Probe records one search probe.
type Probe struct {
	Type string
	Term string
}

// Search is a catalog.SearchService answering from a hit table.
type Search struct {
	// Hits maps object type to the terms found on that type.
	Hits map[string][]string
	// Faults maps a term to the error ByFullText returns for it.
	Faults map[string]error

	Probes []Probe

	typeName string
	hit      bool
}

var _ catalog.SearchService = (*Search)(nil)

// RestrictType implements catalog.SearchService.
func (s *Search) RestrictType(typeName string) {
	s.typeName = typeName
}

// ByFullText implements catalog.SearchService.
func (s *Search) ByFullText(_ context.Context, term string) error {
	s.Probes = append(s.Probes, Probe{Type: s.typeName, Term: term})
	s.hit = false
	if err, ok := s.Faults[term]; ok {
		return err
	}
	for _, t := range s.Hits[s.typeName] {
		if t == term {
			s.hit = true
			break
		}
	}
	return nil
}

// HasNext implements catalog.SearchService.
func (s *Search) HasNext() bool {
	return s.hit
}

// ProbesFor returns the probes issued for one term.
func (s *Search) ProbesFor(term string) []Probe {
	var probes []Probe
	for _, p := range s.Probes {
		if p.Term == term {
			probes = append(probes, p)
		}
	}
	return probes
}

// Session is a catalog.Session over the fakes above.
type Session struct {
	Queries   *QueryService
	Searcher  catalog.SearchService
	SearchErr error
	CloseErr  error

	Closed int
}

var _ catalog.Session = (*Session)(nil)

// NewSession returns a session with empty fakes.
func NewSession() *Session {
	return &Session{Queries: &QueryService{}, Searcher: &Search{}}
}

// Query implements catalog.Session.
func (s *Session) Query() catalog.QueryService {
	return s.Queries
}

// Search implements catalog.Session.
func (s *Session) Search() (catalog.SearchService, error) {
	if s.SearchErr != nil {
		return nil, s.SearchErr
	}
	return s.Searcher, nil
}

// Close implements catalog.Session.
func (s *Session) Close() error {
	s.Closed++
	return s.CloseErr
}
