package metrics

import (
	"context"
	"time"

	"github.com/idr/idrstat/pkg/catalog"
)

// InstrumentSession wraps a catalog session so that every query and search
// probe is recorded. A nil recorder returns sess unchanged.
func InstrumentSession(sess catalog.Session, r *Recorder) catalog.Session {
	if r == nil {
		return sess
	}
	return &session{Session: sess, queries: &queryService{next: sess.Query(), rec: r}, rec: r}
}

type session struct {
	catalog.Session
	queries *queryService
	rec     *Recorder
}

func (s *session) Query() catalog.QueryService {
	return s.queries
}

func (s *session) Search() (catalog.SearchService, error) {
	search, err := s.Session.Search()
	if err != nil {
		return nil, err
	}
	return &searchService{next: search, rec: s.rec}, nil
}

type queryService struct {
	next catalog.QueryService
	rec  *Recorder
}

func (q *queryService) Projection(ctx context.Context, query string, params catalog.Params) ([]catalog.Row, error) {
	start := time.Now()
	rows, err := q.next.Projection(ctx, query, params)
	q.rec.ObserveQuery(catalog.QueryName(query), time.Since(start), err)
	return rows, err
}

func (q *queryService) FindByQuery(ctx context.Context, query string, params catalog.Params) (catalog.Row, bool, error) {
	start := time.Now()
	row, ok, err := q.next.FindByQuery(ctx, query, params)
	q.rec.ObserveQuery(catalog.QueryName(query), time.Since(start), err)
	return row, ok, err
}

func (q *queryService) FindAllByQuery(ctx context.Context, query string, params catalog.Params) ([]catalog.Object, error) {
	start := time.Now()
	objects, err := q.next.FindAllByQuery(ctx, query, params)
	q.rec.ObserveQuery(catalog.QueryName(query), time.Since(start), err)
	return objects, err
}

type searchService struct {
	next     catalog.SearchService
	rec      *Recorder
	typeName string
}

func (s *searchService) RestrictType(typeName string) {
	s.typeName = typeName
	s.next.RestrictType(typeName)
}

func (s *searchService) ByFullText(ctx context.Context, term string) error {
	err := s.next.ByFullText(ctx, term)
	s.rec.ObserveProbe(s.typeName, err == nil && s.next.HasNext(), err)
	return err
}

func (s *searchService) HasNext() bool {
	return s.next.HasNext()
}
