// Package sqlcatalog implements the catalog boundary over the catalog's
// relational schema with database/sql.
//
// Postgres (through pgx) is used against a live catalog database; SQLite
// serves offline exports of the same tables and test fixtures. Every
// statement is read-only.
package sqlcatalog

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	_ "modernc.org/sqlite"             // pure go sqlite driver

	"github.com/idr/idrstat/pkg/catalog"
	"github.com/idr/idrstat/pkg/constants"
	"github.com/idr/idrstat/pkg/errors"
)

// Compile-time contract assertions.
var (
	_ catalog.Session      = (*Session)(nil)
	_ catalog.QueryService = (*Store)(nil)
)

var sqlOpen = sql.Open

// Store runs catalog queries over one database handle.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Session owns the database handle for one run.
type Session struct {
	store *Store

	mu     sync.Mutex
	closed bool
}

// Open connects to the catalog and verifies the connection.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Session, error) {
	if dsn == "" {
		return nil, errors.NewConfigError("catalog", "dsn is required", nil)
	}
	db, err := sqlOpen(dialect.Driver, dsn)
	if err != nil {
		return nil, errors.WrapResource("open", "session", dialect.Name, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, constants.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.WrapResource("open", "session", dialect.Name, err)
	}
	// Queries run strictly one after another.
	db.SetMaxOpenConns(1)
	return &Session{store: &Store{db: db, dialect: dialect}}, nil
}

// Query implements catalog.Session.
func (s *Session) Query() catalog.QueryService {
	return s.store
}

// Search implements catalog.Session.
func (s *Session) Search() (catalog.SearchService, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.ErrClosed
	}
	return &Search{store: s.store}, nil
}

// Close releases the database handle. Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return errors.WrapResource("close", "session", s.store.dialect.Name, s.store.db.Close())
}

// Projection implements catalog.QueryService.
func (s *Store) Projection(ctx context.Context, query string, params catalog.Params) ([]catalog.Row, error) {
	var out []catalog.Row
	err := s.each(ctx, query, params, func(row catalog.Row) bool {
		out = append(out, row)
		return true
	})
	return out, err
}

// FindByQuery implements catalog.QueryService.
func (s *Store) FindByQuery(ctx context.Context, query string, params catalog.Params) (catalog.Row, bool, error) {
	var first catalog.Row
	err := s.each(ctx, query, params, func(row catalog.Row) bool {
		first = row
		return false
	})
	return first, first != nil, err
}

// FindAllByQuery implements catalog.QueryService.
func (s *Store) FindAllByQuery(ctx context.Context, query string, params catalog.Params) ([]catalog.Object, error) {
	var (
		objects []catalog.Object
		decErr  error
	)
	err := s.each(ctx, query, params, func(row catalog.Row) bool {
		if len(row) < 3 {
			decErr = errors.NewValidationError("query", query, "object rows need id, key and value columns")
			return false
		}
		id, ok := row[0].(int64)
		if !ok {
			decErr = errors.NewValidationError("id", row[0], "object id must be an integer")
			return false
		}
		if len(objects) == 0 || objects[len(objects)-1].ID != id {
			objects = append(objects, catalog.Object{ID: id})
		}
		last := &objects[len(objects)-1]
		last.Pairs = append(last.Pairs, catalog.Pair{Name: text(row[1]), Value: text(row[2])})
		return true
	})
	if err != nil {
		return nil, err
	}
	return objects, decErr
}

// each streams rows to fn until fn returns false.
func (s *Store) each(ctx context.Context, query string, params catalog.Params, fn func(catalog.Row) bool) error {
	bound, args, err := s.dialect.Bind(query, params)
	if err != nil {
		return err
	}
	rows, err := s.db.QueryContext(ctx, bound, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	for rows.Next() {
		values := make(catalog.Row, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		if !fn(values) {
			break
		}
	}
	return rows.Err()
}

func text(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}
