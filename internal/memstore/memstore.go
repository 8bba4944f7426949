// Package memstore is an in-process CRUD backend. It behaves like a
// minimal record server: it assigns identifiers on create, overlays
// updates onto stored records and returns the canonical stored form.
// Failures can be injected per operation for tests and demos.
package memstore

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/mirror/internal/clock"
	"github.com/roach88/mirror/internal/value"
)

// Operation names, as used by FailNext and Calls.
const (
	OpFetch           = "fetch"
	OpFetchList       = "fetchList"
	OpUpsert          = "upsert"
	OpDestroy         = "destroy"
	OpDestroyMultiple = "destroyMultiple"
)

// ErrNotFound is returned for operations on unknown records.
var ErrNotFound = errors.New("record not found")

// Call records one strategy invocation.
type Call struct {
	Op     string
	Entity string
	ID     string
}

type row struct {
	seq int64
	rec value.Object
}

// Server is a mutex-guarded in-memory record server.
type Server struct {
	idField string
	idGen   clock.IDGenerator
	clock   *clock.Clock

	mu     sync.Mutex
	tables map[string]map[string]row
	fail   map[string]error
	calls  []Call
}

// Option configures a Server.
type Option func(*Server)

// WithIDGenerator sets the generator for server-assigned identifiers.
func WithIDGenerator(gen clock.IDGenerator) Option {
	return func(s *Server) {
		s.idGen = gen
	}
}

// WithIDField sets the identifier field name. Default "id".
func WithIDField(field string) Option {
	return func(s *Server) {
		s.idField = field
	}
}

// New creates an empty server.
func New(opts ...Option) *Server {
	s := &Server{
		idField: "id",
		idGen:   clock.UUIDv7Generator{},
		clock:   clock.New(),
		tables:  make(map[string]map[string]row),
		fail:    make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed stores records directly, bypassing failure injection.
func (s *Server) Seed(entity string, recs ...value.Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		if _, err := s.put(entity, rec); err != nil {
			return err
		}
	}
	return nil
}

// FailNext makes the next call of op fail with err.
func (s *Server) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[op] = err
}

// Calls returns the invocations received so far.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// Len returns the number of records stored for entity.
func (s *Server) Len(entity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables[entity])
}

// begin records the call and consumes an injected failure.
// Callers must hold s.mu.
func (s *Server) begin(ctx context.Context, op, entity, id string) error {
	s.calls = append(s.calls, Call{Op: op, Entity: entity, ID: id})
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := s.fail[op]; ok {
		delete(s.fail, op)
		return err
	}
	return nil
}

func (s *Server) table(entity string) map[string]row {
	t, ok := s.tables[entity]
	if !ok {
		t = make(map[string]row)
		s.tables[entity] = t
	}
	return t
}

// put stores rec, assigning an id when absent and overlaying an existing
// record. Callers must hold s.mu.
func (s *Server) put(entity string, rec value.Object) (value.Object, error) {
	raw, ok := rec.Get(s.idField)
	if !ok {
		raw = value.String(s.idGen.Generate())
		rec = rec.Set(s.idField, raw)
	}
	id, ok := raw.(value.String)
	if !ok || id == "" {
		return value.Object{}, fmt.Errorf("field %q must be a non-empty string", s.idField)
	}

	t := s.table(entity)
	if old, ok := t[string(id)]; ok {
		merged := old.rec.Merge(rec)
		t[string(id)] = row{seq: old.seq, rec: merged}
		return merged, nil
	}
	t[string(id)] = row{seq: s.clock.Next(), rec: rec}
	return rec, nil
}

func project(rec value.Object, fields []string) value.Object {
	if len(fields) == 0 {
		return rec
	}
	return rec.Pick(fields...)
}

// Fetch implements collection.Strategy.
func (s *Server) Fetch(ctx context.Context, id string, fields []string, entity string) (value.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpFetch, entity, id); err != nil {
		return value.Object{}, err
	}
	r, ok := s.tables[entity][id]
	if !ok {
		return value.Object{}, fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
	}
	return project(r.rec, fields), nil
}

// FetchList implements collection.Strategy. Results are in creation order.
func (s *Server) FetchList(ctx context.Context, where value.Object, fields []string, entity string) ([]value.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpFetchList, entity, ""); err != nil {
		return nil, err
	}

	rows := make([]row, 0, len(s.tables[entity]))
	for _, r := range s.tables[entity] {
		if value.MatchesWhere(r.rec, where) {
			rows = append(rows, r)
		}
	}
	slices.SortFunc(rows, func(a, b row) int { return cmp.Compare(a.seq, b.seq) })

	out := make([]value.Object, len(rows))
	for i, r := range rows {
		out[i] = project(r.rec, fields)
	}
	return out, nil
}

// Upsert implements collection.Strategy.
func (s *Server) Upsert(ctx context.Context, dto value.Object, entity string) (value.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := ""
	if v, ok := dto.Get(s.idField); ok {
		if str, ok := v.(value.String); ok {
			id = string(str)
		}
	}
	if err := s.begin(ctx, OpUpsert, entity, id); err != nil {
		return value.Object{}, err
	}
	return s.put(entity, dto)
}

// Destroy implements collection.Strategy.
func (s *Server) Destroy(ctx context.Context, id string, entity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpDestroy, entity, id); err != nil {
		return err
	}
	t := s.tables[entity]
	if _, ok := t[id]; !ok {
		return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
	}
	delete(t, id)
	return nil
}

// DestroyMultiple implements collection.Strategy. Either every id is
// removed or, when one is unknown, none is.
func (s *Server) DestroyMultiple(ctx context.Context, ids []string, entity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.begin(ctx, OpDestroyMultiple, entity, ""); err != nil {
		return err
	}
	t := s.tables[entity]
	for _, id := range ids {
		if _, ok := t[id]; !ok {
			return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
		}
	}
	for _, id := range ids {
		delete(t, id)
	}
	return nil
}
