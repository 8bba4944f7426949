// Package collection implements the local record store: an immutable,
// queryable mirror of server-owned records kept in sync through a CRUD
// Strategy.
//
// Local operations (Merge, UpsertLocal, Get, Where, Sort, ...) complete
// synchronously against the current snapshot. Remote operations (Fetch,
// FetchList, Upsert, Destroy, DestroyMultiple) block inside the Strategy
// and reconcile the local store on success.
//
// Records are value.Object values and therefore immutable at every depth.
// An update replaces the stored record with a new one: the old record
// overlaid with the update's top-level fields.
//
// Thread-safety: a Store may be shared between goroutines. Each local
// write swaps the snapshot atomically under a mutex. There is no
// per-record serialization of remote operations; concurrent remote writes
// to one id reconcile in whatever order they return.
package collection

import (
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/mirror/internal/clock"
	"github.com/roach88/mirror/internal/filter"
	"github.com/roach88/mirror/internal/sorter"
	"github.com/roach88/mirror/internal/value"
)

// Store is a client-local mirror of one entity.
type Store struct {
	entity             string
	strategy           Strategy
	throwOnCrudFailure bool
	idField            string
	uuidIDs            bool
	logger             *slog.Logger
	idGen              clock.IDGenerator
	clock              *clock.Clock
	defaultSort        []sorter.Criterion

	filters *filter.Compiler
	sorter  *sorter.Sorter

	mu     sync.RWMutex
	st     state
	active *Proxy
}

// New creates an empty Store for entity backed by strategy.
//
// The store registers the "fieldValue" and "where" filter types, which
// read record fields through Get.
func New(entity string, strategy Strategy, opts ...StoreOption) (*Store, error) {
	if entity == "" {
		return nil, newInvalidArgumentError("", "", "entity name must be non-empty")
	}
	if strategy == nil {
		return nil, newInvalidArgumentError(entity, "", "strategy must be non-nil")
	}

	s := &Store{
		entity:             entity,
		strategy:           strategy,
		throwOnCrudFailure: true,
		idField:            DefaultIDField,
		logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		idGen:              clock.UUIDv7Generator{},
		clock:              clock.New(),
		filters:            filter.NewCompiler(),
		sorter:             sorter.New(),
		st:                 newState(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.idField == "" {
		return nil, newInvalidArgumentError(entity, "", "id field must be non-empty")
	}

	// Cannot fail: names are non-empty and factories non-nil.
	_ = s.filters.RegisterFilter(filter.TypeFieldValue, s.fieldValueFilter)
	_ = s.filters.RegisterFilter(filter.TypeWhere, s.whereFilter)

	return s, nil
}

// Entity returns the entity name passed to every strategy call.
func (s *Store) Entity() string {
	return s.entity
}

// IDField returns the identifier field name.
func (s *Store) IDField() string {
	return s.idField
}

func (s *Store) snapshot() state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st
}

// identify validates the identifier of a DTO and returns it.
func (s *Store) identify(dto value.Object) (string, error) {
	raw, ok := dto.Get(s.idField)
	if !ok {
		return "", newInvalidArgumentError(s.entity, "", "record has no %q field", s.idField)
	}
	id, ok := raw.(value.String)
	if !ok {
		return "", newInvalidArgumentError(s.entity, "", "field %q must be a string, got %s", s.idField, raw.Kind())
	}
	if err := s.checkID(string(id)); err != nil {
		return "", err
	}
	return string(id), nil
}

func (s *Store) checkID(id string) error {
	if id == "" {
		return newInvalidArgumentError(s.entity, "", "identifier must be non-empty")
	}
	if s.uuidIDs && !clock.IsUUID(id) {
		return newInvalidArgumentError(s.entity, id, "identifier is not a UUID")
	}
	return nil
}

// Merge upserts every DTO into the local store. All DTOs are validated
// before any is applied, so an invalid DTO leaves the store unchanged.
func (s *Store) Merge(dtos []value.Object) error {
	ids := make([]string, len(dtos))
	for i, dto := range dtos {
		id, err := s.identify(dto)
		if err != nil {
			return err
		}
		ids[i] = id
	}

	s.mu.Lock()
	st := s.st
	for i, dto := range dtos {
		st = s.upsertInto(st, ids[i], dto)
	}
	s.st = st
	s.mu.Unlock()

	s.logger.Debug("merged records", "entity", s.entity, "count", len(dtos))
	return nil
}

// UpsertLocal stores dto. A new id stores dto as is; an existing id
// stores the old record overlaid with dto's top-level fields. Fields
// absent from dto are kept.
func (s *Store) UpsertLocal(dto value.Object) error {
	id, err := s.identify(dto)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.st = s.upsertInto(s.st, id, dto)
	s.mu.Unlock()

	s.logger.Debug("upserted local record", "entity", s.entity, "id", id)
	return nil
}

func (s *Store) upsertInto(st state, id string, dto value.Object) state {
	rec := dto
	if old, ok := st.get(id); ok {
		rec = old.Merge(dto)
	}
	return st.put(id, rec, s.clock.Next)
}

// CreateLocal inserts a new local-only record. A DTO without an
// identifier gets one from the store's id generator. Creating an id that
// is already present fails with INVALID_ARGUMENT.
func (s *Store) CreateLocal(dto value.Object) (string, error) {
	if !dto.Has(s.idField) {
		dto = dto.Set(s.idField, value.String(s.idGen.Generate()))
	}
	id, err := s.identify(dto)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.get(id); ok {
		return "", newInvalidArgumentError(s.entity, id, "record already exists")
	}
	s.st = s.st.put(id, dto, s.clock.Next)

	s.logger.Debug("created local record", "entity", s.entity, "id", id)
	return id, nil
}

// DestroyLocal removes the record. An absent id is not an error.
func (s *Store) DestroyLocal(id string) error {
	if id == "" {
		return newInvalidArgumentError(s.entity, "", "identifier must be non-empty")
	}

	s.mu.Lock()
	s.st = s.st.remove(id)
	if s.active != nil && s.active.id == id {
		s.active = nil
	}
	s.mu.Unlock()

	s.logger.Debug("destroyed local record", "entity", s.entity, "id", id)
	return nil
}

// DeleteFields removes fields from a stored record. Merge never erases a
// field; this is the explicit way to do so. The identifier field cannot
// be deleted.
func (s *Store) DeleteFields(id string, fields ...string) error {
	if slices.Contains(fields, s.idField) {
		return newInvalidArgumentError(s.entity, id, "cannot delete identifier field %q", s.idField)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.st.get(id)
	if !ok {
		return newNotFoundError(s.entity, id)
	}
	s.st = s.st.put(id, rec.Without(fields...), s.clock.Next)
	return nil
}

// Empty removes every local record.
func (s *Store) Empty() {
	s.mu.Lock()
	s.st = newState()
	s.active = nil
	s.mu.Unlock()
}

// Len returns the number of local records.
func (s *Store) Len() int {
	return s.snapshot().len()
}

// IDs returns the identifiers of all local records in insertion order.
func (s *Store) IDs() []string {
	return s.snapshot().ids()
}

// Snapshot returns a consistent read-only view of the current records.
func (s *Store) Snapshot() *Snapshot {
	return &Snapshot{entity: s.entity, st: s.snapshot()}
}

// GetRecord returns the whole record.
func (s *Store) GetRecord(id string) (value.Object, error) {
	return s.Snapshot().GetRecord(id)
}

// Get returns a single field of a record.
func (s *Store) Get(id, field string) (value.Value, error) {
	return s.Snapshot().Get(id, field)
}

// GetFields returns the listed fields of a record. Every field must be
// present; MISSING_FIELD names all that are not.
func (s *Store) GetFields(id string, fields []string) (value.Object, error) {
	return s.Snapshot().GetFields(id, fields)
}

// Clone returns a mutable deep copy of a record, or of the listed fields
// when any are given. Changing the copy never affects the store.
func (s *Store) Clone(id string, fields ...string) (map[string]any, error) {
	snap := s.Snapshot()
	var (
		obj value.Object
		err error
	)
	if len(fields) == 0 {
		obj, err = snap.GetRecord(id)
	} else {
		obj, err = snap.GetFields(id, fields)
	}
	if err != nil {
		return nil, err
	}
	return value.Native(obj).(map[string]any), nil
}

// IsPresent reports whether the record exists and carries every listed
// field. It never fails.
func (s *Store) IsPresent(id string, fields ...string) bool {
	return s.Snapshot().IsPresent(id, fields...)
}

// Where returns the ids of records matching attrs, in insertion order.
//
// By default every record must carry every queried field (and the
// identifier field); otherwise MISSING_FIELD is returned. With
// IgnoreMissingFields such records simply do not match.
func (s *Store) Where(attrs value.Object, opts ...WhereOption) ([]string, error) {
	var out []string
	err := s.scanWhere(attrs, opts, func(id string) bool {
		out = append(out, id)
		return true
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// FindWhere returns the first id matching attrs in insertion order.
// Missing fields are checked across every record, as in Where.
func (s *Store) FindWhere(attrs value.Object, opts ...WhereOption) (string, bool, error) {
	var found string
	var ok bool
	err := s.scanWhere(attrs, opts, func(id string) bool {
		found, ok = id, true
		return false
	})
	if err != nil {
		return "", false, err
	}
	return found, ok, nil
}

func (s *Store) scanWhere(attrs value.Object, opts []WhereOption, yield func(id string) bool) error {
	var cfg whereConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	fields := append(attrs.Keys(), s.idField)

	var err error
	done := false
	s.snapshot().each(func(id string, rec value.Object) bool {
		if !cfg.ignoreMissingFields {
			if missing := rec.Missing(fields...); len(missing) > 0 {
				err = newMissingFieldError(s.entity, id, missing)
				return false
			}
		}
		if done {
			return true
		}
		if value.MatchesWhere(rec, attrs) && !yield(id) {
			done = true
			// Keep walking only to report records missing a queried field.
			return !cfg.ignoreMissingFields
		}
		return true
	})
	return err
}

// Pluck returns one field's value across all records, in insertion order.
func (s *Store) Pluck(field string) ([]value.Value, error) {
	out := make([]value.Value, 0, s.Len())
	var err error
	s.snapshot().each(func(id string, rec value.Object) bool {
		v, ok := rec.Get(field)
		if !ok {
			err = newMissingFieldError(s.entity, id, []string{field})
			return false
		}
		out = append(out, v)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
