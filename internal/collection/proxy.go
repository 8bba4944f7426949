package collection

import (
	"context"

	"github.com/roach88/mirror/internal/value"
)

// Proxy is a view of one record exposing Get (with its GetFields and
// Clone forms), Fetch, Upsert, Destroy and IsPresent bound to its id.
type Proxy struct {
	store *Store
	id    string
}

// CreateProxy returns a Proxy for id. The record must be present.
func (s *Store) CreateProxy(id string) (*Proxy, error) {
	if _, err := s.GetRecord(id); err != nil {
		return nil, err
	}
	return &Proxy{store: s, id: id}, nil
}

// SetActive makes the record the store's active record. An empty id
// clears it.
func (s *Store) SetActive(id string) error {
	var p *Proxy
	if id != "" {
		var err error
		if p, err = s.CreateProxy(id); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.active = p
	s.mu.Unlock()
	return nil
}

// Active returns the active record's proxy, or nil.
func (s *Store) Active() *Proxy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// ID returns the bound identifier.
func (p *Proxy) ID() string {
	return p.id
}

// Get returns a field of the bound record.
func (p *Proxy) Get(field string) (value.Value, error) {
	return p.store.Get(p.id, field)
}

// GetFields returns the listed fields of the bound record.
func (p *Proxy) GetFields(fields ...string) (value.Object, error) {
	return p.store.GetFields(p.id, fields)
}

// Clone returns a mutable deep copy of the bound record, or of the
// listed fields when any are given.
func (p *Proxy) Clone(fields ...string) (map[string]any, error) {
	return p.store.Clone(p.id, fields...)
}

// Fetch refreshes the bound record from the backend.
func (p *Proxy) Fetch(ctx context.Context, fields ...string) (Result, error) {
	return p.store.Fetch(ctx, p.id, fields...)
}

// Upsert sends changes for the bound record to the backend. The
// identifier field is set to the bound id.
func (p *Proxy) Upsert(ctx context.Context, changes value.Object) (Result, error) {
	return p.store.Upsert(ctx, changes.Set(p.store.idField, value.String(p.id)))
}

// Destroy removes the bound record from the backend and the local store.
func (p *Proxy) Destroy(ctx context.Context) (Result, error) {
	return p.store.Destroy(ctx, p.id)
}

// IsPresent reports whether the bound record is present with fields.
func (p *Proxy) IsPresent(fields ...string) bool {
	return p.store.IsPresent(p.id, fields...)
}
