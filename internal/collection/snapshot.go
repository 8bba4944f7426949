package collection

import (
	"github.com/roach88/mirror/internal/value"
)

// Snapshot is a consistent, read-only view of a Store at one point in
// time. Later writes to the Store are not visible through it.
type Snapshot struct {
	entity string
	st     state
}

// Len returns the number of records.
func (s *Snapshot) Len() int {
	return s.st.len()
}

// IDs returns the identifiers in insertion order.
func (s *Snapshot) IDs() []string {
	return s.st.ids()
}

// GetRecord returns the whole record.
func (s *Snapshot) GetRecord(id string) (value.Object, error) {
	rec, ok := s.st.get(id)
	if !ok {
		return value.Object{}, newNotFoundError(s.entity, id)
	}
	return rec, nil
}

// Get returns a single field of a record.
func (s *Snapshot) Get(id, field string) (value.Value, error) {
	rec, err := s.GetRecord(id)
	if err != nil {
		return nil, err
	}
	v, ok := rec.Get(field)
	if !ok {
		return nil, newMissingFieldError(s.entity, id, []string{field})
	}
	return v, nil
}

// GetFields returns the listed fields of a record.
func (s *Snapshot) GetFields(id string, fields []string) (value.Object, error) {
	rec, err := s.GetRecord(id)
	if err != nil {
		return value.Object{}, err
	}
	if missing := rec.Missing(fields...); len(missing) > 0 {
		return value.Object{}, newMissingFieldError(s.entity, id, missing)
	}
	return rec.Pick(fields...), nil
}

// IsPresent reports whether the record exists and carries every field.
func (s *Snapshot) IsPresent(id string, fields ...string) bool {
	rec, ok := s.st.get(id)
	return ok && len(rec.Missing(fields...)) == 0
}

// Digest returns a content digest of every record, independent of the
// order in which they were written.
func (s *Snapshot) Digest() (string, error) {
	pairs := make([]value.Pair, 0, s.st.len())
	s.st.each(func(id string, rec value.Object) bool {
		pairs = append(pairs, value.F(id, rec))
		return true
	})
	return value.Digest(value.DomainState, value.NewObject(pairs...))
}
