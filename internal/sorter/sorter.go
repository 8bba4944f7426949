// Package sorter builds lexicographic multi-key comparators over record
// identifiers.
package sorter

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/mirror/internal/value"
)

// KeyFunc extracts the sort key of a record.
type KeyFunc func(id string) (value.Value, error)

// Criterion is one sort key. Key takes precedence over Name when both
// are set.
type Criterion struct {
	Name       string
	Key        KeyFunc
	Descending bool
}

// By sorts by a registered sort function (or, at the store level, a field).
func By(name string) Criterion {
	return Criterion{Name: name}
}

// ByKey sorts by an ad hoc extractor.
func ByKey(fn KeyFunc) Criterion {
	return Criterion{Key: fn}
}

// Desc returns a copy of the criterion in descending order.
func (c Criterion) Desc() Criterion {
	c.Descending = true
	return c
}

func (c Criterion) String() string {
	name := c.Name
	if name == "" {
		name = "<func>"
	}
	if c.Descending {
		return name + " desc"
	}
	return name
}

// ErrSortFunctionNotFound is returned when a criterion names an
// unregistered sort function.
var ErrSortFunctionNotFound = errors.New("sort function not found")

// Comparator orders two record ids.
type Comparator func(a, b string) (int, error)

// Sorter holds named sort functions.
type Sorter struct {
	mu    sync.RWMutex
	funcs map[string]KeyFunc
}

// New returns an empty Sorter.
func New() *Sorter {
	return &Sorter{funcs: make(map[string]KeyFunc)}
}

// Register binds name to fn. A later registration replaces the earlier one.
func (s *Sorter) Register(name string, fn KeyFunc) error {
	if name == "" {
		return errors.New("sort function name must be non-empty")
	}
	if fn == nil {
		return fmt.Errorf("sort function %q must be non-nil", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.funcs[name] = fn
	return nil
}

// Has reports whether a sort function is registered under name.
func (s *Sorter) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.funcs[name]
	return ok
}

func (s *Sorter) resolve(c Criterion) (KeyFunc, error) {
	if c.Key != nil {
		return c.Key, nil
	}
	s.mu.RLock()
	fn, ok := s.funcs[c.Name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSortFunctionNotFound, c.Name)
	}
	return fn, nil
}

// Compile builds the master comparator for criteria. Each criterion
// yields 0 when the extracted keys are equal, +1 when a > b and -1
// otherwise, negated when descending. The master comparator returns the
// first nonzero result, or 0 when every criterion ties.
func (s *Sorter) Compile(criteria []Criterion) (Comparator, error) {
	cmps := make([]Comparator, len(criteria))
	for i, c := range criteria {
		fn, err := s.resolve(c)
		if err != nil {
			return nil, err
		}
		cmps[i] = keyComparator(fn, c.Descending)
	}

	return func(a, b string) (int, error) {
		for _, cmp := range cmps {
			r, err := cmp(a, b)
			if err != nil {
				return 0, err
			}
			if r != 0 {
				return r, nil
			}
		}
		return 0, nil
	}, nil
}

func keyComparator(fn KeyFunc, descending bool) Comparator {
	return func(a, b string) (int, error) {
		va, err := fn(a)
		if err != nil {
			return 0, err
		}
		vb, err := fn(b)
		if err != nil {
			return 0, err
		}
		r := order(va, vb)
		if r == 0 {
			return 0, nil
		}
		if descending {
			r = -r
		}
		return r, nil
	}
}

// order is a total order over keys. Comparable scalars use
// value.Compare; otherwise kinds are ranked null < bool < number < string
// < array < object so that mixed columns still sort deterministically.
// Arrays compare element by element, then by length. Objects compare by
// their canonical JSON encoding.
func order(a, b value.Value) int {
	if c, ok := value.Compare(a, b); ok {
		return sign(c)
	}
	if ra, rb := rank(a), rank(b); ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch av := a.(type) {
	case value.Array:
		bv := b.(value.Array)
		for i, n := 0, min(av.Len(), bv.Len()); i < n; i++ {
			if c := order(av.At(i), bv.At(i)); c != 0 {
				return c
			}
		}
		return cmp.Compare(av.Len(), bv.Len())
	case value.Object:
		ka, errA := value.MarshalCanonical(av)
		kb, errB := value.MarshalCanonical(b)
		if errA != nil || errB != nil {
			return 0
		}
		return bytes.Compare(ka, kb)
	}
	return 0
}

func sign(c int) int {
	switch {
	case c > 0:
		return 1
	case c < 0:
		return -1
	}
	return 0
}

func rank(v value.Value) int {
	switch v.(type) {
	case nil, value.Null:
		return 0
	case value.Bool:
		return 1
	case value.Int, value.Float:
		return 2
	case value.String:
		return 3
	case value.Array:
		return 4
	}
	return 5
}

// Sort returns a sorted copy of ids. The input slice is never modified.
// The sort is stable: ids whose composite keys tie keep their input order.
func (s *Sorter) Sort(ids []string, criteria []Criterion) ([]string, error) {
	cmp, err := s.Compile(criteria)
	if err != nil {
		return nil, err
	}

	out := slices.Clone(ids)
	var firstErr error
	slices.SortStableFunc(out, func(a, b string) int {
		if firstErr != nil {
			return 0
		}
		r, err := cmp(a, b)
		if err != nil {
			firstErr = err
			return 0
		}
		return r
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// ParseSpec canonicalizes a JSON sort specification: a criterion name,
// an object {"criteria": name, "descending": bool}, or an array of those.
func ParseSpec(v value.Value) ([]Criterion, error) {
	switch spec := v.(type) {
	case value.String:
		return []Criterion{By(string(spec))}, nil
	case value.Object:
		c, err := parseCriterion(spec)
		if err != nil {
			return nil, err
		}
		return []Criterion{c}, nil
	case value.Array:
		out := make([]Criterion, 0, spec.Len())
		for i, elem := range spec.Values() {
			switch e := elem.(type) {
			case value.String:
				out = append(out, By(string(e)))
			case value.Object:
				c, err := parseCriterion(e)
				if err != nil {
					return nil, fmt.Errorf("[%d]: %w", i, err)
				}
				out = append(out, c)
			default:
				return nil, fmt.Errorf("[%d]: sort criterion must be a string or object, got %s", i, elem.Kind())
			}
		}
		return out, nil
	case nil, value.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("sort specification must be a string, object or array, got %s", v.Kind())
	}
}

func parseCriterion(obj value.Object) (Criterion, error) {
	raw, ok := obj.Get("criteria")
	if !ok {
		return Criterion{}, errors.New(`sort criterion object needs "criteria"`)
	}
	name, ok := raw.(value.String)
	if !ok || name == "" {
		return Criterion{}, fmt.Errorf(`"criteria" must be a non-empty string, got %s`, raw.Kind())
	}
	c := By(string(name))
	if d, ok := obj.Get("descending"); ok {
		desc, ok := d.(value.Bool)
		if !ok {
			return Criterion{}, fmt.Errorf(`"descending" must be a boolean, got %s`, d.Kind())
		}
		c.Descending = bool(desc)
	}
	return c, nil
}
