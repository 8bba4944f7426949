package collection

import (
	"errors"

	"github.com/roach88/mirror/internal/filter"
	"github.com/roach88/mirror/internal/sorter"
	"github.com/roach88/mirror/internal/value"
)

// RegisterFilter adds a filter type. A later registration replaces an
// earlier one, built-ins included.
func (s *Store) RegisterFilter(name string, f filter.Factory) error {
	if err := s.filters.RegisterFilter(name, f); err != nil {
		return s.wrapInvalid(err)
	}
	return nil
}

// RegisterComparator adds a value comparator.
func (s *Store) RegisterComparator(name string, f filter.ComparatorFactory) error {
	if err := s.filters.RegisterComparator(name, f); err != nil {
		return s.wrapInvalid(err)
	}
	return nil
}

// RegisterSortFunction adds a named sort key extractor.
func (s *Store) RegisterSortFunction(name string, fn sorter.KeyFunc) error {
	if err := s.sorter.Register(name, fn); err != nil {
		return s.wrapInvalid(err)
	}
	return nil
}

// CompileFilter compiles a filter specification into a predicate over ids.
func (s *Store) CompileFilter(n filter.Node) (filter.Predicate, error) {
	p, err := s.filters.Compile(n)
	if err != nil {
		return nil, s.wrapInvalid(err)
	}
	return p, nil
}

// Select compiles n and returns the matching ids in insertion order.
func (s *Store) Select(n filter.Node) ([]string, error) {
	p, err := s.CompileFilter(n)
	if err != nil {
		return nil, err
	}
	return filter.Apply(p, s.IDs())
}

// Sort returns a sorted copy of ids. A criterion naming no registered
// sort function sorts by the record field of that name. Without criteria
// the store's default sort applies. The sort is stable.
func (s *Store) Sort(ids []string, criteria ...sorter.Criterion) ([]string, error) {
	if len(criteria) == 0 {
		criteria = s.defaultSort
	}

	resolved := make([]sorter.Criterion, len(criteria))
	for i, c := range criteria {
		if c.Key == nil && !s.sorter.Has(c.Name) {
			field := c.Name
			c.Key = func(id string) (value.Value, error) {
				return s.Get(id, field)
			}
		}
		resolved[i] = c
	}

	out, err := s.sorter.Sort(ids, resolved)
	if err != nil {
		var se *Error
		if errors.As(err, &se) {
			return nil, err
		}
		return nil, s.wrapInvalid(err)
	}
	return out, nil
}

func (s *Store) wrapInvalid(err error) error {
	return &Error{
		Code:    ErrCodeInvalidArgument,
		Entity:  s.entity,
		Message: "invalid query",
		Err:     err,
	}
}

// fieldValueFilter implements the "fieldValue" filter type:
// {"type": "fieldValue", "fieldName": ..., "comparator": ..., "needle": ...}.
func (s *Store) fieldValueFilter(c *filter.Compiler, params value.Object) (filter.Predicate, error) {
	field, err := stringParam(params, "fieldName")
	if err != nil {
		return nil, err
	}
	name, err := stringParam(params, "comparator")
	if err != nil {
		return nil, err
	}
	needle, _ := params.Get("needle")

	cmp, err := c.Comparator(name, needle)
	if err != nil {
		return nil, err
	}
	return func(id string) (bool, error) {
		v, err := s.Get(id, field)
		if err != nil {
			return false, err
		}
		return cmp(v), nil
	}, nil
}

// whereFilter implements the "where" filter type: {"type": "where",
// "needle": {field: target, ...}}. Array targets list accepted values.
func (s *Store) whereFilter(_ *filter.Compiler, params value.Object) (filter.Predicate, error) {
	raw, ok := params.Get("needle")
	if !ok {
		return nil, newInvalidArgumentError(s.entity, "", `where filter needs "needle"`)
	}
	needle, ok := raw.(value.Object)
	if !ok {
		return nil, newInvalidArgumentError(s.entity, "", `where "needle" must be an object, got %s`, raw.Kind())
	}
	fields := needle.Keys()

	return func(id string) (bool, error) {
		rec, err := s.GetFields(id, fields)
		if err != nil {
			return false, err
		}
		return value.MatchesWhere(rec, needle), nil
	}, nil
}

func stringParam(params value.Object, key string) (string, error) {
	raw, ok := params.Get(key)
	if !ok {
		return "", &Error{Code: ErrCodeInvalidArgument, Message: "missing filter parameter " + key}
	}
	str, ok := raw.(value.String)
	if !ok || str == "" {
		return "", &Error{Code: ErrCodeInvalidArgument, Message: "filter parameter " + key + " must be a non-empty string"}
	}
	return string(str), nil
}
