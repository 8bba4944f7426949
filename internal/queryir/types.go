package queryir

import "github.com/roach88/mirror/internal/value"

// Query represents an abstract query.
//
// This is a sealed interface - only types in this package implement it.
type Query interface {
	queryNode() // Marker method - seals interface to this package
}

// Predicate represents a filter condition over one record.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Select reads the records of one entity.
//
// Semantics:
//
//	SELECT <records of Entity> WHERE <Filter> ORDER BY creation
//
// A nil Filter selects every record.
type Select struct {
	Entity string    // Entity (collection) name
	Filter Predicate // WHERE conditions (nil = no filter)
}

func (Select) queryNode() {}

// Equals matches records whose Field equals Value.
//
// Value is a scalar (bool, number or string). Null and container targets
// are expressed with HasKind.
type Equals struct {
	Field string
	Value value.Value
}

func (Equals) predicateNode() {}

// In matches records whose Field equals one of Values.
// An empty Values slice never matches.
type In struct {
	Field  string
	Values []value.Value
}

func (In) predicateNode() {}

// HasKind matches records whose Field holds a value of the given JSON
// kind. Only KindNull, KindArray and KindObject are meaningful.
type HasKind struct {
	Field string
	Kind  value.Kind
}

func (HasKind) predicateNode() {}

// And represents a conjunction of predicates (all must be true).
// Empty Predicates means "always true".
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or represents a disjunction of predicates (at least one must be true).
// Empty Predicates means "always false".
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// FromWhere lowers a where-query object into a Select on entity.
// Fields are visited in canonical key order so the result is deterministic.
func FromWhere(entity string, where value.Object) Select {
	if where.Len() == 0 {
		return Select{Entity: entity}
	}

	preds := make([]Predicate, 0, where.Len())
	for _, field := range where.Keys() {
		target, _ := where.Get(field)
		preds = append(preds, fieldPredicate(field, target))
	}
	if len(preds) == 1 {
		return Select{Entity: entity, Filter: preds[0]}
	}
	return Select{Entity: entity, Filter: And{Predicates: preds}}
}

// fieldPredicate builds the predicate for one where entry.
func fieldPredicate(field string, target value.Value) Predicate {
	switch t := target.(type) {
	case value.Null:
		return HasKind{Field: field, Kind: value.KindNull}
	case value.Object:
		return HasKind{Field: field, Kind: value.KindObject}
	case value.Array:
		return arrayPredicate(field, t)
	default:
		return Equals{Field: field, Value: target}
	}
}

// arrayPredicate matches membership in arr or equality with arr itself.
func arrayPredicate(field string, arr value.Array) Predicate {
	var scalars []value.Value
	kinds := map[value.Kind]bool{value.KindArray: true}
	for _, elem := range arr.Values() {
		switch elem.Kind() {
		case value.KindNull, value.KindArray, value.KindObject:
			kinds[elem.Kind()] = true
		default:
			scalars = append(scalars, elem)
		}
	}

	var alts []Predicate
	if len(scalars) > 0 {
		alts = append(alts, In{Field: field, Values: scalars})
	}
	for _, k := range []value.Kind{value.KindNull, value.KindArray, value.KindObject} {
		if kinds[k] {
			alts = append(alts, HasKind{Field: field, Kind: k})
		}
	}
	return Or{Predicates: alts}
}
