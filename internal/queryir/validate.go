package queryir

import (
	"fmt"

	"github.com/roach88/mirror/internal/value"
)

// ValidationResult contains portability analysis of a query.
//
// The portable fragment is the subset of the IR that every backend can
// evaluate exactly. Queries outside it still run; the backend filters
// loosely and callers re-check the rows.
type ValidationResult struct {
	// IsPortable indicates if the query uses only portable fragment features.
	IsPortable bool

	// Warnings lists non-portable features used in the query.
	// Empty when IsPortable is true.
	Warnings []string
}

// Validate checks if a query conforms to the portable fragment rules:
//  1. Only Equals, In and And predicates
//  2. Equals and In compare against scalars only
//  3. Field names are non-empty
//
// Validate is a pure function with no side effects.
func Validate(query Query) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validateQuery(query)

	return ValidationResult{
		IsPortable: len(v.warnings) == 0,
		Warnings:   v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validateQuery(q Query) {
	switch query := q.(type) {
	case Select:
		v.validatePredicate(query.Filter)
	case *Select:
		v.validatePredicate(query.Filter)
	case nil:
		v.addWarning("nil query")
	default:
		v.addWarning("Unknown query type: %T - portability cannot be verified", q)
	}
}

func (v *validator) validatePredicate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		// no filter
	case Equals:
		v.validateField(pred.Field)
		v.validateScalar(pred.Field, pred.Value)
	case In:
		v.validateField(pred.Field)
		for _, val := range pred.Values {
			v.validateScalar(pred.Field, val)
		}
	case HasKind:
		v.validateField(pred.Field)
		v.addWarning("Field '%s' tested for JSON kind %s - relies on backend JSON typing", pred.Field, pred.Kind)
	case And:
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	case Or:
		v.addWarning("OR predicate with %d alternatives - not in portable fragment", len(pred.Predicates))
		for _, sub := range pred.Predicates {
			v.validatePredicate(sub)
		}
	default:
		v.addWarning("Unknown predicate type: %T - portability cannot be verified", p)
	}
}

func (v *validator) validateField(field string) {
	if field == "" {
		v.addWarning("Empty field name")
	}
}

func (v *validator) validateScalar(field string, val value.Value) {
	switch val.(type) {
	case value.Bool, value.Int, value.Float, value.String:
	default:
		v.addWarning("Field '%s' compared to non-scalar %T", field, val)
	}
}
