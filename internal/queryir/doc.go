// Package queryir is the backend-neutral form of a where-query.
//
// A where-query is a flat object of field -> target. A record matches when
// every field is present and its value equals the target, or, for an array
// target, equals one of the array's elements. FromWhere lowers that object
// into a Select whose predicates a storage backend can push down:
//
//	[where object] -> [Select] -> [SQL backend]
//	                           -> [in-memory scan]
//
// # Pushdown contract
//
// A backend may evaluate a Select loosely: it may return extra rows but
// must never drop a matching one. Callers re-check every returned record
// with value.MatchesWhere, so predicates that a backend cannot express
// exactly (numeric vs boolean coercion, nested containers) stay correct.
//
// # Sealed interfaces
//
// Query and Predicate are sealed with marker methods so backend compilers
// can switch exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case In:
//	case HasKind:
//	case And:
//	case Or:
//	}
//
// # Portable fragment
//
// Equals, In and And form the portable fragment. HasKind and Or are needed
// for null and array targets; Validate reports them as warnings so callers
// can see when a query relies on JSON typing in the backend.
package queryir
