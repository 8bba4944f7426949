// Package filter compiles declarative filter specifications into
// predicates over record identifiers.
//
// A specification is a tree of Node values:
//
//	nil              matches every id
//	Func             an opaque predicate, used as is
//	All{...}         implicit AND over the children (empty matches all)
//	And / Or         typed conjunction and disjunction
//	Leaf{Type, ...}  dispatched by Type through the filter registry
//
// Leaves are the extension point. A Compiler ships with the "and" and
// "or" filter types and the built-in value comparators (equals,
// isGreaterThan, startsWith, containsAll, isEmpty, ...). Callers register
// their own filter types and comparators with RegisterFilter and
// RegisterComparator; a later registration under the same name replaces
// the earlier one.
//
// Compilation is pure. It never reads records; the compiled Predicate
// resolves field values through whatever accessor the filter factory
// closed over when it runs.
//
// JSON form, as accepted by Parse:
//
//	null
//	[{"type": "fieldValue", "fieldName": "age", "comparator": "isGreaterThan", "needle": 21}, ...]
//	{"type": "or", "children": [ ... ]}
package filter
