// Package value provides the record value model for mirror.
//
// Records are JSON-like trees built from a sealed set of value types:
// Null, Bool, Int, Float, String, Array and Object. Array and Object are
// immutable by construction. Constructors copy their inputs and every
// "update" (Object.Set, Object.Merge, Object.Without) returns a new value,
// so a record handed to the store can never be changed at any depth.
//
// Callers that need a mutable tree use Native, which returns a freshly
// allocated map[string]any / []any representation, and From to convert it
// back.
//
// This package imports nothing internal. All other internal packages
// import value.
package value
