package value

import (
	"slices"
	"unicode/utf16"
)

// Kind identifies the dynamic type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindArray:  "array",
	KindObject: "object",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Value is a sealed interface representing a record value.
// Only Null, Bool, Int, Float, String, Array and Object implement it.
type Value interface {
	Kind() Kind
	value() // Sealed - only these types implement it
}

// Null represents a JSON null. It is distinct from an absent field.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) value()     {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Bool represents a boolean value.
type Bool bool

func (Bool) Kind() Kind { return KindBool }
func (Bool) value()     {}

// Int represents an integral number.
type Int int64

func (Int) Kind() Kind { return KindInt }
func (Int) value()     {}

// Float represents a non-integral (or out of int64 range) number.
type Float float64

func (Float) Kind() Kind { return KindFloat }
func (Float) value()     {}

// String represents a string value.
type String string

func (String) Kind() Kind { return KindString }
func (String) value()     {}

// Array is an immutable sequence of values.
// The zero Array is empty and ready to use.
type Array struct {
	elems []Value
}

func (Array) Kind() Kind { return KindArray }
func (Array) value()     {}

// NewArray creates an Array holding a copy of vals.
// nil elements are stored as Null.
func NewArray(vals ...Value) Array {
	elems := make([]Value, len(vals))
	for i, v := range vals {
		elems[i] = orNull(v)
	}
	return Array{elems: elems}
}

// Strings is a shorthand for an Array of String values.
func Strings(ss ...string) Array {
	elems := make([]Value, len(ss))
	for i, s := range ss {
		elems[i] = String(s)
	}
	return Array{elems: elems}
}

// Len returns the number of elements.
func (a Array) Len() int {
	return len(a.elems)
}

// At returns the element at index i. It panics if i is out of range.
func (a Array) At(i int) Value {
	return a.elems[i]
}

// Values returns a copy of the elements.
func (a Array) Values() []Value {
	return slices.Clone(a.elems)
}

// Range calls fn for each element in order until fn returns false.
func (a Array) Range(fn func(i int, v Value) bool) {
	for i, v := range a.elems {
		if !fn(i, v) {
			return
		}
	}
}

// Object is an immutable mapping from field name to value.
// The zero Object is empty and ready to use.
type Object struct {
	fields map[string]Value
}

func (Object) Kind() Kind { return KindObject }
func (Object) value()     {}

// Pair represents a key-value pair for Object construction.
type Pair struct {
	Key   string
	Value Value
}

// F is a shorthand for Pair for ergonomic construction.
// Example: NewObject(F("id", String("1")), F("age", Int(30)))
func F(key string, v Value) Pair {
	return Pair{Key: key, Value: v}
}

// NewObject creates an Object from key-value pairs. Later pairs win.
func NewObject(pairs ...Pair) Object {
	fields := make(map[string]Value, len(pairs))
	for _, p := range pairs {
		fields[p.Key] = orNull(p.Value)
	}
	return Object{fields: fields}
}

// ObjectFromMap creates an Object holding a copy of m.
func ObjectFromMap(m map[string]Value) Object {
	fields := make(map[string]Value, len(m))
	for k, v := range m {
		fields[k] = orNull(v)
	}
	return Object{fields: fields}
}

// Len returns the number of fields.
func (o Object) Len() int {
	return len(o.fields)
}

// Get returns the value stored under key.
func (o Object) Get(key string) (Value, bool) {
	v, ok := o.fields[key]
	return v, ok
}

// Has reports whether key is present.
func (o Object) Has(key string) bool {
	_, ok := o.fields[key]
	return ok
}

// Keys returns the field names in RFC 8785 order (UTF-16 code units).
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o.fields))
	for k := range o.fields {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Range calls fn for each field in key order until fn returns false.
func (o Object) Range(fn func(key string, v Value) bool) {
	for _, k := range o.Keys() {
		if !fn(k, o.fields[k]) {
			return
		}
	}
}

// Map returns a shallow copy of the fields.
func (o Object) Map() map[string]Value {
	m := make(map[string]Value, len(o.fields))
	for k, v := range o.fields {
		m[k] = v
	}
	return m
}

// Set returns a copy of o with key bound to v.
func (o Object) Set(key string, v Value) Object {
	m := o.Map()
	m[key] = orNull(v)
	return Object{fields: m}
}

// Merge returns a copy of o overlaid with every top-level field of overlay.
// Values present in overlay replace the old value entirely, nested
// structures included. Fields absent from overlay are kept.
func (o Object) Merge(overlay Object) Object {
	m := o.Map()
	for k, v := range overlay.fields {
		m[k] = v
	}
	return Object{fields: m}
}

// Pick returns an Object holding only the listed keys that are present.
func (o Object) Pick(keys ...string) Object {
	m := make(map[string]Value, len(keys))
	for _, k := range keys {
		if v, ok := o.fields[k]; ok {
			m[k] = v
		}
	}
	return Object{fields: m}
}

// Without returns a copy of o with the listed keys removed.
func (o Object) Without(keys ...string) Object {
	m := o.Map()
	for _, k := range keys {
		delete(m, k)
	}
	return Object{fields: m}
}

// Missing returns the listed keys that are absent from o, in input order.
func (o Object) Missing(keys ...string) []string {
	var missing []string
	for _, k := range keys {
		if _, ok := o.fields[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}

func orNull(v Value) Value {
	if v == nil {
		return Null{}
	}
	return v
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
// Go's default string comparison uses UTF-8 which produces a different order
// for characters outside the BMP.
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
