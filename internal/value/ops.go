package value

import (
	"cmp"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Equal reports deep equality. Int and Float compare numerically,
// so Int(1) equals Float(1).
func Equal(a, b Value) bool {
	a, b = orNull(a), orNull(b)
	if af, aok := number(a); aok {
		bf, bok := number(b)
		if !bok {
			return false
		}
		if ai, ok := a.(Int); ok {
			if bi, ok := b.(Int); ok {
				return ai == bi
			}
		}
		return af == bf
	}

	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av.elems) != len(bv.elems) {
			return false
		}
		for i := range av.elems {
			if !Equal(av.elems[i], bv.elems[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av.fields) != len(bv.fields) {
			return false
		}
		for k, v := range av.fields {
			other, ok := bv.fields[k]
			if !ok || !Equal(v, other) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two scalars of the same family. Numbers compare
// numerically, strings bytewise, booleans false < true. ok is false when
// the pair is not comparable (mixed families, null, containers).
func Compare(a, b Value) (c int, ok bool) {
	if af, aok := number(a); aok {
		bf, bok := number(b)
		if !bok {
			return 0, false
		}
		ai, aInt := a.(Int)
		bi, bInt := b.(Int)
		if aInt && bInt {
			return cmp.Compare(ai, bi), true
		}
		return cmp.Compare(af, bf), true
	}

	switch av := a.(type) {
	case String:
		bv, ok := b.(String)
		if !ok {
			return 0, false
		}
		return strings.Compare(string(av), string(bv)), true
	case Bool:
		bv, ok := b.(Bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !bool(av):
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

// IsEmpty reports whether v is null, absent (nil), an empty string,
// an empty array or an empty object. Numbers and booleans are never empty.
func IsEmpty(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return true
	case String:
		return val == ""
	case Array:
		return len(val.elems) == 0
	case Object:
		return len(val.fields) == 0
	}
	return false
}

// Contains reports whether container holds needle: substring for strings,
// element equality for arrays. Other kinds never contain anything.
func Contains(container, needle Value) bool {
	switch c := container.(type) {
	case String:
		s, ok := needle.(String)
		return ok && strings.Contains(string(c), string(s))
	case Array:
		for _, elem := range c.elems {
			if Equal(elem, needle) {
				return true
			}
		}
	}
	return false
}

// Native converts v to plain Go values: nil, bool, int64, float64,
// string, []any and map[string]any. The result shares nothing with v.
func Native(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Array:
		out := make([]any, len(val.elems))
		for i, elem := range val.elems {
			out[i] = Native(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val.fields))
		for k, elem := range val.fields {
			out[k] = Native(elem)
		}
		return out
	}
	return nil
}

// From converts a plain Go value into a Value. It accepts the shapes
// produced by encoding/json (with or without UseNumber), YAML decoders
// and Native.
func From(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint:
		if uint64(val) > math.MaxInt64 {
			return Float(val), nil
		}
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return Float(val), nil
		}
		return Int(val), nil
	case float32:
		return floatValue(float64(val)), nil
	case float64:
		return floatValue(val), nil
	case json.Number:
		return numberValue(val)
	case []string:
		return Strings(val...), nil
	case []any:
		elems := make([]Value, len(val))
		for i, elem := range val {
			ev, err := From(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			elems[i] = ev
		}
		return Array{elems: elems}, nil
	case map[string]any:
		fields := make(map[string]Value, len(val))
		for k, elem := range val {
			ev, err := From(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			fields[k] = ev
		}
		return Object{fields: fields}, nil
	case map[any]any:
		fields := make(map[string]Value, len(val))
		for k, elem := range val {
			ks, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key %v (%T)", k, k)
			}
			ev, err := From(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", ks, err)
			}
			fields[ks] = ev
		}
		return Object{fields: fields}, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// MustFrom is like From but panics on error. Intended for tests and literals.
func MustFrom(v any) Value {
	val, err := From(v)
	if err != nil {
		panic(err)
	}
	return val
}

// ObjectFrom converts a map[string]any into an Object.
func ObjectFrom(m map[string]any) (Object, error) {
	v, err := From(m)
	if err != nil {
		return Object{}, err
	}
	return v.(Object), nil
}

// MustObject is like ObjectFrom but panics on error.
func MustObject(m map[string]any) Object {
	obj, err := ObjectFrom(m)
	if err != nil {
		panic(err)
	}
	return obj
}

// floatValue narrows integral floats in int64 range to Int so that
// decoders which only produce float64 keep integer identity.
func floatValue(f float64) Value {
	if f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 && !math.IsInf(f, 0) {
		return Int(int64(f))
	}
	return Float(f)
}

func number(v Value) (float64, bool) {
	switch n := v.(type) {
	case Int:
		return float64(n), true
	case Float:
		return float64(n), true
	}
	return 0, false
}
