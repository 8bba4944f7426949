package value

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Unmarshal decodes a JSON document into a Value.
// Integral numbers that fit in int64 become Int, every other number Float.
func Unmarshal(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}

	return From(raw)
}

// UnmarshalObject decodes a JSON document that must be an object.
func UnmarshalObject(data []byte) (Object, error) {
	v, err := Unmarshal(data)
	if err != nil {
		return Object{}, err
	}
	obj, ok := v.(Object)
	if !ok {
		return Object{}, fmt.Errorf("expected JSON object, got %s", v.Kind())
	}
	return obj, nil
}

// Marshal encodes a Value as JSON. Object keys are emitted in RFC 8785 order.
// NOTE: This is NOT canonical marshaling. Use MarshalCanonical for hashing.
func Marshal(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	case Float:
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return nil, fmt.Errorf("unsupported float value: %v", float64(val))
		}
		return json.Marshal(float64(val))
	case Bool:
		return json.Marshal(bool(val))
	case Array:
		return val.MarshalJSON()
	case Object:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// MarshalJSON implements json.Marshaler for Array.
func (a Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')

	for i, elem := range a.elems {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := Marshal(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}

	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler for Object with sorted keys.
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range o.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := Marshal(o.fields[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler for Array.
func (a *Array) UnmarshalJSON(data []byte) error {
	v, err := Unmarshal(data)
	if err != nil {
		return err
	}
	arr, ok := v.(Array)
	if !ok {
		return fmt.Errorf("expected JSON array, got %s", v.Kind())
	}
	*a = arr
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (o *Object) UnmarshalJSON(data []byte) error {
	obj, err := UnmarshalObject(data)
	if err != nil {
		return err
	}
	*o = obj
	return nil
}

// numberValue converts a decoded json.Number to Int or Float.
func numberValue(n json.Number) (Value, error) {
	s := string(n)
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return Int(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number %s: %w", s, err)
	}
	return Float(f), nil
}
