package filter

import (
	"errors"
	"fmt"

	"github.com/roach88/mirror/internal/value"
)

// Predicate reports whether the record with the given id passes a filter.
type Predicate func(id string) (bool, error)

// Node is a sealed interface for filter specifications.
// A nil Node matches every record.
type Node interface {
	filterNode() // Sealed - only Func, All, And, Or and Leaf implement it
}

// Func is an opaque custom predicate. It is returned unchanged by Compile.
type Func Predicate

// All is an implicit conjunction over its elements.
type All []Node

// And holds when every child holds. An empty And matches everything.
// It is compiled directly, never through the filter registry.
type And struct {
	Children []Node
}

// Or holds when any child holds. An empty Or matches nothing.
// It is compiled directly, never through the filter registry.
type Or struct {
	Children []Node
}

// Leaf is a registry-dispatched filter. Params is the whole node object,
// "type" included, as passed to the filter factory.
type Leaf struct {
	Type   string
	Params value.Object
}

func (Func) filterNode() {}
func (All) filterNode()  {}
func (And) filterNode()  {}
func (Or) filterNode()   {}
func (Leaf) filterNode() {}

// Well-known leaf types registered by a record store.
const (
	TypeFieldValue = "fieldValue"
	TypeWhere      = "where"
)

// ErrInvalidSpec indicates a filter specification with the wrong shape.
var ErrInvalidSpec = errors.New("invalid filter specification")

// NewLeaf builds a Leaf of the given type. The "type" key of params is
// set to typ.
func NewLeaf(typ string, params value.Object) Leaf {
	return Leaf{Type: typ, Params: params.Set("type", value.String(typ))}
}

// FieldValue builds a leaf comparing one field of the record against
// needle with a registered comparator.
func FieldValue(field, comparator string, needle value.Value) Leaf {
	return NewLeaf(TypeFieldValue, value.NewObject(
		value.F("fieldName", value.String(field)),
		value.F("comparator", value.String(comparator)),
		value.F("needle", needle),
	))
}

// Where builds a leaf matching records against a where-query object.
func Where(needle value.Object) Leaf {
	return NewLeaf(TypeWhere, value.NewObject(value.F("needle", needle)))
}

// Parse decodes a JSON filter specification.
func Parse(data []byte) (Node, error) {
	v, err := value.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSpec, err)
	}
	return FromValue(v)
}

// FromValue converts a decoded specification into a Node.
// null becomes nil, an array becomes All, an object must carry a string
// "type" and becomes a Leaf.
func FromValue(v value.Value) (Node, error) {
	switch val := v.(type) {
	case nil, value.Null:
		return nil, nil
	case value.Array:
		children := make(All, 0, val.Len())
		var err error
		val.Range(func(i int, elem value.Value) bool {
			var child Node
			child, err = FromValue(elem)
			if err != nil {
				err = fmt.Errorf("[%d]: %w", i, err)
				return false
			}
			children = append(children, child)
			return true
		})
		if err != nil {
			return nil, err
		}
		return children, nil
	case value.Object:
		typ, ok := val.Get("type")
		if !ok {
			return nil, fmt.Errorf("%w: object node has no \"type\"", ErrInvalidSpec)
		}
		name, ok := typ.(value.String)
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: \"type\" must be a non-empty string, got %s", ErrInvalidSpec, typ.Kind())
		}
		return Leaf{Type: string(name), Params: val}, nil
	default:
		return nil, fmt.Errorf("%w: expected null, array or object, got %s", ErrInvalidSpec, v.Kind())
	}
}

// Children decodes the "children" parameter of a leaf into nodes.
// Used by the and/or factories and by custom composite filters.
func Children(params value.Object) ([]Node, error) {
	raw, ok := params.Get("children")
	if !ok {
		return nil, fmt.Errorf("%w: missing \"children\"", ErrInvalidSpec)
	}
	arr, ok := raw.(value.Array)
	if !ok {
		return nil, fmt.Errorf("%w: \"children\" must be an array, got %s", ErrInvalidSpec, raw.Kind())
	}
	node, err := FromValue(arr)
	if err != nil {
		return nil, err
	}
	return node.(All), nil
}
