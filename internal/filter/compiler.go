package filter

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/mirror/internal/value"
)

// Comparator tests a single field value.
type Comparator func(v value.Value) bool

// ComparatorFactory builds a Comparator bound to needle. It rejects
// needles of the wrong shape at compile time.
type ComparatorFactory func(needle value.Value) (Comparator, error)

// Factory builds a Predicate from a leaf's parameter object. The compiler
// is passed so that composite filters can compile their children.
type Factory func(c *Compiler, params value.Object) (Predicate, error)

// Registry errors.
var (
	ErrUnknownFilter     = errors.New("filter type not registered")
	ErrUnknownComparator = errors.New("comparator not registered")
	ErrInvalidNeedle     = errors.New("invalid comparator needle")
	ErrInvalidName       = errors.New("registration name must be non-empty")
	ErrNilFactory        = errors.New("registration factory must be non-nil")
)

// Compiler holds the filter and comparator registries.
// It is safe for concurrent use; registration is expected at setup time.
type Compiler struct {
	mu          sync.RWMutex
	filters     map[string]Factory
	comparators map[string]ComparatorFactory
}

// NewCompiler returns a Compiler with the built-in filter types and
// comparators registered.
func NewCompiler() *Compiler {
	c := &Compiler{
		filters:     make(map[string]Factory),
		comparators: make(map[string]ComparatorFactory),
	}
	c.filters["and"] = andFactory
	c.filters["or"] = orFactory
	for name, f := range builtinComparators {
		c.comparators[name] = f
	}
	return c
}

// RegisterFilter binds a filter type name to a factory. A later
// registration under the same name replaces the earlier one. Only Leaf
// nodes are dispatched through the registry: replacing "and" or "or"
// changes how {"type":"and"} leaves compile, while the typed And and Or
// nodes always use the built-in combinators.
func (c *Compiler) RegisterFilter(name string, f Factory) error {
	if name == "" {
		return ErrInvalidName
	}
	if f == nil {
		return fmt.Errorf("filter %q: %w", name, ErrNilFactory)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters[name] = f
	return nil
}

// RegisterComparator binds a comparator name to a factory. A later
// registration under the same name replaces the earlier one.
func (c *Compiler) RegisterComparator(name string, f ComparatorFactory) error {
	if name == "" {
		return ErrInvalidName
	}
	if f == nil {
		return fmt.Errorf("comparator %q: %w", name, ErrNilFactory)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.comparators[name] = f
	return nil
}

// Comparator builds the named comparator bound to needle.
func (c *Compiler) Comparator(name string, needle value.Value) (Comparator, error) {
	c.mu.RLock()
	f, ok := c.comparators[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComparator, name)
	}
	if needle == nil {
		needle = value.Null{}
	}
	return f(needle)
}

// Filters returns the registered filter type names, sorted.
func (c *Compiler) Filters() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.filters))
	for name := range c.filters {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Comparators returns the registered comparator names, sorted.
func (c *Compiler) Comparators() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.comparators))
	for name := range c.comparators {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Compile resolves a filter specification into a single predicate.
func (c *Compiler) Compile(n Node) (Predicate, error) {
	switch node := n.(type) {
	case nil:
		return matchAll, nil
	case Func:
		if node == nil {
			return nil, fmt.Errorf("%w: nil Func", ErrInvalidSpec)
		}
		return Predicate(node), nil
	case All:
		return c.conjunction(node)
	case And:
		return c.conjunction(node.Children)
	case Or:
		return c.disjunction(node.Children)
	case Leaf:
		c.mu.RLock()
		f, ok := c.filters[node.Type]
		c.mu.RUnlock()
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFilter, node.Type)
		}
		p, err := f(c, node.Params)
		if err != nil {
			return nil, fmt.Errorf("filter %q: %w", node.Type, err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unsupported node %T", ErrInvalidSpec, n)
	}
}

func (c *Compiler) compileAll(children []Node) ([]Predicate, error) {
	preds := make([]Predicate, len(children))
	for i, child := range children {
		p, err := c.Compile(child)
		if err != nil {
			return nil, fmt.Errorf("child %d: %w", i, err)
		}
		preds[i] = p
	}
	return preds, nil
}

func (c *Compiler) conjunction(children []Node) (Predicate, error) {
	preds, err := c.compileAll(children)
	if err != nil {
		return nil, err
	}
	return func(id string) (bool, error) {
		for _, p := range preds {
			ok, err := p(id)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}, nil
}

func (c *Compiler) disjunction(children []Node) (Predicate, error) {
	preds, err := c.compileAll(children)
	if err != nil {
		return nil, err
	}
	return func(id string) (bool, error) {
		for _, p := range preds {
			ok, err := p(id)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}, nil
}

func matchAll(string) (bool, error) { return true, nil }

func andFactory(c *Compiler, params value.Object) (Predicate, error) {
	children, err := Children(params)
	if err != nil {
		return nil, err
	}
	return c.conjunction(children)
}

func orFactory(c *Compiler, params value.Object) (Predicate, error) {
	children, err := Children(params)
	if err != nil {
		return nil, err
	}
	return c.disjunction(children)
}

// Apply evaluates p against ids and returns the passing ids in order.
func Apply(p Predicate, ids []string) ([]string, error) {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		ok, err := p(id)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, id)
		}
	}
	return out, nil
}
