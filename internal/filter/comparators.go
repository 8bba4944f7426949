package filter

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/roach88/mirror/internal/value"
)

var builtinComparators = map[string]ComparatorFactory{
	"equals":                      equals,
	"doesNotEqual":                doesNotEqual,
	"isGreaterThan":               ordered("isGreaterThan", func(c int) bool { return c > 0 }),
	"isLessThan":                  ordered("isLessThan", func(c int) bool { return c < 0 }),
	"isGreaterThanOrEqualTo":      ordered("isGreaterThanOrEqualTo", func(c int) bool { return c >= 0 }),
	"isLessThanOrEqualTo":         ordered("isLessThanOrEqualTo", func(c int) bool { return c <= 0 }),
	"containsAWordThatStartsWith": containsAWordThatStartsWith,
	"startsWith":                  textComparator("startsWith", strings.HasPrefix),
	"endsWith":                    textComparator("endsWith", strings.HasSuffix),
	"containsText":                textComparator("containsText", strings.Contains),
	"contains":                    contains,
	"doesNotContain":              doesNotContain,
	"containsSome":                containsSome,
	"containsAll":                 containsAll,
	"isContained":                 isContained,
	"isEmpty":                     isEmpty,
	"isNotEmpty":                  isNotEmpty,
}

func equals(needle value.Value) (Comparator, error) {
	return func(v value.Value) bool { return value.Equal(v, needle) }, nil
}

func doesNotEqual(needle value.Value) (Comparator, error) {
	return func(v value.Value) bool { return !value.Equal(v, needle) }, nil
}

// ordered builds a range comparator. The needle must be a number or a
// string; values of another family never match.
func ordered(name string, accept func(int) bool) ComparatorFactory {
	return func(needle value.Value) (Comparator, error) {
		switch needle.(type) {
		case value.Int, value.Float, value.String:
		default:
			return nil, needleError(name, "number or string", needle)
		}
		return func(v value.Value) bool {
			c, ok := value.Compare(v, needle)
			return ok && accept(c)
		}, nil
	}
}

// fold lowercases s using Unicode case folding. A Caser is stateful, so
// one is created per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// textOf returns the string form used by text comparators. Null reads as
// the empty string; other non-string values are not text.
func textOf(v value.Value) (string, bool) {
	switch val := v.(type) {
	case value.String:
		return string(val), true
	case nil, value.Null:
		return "", true
	}
	return "", false
}

// textComparator builds a case-insensitive string comparator.
func textComparator(name string, match func(s, substr string) bool) ComparatorFactory {
	return func(needle value.Value) (Comparator, error) {
		s, ok := needle.(value.String)
		if !ok {
			return nil, needleError(name, "string", needle)
		}
		folded := fold(string(s))
		return func(v value.Value) bool {
			text, ok := textOf(v)
			return ok && match(fold(text), folded)
		}, nil
	}
}

func containsAWordThatStartsWith(needle value.Value) (Comparator, error) {
	s, ok := needle.(value.String)
	if !ok {
		return nil, needleError("containsAWordThatStartsWith", "string", needle)
	}
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(string(s)))
	if err != nil {
		return nil, fmt.Errorf("%w: containsAWordThatStartsWith: %v", ErrInvalidNeedle, err)
	}
	return func(v value.Value) bool {
		text, ok := v.(value.String)
		return ok && re.MatchString(string(text))
	}, nil
}

func contains(needle value.Value) (Comparator, error) {
	return func(v value.Value) bool { return value.Contains(v, needle) }, nil
}

// doesNotContain also holds for values that cannot contain anything.
func doesNotContain(needle value.Value) (Comparator, error) {
	return func(v value.Value) bool { return !value.Contains(v, needle) }, nil
}

func containsSome(needle value.Value) (Comparator, error) {
	arr, ok := needle.(value.Array)
	if !ok {
		return nil, needleError("containsSome", "array", needle)
	}
	entries := arr.Values()
	return func(v value.Value) bool {
		for _, e := range entries {
			if value.Contains(v, e) {
				return true
			}
		}
		return false
	}, nil
}

// containsAll holds when every needle entry is contained in the value.
func containsAll(needle value.Value) (Comparator, error) {
	arr, ok := needle.(value.Array)
	if !ok {
		return nil, needleError("containsAll", "array", needle)
	}
	entries := arr.Values()
	return func(v value.Value) bool {
		for _, e := range entries {
			if !value.Contains(v, e) {
				return false
			}
		}
		return true
	}, nil
}

func isContained(needle value.Value) (Comparator, error) {
	arr, ok := needle.(value.Array)
	if !ok {
		return nil, needleError("isContained", "array", needle)
	}
	return func(v value.Value) bool { return value.Contains(arr, v) }, nil
}

func isEmpty(value.Value) (Comparator, error) {
	return value.IsEmpty, nil
}

func isNotEmpty(value.Value) (Comparator, error) {
	return func(v value.Value) bool { return !value.IsEmpty(v) }, nil
}

func needleError(name, want string, got value.Value) error {
	kind := "absent"
	if got != nil {
		kind = got.Kind().String()
	}
	return fmt.Errorf("%w: %s expects a %s needle, got %s", ErrInvalidNeedle, name, want, kind)
}
