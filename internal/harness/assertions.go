package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/mirror/internal/collection"
	"github.com/roach88/mirror/internal/memstore"
	"github.com/roach88/mirror/internal/value"
)

// AssertionContext provides the state assertions inspect.
type AssertionContext struct {
	Store   *collection.Store
	Backend *memstore.Server
	Entity  string
}

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", event.Seq, event.Action, formatValue(event.Args), event.Case)
		}
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(actx.Store, a)
		case AssertLocalIDs:
			err = assertLocalIDs(actx.Store, a)
		case AssertRemoteCount:
			err = assertRemoteCount(actx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertTraceContains checks if the trace contains a step matching the
// specified action and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	want, err := value.ObjectFrom(assertion.Args)
	if err != nil {
		return fmt.Errorf("trace_contains: bad args: %w", err)
	}
	for _, event := range trace {
		if event.Action == assertion.Action && subsetMatch(event.Args, want) {
			return nil
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %s", assertion.Action, formatValue(want)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for _, want := range assertion.Actions {
		found := false
		for pos < len(trace) {
			event := trace[pos]
			pos++
			if event.Action == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
				Actual:   fmt.Sprintf("%s not found after earlier actions", want),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertTraceCount checks if the action appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Action == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFinalState checks that exactly one local record matches where and
// that it carries the expected fields (subset match).
func assertFinalState(st *collection.Store, assertion Assertion) error {
	where, err := value.ObjectFrom(assertion.Where)
	if err != nil {
		return fmt.Errorf("final_state: bad where: %w", err)
	}
	want, err := value.ObjectFrom(assertion.Expect)
	if err != nil {
		return fmt.Errorf("final_state: bad expect: %w", err)
	}

	ids, err := st.Where(where, collection.IgnoreMissingFields())
	if err != nil {
		return fmt.Errorf("final_state: %w", err)
	}
	switch len(ids) {
	case 0:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("record where %s", formatValue(where)),
			Actual:   "record not found",
		}
	case 1:
	default:
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one record where %s", formatValue(where)),
			Actual:   fmt.Sprintf("%d records matched (assertion is ambiguous)", len(ids)),
		}
	}

	rec, err := st.GetRecord(ids[0])
	if err != nil {
		return fmt.Errorf("final_state: %w", err)
	}
	for _, key := range want.Keys() {
		expected, _ := want.Get(key)
		actual, ok := rec.Get(key)
		if !ok {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("record %s has fields %v", ids[0], rec.Keys()),
			}
		}
		if !value.Equal(expected, actual) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %s", key, formatValue(expected)),
				Actual:   fmt.Sprintf("field %q = %s", key, formatValue(actual)),
			}
		}
	}
	return nil
}

// assertLocalIDs checks the local ids and their insertion order.
func assertLocalIDs(st *collection.Store, assertion Assertion) error {
	got := st.IDs()
	if !slices.Equal(got, assertion.IDs) {
		return &AssertionError{
			Type:     AssertLocalIDs,
			Expected: fmt.Sprintf("%v", assertion.IDs),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

// assertRemoteCount checks the number of records held by the backend.
func assertRemoteCount(actx *AssertionContext, assertion Assertion) error {
	n := actx.Backend.Len(actx.Entity)
	if n != assertion.Count {
		return &AssertionError{
			Type:     AssertRemoteCount,
			Expected: fmt.Sprintf("%d backend records", assertion.Count),
			Actual:   fmt.Sprintf("%d backend records", n),
		}
	}
	return nil
}

// subsetMatch reports whether every field of want is present in got with
// an equal value.
func subsetMatch(got, want value.Object) bool {
	for _, key := range want.Keys() {
		w, _ := want.Get(key)
		g, ok := got.Get(key)
		if !ok || !value.Equal(g, w) {
			return false
		}
	}
	return true
}
