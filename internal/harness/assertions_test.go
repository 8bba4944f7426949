package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/collection"
	"github.com/roach88/mirror/internal/memstore"
	"github.com/roach88/mirror/internal/value"
)

func sampleTrace() []TraceEvent {
	return []TraceEvent{
		{Seq: 1, Action: "fetchList", Case: CaseSuccess},
		{Seq: 2, Action: "upsert", Args: value.MustObject(map[string]any{"record": map[string]any{"name": "Ann", "age": 30}}), Case: CaseSuccess},
		{Seq: 3, Action: "destroy", Args: value.MustObject(map[string]any{"id": "a"}), Case: "BACKEND_FAILURE"},
		{Seq: 4, Action: "destroy", Args: value.MustObject(map[string]any{"id": "a"}), Case: CaseSuccess},
	}
}

func TestAssertTraceContains_Found(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{
		Type:   AssertTraceContains,
		Action: "upsert",
		Args:   map[string]any{"record": map[string]any{"age": 30, "name": "Ann"}},
	})
	assert.NoError(t, err)
}

func TestAssertTraceContains_NoArgsMatchesAction(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{Type: AssertTraceContains, Action: "fetchList"})
	assert.NoError(t, err)
}

func TestAssertTraceContains_NotFound(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{Type: AssertTraceContains, Action: "fetch"})
	require.Error(t, err)

	var assertErr *AssertionError
	require.ErrorAs(t, err, &assertErr)
	assert.Equal(t, AssertTraceContains, assertErr.Type)
	assert.Contains(t, assertErr.Expected, "fetch")
	assert.Equal(t, "not found in trace", assertErr.Actual)
	assert.Len(t, assertErr.Trace, 4)
}

func TestAssertTraceContains_WrongArgs(t *testing.T) {
	err := assertTraceContains(sampleTrace(), Assertion{
		Type:   AssertTraceContains,
		Action: "destroy",
		Args:   map[string]any{"id": "b"},
	})
	require.Error(t, err)
}

func TestAssertTraceContains_PartialNestedArgsDoNotMatch(t *testing.T) {
	// Subset matching is top-level only; nested objects compare whole.
	err := assertTraceContains(sampleTrace(), Assertion{
		Type:   AssertTraceContains,
		Action: "upsert",
		Args:   map[string]any{"record": map[string]any{"name": "Ann"}},
	})
	require.Error(t, err)
}

func TestAssertTraceOrder(t *testing.T) {
	tests := []struct {
		name    string
		actions []string
		wantErr bool
	}{
		{"consecutive", []string{"fetchList", "upsert"}, false},
		{"gaps allowed", []string{"fetchList", "destroy"}, false},
		{"repeat", []string{"destroy", "destroy"}, false},
		{"wrong order", []string{"destroy", "upsert"}, true},
		{"too many repeats", []string{"destroy", "destroy", "destroy"}, true},
		{"absent", []string{"fetch"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertTraceOrder(sampleTrace(), Assertion{Type: AssertTraceOrder, Actions: tt.actions})
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "Assertion failed: trace_order")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestAssertTraceCount(t *testing.T) {
	assert.NoError(t, assertTraceCount(sampleTrace(), Assertion{Action: "destroy", Count: 2}))
	assert.NoError(t, assertTraceCount(sampleTrace(), Assertion{Action: "fetch", Count: 0}))

	err := assertTraceCount(sampleTrace(), Assertion{Action: "upsert", Count: 2})
	require.Error(t, err)
	var assertErr *AssertionError
	require.ErrorAs(t, err, &assertErr)
	assert.Equal(t, "2 occurrences of upsert", assertErr.Expected)
	assert.Equal(t, "1 occurrences", assertErr.Actual)
}

func newAssertionStore(t *testing.T, recs ...map[string]any) *collection.Store {
	t.Helper()
	st, err := collection.New("person", memstore.New())
	require.NoError(t, err)
	objs, err := toObjects(recs)
	require.NoError(t, err)
	require.NoError(t, st.Merge(objs))
	return st
}

func TestAssertFinalState(t *testing.T) {
	st := newAssertionStore(t,
		map[string]any{"id": "a", "name": "Ann", "age": 30},
		map[string]any{"id": "b", "name": "Bob", "age": 30},
		map[string]any{"id": "c", "name": "Cid"},
	)

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name:      "match",
			assertion: Assertion{Where: map[string]any{"name": "Ann"}, Expect: map[string]any{"age": 30}},
		},
		{
			name:      "int equals float",
			assertion: Assertion{Where: map[string]any{"id": "a"}, Expect: map[string]any{"age": 30.0}},
		},
		{
			name:      "not found",
			assertion: Assertion{Where: map[string]any{"name": "Dee"}, Expect: map[string]any{"age": 1}},
			wantErr:   "record not found",
		},
		{
			name:      "ambiguous",
			assertion: Assertion{Where: map[string]any{"age": 30}, Expect: map[string]any{"name": "Ann"}},
			wantErr:   "2 records matched",
		},
		{
			name:      "missing field",
			assertion: Assertion{Where: map[string]any{"id": "c"}, Expect: map[string]any{"age": 1}},
			wantErr:   `field "age" to exist`,
		},
		{
			name:      "wrong value",
			assertion: Assertion{Where: map[string]any{"id": "a"}, Expect: map[string]any{"name": "Bob"}},
			wantErr:   `field "name" = "Ann"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assertion.Type = AssertFinalState
			err := assertFinalState(st, tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertLocalIDs(t *testing.T) {
	st := newAssertionStore(t, map[string]any{"id": "b"}, map[string]any{"id": "a"})

	assert.NoError(t, assertLocalIDs(st, Assertion{IDs: []string{"b", "a"}}))

	err := assertLocalIDs(st, Assertion{IDs: []string{"a", "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Actual: [b a]")
}

func TestAssertRemoteCount(t *testing.T) {
	backend := memstore.New()
	require.NoError(t, backend.Seed("person", value.MustObject(map[string]any{"id": "a"})))
	_, err := backend.Upsert(context.Background(), value.MustObject(map[string]any{"id": "b"}), "person")
	require.NoError(t, err)

	actx := &AssertionContext{Backend: backend, Entity: "person"}
	assert.NoError(t, assertRemoteCount(actx, Assertion{Count: 2}))
	assert.Error(t, assertRemoteCount(actx, Assertion{Count: 1}))
	assert.NoError(t, assertRemoteCount(&AssertionContext{Backend: backend, Entity: "invoice"}, Assertion{Count: 0}))
}

func TestEvaluateAssertions_CollectsFailures(t *testing.T) {
	st := newAssertionStore(t, map[string]any{"id": "a"})
	actx := &AssertionContext{Store: st, Backend: memstore.New(), Entity: "person"}
	result := &Result{Trace: sampleTrace()}

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertTraceCount, Action: "destroy", Count: 2},
		{Type: AssertLocalIDs, IDs: []string{"x"}},
		{Type: AssertRemoteCount, Count: 3},
		{Type: "vibes"},
	}, actx)

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "local_ids")
	assert.Contains(t, errs[1], "remote_count")
	assert.Contains(t, errs[2], `unknown assertion type "vibes"`)
}

func TestAssertionError_Format(t *testing.T) {
	err := &AssertionError{
		Type:     AssertTraceCount,
		Expected: "1 occurrences of fetch",
		Actual:   "0 occurrences",
		Trace:    sampleTrace()[:1],
	}
	assert.Equal(t,
		"Assertion failed: trace_count\n"+
			"  Expected: 1 occurrences of fetch\n"+
			"  Actual: 0 occurrences\n"+
			"\nFull trace:\n"+
			"  [1] fetchList {} -> Success\n",
		err.Error())
}
