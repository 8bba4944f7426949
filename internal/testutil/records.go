package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/value"
)

// Record decodes a JSON object literal, failing the test on error.
func Record(t testing.TB, js string) value.Object {
	t.Helper()
	obj, err := value.UnmarshalObject([]byte(js))
	require.NoError(t, err, "invalid record literal: %s", js)
	return obj
}

// Records decodes several JSON object literals.
func Records(t testing.TB, js ...string) []value.Object {
	t.Helper()
	out := make([]value.Object, len(js))
	for i, s := range js {
		out[i] = Record(t, s)
	}
	return out
}

// ErrBackendDown is returned by every FailingStrategy call.
var ErrBackendDown = errors.New("backend unavailable")

// FailingStrategy is a CRUD strategy whose every operation fails.
type FailingStrategy struct {
	Err error
}

func (f FailingStrategy) err() error {
	if f.Err != nil {
		return f.Err
	}
	return ErrBackendDown
}

// Fetch always fails.
func (f FailingStrategy) Fetch(context.Context, string, []string, string) (value.Object, error) {
	return value.Object{}, f.err()
}

// FetchList always fails.
func (f FailingStrategy) FetchList(context.Context, value.Object, []string, string) ([]value.Object, error) {
	return nil, f.err()
}

// Upsert always fails.
func (f FailingStrategy) Upsert(context.Context, value.Object, string) (value.Object, error) {
	return value.Object{}, f.err()
}

// Destroy always fails.
func (f FailingStrategy) Destroy(context.Context, string, string) error {
	return f.err()
}

// DestroyMultiple always fails.
func (f FailingStrategy) DestroyMultiple(context.Context, []string, string) error {
	return f.err()
}
