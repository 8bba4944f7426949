package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/mirror/internal/value"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// person builds a person record.
func person(id, name string, age int64, tag string) value.Object {
	return value.NewObject(
		value.F("id", value.String(id)),
		value.F("name", value.String(name)),
		value.F("age", value.Int(age)),
		value.F("tag", value.String(tag)),
	)
}
