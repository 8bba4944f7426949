package kvstore

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/clock"
	"github.com/roach88/mirror/internal/collection"
	"github.com/roach88/mirror/internal/value"
)

var _ collection.Strategy = (*Store)(nil)

func openInMemory(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func person(id, name string, age int64, tag string) value.Object {
	return value.NewObject(
		value.F("id", value.String(id)),
		value.F("name", value.String(name)),
		value.F("age", value.Int(age)),
		value.F("tag", value.String(tag)),
	)
}

func ids(recs []value.Object) []string {
	out := make([]string, len(recs))
	for i, rec := range recs {
		v, _ := rec.Get("id")
		out[i] = string(v.(value.String))
	}
	return out
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	// Creation order deliberately differs from key order.
	for _, rec := range []value.Object{
		person("3", "Cy", 41, "x"),
		person("1", "Ann", 30, "x"),
		person("2", "Bo", 25, "y"),
	} {
		_, err := s.Upsert(context.Background(), rec, "person")
		require.NoError(t, err)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path is required")
}

func TestUpsert_AssignsIdentifier(t *testing.T) {
	s := openInMemory(t, WithIDGenerator(clock.NewFixedGenerator("gen-1")))

	saved, err := s.Upsert(context.Background(), value.NewObject(value.F("name", value.String("Ann"))), "person")
	require.NoError(t, err)

	id, _ := saved.Get("id")
	assert.Equal(t, value.String("gen-1"), id)
}

func TestUpsert_OverlaysAndKeepsOrder(t *testing.T) {
	s := openInMemory(t)
	seed(t, s)
	ctx := context.Background()

	saved, err := s.Upsert(ctx, value.NewObject(value.F("id", value.String("3")), value.F("age", value.Int(42))), "person")
	require.NoError(t, err)
	assert.True(t, value.Equal(person("3", "Cy", 42, "x"), saved))

	list, err := s.FetchList(ctx, value.NewObject(), nil, "person")
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1", "2"}, ids(list))
}

func TestUpsert_CustomIDField(t *testing.T) {
	s := openInMemory(t, WithIDField("key"))

	_, err := s.Upsert(context.Background(), value.NewObject(value.F("key", value.Bool(true))), "person")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"key"`)
}

func TestFetch(t *testing.T) {
	s := openInMemory(t)
	seed(t, s)
	ctx := context.Background()

	got, err := s.Fetch(ctx, "1", []string{"id", "tag"}, "person")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "tag"}, got.Keys())

	_, err = s.Fetch(ctx, "9", nil, "person")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Fetch(ctx, "1", nil, "other")
	assert.ErrorIs(t, err, ErrNotFound, "entities are isolated")
}

func TestFetchList_Where(t *testing.T) {
	s := openInMemory(t)
	seed(t, s)

	list, err := s.FetchList(context.Background(), value.NewObject(value.F("tag", value.String("x"))), []string{"id"}, "person")
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1"}, ids(list))
	assert.Equal(t, []string{"id"}, list[0].Keys())
}

func TestEntityPrefixIsolation(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()
	_, err := s.Upsert(ctx, value.NewObject(value.F("id", value.String("1"))), "per")
	require.NoError(t, err)
	_, err = s.Upsert(ctx, value.NewObject(value.F("id", value.String("1"))), "person")
	require.NoError(t, err)

	n, err := s.Count("per")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "prefix of one entity must not cover another")
}

func TestInvalidEntity(t *testing.T) {
	s := openInMemory(t)

	_, err := s.Fetch(context.Background(), "1", nil, "bad\x00name")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid entity")
}

func TestDestroyMultiple_AllOrNothing(t *testing.T) {
	s := openInMemory(t)
	seed(t, s)
	ctx := context.Background()

	err := s.DestroyMultiple(ctx, []string{"1", "9"}, "person")
	require.ErrorIs(t, err, ErrNotFound)
	n, err := s.Count("person")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, s.DestroyMultiple(ctx, []string{"1", "2"}, "person"))
	require.NoError(t, s.Destroy(ctx, "3", "person"))
	assert.ErrorIs(t, s.Destroy(ctx, "3", "person"), ErrNotFound)

	n, err = s.Count("person")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestPersistence_ResumesSequence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1, err := Open(Config{Path: dir})
	require.NoError(t, err)
	_, err = s1.Upsert(ctx, person("b", "Bo", 25, "y"), "person")
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(Config{Path: dir})
	require.NoError(t, err)
	defer s2.Close()

	_, err = s2.Upsert(ctx, person("a", "Ann", 30, "x"), "person")
	require.NoError(t, err)

	list, err := s2.FetchList(ctx, value.NewObject(), nil, "person")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(list))
}

func TestStoredRowFormat(t *testing.T) {
	s := openInMemory(t)
	seed(t, s)

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey("person", "1"))
		require.NoError(t, err)
		return item.Value(func(val []byte) error {
			assert.JSONEq(t, `{"seq":2,"body":{"age":30,"id":"1","name":"Ann","tag":"x"}}`, string(val))
			return nil
		})
	})
	require.NoError(t, err)
}

func TestCanceledContext(t *testing.T) {
	s := openInMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Upsert(ctx, person("1", "Ann", 30, "x"), "person")
	assert.ErrorIs(t, err, context.Canceled)
}
