package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/clock"
	"github.com/roach88/mirror/internal/collection"
	"github.com/roach88/mirror/internal/value"
)

var _ collection.Strategy = (*Store)(nil)

func emptyWhere() value.Object { return value.NewObject() }

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
	ctx := context.Background()
	for _, rec := range []value.Object{
		person("1", "Ann", 30, "x"),
		person("2", "Bo", 25, "y"),
		person("3", "Cy", 41, "x"),
	} {
		_, err := s.Upsert(ctx, rec, "person")
		require.NoError(t, err)
	}
}

func TestUpsert_AssignsIdentifier(t *testing.T) {
	s := createTestStore(t, WithIDGenerator(clock.NewFixedGenerator("gen-1")))

	saved, err := s.Upsert(context.Background(), value.NewObject(value.F("name", value.String("Ann"))), "person")
	require.NoError(t, err)

	id, _ := saved.Get("id")
	assert.Equal(t, value.String("gen-1"), id)

	n, err := s.Count(context.Background(), "person")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUpsert_DefaultIdentifierIsUUID(t *testing.T) {
	s := createTestStore(t)

	saved, err := s.Upsert(context.Background(), value.NewObject(value.F("name", value.String("Ann"))), "person")
	require.NoError(t, err)

	id, _ := saved.Get("id")
	assert.True(t, clock.IsUUID(string(id.(value.String))))
}

func TestUpsert_CustomIDField(t *testing.T) {
	s := createTestStore(t, WithIDField("key"), WithIDGenerator(clock.NewFixedGenerator("k1")))

	saved, err := s.Upsert(context.Background(), value.NewObject(value.F("name", value.String("Ann"))), "person")
	require.NoError(t, err)
	assert.True(t, saved.Has("key"))
	assert.False(t, saved.Has("id"))
}

func TestUpsert_OverlaysExisting(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seed(t, s)

	saved, err := s.Upsert(ctx, value.NewObject(value.F("id", value.String("1")), value.F("age", value.Int(31))), "person")
	require.NoError(t, err)

	assert.True(t, value.Equal(person("1", "Ann", 31, "x"), saved))

	got, err := s.Fetch(ctx, "1", nil, "person")
	require.NoError(t, err)
	assert.True(t, value.Equal(saved, got))

	list, err := s.FetchList(ctx, emptyWhere(), nil, "person")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, ids(list), "update keeps creation position")
}

func TestUpsert_RejectsBadIdentifier(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Upsert(context.Background(), value.NewObject(value.F("id", value.Int(1))), "person")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-empty string")
}

func TestUpsert_StoresCanonicalBody(t *testing.T) {
	s := createTestStore(t)
	seed(t, s)

	var body, hash string
	err := s.DB().QueryRow("SELECT body, body_hash FROM records WHERE entity = ? AND id = ?", "person", "1").Scan(&body, &hash)
	require.NoError(t, err)

	assert.Equal(t, `{"age":30,"id":"1","name":"Ann","tag":"x"}`, body)
	want, err := value.RecordDigest(person("1", "Ann", 30, "x"))
	require.NoError(t, err)
	assert.Equal(t, want, hash)
}

func TestFetch_ProjectsFields(t *testing.T) {
	s := createTestStore(t)
	seed(t, s)

	got, err := s.Fetch(context.Background(), "2", []string{"id", "name"}, "person")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, got.Keys())
}

func TestFetch_Unknown(t *testing.T) {
	s := createTestStore(t)
	seed(t, s)

	_, err := s.Fetch(context.Background(), "9", nil, "person")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Fetch(context.Background(), "1", nil, "other")
	assert.ErrorIs(t, err, ErrNotFound, "entities are isolated")
}

func TestFetchList_Where(t *testing.T) {
	s := createTestStore(t)
	seed(t, s)
	ctx := context.Background()

	testCases := []struct {
		name  string
		where value.Object
		want  []string
	}{
		{"all", emptyWhere(), []string{"1", "2", "3"}},
		{"scalar", value.NewObject(value.F("tag", value.String("x"))), []string{"1", "3"}},
		{"two fields", value.NewObject(value.F("tag", value.String("x")), value.F("age", value.Int(41))), []string{"3"}},
		{"array membership", value.NewObject(value.F("name", value.Strings("Bo", "Cy"))), []string{"2", "3"}},
		{"float equals int", value.NewObject(value.F("age", value.Float(25))), []string{"2"}},
		{"absent field", value.NewObject(value.F("nick", value.Null{})), []string{}},
		{"no match", value.NewObject(value.F("tag", value.String("z"))), []string{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			list, err := s.FetchList(ctx, tc.where, nil, "person")
			require.NoError(t, err)
			assert.Equal(t, tc.want, ids(list))
		})
	}
}

func TestFetchList_RechecksLooseMatches(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	_, err := s.Upsert(ctx, value.NewObject(value.F("id", value.String("b")), value.F("flag", value.Bool(true))), "thing")
	require.NoError(t, err)
	_, err = s.Upsert(ctx, value.NewObject(value.F("id", value.String("n")), value.F("flag", value.Int(1))), "thing")
	require.NoError(t, err)

	// SQLite reads JSON true as 1; only the boolean record matches.
	list, err := s.FetchList(ctx, value.NewObject(value.F("flag", value.Bool(true))), nil, "thing")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(list))
}

func TestFetchList_ArrayValues(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	tags := value.Strings("x", "y")
	_, err := s.Upsert(ctx, value.NewObject(value.F("id", value.String("1")), value.F("tags", tags)), "thing")
	require.NoError(t, err)
	_, err = s.Upsert(ctx, value.NewObject(value.F("id", value.String("2")), value.F("tags", value.String("x"))), "thing")
	require.NoError(t, err)

	list, err := s.FetchList(ctx, value.NewObject(value.F("tags", tags)), nil, "thing")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(list), "whole-array equality and membership both match")
}

func TestFetchList_RejectsQuotedField(t *testing.T) {
	s := createTestStore(t)

	_, err := s.FetchList(context.Background(), value.NewObject(value.F(`a"b`, value.Int(1))), nil, "person")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "double quotes")
}

func TestDestroy(t *testing.T) {
	s := createTestStore(t)
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.Destroy(ctx, "2", "person"))
	assert.ErrorIs(t, s.Destroy(ctx, "2", "person"), ErrNotFound)

	n, err := s.Count(ctx, "person")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestDestroyMultiple_AllOrNothing(t *testing.T) {
	s := createTestStore(t)
	seed(t, s)
	ctx := context.Background()

	err := s.DestroyMultiple(ctx, []string{"1", "9"}, "person")
	require.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "9")

	n, err := s.Count(ctx, "person")
	require.NoError(t, err)
	assert.Equal(t, 3, n, "failed batch removes nothing")

	require.NoError(t, s.DestroyMultiple(ctx, []string{"1", "3", "1"}, "person"))
	n, err = s.Count(ctx, "person")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.NoError(t, s.DestroyMultiple(ctx, nil, "person"))
}

func TestCanceledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Fetch(ctx, "1", nil, "person")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCollectionOverSQLite(t *testing.T) {
	s := createTestStore(t, WithIDGenerator(clock.NewFixedGenerator("srv-1")))
	seed(t, s)
	ctx := context.Background()

	c, err := collection.New("person", s)
	require.NoError(t, err)

	list, err := c.FetchList(ctx, collection.ListQuery{Where: value.NewObject(value.F("tag", value.String("x")))})
	require.NoError(t, err)
	require.True(t, list.Success)
	assert.Equal(t, []string{"1", "3"}, c.IDs())

	res, err := c.Upsert(ctx, value.NewObject(value.F("name", value.String("Di"))))
	require.NoError(t, err)
	id, _ := res.Data.Get("id")
	assert.Equal(t, value.String("srv-1"), id)
	assert.True(t, c.IsPresent("srv-1"))

	_, err = c.Destroy(ctx, "1")
	require.NoError(t, err)
	assert.False(t, c.IsPresent("1"))

	_, err = s.Fetch(ctx, "1", nil, "person")
	assert.ErrorIs(t, err, ErrNotFound)
}
