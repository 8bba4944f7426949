package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/clock"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		require.NoError(t, s.Close())
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	var name string
	err = s.DB().QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", "records",
	).Scan(&name)
	require.NoError(t, err, "records table not found after idempotent opens")

	err = s.DB().QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name=?", "idx_records_entity_seq",
	).Scan(&name)
	require.NoError(t, err, "seq index not created by migration")
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("synchronous", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_ResumesSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	_, err = s1.Upsert(ctx, person("b", "Bo", 25, "y"), "person")
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path, WithIDGenerator(clock.NewFixedGenerator("a")))
	require.NoError(t, err)
	defer s2.Close()

	_, err = s2.Upsert(ctx, person("a", "Ann", 30, "x").Without("id"), "person")
	require.NoError(t, err)

	list, err := s2.FetchList(ctx, emptyWhere(), []string{"id"}, "person")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, []string{"b", "a"}, ids(list), "creation order survives reopen")
}

func TestClose_Nil(t *testing.T) {
	var s Store
	assert.NoError(t, s.Close())
}
