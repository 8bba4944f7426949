package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutAndGet_SQLite(t *testing.T) {
	db := sqliteDB(t)

	out, _, err := execute(t, "--db", db, "put", "person", `{"id":"a","name":"Ann","age":30}`)
	require.NoError(t, err)
	assert.Equal(t, `{"age":30,"id":"a","name":"Ann"}`+"\n", out)

	out, _, err = execute(t, "--db", db, "get", "person", "a")
	require.NoError(t, err)
	assert.Equal(t, `{"age":30,"id":"a","name":"Ann"}`+"\n", out)

	out, _, err = execute(t, "--db", db, "get", "person", "a", "--fields", "name")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"a","name":"Ann"}`+"\n", out)
}

func TestPut_UpdateKeepsFields(t *testing.T) {
	db := sqliteDB(t)

	_, _, err := execute(t, "--db", db, "put", "person", `{"id":"a","name":"Ann","age":30}`)
	require.NoError(t, err)

	out, _, err := execute(t, "--db", db, "put", "person", `{"id":"a","age":31}`)
	require.NoError(t, err)
	assert.Equal(t, `{"age":31,"id":"a","name":"Ann"}`+"\n", out)
}

func TestPut_GeneratesID(t *testing.T) {
	db := sqliteDB(t)

	out, _, err := execute(t, "--db", db, "--format", "json", "put", "person", `{"name":"Ann"}`)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   []map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Ann", resp.Data[0]["name"])
	assert.NotEmpty(t, resp.Data[0]["id"])
}

func TestPut_InvalidJSON(t *testing.T) {
	out, _, err := execute(t, "--db", sqliteDB(t), "put", "person", `{"name":`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]: invalid record JSON")
}

func TestPut_NotAnObject(t *testing.T) {
	_, _, err := execute(t, "--db", sqliteDB(t), "put", "person", `[1,2]`)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGet_Missing(t *testing.T) {
	out, _, err := execute(t, "--db", sqliteDB(t), "get", "person", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [BACKEND_FAILURE]: fetch failed")
}

func TestGet_MissingSwallowed(t *testing.T) {
	dir := t.TempDir()
	m := writeFile(t, dir, "entities.cue", `entity: person: throw_on_crud_failure: false`)

	out, _, err := execute(t, "--db", filepath.Join(dir, "db"), "--manifest", m, "get", "person", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [BACKEND_FAILURE]: fetch failed")
}

func TestDelete(t *testing.T) {
	db := sqliteDB(t)
	for _, rec := range []string{`{"id":"a"}`, `{"id":"b"}`, `{"id":"c"}`} {
		_, _, err := execute(t, "--db", db, "put", "person", rec)
		require.NoError(t, err)
	}

	out, _, err := execute(t, "--db", db, "delete", "person", "a")
	require.NoError(t, err)
	assert.Equal(t, "deleted 1 person record(s)\n", out)

	// One unknown id: nothing is deleted.
	out, _, err = execute(t, "--db", db, "delete", "person", "b", "zzz")
	require.Error(t, err)
	assert.Contains(t, out, "Error [BACKEND_FAILURE]: destroyMultiple failed")

	out, _, err = execute(t, "--db", db, "--format", "json", "delete", "person", "b", "c")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":{"entity":"person","deleted":["b","c"]}}`, out)

	_, _, err = execute(t, "--db", db, "get", "person", "b")
	require.Error(t, err)
}

func TestDelete_RequiresID(t *testing.T) {
	_, _, err := execute(t, "--db", sqliteDB(t), "delete", "person")
	require.Error(t, err)
}

func TestBadgerBackend(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "kv")

	_, _, err := execute(t, "--backend", "badger", "--db", dir, "put", "person", `{"id":"a","name":"Ann"}`)
	require.NoError(t, err)

	out, _, err := execute(t, "--backend", "badger", "--db", dir, "get", "person", "a")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"a","name":"Ann"}`+"\n", out)
}

func TestMemoryBackendStartsEmpty(t *testing.T) {
	_, _, err := execute(t, "--backend", "memory", "put", "person", `{"id":"a"}`)
	require.NoError(t, err)

	_, _, err = execute(t, "--backend", "memory", "get", "person", "a")
	require.Error(t, err)
}

func TestManifestIDField(t *testing.T) {
	dir := t.TempDir()
	m := writeFile(t, dir, "entities.cue", `entity: invoice: id_field: "number"`)
	db := filepath.Join(dir, "db")

	out, _, err := execute(t, "--db", db, "--manifest", m, "put", "invoice", `{"number":"n-1","total":3}`)
	require.NoError(t, err)
	assert.Equal(t, `{"number":"n-1","total":3}`+"\n", out)

	out, _, err = execute(t, "--db", db, "--manifest", m, "get", "invoice", "n-1")
	require.NoError(t, err)
	assert.Equal(t, `{"number":"n-1","total":3}`+"\n", out)
}

func TestBadManifest(t *testing.T) {
	dir := t.TempDir()
	m := writeFile(t, dir, "entities.cue", `entity: person: id_field: 7`)

	out, _, err := execute(t, "--db", filepath.Join(dir, "db"), "--manifest", m, "get", "person", "a")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestVerboseLogsCrudMetrics(t *testing.T) {
	db := sqliteDB(t)
	_, stderr, err := execute(t, "--db", db, "--verbose", "put", "person", `{"id":"a"}`)
	require.NoError(t, err)
	assert.Contains(t, stderr, "session opened")
	assert.Contains(t, stderr, "crud requests")
	assert.Contains(t, stderr, "op=upsert")
	assert.Contains(t, stderr, "outcome=ok")
}
