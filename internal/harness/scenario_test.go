package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "test.yaml", `
name: test_scenario
description: "Test scenario for validation"
entity: person
manifest: entities.cue
backend:
  - { id: "a", name: "Ann" }
flow:
  - invoke: fetch
    args:
      id: "a"
    expect:
      case: Success
assertions:
  - type: trace_contains
    action: fetch
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, "person", scenario.Entity)
	assert.Equal(t, filepath.Join(dir, "entities.cue"), scenario.Manifest)
	assert.Len(t, scenario.Backend, 1)
	require.Len(t, scenario.Flow, 1)
	assert.Equal(t, "fetch", scenario.Flow[0].Invoke)
	assert.Equal(t, "a", scenario.Flow[0].Args["id"])
	require.NotNil(t, scenario.Flow[0].Expect)
	assert.Equal(t, CaseSuccess, scenario.Flow[0].Expect.Case)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_AbsoluteManifestKept(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "m.cue")
	path := writeScenario(t, dir, "abs.yaml", `
name: abs
description: absolute manifest
entity: person
manifest: `+abs+`
flow:
  - invoke: empty
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, abs, scenario.Manifest)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: misspelled assertions key
entity: person
flow:
  - invoke: empty
assertion:
  - type: local_ids
    ids: []
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nentity: e\nflow: [{invoke: empty}]",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nentity: e\nflow: [{invoke: empty}]",
			wantErr: "description is required",
		},
		{
			name:    "missing entity",
			content: "name: n\ndescription: d\nflow: [{invoke: empty}]",
			wantErr: "entity is required",
		},
		{
			name:    "empty flow",
			content: "name: n\ndescription: d\nentity: e\nflow: []",
			wantErr: "flow list is required",
		},
		{
			name:    "unknown operation",
			content: "name: n\ndescription: d\nentity: e\nflow: [{invoke: teleport}]",
			wantErr: `unknown operation "teleport"`,
		},
		{
			name:    "expect without case",
			content: "name: n\ndescription: d\nentity: e\nflow: [{invoke: empty, expect: {result: 1}}]",
			wantErr: "flow[0].expect: case is required",
		},
		{
			name:    "assertion without type",
			content: "name: n\ndescription: d\nentity: e\nflow: [{invoke: empty}]\nassertions: [{action: empty}]",
			wantErr: "assertions[0]: type is required",
		},
		{
			name:    "unknown assertion type",
			content: "name: n\ndescription: d\nentity: e\nflow: [{invoke: empty}]\nassertions: [{type: vibes}]",
			wantErr: `unknown assertion type "vibes"`,
		},
		{
			name:    "trace_order without actions",
			content: "name: n\ndescription: d\nentity: e\nflow: [{invoke: empty}]\nassertions: [{type: trace_order}]",
			wantErr: "actions list is required",
		},
		{
			name:    "final_state without expect",
			content: "name: n\ndescription: d\nentity: e\nflow: [{invoke: empty}]\nassertions: [{type: final_state, where: {id: a}}]",
			wantErr: "expect is required for final_state",
		},
		{
			name:    "local_ids without ids",
			content: "name: n\ndescription: d\nentity: e\nflow: [{invoke: empty}]\nassertions: [{type: local_ids}]",
			wantErr: "ids is required for local_ids",
		},
		{
			name:    "negative remote count",
			content: "name: n\ndescription: d\nentity: e\nflow: [{invoke: empty}]\nassertions: [{type: remote_count, count: -1}]",
			wantErr: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseScenario_EmptyLocalIDsAllowed(t *testing.T) {
	s, err := ParseScenario([]byte("name: n\ndescription: d\nentity: e\nflow: [{invoke: empty}]\nassertions: [{type: local_ids, ids: []}]"))
	require.NoError(t, err)
	require.Len(t, s.Assertions, 1)
	assert.NotNil(t, s.Assertions[0].IDs)
	assert.Empty(t, s.Assertions[0].IDs)
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "c.yaml", "notes.txt"} {
		writeScenario(t, dir, name, "")
	}

	paths, err := FindScenarios(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.yml"),
		filepath.Join(dir, "b.yaml"),
		filepath.Join(dir, "c.yaml"),
	}, paths)
}

func TestFindScenarios_MissingDir(t *testing.T) {
	_, err := FindScenarios(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
