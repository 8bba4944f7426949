package harness

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mirror/internal/value"
)

// Regenerate with: go test ./internal/harness -run TestGolden -update
func TestGolden_Scenarios(t *testing.T) {
	paths, err := FindScenarios(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)

	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		t.Run(name, func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			require.Equal(t, name, scenario.Name, "scenario name must match its file name")

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, result.Errors)
		})
	}
}

func TestTraceSnapshot_MarshalCanonical(t *testing.T) {
	snap := TraceSnapshot{
		ScenarioName: "demo",
		Trace: []TraceEvent{
			{Seq: 1, Action: "empty", Case: CaseSuccess},
			{
				Seq:    2,
				Action: "get",
				Args:   value.MustObject(map[string]any{"id": "a", "field": "n"}),
				Case:   CaseSuccess,
				Result: value.Null{},
			},
		},
	}

	data, err := snap.MarshalCanonical()
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"demo","trace":[`+
			`{"action":"empty","case":"Success","seq":1},`+
			`{"action":"get","args":{"field":"n","id":"a"},"case":"Success","result":null,"seq":2}]}`,
		string(data))
}

func TestTraceSnapshot_Deterministic(t *testing.T) {
	path := filepath.Join("testdata", "scenarios", "backend_failure.yaml")

	var outputs []string
	for i := 0; i < 3; i++ {
		_, result, err := RunFile(path)
		require.NoError(t, err)
		snap := TraceSnapshot{ScenarioName: "backend_failure", Trace: result.Trace}
		data, err := snap.MarshalCanonical()
		require.NoError(t, err)
		outputs = append(outputs, string(data))
	}
	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[1], outputs[2])
}
