package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Scenario defines a store scenario: initial data, a flow of operations
// with expected outcomes, and assertions on the final trace and state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Entity is the entity name of the store under test.
	Entity string `yaml:"entity"`

	// Manifest is an optional CUE manifest configuring the entity.
	// Relative paths are resolved against the scenario file's directory.
	Manifest string `yaml:"manifest,omitempty"`

	// Backend lists records seeded into the backend before the flow.
	Backend []map[string]any `yaml:"backend,omitempty"`

	// Local lists records merged into the local store before the flow.
	Local []map[string]any `yaml:"local,omitempty"`

	// Flow contains the operations to run, in order.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// FlowStep is one operation of the flow.
type FlowStep struct {
	// Invoke is the operation name (e.g. "fetchList", "upsertLocal").
	Invoke string `yaml:"invoke"`

	// Args contains the operation arguments.
	Args map[string]any `yaml:"args,omitempty"`

	// Expect specifies the expected completion.
	// If nil, no validation is performed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies expected completion behavior.
type ExpectClause struct {
	// Case is the expected case: Success, Failure or an error code.
	Case string `yaml:"case"`

	// Result, when set, must equal the step's result exactly.
	Result any `yaml:"result,omitempty"`
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Action is the operation name (trace_contains, trace_count).
	Action string `yaml:"action,omitempty"`

	// Args are the expected arguments (trace_contains, subset match).
	Args map[string]any `yaml:"args,omitempty"`

	// Where selects one local record (final_state).
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected field values (final_state, subset match).
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number (trace_count, remote_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected operation order (trace_order).
	Actions []string `yaml:"actions,omitempty"`

	// IDs is the expected local id list (local_ids).
	IDs []string `yaml:"ids,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertLocalIDs      = "local_ids"
	AssertRemoteCount   = "remote_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	s, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if s.Manifest != "" && !filepath.IsAbs(s.Manifest) {
		s.Manifest = filepath.Join(filepath.Dir(path), s.Manifest)
	}
	return s, nil
}

// ParseScenario parses scenario YAML. Relative manifest paths are left
// unresolved.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Entity == "" {
		return fmt.Errorf("entity is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}

	for i, step := range s.Flow {
		if step.Invoke == "" {
			return fmt.Errorf("flow[%d]: invoke is required", i)
		}
		if _, ok := operations[step.Invoke]; !ok {
			return fmt.Errorf("flow[%d]: unknown operation %q", i, step.Invoke)
		}
		if step.Expect != nil && step.Expect.Case == "" {
			return fmt.Errorf("flow[%d].expect: case is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertTraceContains:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Actions) == 0 {
			return fmt.Errorf("assertions[%d]: actions list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Action == "" {
			return fmt.Errorf("assertions[%d]: action is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if len(a.Where) == 0 {
			return fmt.Errorf("assertions[%d]: where is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertLocalIDs:
		if a.IDs == nil {
			return fmt.Errorf("assertions[%d]: ids is required for local_ids (use [] for none)", index)
		}
	case AssertRemoteCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for remote_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// FindScenarios returns the scenario files (*.yaml, *.yml) in dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("scenario directory: %w", err)
		}
	}
	slices.Sort(paths)
	return paths, nil
}
