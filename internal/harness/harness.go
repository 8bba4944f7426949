package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/mirror/internal/collection"
	"github.com/roach88/mirror/internal/manifest"
	"github.com/roach88/mirror/internal/memstore"
	"github.com/roach88/mirror/internal/testutil"
	"github.com/roach88/mirror/internal/value"
)

// Harness is the scenario execution engine. It owns a fresh backend and
// store per run, with deterministic identifiers and trace sequence.
type Harness struct {
	entity  string
	backend *memstore.Server
	store   *collection.Store
	clock   *testutil.DeterministicClock
	logger  *slog.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithLogger sets the logger used by the harness and the store.
// Default discards all output.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Create a fresh backend and store configured from the manifest
// 2. Seed backend records and merge local records
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions
//
// The returned error reports problems with the scenario itself (bad
// manifest, unseedable records). Failed expectations are reported in
// Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		entity: scenario.Entity,
		clock:  testutil.NewDeterministicClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	cfg := manifest.Default(scenario.Entity)
	if scenario.Manifest != "" {
		m, err := manifest.Load(scenario.Manifest)
		if err != nil {
			return nil, err
		}
		if e, ok := m.Lookup(scenario.Entity); ok {
			cfg = e
		}
	}

	h.backend = memstore.New(
		memstore.WithIDField(cfg.IDField),
		memstore.WithIDGenerator(testutil.NewSequentialIDs("srv")),
	)
	storeOpts := append(cfg.StoreOptions(),
		collection.WithLogger(h.logger),
		collection.WithIDGenerator(testutil.NewSequentialIDs("loc")),
	)
	st, err := collection.New(scenario.Entity, h.backend, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	h.store = st

	backendRecs, err := toObjects(scenario.Backend)
	if err != nil {
		return nil, fmt.Errorf("backend records: %w", err)
	}
	if err := h.backend.Seed(scenario.Entity, backendRecs...); err != nil {
		return nil, fmt.Errorf("failed to seed backend: %w", err)
	}

	localRecs, err := toObjects(scenario.Local)
	if err != nil {
		return nil, fmt.Errorf("local records: %w", err)
	}
	if err := st.Merge(localRecs); err != nil {
		return nil, fmt.Errorf("failed to merge local records: %w", err)
	}

	ctx := context.Background()
	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{
		Store:   st,
		Backend: h.backend,
		Entity:  scenario.Entity,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// RunFile loads and runs the scenario at path.
func RunFile(path string, opts ...Option) (*Scenario, *Result, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, nil, err
	}
	result, err := Run(scenario, opts...)
	if err != nil {
		return scenario, nil, err
	}
	return scenario, result, nil
}

// executeFlow runs all flow steps and validates expect clauses.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		args, err := value.ObjectFrom(step.Args)
		if err != nil {
			return fmt.Errorf("flow step %d: failed to convert args: %w", i, err)
		}

		op := operations[step.Invoke]
		if op == nil {
			return fmt.Errorf("flow step %d: unknown operation %q", i, step.Invoke)
		}

		seq := h.clock.Next()
		out, err := op(ctx, h, args)
		event := TraceEvent{
			Seq:    seq,
			Action: step.Invoke,
			Args:   args,
			Case:   outcomeCase(out, err),
			Result: out.result,
		}
		result.AddTrace(event)

		h.logger.Info("flow step completed",
			"step", i,
			"action", step.Invoke,
			"case", event.Case,
		)

		if step.Expect != nil {
			h.checkExpect(i, step, event, err, result)
		}
	}
	return nil
}

// checkExpect compares a step's completion with its expect clause.
func (h *Harness) checkExpect(i int, step FlowStep, event TraceEvent, err error, result *Result) {
	if event.Case != step.Expect.Case {
		msg := fmt.Sprintf("flow[%d] %s: expected case %s, got %s", i, step.Invoke, step.Expect.Case, event.Case)
		if err != nil {
			msg += ": " + err.Error()
		}
		result.AddError(msg)
		return
	}
	if step.Expect.Result == nil {
		return
	}
	want, convErr := value.From(step.Expect.Result)
	if convErr != nil {
		result.AddError(fmt.Sprintf("flow[%d] %s: bad expected result: %v", i, step.Invoke, convErr))
		return
	}
	if event.Result == nil || !value.Equal(want, event.Result) {
		result.AddError(fmt.Sprintf("flow[%d] %s: expected result %s, got %s",
			i, step.Invoke, formatValue(want), formatValue(event.Result)))
	}
}

// outcomeCase maps a step outcome to its trace case.
func outcomeCase(out outcome, err error) string {
	if err != nil {
		var se *collection.Error
		if errors.As(err, &se) {
			return string(se.Code)
		}
		return CaseError
	}
	if out.failed {
		return CaseFailure
	}
	return CaseSuccess
}

func toObjects(maps []map[string]any) ([]value.Object, error) {
	out := make([]value.Object, len(maps))
	for i, m := range maps {
		obj, err := value.ObjectFrom(m)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = obj
	}
	return out, nil
}

func formatValue(v value.Value) string {
	if v == nil {
		return "<none>"
	}
	data, err := value.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
