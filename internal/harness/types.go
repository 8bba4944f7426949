package harness

import "github.com/roach88/mirror/internal/value"

// Completion cases that are not error codes.
const (
	CaseSuccess = "Success"
	CaseFailure = "Failure"
	CaseError   = "ERROR"
)

// TraceEvent records one executed flow step.
type TraceEvent struct {
	Seq    int64        `json:"seq"`
	Action string       `json:"action"`
	Args   value.Object `json:"args,omitzero"`
	Case   string       `json:"case"`
	Result value.Value  `json:"result,omitempty"`
}

// toValue converts the event to its canonical trace form.
func (e TraceEvent) toValue() value.Object {
	obj := value.NewObject(
		value.F("seq", value.Int(e.Seq)),
		value.F("action", value.String(e.Action)),
		value.F("case", value.String(e.Case)),
	)
	if e.Args.Len() > 0 {
		obj = obj.Set("args", e.Args)
	}
	if e.Result != nil {
		obj = obj.Set("result", e.Result)
	}
	return obj
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains every flow step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
