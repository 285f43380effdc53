package harness

// Trace event types.
const (
	EventRun    = "run"
	EventRemove = "remove"
	EventWrite  = "write"
	EventPatch  = "patch"
)

// Run outcomes besides the run error codes.
const (
	OutcomeOK       = "ok"
	OutcomeSettings = "SETTINGS"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq  int    `json:"seq"`
	Type string `json:"type"`

	// Path is the file touched by remove and write steps, relative to the
	// output directory.
	Path string `json:"path,omitempty"`

	// Keys are the top-level settings keys changed by a patch step.
	Keys []string `json:"keys,omitempty"`

	// Outcome is OutcomeOK or the error code of a run step.
	Outcome string `json:"outcome,omitempty"`

	// StartIndex is the first condition a successful run worked on; -1
	// otherwise.
	StartIndex int `json:"start_index"`

	// Condition is the condition index carried by a run error; -1 when
	// there is none.
	Condition int `json:"condition"`

	// Steps is the number of Monte Carlo steps the run performed.
	Steps int `json:"steps"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every run matched its expected outcome and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per executed step, in order.
	Trace []TraceEvent `json:"trace"`

	// Tree lists the files left in the output directory, sorted.
	Tree []string `json:"tree"`

	// ResultsHeader is the column row of results.csv, if it exists.
	ResultsHeader []string `json:"results_header,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Tree:   []string{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddEvent appends e to the trace, numbering it.
func (r *Result) AddEvent(e TraceEvent) {
	e.Seq = len(r.Trace) + 1
	r.Trace = append(r.Trace, e)
}

// Runs returns the run events of the trace.
func (r *Result) Runs() []TraceEvent {
	var out []TraceEvent
	for _, e := range r.Trace {
		if e.Type == EventRun {
			out = append(out, e)
		}
	}
	return out
}
