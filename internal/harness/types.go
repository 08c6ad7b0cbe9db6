package harness

// TraceEvent records one scenario step.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload,omitempty"`
	State   any            `json:"state"`
	Error   string         `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final store state in canonical value form.
	State any `json:"state"`

	// Notifications counts listener calls over the whole scenario.
	Notifications int `json:"notifications"`

	// ActionCount is the number of records in the scenario's action log.
	ActionCount int `json:"action_count"`
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

// AddTrace appends a step event.
func (r *Result) AddTrace(event TraceEvent) {
	r.Trace = append(r.Trace, event)
}
