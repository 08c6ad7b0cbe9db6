package testutil

import "sync"

// Recorder counts listener invocations and keeps the states it observed.
type Recorder struct {
	mu     sync.Mutex
	calls  int
	states []any
	get    func() any
}

// NewRecorder creates a recorder. If getState is non-nil the recorder
// snapshots it on every call.
func NewRecorder(getState func() any) *Recorder {
	return &Recorder{get: getState}
}

// Listener is the func to pass to Subscribe.
func (r *Recorder) Listener() func() {
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.calls++
		if r.get != nil {
			r.states = append(r.states, r.get())
		}
	}
}

// Calls returns the number of invocations.
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// States returns the observed states in order.
func (r *Recorder) States() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, len(r.states))
	copy(out, r.states)
	return out
}
