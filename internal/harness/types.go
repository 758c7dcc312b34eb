package harness

import (
	"github.com/roach88/steady/internal/eval"
	"github.com/roach88/steady/internal/event"
)

// TraceEvent is one event of a scenario trace.
type TraceEvent struct {
	Seq      int64        `json:"seq"`
	Category string       `json:"category"`
	Status   string       `json:"status"`
	Fields   event.Fields `json:"fields,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Trace contains every event the scenario emitted, in seq order.
	// Used for golden comparison.
	Trace []TraceEvent `json:"trace"`

	// Errors contains one message per failure. Deferred failures are
	// listed individually in issue order.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Failures counts test failures in Errors; the rest are failed
	// trace assertions.
	Failures int `json:"failures,omitempty"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
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

// AddFailure records err, expanding an aggregate of deferred failures
// into one entry per failure.
func (r *Result) AddFailure(err error) {
	switch e := err.(type) {
	case nil:
	case *eval.BatchError:
		for _, f := range e.Failures {
			r.AddError(f.Err.Error())
			r.Failures++
		}
	case interface{ Unwrap() []error }:
		for _, inner := range e.Unwrap() {
			r.AddFailure(inner)
		}
	default:
		r.AddError(err.Error())
		r.Failures++
	}
}

// AddTrace appends events to the trace.
func (r *Result) AddTrace(events ...event.Event) {
	for _, ev := range events {
		r.Trace = append(r.Trace, TraceEvent{
			Seq:      ev.Seq,
			Category: ev.Category,
			Status:   ev.Status,
			Fields:   ev.Fields,
		})
	}
}
