package eval

import (
	"fmt"
	"strings"
	"sync"
)

// Failure is one recorded deferred failure.
type Failure struct {
	// Seq is the 1-based issue order within the batch.
	Seq int

	// Description is the rendered description of the failed check.
	Description string

	// Err is the classified error.
	Err error
}

// Batch is the Deferred policy: failures are recorded and Check returns nil.
//
// Thread-safety: safe for concurrent use.
type Batch struct {
	core

	mu       sync.Mutex
	seq      int
	failures []Failure
}

var _ Evaluator = (*Batch)(nil)

// NewBatch creates a Deferred evaluator.
func NewBatch(cfg Config) *Batch {
	return &Batch{core: newCore(cfg)}
}

// Check implements Evaluator.
func (b *Batch) Check(describe Description, check func() error) error {
	err := b.evaluate(describe, check)
	if err == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	b.failures = append(b.failures, Failure{Seq: b.seq, Description: describe.String(), Err: err})
	return nil
}

// Policy implements Evaluator.
func (b *Batch) Policy() Policy { return Deferred }

// Failures returns the recorded failures in issue order.
func (b *Batch) Failures() []Failure {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Failure, len(b.failures))
	copy(out, b.failures)
	return out
}

// Len returns the number of recorded failures.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.failures)
}

// Flush returns every recorded failure as one *BatchError and clears the
// batch. It returns nil when nothing failed.
func (b *Batch) Flush() error {
	b.mu.Lock()
	failures := b.failures
	b.failures = nil
	b.mu.Unlock()

	if len(failures) == 0 {
		return nil
	}
	return &BatchError{TestID: b.testID, Failures: failures}
}

// BatchError aggregates the deferred failures of one test.
type BatchError struct {
	TestID   string
	Failures []Failure
}

// Error lists every failure on its own line in issue order.
func (e *BatchError) Error() string {
	var sb strings.Builder
	noun := "checks"
	if len(e.Failures) == 1 {
		noun = "check"
	}
	fmt.Fprintf(&sb, "%d deferred %s failed", len(e.Failures), noun)
	if e.TestID != "" {
		fmt.Fprintf(&sb, " (test=%s)", e.TestID)
	}
	sb.WriteString(":")
	for _, f := range e.Failures {
		fmt.Fprintf(&sb, "\n  %d. %s", f.Seq, f.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
