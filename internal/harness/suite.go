package harness

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/steady/internal/eval"
	"github.com/roach88/steady/internal/logsink"
)

// Case is one test of a suite.
type Case struct {
	Class  string
	Method string
	Policy eval.Policy

	// TestID pins the correlation ID. Empty means generate one.
	TestID string

	Run func(ctx context.Context, c *Context) error
}

// CaseResult is the outcome of one Case.
type CaseResult struct {
	TestID string
	Class  string
	Method string
	Status Status

	// Err is the abort error, the flushed deferred failures, or both.
	Err error
}

// Suite runs cases in parallel, each with its own Context.
type Suite struct {
	lifecycle *Lifecycle
	sink      logsink.Sink
	parallel  int
}

// NewSuite creates a suite that runs at most parallel cases at once.
// parallel <= 0 means one at a time.
func NewSuite(l *Lifecycle, sink logsink.Sink, parallel int) *Suite {
	if parallel <= 0 {
		parallel = 1
	}
	if sink == nil {
		sink = logsink.Discard{}
	}
	return &Suite{lifecycle: l, sink: sink, parallel: parallel}
}

// Run queues every case, runs them, and returns results in case order.
func (s *Suite) Run(ctx context.Context, cases []Case) []CaseResult {
	s.lifecycle.OnTestQueued(len(cases))
	results := make([]CaseResult, len(cases))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallel)
	for i, tc := range cases {
		g.Go(func() error {
			results[i] = s.runCase(gctx, tc)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Suite) runCase(ctx context.Context, tc Case) CaseResult {
	var testID string
	if tc.TestID != "" {
		testID = s.lifecycle.startAs(tc.TestID, tc.Class, tc.Method)
	} else {
		testID = s.lifecycle.OnTestStart(tc.Class, tc.Method)
	}

	c := NewContext(testID, s.sink, tc.Policy)
	err := runGuarded(ctx, tc, c)
	if batch, ok := c.Evaluator().(*eval.Batch); ok {
		err = errors.Join(err, batch.Flush())
	}

	status := StatusPass
	if err != nil {
		status = StatusFail
	}
	s.lifecycle.OnTestEnd(testID, status)

	return CaseResult{TestID: testID, Class: tc.Class, Method: tc.Method, Status: status, Err: err}
}

func runGuarded(ctx context.Context, tc Case, c *Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = c.NewError(fmt.Sprintf("%s.%s panicked: %v", tc.Class, tc.Method, r), nil)
			c.Evaluator().LogException(err)
		}
	}()
	if tc.Run == nil {
		return nil
	}
	return tc.Run(ctx, c)
}
