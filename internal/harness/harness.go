package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/steady/internal/counters"
	"github.com/roach88/steady/internal/logsink"
	"github.com/roach88/steady/internal/testutil"
)

// RunOptions configures RunScenarios.
type RunOptions struct {
	// Sink receives every event in addition to the trace recorder.
	Sink logsink.Sink

	// Parallel bounds how many scenarios run at once.
	Parallel int

	// Counters is shared with the caller, e.g. for metrics. Nil creates
	// fresh counters.
	Counters *counters.Counters

	// Now stamps lifecycle events. Nil uses time.Now.
	Now func() time.Time
}

// Run executes one scenario with a virtual clock, so the trace is
// byte-identical across runs and suitable for golden comparison.
func Run(scenario *Scenario) (*Result, error) {
	clock := testutil.NewManualClock()
	results, err := RunScenarios(context.Background(), []*Scenario{scenario}, RunOptions{
		Parallel: 1,
		Now:      clock.Now,
	})
	if err != nil {
		return nil, err
	}
	return results[0], nil
}

// RunScenarios runs scenarios as one suite and returns their results in
// input order. Each result's trace holds only that scenario's events,
// renumbered from 1 so traces compare equal regardless of interleaving.
func RunScenarios(ctx context.Context, scenarios []*Scenario, opts RunOptions) ([]*Result, error) {
	cases := make([]Case, len(scenarios))
	ids := make(map[string]string, len(scenarios))
	for i, s := range scenarios {
		tc, err := s.Case()
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
		}
		if other, dup := ids[tc.TestID]; dup {
			return nil, fmt.Errorf("scenarios %s and %s share test_id %q", other, s.Name, tc.TestID)
		}
		ids[tc.TestID] = s.Name
		cases[i] = tc
	}

	rec := logsink.NewRecorder()
	var sink logsink.Sink = rec
	if opts.Sink != nil {
		sink = logsink.Tee{rec, opts.Sink}
	}
	ctrs := opts.Counters
	if ctrs == nil {
		ctrs = counters.New()
	}
	var lcOpts []LifecycleOption
	if opts.Now != nil {
		lcOpts = append(lcOpts, WithNow(opts.Now))
	}

	lifecycle := NewLifecycle(ctrs, sink, lcOpts...)
	caseResults := NewSuite(lifecycle, sink, opts.Parallel).Run(ctx, cases)

	results := make([]*Result, len(caseResults))
	for i, cr := range caseResults {
		result := NewResult()
		for n, ev := range rec.ForTest(cr.TestID) {
			ev.Seq = int64(n + 1)
			result.AddTrace(ev)
		}
		result.AddFailure(cr.Err)
		if cr.Status == StatusFail && result.Pass {
			result.AddError("test failed")
			result.Failures++
		}
		for _, msg := range EvaluateAssertions(result, scenarios[i].Assertions) {
			result.AddError(msg)
		}
		results[i] = result
	}
	return results, nil
}
