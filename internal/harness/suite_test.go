package harness

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/roach88/steady/internal/counters"
	"github.com/roach88/steady/internal/eval"
	"github.com/roach88/steady/internal/event"
	"github.com/roach88/steady/internal/logsink"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSuite_RunsCasesInParallelWithinLimit(t *testing.T) {
	var running, peak atomic.Int32
	work := func(context.Context, *Context) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		running.Add(-1)
		return nil
	}

	cases := make([]Case, 8)
	for i := range cases {
		cases[i] = Case{Class: "Parallel", Method: fmt.Sprintf("case%d", i), Run: work}
	}

	ctrs := counters.New()
	results := NewSuite(NewLifecycle(ctrs, nil), nil, 3).Run(context.Background(), cases)

	require.Len(t, results, 8)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("case%d", i), r.Method)
		assert.Equal(t, StatusPass, r.Status)
		assert.NotEmpty(t, r.TestID)
	}
	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Equal(t, int64(8), ctrs.Snapshot().Passed)
}

func TestSuite_BatchFlushFailsTheTest(t *testing.T) {
	rec := logsink.NewRecorder()
	suite := NewSuite(NewLifecycle(counters.New(), rec), rec, 2)

	results := suite.Run(context.Background(), []Case{{
		Class:  "Count",
		Method: "deferred",
		Policy: eval.Deferred,
		TestID: "count-1",
		Run: func(_ context.Context, c *Context) error {
			if err := c.Store("count", 1); err != nil {
				return err
			}
			if err := c.Check("count is 1", func() error { return nil }); err != nil {
				return err
			}
			return c.Check("count is 2", func() error {
				n, err := c.LoadInt("count")
				if err != nil {
					return err
				}
				if n != 2 {
					return fmt.Errorf("expected 2, got %d", n)
				}
				return nil
			})
		},
	}})

	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "count-1", r.TestID)
	assert.Equal(t, StatusFail, r.Status)

	var batch *eval.BatchError
	require.ErrorAs(t, r.Err, &batch)
	require.Len(t, batch.Failures, 1)
	assert.Contains(t, batch.Failures[0].Err.Error(), "expected 2, got 1")

	assert.Len(t, rec.Filter(event.CategoryCheck, event.StatusPass), 2, "the passing check and the nested load")
	assert.Len(t, rec.Filter(event.CategoryCheck, event.StatusFail), 1)
	assert.Len(t, rec.Filter(event.CategoryLifecycle, event.StatusFail), 1)
}

func TestSuite_PanicsFailTheCase(t *testing.T) {
	suite := NewSuite(NewLifecycle(counters.New(), nil), nil, 1)
	results := suite.Run(context.Background(), []Case{
		{Class: "P", Method: "boom", Run: func(context.Context, *Context) error { panic("bad state") }},
		{Class: "P", Method: "fine", Run: func(context.Context, *Context) error { return nil }},
	})

	assert.Equal(t, StatusFail, results[0].Status)
	assert.Contains(t, results[0].Err.Error(), "P.boom panicked: bad state")
	assert.Equal(t, StatusPass, results[1].Status)
}

func TestSuite_ImmediateErrorIsReturned(t *testing.T) {
	want := errors.New("stop")
	suite := NewSuite(NewLifecycle(counters.New(), nil), nil, 1)
	results := suite.Run(context.Background(), []Case{{
		Run: func(_ context.Context, c *Context) error {
			return c.Check("stops", func() error { return want })
		},
	}})
	assert.ErrorIs(t, results[0].Err, want)
}
