package eval

import (
	"fmt"
	"log/slog"

	"github.com/roach88/steady/internal/event"
	"github.com/roach88/steady/internal/fault"
	"github.com/roach88/steady/internal/logsink"
)

// Evaluator runs checks under a failure policy.
//
// One Evaluator belongs to one test. Implementations are safe for
// concurrent use, but a test normally drives its evaluator from a single
// goroutine.
type Evaluator interface {
	// Check runs check. On success it logs a pass and returns nil. On
	// failure the error is classified (a *fault.Error passes through, any
	// other error or panic becomes ASSERTION_FAILED) and handled by the
	// policy.
	Check(describe Description, check func() error) error

	// LogEvent emits a structured event tagged with the test ID.
	LogEvent(category, status string, fields event.Fields)

	// LogException emits an exception tagged with the test ID.
	LogException(err error)

	// Policy reports the failure policy.
	Policy() Policy

	// TestID reports the correlation ID stamped on every event.
	TestID() string
}

// Config carries what both policies need.
type Config struct {
	// TestID correlates every event of one test.
	TestID string

	// Sink receives events. Nil discards them.
	Sink logsink.Sink

	// Snapshot returns the context values attached to pass events.
	// Called only when the event is rendered.
	Snapshot func() event.Fields
}

// New returns the evaluator for policy.
func New(policy Policy, cfg Config) Evaluator {
	if policy == Deferred {
		return NewBatch(cfg)
	}
	return NewNow(cfg)
}

// Value runs read through ev and returns what it produced.
//
// Under Deferred a failed read is recorded and Value returns the zero value
// with a nil error, so callers must not treat the zero value as proof of
// success.
func Value[T any](ev Evaluator, describe Description, read func() (T, error)) (T, error) {
	var out T
	err := ev.Check(describe, func() error {
		v, err := read()
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

// core implements the policy-independent half of Check.
type core struct {
	testID   string
	sink     logsink.Sink
	snapshot func() event.Fields
}

func newCore(cfg Config) core {
	sink := cfg.Sink
	if sink == nil {
		sink = logsink.Discard{}
	}
	return core{testID: cfg.TestID, sink: sink, snapshot: cfg.Snapshot}
}

func (c *core) TestID() string { return c.testID }

func (c *core) LogEvent(category, status string, fields event.Fields) {
	c.sink.LogEvent(category, status, fields.With(event.KeyTestID, c.testID))
}

func (c *core) LogException(err error) {
	if err == nil {
		return
	}
	if fe, ok := fault.As(err); ok && fe.TestID == "" {
		fe.TestID = c.testID
	}
	c.sink.LogException(err)
}

// evaluate runs check and returns the classified failure, or nil.
func (c *core) evaluate(describe Description, check func() error) error {
	err := call(check)
	if err == nil {
		fields := event.Fields{event.KeyDescription: describe}
		if c.snapshot != nil {
			fields[event.KeyContext] = lazyFields(c.snapshot)
		}
		c.LogEvent(event.CategoryCheck, event.StatusPass, fields)
		return nil
	}

	if _, ok := fault.As(err); !ok {
		wrapped := fault.Wrap(fault.AssertionFailed, describe.String(), err)
		wrapped.TestID = c.testID
		c.LogException(wrapped)
		err = wrapped
	}
	c.LogEvent(event.CategoryCheck, event.StatusFail, event.Fields{
		event.KeyDescription: describe,
		event.KeyError:       err.Error(),
	})
	return err
}

func call(check func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("panic: %w", e)
				return
			}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return check()
}

// lazyFields renders a Fields-producing func as a slog group on demand.
// Sinks that resolve payloads get the Fields themselves, types intact.
type lazyFields func() event.Fields

func (f lazyFields) Fields() event.Fields { return f() }

func (f lazyFields) LogValue() slog.Value {
	fields := f()
	attrs := make([]slog.Attr, 0, len(fields))
	for _, k := range fields.SortedKeys() {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	return slog.GroupValue(attrs...)
}
