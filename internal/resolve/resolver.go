package resolve

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/steady/internal/event"
	"github.com/roach88/steady/internal/fault"
)

const (
	// DefaultSettleDelay is how long a provisional match must stay
	// displayed before it is confirmed.
	DefaultSettleDelay = 500 * time.Millisecond

	// DefaultPollInterval is the pause between resolution passes.
	DefaultPollInterval = 250 * time.Millisecond
)

// Match is a confirmed resolution.
type Match struct {
	Candidate Candidate
	Shape     Shape

	// Attempts is the 1-based pass that confirmed the match.
	Attempts int

	// Elapsed is the time from the start of Resolve to confirmation.
	Elapsed time.Duration
}

// Resolver polls an Accessor until one candidate shape is displayed.
//
// A Resolver holds no per-call state; concurrent Resolve calls against the
// same accessor are allowed but will interleave their checks.
type Resolver struct {
	accessor Accessor
	clock    Clock
	settle   time.Duration
	poll     time.Duration
	events   EventLogger
	logger   *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSettleDelay sets the confirmation delay.
func WithSettleDelay(d time.Duration) Option {
	return func(r *Resolver) { r.settle = d }
}

// WithPollInterval sets the pause between passes.
func WithPollInterval(d time.Duration) Option {
	return func(r *Resolver) { r.poll = d }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(r *Resolver) { r.clock = c }
}

// WithEvents routes match/miss/error events to l.
func WithEvents(l EventLogger) Option {
	return func(r *Resolver) { r.events = l }
}

// WithLogger sets the logger for per-check debug output.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// New creates a Resolver over acc.
func New(acc Accessor, opts ...Option) *Resolver {
	r := &Resolver{
		accessor: acc,
		clock:    realClock{},
		settle:   DefaultSettleDelay,
		poll:     DefaultPollInterval,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Accessor returns the accessor the resolver checks.
func (r *Resolver) Accessor() Accessor {
	return r.accessor
}

// Resolve returns the first candidate confirmed displayed within timeout.
// Candidates are checked in the order given. ok is false when the budget
// runs out or ctx is cancelled.
func (r *Resolver) Resolve(ctx context.Context, timeout time.Duration, candidates ...Candidate) (Match, bool) {
	if len(candidates) == 0 {
		return Match{}, false
	}

	start := r.clock.Now()
	deadline := start.Add(timeout)
	attempts := 0

	for ctx.Err() == nil {
		remaining := deadline.Sub(r.clock.Now())
		if remaining <= 0 {
			break
		}
		attempts++

		if m, ok := r.pass(ctx, remaining, candidates); ok {
			m.Attempts = attempts
			m.Elapsed = r.clock.Now().Sub(start)
			r.emit(event.StatusMatch, event.Fields{
				"shape":    m.Candidate.Name,
				"attempts": attempts,
				"elapsed":  m.Elapsed,
			})
			return m, true
		}

		remaining = deadline.Sub(r.clock.Now())
		if remaining <= 0 {
			break
		}
		if err := r.clock.Sleep(ctx, min(r.poll, remaining)); err != nil {
			break
		}
	}

	if attempts == 0 {
		// No pass ran, so nothing captured the page yet.
		r.capture(context.WithoutCancel(ctx), candidates[0].Name+"-load-timeout")
	}
	r.emit(event.StatusMiss, event.Fields{
		"expected": Names(candidates),
		"attempts": attempts,
		"elapsed":  r.clock.Now().Sub(start),
	})
	return Match{}, false
}

// pass runs one sweep over the candidates.
func (r *Resolver) pass(ctx context.Context, remaining time.Duration, candidates []Candidate) (Match, bool) {
	first := candidates[0].Name

	if !r.accessor.WaitForBaseSignal(ctx, remaining) {
		r.capture(ctx, first+"-load-timeout")
		return Match{}, false
	}

	for _, c := range candidates {
		shape, ok := r.displayed(ctx, c)
		if !ok {
			continue
		}
		if err := r.clock.Sleep(ctx, r.settle); err != nil {
			return Match{}, false
		}
		if !r.stillDisplayed(ctx, c.Name, shape) {
			r.logger.Debug("provisional match did not settle", "shape", c.Name)
			break
		}
		return Match{Candidate: c, Shape: shape}, true
	}

	r.capture(ctx, first)
	return Match{}, false
}

// displayed builds c and asks whether it shows. Errors count as "no".
func (r *Resolver) displayed(ctx context.Context, c Candidate) (Shape, bool) {
	shape, err := construct(ctx, c, r.accessor)
	if err != nil {
		r.report(c.Name, err)
		return nil, false
	}
	return shape, r.stillDisplayed(ctx, c.Name, shape)
}

func (r *Resolver) stillDisplayed(ctx context.Context, name string, shape Shape) bool {
	ok, err := isDisplayed(ctx, shape)
	if err != nil {
		r.report(name, err)
		return false
	}
	return ok
}

// report swallows transient errors and logs everything else.
func (r *Resolver) report(name string, err error) {
	if fault.IsTransient(err) {
		r.logger.Debug("transient check error", "shape", name, "error", err)
		return
	}
	r.logger.Warn("shape check failed", "shape", name, "error", err)
	r.emit(event.StatusError, event.Fields{
		"shape":        name,
		event.KeyCode:  string(fault.CodeOf(err)),
		event.KeyError: err.Error(),
	})
}

func (r *Resolver) capture(ctx context.Context, name string) {
	if err := r.accessor.CaptureDiagnostic(ctx, name); err != nil {
		r.logger.Warn("diagnostic capture failed", "name", name, "error", err)
	}
}

func (r *Resolver) emit(status string, fields event.Fields) {
	if r.events != nil {
		r.events.LogEvent(event.CategoryResolve, status, fields)
	}
}

// construct runs the factory, recovering panics and tagging failures that
// are not already transient as CONSTRUCTION_FAILED.
func construct(ctx context.Context, c Candidate, acc Accessor) (shape Shape, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fault.New(fault.ConstructionFailed, "constructing %s panicked: %v", c.Name, rec)
		}
	}()
	if c.New == nil {
		return nil, fault.New(fault.ConstructionFailed, "candidate %s has no factory", c.Name)
	}
	shape, err = c.New(ctx, acc)
	if err != nil && !fault.IsTransient(err) {
		return nil, fault.Wrap(fault.ConstructionFailed, "constructing "+c.Name, err)
	}
	if err == nil && shape == nil {
		return nil, fault.New(fault.ConstructionFailed, "factory for %s returned no shape", c.Name)
	}
	return shape, err
}

func isDisplayed(ctx context.Context, shape Shape) (ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s: IsDisplayed panicked: %v", shape.Name(), rec)
		}
	}()
	return shape.IsDisplayed(ctx)
}
