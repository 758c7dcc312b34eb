package harness

import (
	"sync"
	"time"

	"github.com/roach88/steady/internal/counters"
	"github.com/roach88/steady/internal/event"
	"github.com/roach88/steady/internal/logsink"
)

// Status is the outcome of one test.
type Status int

const (
	StatusPass Status = iota
	StatusFail
)

// String returns "pass" or "fail".
func (s Status) String() string {
	if s == StatusPass {
		return event.StatusPass
	}
	return event.StatusFail
}

// Lifecycle emits the start/end/pass/fail/summary events of a test run and
// keeps the shared counters current.
//
// Thread-safety: safe for concurrent use by every test of a suite.
type Lifecycle struct {
	counters *counters.Counters
	sink     logsink.Sink
	ids      event.IDGenerator
	now      func() time.Time

	mu      sync.Mutex
	running map[string]time.Time
}

// LifecycleOption configures a Lifecycle.
type LifecycleOption func(*Lifecycle)

// WithIDGenerator sets how test IDs are generated.
func WithIDGenerator(g event.IDGenerator) LifecycleOption {
	return func(l *Lifecycle) { l.ids = g }
}

// WithNow sets the wall clock used for start/end timestamps.
func WithNow(now func() time.Time) LifecycleOption {
	return func(l *Lifecycle) { l.now = now }
}

// NewLifecycle creates a Lifecycle over c that logs to sink.
func NewLifecycle(c *counters.Counters, sink logsink.Sink, opts ...LifecycleOption) *Lifecycle {
	if sink == nil {
		sink = logsink.Discard{}
	}
	l := &Lifecycle{
		counters: c,
		sink:     sink,
		ids:      event.UUIDv7Generator{},
		now:      time.Now,
		running:  make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Counters returns the shared counters.
func (l *Lifecycle) Counters() *counters.Counters { return l.counters }

// OnTestQueued announces n more tests.
func (l *Lifecycle) OnTestQueued(n int) {
	l.counters.IncQueued(int64(n))
}

// OnTestStart registers a started test and returns its new test ID.
func (l *Lifecycle) OnTestStart(class, method string) string {
	return l.startAs(l.ids.Generate(), class, method)
}

func (l *Lifecycle) startAs(testID, class, method string) string {
	now := l.now()
	l.counters.MarkStarted(now)

	l.mu.Lock()
	l.running[testID] = now
	l.mu.Unlock()

	snap := l.counters.Snapshot()
	l.sink.LogEvent(event.CategoryLifecycle, event.StatusStart, event.Fields{
		event.KeyTestID: testID,
		event.KeyClass:  class,
		event.KeyMethod: method,
		event.KeyCount:  snap.Started,
		event.KeyTotal:  snap.Queued,
		event.KeyStart:  now,
	})
	return testID
}

// OnTestEnd records the outcome of testID and emits end, pass or fail,
// and the running summary.
func (l *Lifecycle) OnTestEnd(testID string, status Status) {
	now := l.now()

	l.mu.Lock()
	started, ok := l.running[testID]
	delete(l.running, testID)
	l.mu.Unlock()
	if !ok {
		started = now
	}

	ended := l.counters.IncEnded()
	if status == StatusPass {
		l.counters.IncPassed()
	} else {
		l.counters.IncFailed()
	}
	snap := l.counters.Snapshot()

	l.sink.LogEvent(event.CategoryLifecycle, event.StatusEnd, event.Fields{
		event.KeyTestID:   testID,
		event.KeyEnd:      now,
		event.KeyDuration: now.Sub(started),
	})
	l.sink.LogEvent(event.CategoryLifecycle, status.String(), event.Fields{
		event.KeyTestID: testID,
		event.KeyPass:   snap.Passed,
		event.KeyFail:   snap.Failed,
	})
	l.sink.LogEvent(event.CategoryLifecycle, event.StatusSummary, event.Fields{
		event.KeyCount:    ended,
		event.KeyTotal:    snap.Queued,
		event.KeyPass:     snap.Passed,
		event.KeyFail:     snap.Failed,
		event.KeyDuration: now.Sub(snap.FirstStart),
	})
}
