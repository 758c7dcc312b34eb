// Package counters tracks suite-wide test lifecycle tallies.
//
// One Counters value is shared by every test in a run. The lifecycle hooks
// update it; the summary event and the Prometheus collectors read it.
package counters

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Queued     int64     `json:"queued"`
	Started    int64     `json:"started"`
	Ended      int64     `json:"ended"`
	Passed     int64     `json:"passed"`
	Failed     int64     `json:"failed"`
	FirstStart time.Time `json:"first_start"`
}

// Counters holds the suite-wide tallies.
//
// Thread-safety: all methods are safe for concurrent use. A single mutex
// guards every field so Snapshot never observes a torn update.
type Counters struct {
	mu   sync.Mutex
	snap Snapshot
}

// New returns zeroed counters.
func New() *Counters {
	return &Counters{}
}

// IncQueued adds n tests to the queued total.
func (c *Counters) IncQueued(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Queued += n
}

// MarkStarted counts a started test. The first call fixes FirstStart; later
// calls leave it untouched.
func (c *Counters) MarkStarted(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Started++
	if c.snap.FirstStart.IsZero() {
		c.snap.FirstStart = now
	}
}

// IncEnded counts a finished test and returns the new ended total.
func (c *Counters) IncEnded() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Ended++
	return c.snap.Ended
}

// IncPassed counts a passing test.
func (c *Counters) IncPassed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Passed++
}

// IncFailed counts a failing test.
func (c *Counters) IncFailed() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.Failed++
}

// Snapshot returns a consistent copy of all counters.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Reset zeroes every counter. Only meant for tests that reuse a value.
func (c *Counters) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = Snapshot{}
}

// Register exposes the counters on reg as steady_tests_* collectors.
func (c *Counters) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		c.counterFunc("queued", "Tests queued for execution.", func(s Snapshot) int64 { return s.Queued }),
		c.counterFunc("started", "Tests started.", func(s Snapshot) int64 { return s.Started }),
		c.counterFunc("ended", "Tests finished.", func(s Snapshot) int64 { return s.Ended }),
		c.counterFunc("passed", "Tests that passed.", func(s Snapshot) int64 { return s.Passed }),
		c.counterFunc("failed", "Tests that failed.", func(s Snapshot) int64 { return s.Failed }),
	}
	for _, col := range collectors {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

func (c *Counters) counterFunc(name, help string, pick func(Snapshot) int64) prometheus.CounterFunc {
	return prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "steady",
		Subsystem: "tests",
		Name:      name + "_total",
		Help:      help,
	}, func() float64 {
		return float64(pick(c.Snapshot()))
	})
}
