package logsink

import (
	"sync"
	"time"

	"github.com/roach88/steady/internal/event"
)

// Recorder keeps every event in memory.
//
// Fields are resolved when recorded, so a Recorder sees the same payload a
// persistent sink would. Used by tests, scenario traces and reports.
//
// Thread-safety: all methods are safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	clock  *event.Clock
	now    func() time.Time
	events []event.Event
}

// NewRecorder creates an empty Recorder with its own sequence clock.
func NewRecorder() *Recorder {
	return NewRecorderWithClock(event.NewClock())
}

// NewRecorderWithClock creates a Recorder that stamps events from clock.
func NewRecorderWithClock(clock *event.Clock) *Recorder {
	return &Recorder{clock: clock, now: time.Now}
}

// LogEvent implements Sink.
func (r *Recorder) LogEvent(category, status string, fields event.Fields) {
	resolved := fields.Resolve()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event.Event{
		Seq:        r.clock.Next(),
		TestID:     event.TestIDOf(resolved),
		Category:   category,
		Status:     status,
		Fields:     resolved,
		RecordedAt: r.now(),
	})
}

// LogException implements Sink.
func (r *Recorder) LogException(err error) {
	if err == nil {
		return
	}
	r.LogEvent(event.CategoryException, event.StatusError, exceptionFields(err))
}

// Events returns a copy of every recorded event in seq order.
func (r *Recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Filter returns recorded events matching category and status.
// An empty status matches every status in the category.
func (r *Recorder) Filter(category, status string) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Event
	for _, ev := range r.events {
		if ev.Category == category && (status == "" || ev.Status == status) {
			out = append(out, ev)
		}
	}
	return out
}

// ForTest returns the events recorded for one test ID.
func (r *Recorder) ForTest(testID string) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Event
	for _, ev := range r.events {
		if ev.TestID == testID {
			out = append(out, ev)
		}
	}
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Reset discards all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
