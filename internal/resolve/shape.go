package resolve

import (
	"context"
	"time"

	"github.com/roach88/steady/internal/event"
)

// Shape is one recognizable state of the observed system.
type Shape interface {
	// Name identifies the shape in logs and diagnostics.
	Name() string

	// IsDisplayed reports whether the shape is showing now. A transient
	// error (fault.TransientRead) means "not yet"; any other error means
	// the check itself is broken.
	IsDisplayed(ctx context.Context) (bool, error)
}

// Factory builds a Shape bound to an accessor.
type Factory func(ctx context.Context, acc Accessor) (Shape, error)

// Candidate names a shape and how to build it.
type Candidate struct {
	Name string
	New  Factory
}

// Identity is what the accessor can say about where it is.
type Identity struct {
	Title string
	URL   string
}

// Accessor is the capability the resolver needs from the driver.
type Accessor interface {
	// WaitForBaseSignal blocks until the system reports it has loaded or
	// timeout elapses, returning false on timeout.
	WaitForBaseSignal(ctx context.Context, timeout time.Duration) bool

	// CaptureDiagnostic saves a snapshot of the current state under name.
	CaptureDiagnostic(ctx context.Context, name string) error

	// Identify reports the current title and location.
	Identify(ctx context.Context) (Identity, error)
}

// EventLogger receives resolver events. Both logsink.Sink and
// eval.Evaluator satisfy it.
type EventLogger interface {
	LogEvent(category, status string, fields event.Fields)
}

// Clock abstracts time so tests can run the polling loop virtually.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Names returns the candidate names in order.
func Names(candidates []Candidate) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	return names
}

// MissFields describes a failed resolution: the expected shape names plus
// the title and URL the accessor reports, or the identify error. It ignores
// ctx cancellation so a timed-out caller still learns where the system is.
func MissFields(ctx context.Context, acc Accessor, expected []Candidate) event.Fields {
	fields := event.Fields{"expected": Names(expected)}
	if acc == nil {
		return fields
	}
	id, err := acc.Identify(context.WithoutCancel(ctx))
	if err != nil {
		fields["identify"] = err.Error()
		return fields
	}
	fields["title"] = id.Title
	fields["url"] = id.URL
	return fields
}
