package resolve

import (
	"context"
	"sync"
	"time"

	"github.com/roach88/steady/internal/testutil"
)

// fakeAccessor is an in-memory Accessor driven by a ManualClock.
type fakeAccessor struct {
	clock      *testutil.ManualClock
	neverLoads bool
	identity   Identity

	mu          sync.Mutex
	diagnostics []string
}

func newFakeAccessor(clock *testutil.ManualClock) *fakeAccessor {
	return &fakeAccessor{clock: clock, identity: Identity{Title: "Inbox", URL: "https://app.test/inbox"}}
}

func (a *fakeAccessor) WaitForBaseSignal(_ context.Context, timeout time.Duration) bool {
	if a.neverLoads {
		a.clock.Advance(timeout)
		return false
	}
	return true
}

func (a *fakeAccessor) CaptureDiagnostic(_ context.Context, name string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.diagnostics = append(a.diagnostics, name)
	return nil
}

func (a *fakeAccessor) Identify(context.Context) (Identity, error) {
	return a.identity, nil
}

func (a *fakeAccessor) Diagnostics() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.diagnostics...)
}

// fakeShape answers IsDisplayed from a function of virtual elapsed time.
type fakeShape struct {
	name    string
	clock   *testutil.ManualClock
	display func(elapsed time.Duration) (bool, error)
	checks  *int
}

func (s *fakeShape) Name() string { return s.name }

func (s *fakeShape) IsDisplayed(context.Context) (bool, error) {
	if s.checks != nil {
		*s.checks++
	}
	return s.display(s.clock.Elapsed())
}

func candidate(name string, clock *testutil.ManualClock, display func(time.Duration) (bool, error)) Candidate {
	return Candidate{
		Name: name,
		New: func(context.Context, Accessor) (Shape, error) {
			return &fakeShape{name: name, clock: clock, display: display}, nil
		},
	}
}

func never(time.Duration) (bool, error) { return false, nil }

func after(d time.Duration) func(time.Duration) (bool, error) {
	return func(elapsed time.Duration) (bool, error) { return elapsed >= d, nil }
}
