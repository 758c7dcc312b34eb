package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/go-rod/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/steady/internal/diag"
	"github.com/roach88/steady/internal/fault"
	"github.com/roach88/steady/internal/resolve"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"element not found", &rod.ElementNotFoundError{}, true},
		{"wrapped element not found", fmt.Errorf("query: %w", &rod.ElementNotFoundError{}), true},
		{"object not found", &rod.ObjectNotFoundError{}, true},
		{"deadline", fmt.Errorf("wait: %w", context.DeadlineExceeded), true},
		{"stale context", errors.New("{-32000 Cannot find context with specified id }"), true},
		{"destroyed context", errors.New("Execution context was destroyed."), true},
		{"other", errors.New("net::ERR_NAME_NOT_RESOLVED"), false},
		{"cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransient(tt.err))
		})
	}
}

func TestClassify(t *testing.T) {
	err := classify(&rod.ElementNotFoundError{})
	assert.True(t, fault.IsTransient(err))

	plain := errors.New("boom")
	assert.Same(t, plain, classify(plain))
}

type otherAccessor struct{}

func (otherAccessor) WaitForBaseSignal(context.Context, time.Duration) bool { return true }
func (otherAccessor) CaptureDiagnostic(context.Context, string) error { return nil }
func (otherAccessor) Identify(context.Context) (resolve.Identity, error) {
	return resolve.Identity{}, nil
}

func TestSelectorCandidate_RequiresBrowserAccessor(t *testing.T) {
	c := SelectorCandidate("login", "#user")
	assert.Equal(t, "login", c.Name)

	_, err := c.New(context.Background(), otherAccessor{})
	assert.True(t, fault.IsCode(err, fault.ConstructionFailed))

	_, err = SelectorCandidate("empty").New(context.Background(), &Accessor{page: &rod.Page{}})
	assert.True(t, fault.IsCode(err, fault.ConstructionFailed))
}

func TestAccessor_WithoutPage(t *testing.T) {
	a := NewAccessor(nil, diag.NewWriter(t.TempDir()), nil)
	assert.False(t, a.WaitForBaseSignal(context.Background(), time.Second))
	_, err := a.Identify(context.Background())
	assert.Error(t, err)
	assert.Error(t, a.CaptureDiagnostic(context.Background(), "x"))

	assert.NoError(t, NewAccessor(nil, nil, nil).CaptureDiagnostic(context.Background(), "x"),
		"no writer means no snapshot")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.Headless)
	assert.Equal(t, 30*time.Second, cfg.NavigationTimeout)
}

// TestSession_ResolvesLivePage drives a real browser. It needs Chromium and
// runs only when STEADY_BROWSER_TEST=1.
func TestSession_ResolvesLivePage(t *testing.T) {
	if os.Getenv("STEADY_BROWSER_TEST") != "1" {
		t.Skip("set STEADY_BROWSER_TEST=1 to run browser integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cfg := DefaultConfig()
	dw := diag.NewWriter(t.TempDir())
	s, err := Launch(ctx, cfg, dw, nil)
	require.NoError(t, err)
	defer s.Close()

	page := "data:text/html," + url.PathEscape(`<title>Inbox</title><div id="inbox">mail</div>`)
	require.NoError(t, s.Navigate(ctx, page))

	r := resolve.New(s.Accessor(), resolve.WithSettleDelay(50*time.Millisecond))
	m, ok := r.Resolve(ctx, 10*time.Second,
		SelectorCandidate("login", "#user", "#password"),
		SelectorCandidate("inbox", "#inbox"),
	)
	require.True(t, ok)
	assert.Equal(t, "inbox", m.Candidate.Name)

	id, err := s.Accessor().Identify(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Inbox", id.Title)
}
