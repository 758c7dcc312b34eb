package harness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/steady/internal/eval"
	"github.com/roach88/steady/internal/event"
	"github.com/roach88/steady/internal/fault"
	"github.com/roach88/steady/internal/logsink"
	"github.com/roach88/steady/internal/navigate"
	"github.com/roach88/steady/internal/resolve"
	"github.com/roach88/steady/internal/testutil"
)

func newTestContext(t *testing.T, policy eval.Policy) (*Context, *logsink.Recorder) {
	t.Helper()
	rec := logsink.NewRecorder()
	return NewContext("t-ctx", rec, policy), rec
}

func TestContext_StoreLoadRoundTrip(t *testing.T) {
	c, rec := newTestContext(t, eval.Immediate)

	require.NoError(t, c.Store("count", 1))
	v, err := c.Load("count")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	stored := rec.Filter(event.CategoryContext, event.StatusStore)
	require.Len(t, stored, 1)
	assert.Equal(t, "count", stored[0].Fields[event.KeyKey])
	assert.Equal(t, "t-ctx", stored[0].TestID)
}

func TestContext_DuplicateKeyRejected(t *testing.T) {
	c, _ := newTestContext(t, eval.Immediate)

	require.NoError(t, c.Store("count", 1))
	err := c.Store("count", 2)
	require.Error(t, err)
	assert.True(t, fault.IsCode(err, fault.DuplicateKey))

	v, err := c.LoadInt("count")
	require.NoError(t, err)
	assert.Equal(t, 1, v, "the first value is never replaced")
}

func TestContext_NullValuesRejected(t *testing.T) {
	c, _ := newTestContext(t, eval.Immediate)

	var nilPtr *int
	var nilMap map[string]int
	var nilSlice []string
	var nilFunc func()
	var nilErr error

	for name, v := range map[string]any{
		"nil": nil, "ptr": nilPtr, "map": nilMap, "slice": nilSlice, "func": nilFunc, "iface": nilErr,
	} {
		err := c.Store(name, v)
		assert.True(t, fault.IsCode(err, fault.NullValue), name)
	}
	assert.Empty(t, c.Keys())
}

func TestContext_MissingKeyFailsAndLeavesStoreUnmodified(t *testing.T) {
	c, rec := newTestContext(t, eval.Immediate)
	require.NoError(t, c.Store("present", "x"))

	_, err := c.Load("absent")
	require.Error(t, err)
	assert.True(t, fault.IsCode(err, fault.KeyNotFound))

	same, err := c.RemoveStored("absent")
	require.Error(t, err)
	assert.Same(t, c, same)
	assert.True(t, fault.IsCode(err, fault.KeyNotFound))

	assert.Equal(t, []string{"present"}, c.Keys())
	assert.Len(t, rec.Filter(event.CategoryCheck, event.StatusFail), 2)
}

func TestContext_TypeMismatch(t *testing.T) {
	c, _ := newTestContext(t, eval.Immediate)
	require.NoError(t, c.Store("count", 1))

	_, err := c.LoadString("count")
	require.Error(t, err)
	assert.True(t, fault.IsCode(err, fault.TypeMismatch))
	assert.Contains(t, err.Error(), `value for "count" is int, not string`)
}

func TestContext_TypedLoaders(t *testing.T) {
	c, _ := newTestContext(t, eval.Immediate)
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	require.NoError(t, c.Store("name", "alice"))
	require.NoError(t, c.Store("at", at))

	name, err := c.LoadString("name")
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	got, err := c.LoadTime("at")
	require.NoError(t, err)
	assert.True(t, at.Equal(got))

	var s fmtStringer = namedValue("n")
	require.NoError(t, c.Store("stringer", s))
	asIface, err := LoadAs[fmtStringer](c, "stringer")
	require.NoError(t, err)
	assert.Equal(t, "n", asIface.String())
}

type fmtStringer interface{ String() string }

type namedValue string

func (n namedValue) String() string { return string(n) }

func TestContext_RemoveStoredChains(t *testing.T) {
	c, rec := newTestContext(t, eval.Immediate)
	require.NoError(t, c.Store("a", 1))
	require.NoError(t, c.Store("b", 2))

	out, err := c.RemoveStored("a")
	require.NoError(t, err)
	assert.Same(t, c, out)
	assert.Equal(t, []string{"b"}, c.Keys())
	assert.Len(t, rec.Filter(event.CategoryContext, event.StatusRemove), 1)

	require.NoError(t, c.Store("a", 3), "a removed key can be stored again")
}

func TestContext_ImmediateAbortsDeferredContinues(t *testing.T) {
	var order []string
	chain := func(c *Context) error {
		for _, step := range []string{"first", "second", "third"} {
			err := c.Check(step, func() error {
				order = append(order, step)
				if step != "second" {
					return errors.New(step + " broke")
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}

	now, _ := newTestContext(t, eval.Immediate)
	err := chain(now)
	require.Error(t, err)
	assert.Equal(t, []string{"first"}, order)

	order = nil
	soft, _ := newTestContext(t, eval.Immediate)
	err = soft.Soft(chain)
	assert.Equal(t, []string{"first", "second", "third"}, order)

	var batch *eval.BatchError
	require.ErrorAs(t, err, &batch)
	require.Len(t, batch.Failures, 2)
	assert.Equal(t, "first", batch.Failures[0].Description)
	assert.Equal(t, "third", batch.Failures[1].Description)
}

func TestContext_ViewsShareStore(t *testing.T) {
	c, rec := newTestContext(t, eval.Immediate)
	require.NoError(t, c.Soft(func(soft *Context) error {
		return soft.Store("shared", true)
	}))

	v, err := c.Load("shared")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	batch := eval.NewBatch(eval.Config{TestID: c.TestID(), Sink: rec})
	view := c.Using(batch)
	assert.Same(t, eval.Evaluator(batch), view.Evaluator())
	_, err = view.Load("missing")
	assert.NoError(t, err)
	assert.Equal(t, 1, batch.Len())
	assert.Equal(t, eval.Immediate, c.Evaluator().Policy(), "the original view keeps its evaluator")
}

func TestContext_Expect(t *testing.T) {
	c, _ := newTestContext(t, eval.Immediate)
	require.NoError(t, c.Store("count", 1))
	require.NoError(t, c.Store("name", "alice"))

	assert.NoError(t, c.Expect("count is 1", `count == 1 && name == "alice"`))

	err := c.Expect("count is 2", "count == 2")
	require.Error(t, err)
	assert.True(t, fault.IsCode(err, fault.AssertionFailed))
	assert.Contains(t, err.Error(), "expected count == 2 to hold")

	err = c.Expect("not boolean", "count + 1")
	assert.Error(t, err)

	err = c.Expect("unknown name", "missing == 1")
	assert.Error(t, err)
}

func TestContext_NewError(t *testing.T) {
	c, _ := newTestContext(t, eval.Immediate)
	cause := errors.New("socket closed")

	err := c.NewError("checkout failed", cause)
	assert.Equal(t, "t-ctx", err.TestID)
	assert.ErrorIs(t, err, cause)

	err = c.NewErrorFromFields(event.Fields{"step": "pay", "amount": 12}, nil)
	assert.Equal(t, "amount=12, step=pay", err.Message)
	assert.Equal(t, "pay", err.Fields["step"])
}

type staticAccessor struct{}

func (staticAccessor) WaitForBaseSignal(context.Context, time.Duration) bool { return true }
func (staticAccessor) CaptureDiagnostic(context.Context, string) error { return nil }
func (staticAccessor) Identify(context.Context) (resolve.Identity, error) {
	return resolve.Identity{Title: "Home", URL: "https://app.test/"}, nil
}

type staticShape struct {
	name    string
	visible bool
}

func (s staticShape) Name() string { return s.name }
func (s staticShape) IsDisplayed(context.Context) (bool, error) { return s.visible, nil }

func staticCandidate(name string, visible bool) resolve.Candidate {
	return resolve.Candidate{Name: name, New: func(context.Context, resolve.Accessor) (resolve.Shape, error) {
		return staticShape{name: name, visible: visible}, nil
	}}
}

func TestContext_ResolveAndNavigate(t *testing.T) {
	c, rec := newTestContext(t, eval.Immediate)
	r := resolve.New(staticAccessor{},
		resolve.WithClock(testutil.NewManualClock()),
		resolve.WithEvents(c.Evaluator()),
	)
	ctx := context.Background()

	shape, err := c.Resolve(ctx, r, time.Second, staticCandidate("login", false), staticCandidate("home", true))
	require.NoError(t, err)
	assert.Equal(t, "home", shape.Name())

	_, err = c.Resolve(ctx, r, time.Second, staticCandidate("login", false))
	assert.True(t, fault.IsCode(err, fault.ResolutionTimeout))
	fe, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{"login"}, fe.Fields["expected"])
	assert.Equal(t, "Home", fe.Fields["title"])
	assert.Equal(t, "https://app.test/", fe.Fields["url"])
	assert.Contains(t, err.Error(), "title=Home")

	g := navigate.New(r, "home")
	require.NoError(t, g.AddPath(staticCandidate("home", true), nil))
	shape, err = c.Navigate(ctx, g, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "home", shape.Name())
	assert.Len(t, rec.Filter(event.CategoryNavigate, event.StatusMatch), 1)
	assert.NotEmpty(t, rec.Filter(event.CategoryResolve, event.StatusMatch))
}

// describeCapture keeps the description it was handed without rendering it.
type describeCapture struct {
	eval.Evaluator
	last eval.Description
}

func (d *describeCapture) Check(describe eval.Description, check func() error) error {
	d.last = describe
	return d.Evaluator.Check(eval.Describe("captured"), check)
}

func TestContext_NavigateDescriptionIsLazy(t *testing.T) {
	c, _ := newTestContext(t, eval.Immediate)
	r := resolve.New(staticAccessor{}, resolve.WithClock(testutil.NewManualClock()))
	g := navigate.New(r, "home")
	require.NoError(t, g.AddPath(staticCandidate("home", true), nil))

	capture := &describeCapture{Evaluator: c.Evaluator()}
	_, err := c.Using(capture).Navigate(context.Background(), g, time.Second)
	require.NoError(t, err)

	// Rendered after the fact, the description sees the path added later.
	require.NoError(t, g.AddPath(staticCandidate("settings", false), nil))
	assert.Equal(t, "navigate from one of [settings home]", capture.last.String())
}
