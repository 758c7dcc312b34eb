package harness

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/expr-lang/expr"

	"github.com/roach88/steady/internal/eval"
	"github.com/roach88/steady/internal/event"
	"github.com/roach88/steady/internal/fault"
	"github.com/roach88/steady/internal/logsink"
	"github.com/roach88/steady/internal/navigate"
	"github.com/roach88/steady/internal/resolve"
)

// Context is the per-test value store and the entry point of every fluent
// chain.
//
// Keys are unique: Store never overwrites, and a value leaves the store only
// through RemoveStored. Reads and removals go through the bound Evaluator,
// so whether a missing key stops the test depends on the policy.
//
// A Context may be viewed through another evaluator with Using or Soft. All
// views share one underlying store.
type Context struct {
	testID string
	sink   logsink.Sink
	values *values
	ev     eval.Evaluator
}

// NewContext creates a Context for testID whose evaluator follows policy.
// A nil sink discards events.
func NewContext(testID string, sink logsink.Sink, policy eval.Policy) *Context {
	if sink == nil {
		sink = logsink.Discard{}
	}
	c := &Context{testID: testID, sink: sink, values: newValues()}
	c.ev = eval.New(policy, c.evalConfig())
	return c
}

func (c *Context) evalConfig() eval.Config {
	return eval.Config{TestID: c.testID, Sink: c.sink, Snapshot: c.values.snapshot}
}

// TestID returns the correlation ID of the test.
func (c *Context) TestID() string { return c.testID }

// Evaluator returns the evaluator this view is bound to.
func (c *Context) Evaluator() eval.Evaluator { return c.ev }

// Using returns a view of the same store bound to ev.
func (c *Context) Using(ev eval.Evaluator) *Context {
	return &Context{testID: c.testID, sink: c.sink, values: c.values, ev: ev}
}

// Soft runs fn against a Deferred view of the store and returns every
// failure fn recorded as one aggregate error, joined with fn's own error.
func (c *Context) Soft(fn func(*Context) error) error {
	batch := eval.NewBatch(c.evalConfig())
	err := fn(c.Using(batch))
	return errors.Join(err, batch.Flush())
}

// Store inserts value under key. It fails with NULL_VALUE for nil values
// (typed nils included) and DUPLICATE_KEY when key is already present.
func (c *Context) Store(key string, value any) error {
	if isNil(value) {
		return c.fault(fault.New(fault.NullValue, "value for %q is null", key))
	}
	if !c.values.insert(key, value) {
		return c.fault(fault.New(fault.DuplicateKey, "key %q is already stored", key))
	}
	c.ev.LogEvent(event.CategoryContext, event.StatusStore, event.Fields{
		event.KeyKey:   key,
		event.KeyValue: value,
	})
	return nil
}

// Load returns the value stored under key.
func (c *Context) Load(key string) (any, error) {
	return eval.Value(c.ev, eval.Describef("load %q", key), func() (any, error) {
		return c.lookup(key)
	})
}

// LoadAs returns the value under key as a T. A value that is not a T fails
// with TYPE_MISMATCH.
func LoadAs[T any](c *Context, key string) (T, error) {
	return eval.Value(c.ev, eval.Describef("load %q as %s", key, typeName[T]()), func() (T, error) {
		var zero T
		v, err := c.lookup(key)
		if err != nil {
			return zero, err
		}
		t, ok := v.(T)
		if !ok {
			return zero, c.fault(fault.New(fault.TypeMismatch,
				"value for %q is %T, not %s", key, v, typeName[T]()))
		}
		return t, nil
	})
}

// LoadString loads a string value.
func (c *Context) LoadString(key string) (string, error) { return LoadAs[string](c, key) }

// LoadInt loads an int value.
func (c *Context) LoadInt(key string) (int, error) { return LoadAs[int](c, key) }

// LoadTime loads a time.Time value.
func (c *Context) LoadTime(key string) (time.Time, error) { return LoadAs[time.Time](c, key) }

// RemoveStored deletes key and returns c for chaining. A missing key fails.
func (c *Context) RemoveStored(key string) (*Context, error) {
	err := c.ev.Check(eval.Describef("remove %q", key), func() error {
		if !c.values.remove(key) {
			return c.missing(key)
		}
		c.ev.LogEvent(event.CategoryContext, event.StatusRemove, event.Fields{event.KeyKey: key})
		return nil
	})
	return c, err
}

// Keys returns the stored keys in insertion order.
func (c *Context) Keys() []string {
	return c.values.keys()
}

// Values returns a copy of the store.
func (c *Context) Values() event.Fields {
	return c.values.snapshot()
}

// NewError creates a domain error tagged with the test ID.
func (c *Context) NewError(message string, cause error) *fault.Error {
	return c.fault(fault.Wrap(fault.AssertionFailed, message, cause))
}

// NewErrorFromFields creates a domain error whose message is rendered from
// a structured payload.
func (c *Context) NewErrorFromFields(fields event.Fields, cause error) *fault.Error {
	return c.fault(fault.FromFields(fault.AssertionFailed, fields, cause))
}

// Check runs check through the evaluator.
func (c *Context) Check(describe string, check func() error) error {
	return c.ev.Check(eval.Describe(describe), check)
}

// Expect evaluates a boolean expression over the stored values.
//
//	c.Expect("count is 1", "count == 1")
func (c *Context) Expect(describe, expression string) error {
	return c.ev.Check(eval.Describe(describe), func() error {
		env := map[string]any(c.values.snapshot())
		program, err := expr.Compile(expression, expr.Env(env), expr.AsBool())
		if err != nil {
			return fmt.Errorf("compile %q: %w", expression, err)
		}
		out, err := expr.Run(program, env)
		if err != nil {
			return fmt.Errorf("evaluate %q: %w", expression, err)
		}
		if ok, _ := out.(bool); !ok {
			return fmt.Errorf("expected %s to hold", expression)
		}
		return nil
	})
}

// Resolve waits for one of candidates through r. Absence is reported as
// RESOLUTION_TIMEOUT through the evaluator.
func (c *Context) Resolve(ctx context.Context, r *resolve.Resolver, timeout time.Duration, candidates ...resolve.Candidate) (resolve.Shape, error) {
	describe := eval.Description(func() string {
		return fmt.Sprintf("resolve one of %v", resolve.Names(candidates))
	})
	return eval.Value(c.ev, describe, func() (resolve.Shape, error) {
		m, ok := r.Resolve(ctx, timeout, candidates...)
		if !ok {
			fields := resolve.MissFields(ctx, r.Accessor(), candidates)
			return nil, c.fault(fault.FromFields(fault.ResolutionTimeout, fields, ctx.Err()))
		}
		return m.Shape, nil
	})
}

// Navigate resolves where the system is and follows g to the target.
func (c *Context) Navigate(ctx context.Context, g *navigate.Graph, timeout time.Duration) (resolve.Shape, error) {
	describe := eval.Description(func() string {
		return fmt.Sprintf("navigate from one of %v", resolve.Names(g.Order()))
	})
	return eval.Value(c.ev, describe, func() (resolve.Shape, error) {
		shape, err := g.ResolveAndTransition(ctx, timeout)
		if err != nil {
			if fe, ok := fault.As(err); ok {
				c.fault(fe)
			}
			return nil, err
		}
		c.ev.LogEvent(event.CategoryNavigate, event.StatusMatch, event.Fields{"shape": shape.Name()})
		return shape, nil
	})
}

func (c *Context) lookup(key string) (any, error) {
	v, ok := c.values.get(key)
	if !ok {
		return nil, c.missing(key)
	}
	return v, nil
}

func (c *Context) missing(key string) error {
	return c.fault(fault.New(fault.KeyNotFound, "no value stored for %q", key))
}

func (c *Context) fault(fe *fault.Error) *fault.Error {
	if fe.TestID == "" {
		fe.TestID = c.testID
	}
	return fe
}

// values is the store shared by every view of a Context.
type values struct {
	mu    sync.RWMutex
	m     map[string]any
	order []string
}

func newValues() *values {
	return &values{m: make(map[string]any)}
}

func (v *values) insert(key string, value any) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.m[key]; ok {
		return false
	}
	v.m[key] = value
	v.order = append(v.order, key)
	return true
}

func (v *values) get(key string) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.m[key]
	return val, ok && !isNil(val)
}

func (v *values) remove(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	val, ok := v.m[key]
	if !ok || isNil(val) {
		return false
	}
	delete(v.m, key)
	v.order = slices.DeleteFunc(v.order, func(k string) bool { return k == key })
	return true
}

func (v *values) keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.order)
}

func (v *values) snapshot() event.Fields {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(event.Fields, len(v.m))
	for k, val := range v.m {
		out[k] = val
	}
	return out
}

// isNil reports nil interfaces and nil values of nillable kinds.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func,
		reflect.Chan, reflect.Interface, reflect.UnsafePointer:
		return rv.IsNil()
	}
	return false
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
