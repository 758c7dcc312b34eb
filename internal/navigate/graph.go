// Package navigate drives the observed system toward a target state from
// wherever it happens to be.
//
// A Graph maps each recognizable shape to the transition that leads from it
// to the target. ResolveAndTransition finds the current shape with a
// resolve.Resolver and runs that shape's transition.
package navigate

import (
	"context"
	"sync"
	"time"

	"github.com/roach88/steady/internal/event"
	"github.com/roach88/steady/internal/fault"
	"github.com/roach88/steady/internal/resolve"
)

// Transition moves the system from the resolved shape to the target and
// returns the target shape.
type Transition func(ctx context.Context, from resolve.Shape) (resolve.Shape, error)

type path struct {
	candidate  resolve.Candidate
	transition Transition
}

// Graph is a set of shape → transition paths keyed by candidate name.
//
// current names the shape the caller already knows it is standing on; it
// is checked last, because a graph is normally walked to leave that shape.
//
// Thread-safety: safe for concurrent use.
type Graph struct {
	resolver *resolve.Resolver
	current  string

	mu    sync.RWMutex
	paths []path
	names map[string]struct{}
}

// New creates an empty graph resolved by r.
func New(r *resolve.Resolver, current string) *Graph {
	return &Graph{resolver: r, current: current, names: make(map[string]struct{})}
}

// AddPath registers the transition taken when c is the resolved shape.
// A second registration for the same name fails with DUPLICATE_PATH and
// leaves the first in place. A nil transition returns the resolved shape
// unchanged.
func (g *Graph) AddPath(c resolve.Candidate, t Transition) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.names[c.Name]; ok {
		return fault.FromFields(fault.DuplicatePath, event.Fields{"shape": c.Name}, nil)
	}
	if t == nil {
		t = stay
	}
	g.names[c.Name] = struct{}{}
	g.paths = append(g.paths, path{candidate: c, transition: t})
	return nil
}

// Len returns the number of registered paths.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.paths)
}

// Order returns the candidates in registration order with the current
// shape moved last. Each call builds a fresh slice.
func (g *Graph) Order() []resolve.Candidate {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]resolve.Candidate, 0, len(g.paths))
	var last *resolve.Candidate
	for i := range g.paths {
		c := g.paths[i].candidate
		if c.Name == g.current && last == nil {
			last = &c
			continue
		}
		out = append(out, c)
	}
	if last != nil {
		out = append(out, *last)
	}
	return out
}

// ResolveAndTransition resolves the current shape within timeout and runs
// its transition. When nothing resolves it returns RESOLUTION_TIMEOUT
// carrying the expected shape names and the accessor's title and URL.
func (g *Graph) ResolveAndTransition(ctx context.Context, timeout time.Duration) (resolve.Shape, error) {
	order := g.Order()
	m, ok := g.resolver.Resolve(ctx, timeout, order...)
	if !ok {
		return nil, g.timeoutError(ctx, order)
	}

	t := g.transitionFor(m.Candidate.Name)
	return t(ctx, m.Shape)
}

func (g *Graph) transitionFor(name string) Transition {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, p := range g.paths {
		if p.candidate.Name == name {
			return p.transition
		}
	}
	return stay
}

func (g *Graph) timeoutError(ctx context.Context, order []resolve.Candidate) error {
	fields := resolve.MissFields(ctx, g.resolver.Accessor(), order)
	return fault.FromFields(fault.ResolutionTimeout, fields, ctx.Err())
}

func stay(_ context.Context, from resolve.Shape) (resolve.Shape, error) {
	return from, nil
}
