// Package pipeline provides named, reusable middleware sequences and the
// chain runner that executes them ahead of a handler.
//
// A middleware is invoked with the request state and an explicit continuation
// for the rest of the chain. It continues by calling next, halts by returning
// a response without calling next, or fails by returning an error. Exactly one
// of those three happens per middleware invocation.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/vireo-web/vireo/response"
	"github.com/vireo-web/vireo/state"
)

// Next is the continuation handed to a middleware: the remainder of the chain
// plus the handler.
type Next func(ctx context.Context, s *state.State) (*response.Response, error)

// Middleware is one step of a pipeline.
type Middleware interface {
	Call(ctx context.Context, s *state.State, next Next) (*response.Response, error)
}

// Func adapts a function to the Middleware interface.
type Func func(ctx context.Context, s *state.State, next Next) (*response.Response, error)

func (f Func) Call(ctx context.Context, s *state.State, next Next) (*response.Response, error) {
	return f(ctx, s, next)
}

// Handler is the terminal step of a chain.
type Handler interface {
	Handle(ctx context.Context, s *state.State) (*response.Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, s *state.State) (*response.Response, error)

func (f HandlerFunc) Handle(ctx context.Context, s *state.State) (*response.Response, error) {
	return f(ctx, s)
}

// Pipeline is an ordered, named middleware sequence. Order is fixed at
// construction; a pipeline is shared by every chain that references it.
type Pipeline struct {
	name       string
	middleware []Middleware
}

// NewPipeline creates a pipeline with the given middleware order.
func New(name string, mw ...Middleware) *Pipeline {
	return &Pipeline{
		name:       name,
		middleware: append([]Middleware(nil), mw...),
	}
}

// Name returns the pipeline's registration name.
func (p *Pipeline) Name() string { return p.name }

// ID references a pipeline inside a Set.
type ID int

// Set is the arena holding every registered pipeline. Pipelines are stored
// once and referenced by ID so that many routes can share one pipeline
// without duplication. A Set is append-only during the build phase and must
// not be modified after the router is built.
type Set struct {
	pipelines []*Pipeline
	byName    map[string]ID
}

// NewSet creates an empty pipeline set.
func NewSet() *Set {
	return &Set{byName: make(map[string]ID)}
}

// Add registers a pipeline and returns its ID. Registering a second pipeline
// under an already-used name is a build-phase configuration error.
func (s *Set) Add(p *Pipeline) (ID, error) {
	if _, exists := s.byName[p.name]; exists {
		return 0, fmt.Errorf("pipeline %q already registered", p.name)
	}
	id := ID(len(s.pipelines))
	s.pipelines = append(s.pipelines, p)
	s.byName[p.name] = id
	return id, nil
}

// MustAdd is Add that panics on a duplicate name. Route declaration runs once
// at startup, before traffic, where a panic is an acceptable failure mode.
func (s *Set) MustAdd(p *Pipeline) ID {
	id, err := s.Add(p)
	if err != nil {
		panic(err)
	}
	return id
}

// Lookup resolves a pipeline name to its ID.
func (s *Set) Lookup(name string) (ID, bool) {
	id, ok := s.byName[name]
	return id, ok
}

func (s *Set) pipeline(id ID) (*Pipeline, error) {
	if id < 0 || int(id) >= len(s.pipelines) {
		return nil, fmt.Errorf("unknown pipeline id %d", id)
	}
	return s.pipelines[id], nil
}

// Chain is an ordered sequence of pipelines from one Set. Chains are built
// once during route declaration, are immutable afterwards, and may be
// attached to any number of routes.
type Chain struct {
	set *Set
	ids []ID
}

// Chain builds a chain over the given pipeline IDs, validating each against
// the set.
func (s *Set) Chain(ids ...ID) (*Chain, error) {
	for _, id := range ids {
		if _, err := s.pipeline(id); err != nil {
			return nil, err
		}
	}
	return &Chain{set: s, ids: append([]ID(nil), ids...)}, nil
}

// Extend returns a new chain with more pipelines appended. The receiver is
// unchanged, so a route group can extend its parent's chain freely.
func (c *Chain) Extend(ids ...ID) (*Chain, error) {
	extended, err := c.set.Chain(append(append([]ID(nil), c.ids...), ids...)...)
	if err != nil {
		return nil, err
	}
	return extended, nil
}

// Pipelines returns the names of the chained pipelines in execution order.
func (c *Chain) Pipelines() []string {
	names := make([]string, len(c.ids))
	for i, id := range c.ids {
		names[i] = c.set.pipelines[id].name
	}
	return names
}

// ErrNoResponse reports a middleware or handler that returned neither a
// response nor an error without continuing the chain.
var ErrNoResponse = errors.New("pipeline: step produced neither response nor error")

// Run executes the chain's middleware in order, then the handler, threading
// s through every step. A middleware that returns a response short-circuits
// everything after it; an error aborts the chain the same way but is handed
// to the caller's error conversion instead.
//
// Cleanup hooks registered on s run in LIFO order before Run returns, on
// every path: normal completion, halt, failure, and context cancellation.
func (c *Chain) Run(ctx context.Context, s *state.State, h Handler) (*response.Response, error) {
	defer s.RunCleanup()

	var step func(pi, mi int) (*response.Response, error)
	step = func(pi, mi int) (*response.Response, error) {
		// Cancellation is observed between steps, the chain's suspension
		// points. A dropped connection aborts here.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for pi < len(c.ids) && mi >= len(c.set.pipelines[c.ids[pi]].middleware) {
			pi++
			mi = 0
		}
		if pi == len(c.ids) {
			resp, err := h.Handle(ctx, s)
			if resp == nil && err == nil {
				return nil, ErrNoResponse
			}
			return resp, err
		}

		mw := c.set.pipelines[c.ids[pi]].middleware[mi]
		resp, err := mw.Call(ctx, s, func(ctx context.Context, s *state.State) (*response.Response, error) {
			return step(pi, mi+1)
		})
		if resp == nil && err == nil {
			return nil, ErrNoResponse
		}
		return resp, err
	}

	return step(0, 0)
}
