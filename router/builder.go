// Package router resolves method + path to a handler and pipeline chain via
// a segment tree with static, dynamic ({name}) and glob (*name) children.
package router

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/vireo-web/vireo/extract"
	"github.com/vireo-web/vireo/pipeline"
)

// RouteOption configures a single route registration.
type RouteOption func(*Route)

// WithSchema attaches an extractor schema to the route. The dispatcher applies
// it before any middleware runs.
func WithSchema(s *extract.Schema) RouteOption {
	return func(rt *Route) { rt.Schema = s }
}

// Builder is the route declaration surface. Declare pipelines on a
// pipeline.Set, then routes and groups here, then call Build. Declaration
// errors (bad pattern, duplicate route, segment-kind conflict, unknown
// pipeline) are collected and reported together by Build.
type Builder struct {
	set  *pipeline.Set
	root *node
	errs []error
}

// NewBuilder creates a builder over the given pipeline set.
func NewBuilder(set *pipeline.Set) *Builder {
	return &Builder{set: set, root: newNode()}
}

// Root returns the top-level route group running the given pipelines, in
// order, for every route declared beneath it.
func (b *Builder) Root(ids ...pipeline.ID) *Group {
	chain, err := b.set.Chain(ids...)
	if err != nil {
		b.errs = append(b.errs, err)
		chain, _ = b.set.Chain()
	}
	return &Group{b: b, chain: chain}
}

// Build finalizes the tree. After a successful Build the router is immutable
// and safe for concurrent matching; the builder must not be reused.
func (b *Builder) Build() (*Router, error) {
	if len(b.errs) > 0 {
		return nil, errors.Join(b.errs...)
	}
	return &Router{root: b.root}, nil
}

// Group is a set of routes sharing a path prefix and a pipeline chain.
// Nested groups extend the parent's chain; pipelines run parent-first.
type Group struct {
	b      *Builder
	prefix string
	chain  *pipeline.Chain
}

// Group declares a nested group under prefix, extending the chain with the
// given pipelines.
func (g *Group) Group(prefix string, ids ...pipeline.ID) *Group {
	chain, err := g.chain.Extend(ids...)
	if err != nil {
		g.b.errs = append(g.b.errs, err)
		chain = g.chain
	}
	return &Group{b: g.b, prefix: g.prefix + prefix, chain: chain}
}

// Handle registers a route for an arbitrary method.
func (g *Group) Handle(method, pattern string, h pipeline.Handler, opts ...RouteOption) {
	full := g.prefix + pattern
	rt := &Route{Method: method, Pattern: full, Handler: h, Chain: g.chain}
	for _, opt := range opts {
		opt(rt)
	}
	if err := g.b.insert(rt); err != nil {
		g.b.errs = append(g.b.errs, err)
	}
}

func (g *Group) GET(pattern string, h pipeline.Handler, opts ...RouteOption) {
	g.Handle(http.MethodGet, pattern, h, opts...)
}

func (g *Group) POST(pattern string, h pipeline.Handler, opts ...RouteOption) {
	g.Handle(http.MethodPost, pattern, h, opts...)
}

func (g *Group) PUT(pattern string, h pipeline.Handler, opts ...RouteOption) {
	g.Handle(http.MethodPut, pattern, h, opts...)
}

func (g *Group) DELETE(pattern string, h pipeline.Handler, opts ...RouteOption) {
	g.Handle(http.MethodDelete, pattern, h, opts...)
}

func (g *Group) PATCH(pattern string, h pipeline.Handler, opts ...RouteOption) {
	g.Handle(http.MethodPatch, pattern, h, opts...)
}

func (g *Group) HEAD(pattern string, h pipeline.Handler, opts ...RouteOption) {
	g.Handle(http.MethodHead, pattern, h, opts...)
}

func (g *Group) OPTIONS(pattern string, h pipeline.Handler, opts ...RouteOption) {
	g.Handle(http.MethodOptions, pattern, h, opts...)
}

func (b *Builder) insert(rt *Route) error {
	segs := splitPath(rt.Pattern)
	n := b.root

	for i, seg := range segs {
		switch {
		case strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}"):
			name := seg[1 : len(seg)-1]
			if name == "" {
				return fmt.Errorf("router: empty dynamic segment name in %q", rt.Pattern)
			}
			if n.dynamic == nil {
				n.dynamic = newNode()
				n.dynamic.name = name
			} else if n.dynamic.name != name {
				return fmt.Errorf("router: dynamic segment {%s} in %q conflicts with existing {%s}",
					name, rt.Pattern, n.dynamic.name)
			}
			n = n.dynamic

		case strings.HasPrefix(seg, "*"):
			name := seg[1:]
			if name == "" {
				return fmt.Errorf("router: empty glob segment name in %q", rt.Pattern)
			}
			if i != len(segs)-1 {
				return fmt.Errorf("router: glob segment *%s must be the final segment in %q", name, rt.Pattern)
			}
			if n.glob == nil {
				n.glob = newNode()
				n.glob.name = name
			} else if n.glob.name != name {
				return fmt.Errorf("router: glob segment *%s in %q conflicts with existing *%s",
					name, rt.Pattern, n.glob.name)
			}
			n = n.glob

		case strings.ContainsAny(seg, "{}*"):
			return fmt.Errorf("router: malformed segment %q in %q", seg, rt.Pattern)

		default:
			n = n.staticChild(seg)
		}
	}

	if n.routes == nil {
		n.routes = make(map[string]*Route)
	}
	if _, dup := n.routes[rt.Method]; dup {
		return fmt.Errorf("router: duplicate route %s %s", rt.Method, rt.Pattern)
	}
	n.routes[rt.Method] = rt
	return nil
}
