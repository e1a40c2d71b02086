package router

import (
	"sort"
	"strings"

	"github.com/vireo-web/vireo/extract"
	"github.com/vireo-web/vireo/pipeline"
	"github.com/vireo-web/vireo/state"
)

// Route is one registered (method, pattern) with its handler, pipeline chain
// and optional extractor schema.
type Route struct {
	Method  string
	Pattern string
	Handler pipeline.Handler
	Chain   *pipeline.Chain
	Schema  *extract.Schema
}

// node is one level of the segment tree. Child kinds per level: any number of
// static children keyed by literal text, at most one dynamic child, at most
// one glob child. The build phase rejects anything else, so matching never
// has to disambiguate beyond the static > dynamic > glob order.
type node struct {
	static  map[string]*node
	dynamic *node
	glob    *node

	// name is the binding name when this node is a dynamic or glob child.
	name string

	// routes is the method table for paths terminating at this node.
	routes map[string]*Route
}

func newNode() *node {
	return &node{}
}

func (n *node) staticChild(text string) *node {
	if n.static == nil {
		n.static = make(map[string]*node)
	}
	child, ok := n.static[text]
	if !ok {
		child = newNode()
		n.static[text] = child
	}
	return child
}

func (n *node) methods() []string {
	ms := make([]string, 0, len(n.routes))
	for m := range n.routes {
		ms = append(ms, m)
	}
	sort.Strings(ms)
	return ms
}

// Outcome tags the result of a match.
type Outcome uint8

const (
	OutcomeNotFound Outcome = iota
	OutcomeMethodNotAllowed
	OutcomeMatched
)

// Match is the result of resolving a request against the tree.
type Match struct {
	Outcome Outcome
	Route   *Route
	Params  state.Params
	// Allowed lists the methods registered at the matched node, sorted, when
	// Outcome is OutcomeMethodNotAllowed. It populates the Allow header and
	// never contains the queried method.
	Allowed []string
}

// Router is the immutable matching structure produced by a Builder. It is
// built once before traffic and read concurrently without locking.
type Router struct {
	root *node
}

// Match resolves method and path. Descent tries the static child first, then
// the dynamic child (any single non-empty segment), then the glob child,
// which consumes every remaining segment as one bound value. There is no
// backtracking: once a child accepts a segment, descent is committed.
//
// Glob policy: a glob accepts zero remaining segments and binds "". Both
// /files and /files/ match the route /files/*rest with rest == "", provided
// no route terminates at /files itself.
func (r *Router) Match(method, path string) Match {
	n := r.root
	segs := splitPath(path)
	var params state.Params

	bind := func(name, value string) {
		if params == nil {
			params = make(state.Params, 2)
		}
		params[name] = value
	}

	for i, seg := range segs {
		if child, ok := n.static[seg]; ok {
			n = child
			continue
		}
		if n.dynamic != nil && seg != "" {
			bind(n.dynamic.name, seg)
			n = n.dynamic
			continue
		}
		if n.glob != nil {
			bind(n.glob.name, strings.Join(segs[i:], "/"))
			n = n.glob
			break
		}
		return Match{Outcome: OutcomeNotFound}
	}

	// Full path consumed at a node without routes: a glob here matches the
	// remaining zero segments.
	if len(n.routes) == 0 && n.glob != nil {
		bind(n.glob.name, "")
		n = n.glob
	}

	if len(n.routes) == 0 {
		return Match{Outcome: OutcomeNotFound}
	}
	if rt, ok := n.routes[method]; ok {
		return Match{Outcome: OutcomeMatched, Route: rt, Params: params}
	}
	return Match{Outcome: OutcomeMethodNotAllowed, Allowed: n.methods()}
}

// splitPath cuts a request path into segments. "/" yields none; a trailing
// slash yields a final empty segment, which only a glob can match.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
