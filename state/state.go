// Package state provides the per-request typed value store shared by
// middleware and handlers during a single dispatch.
package state

import (
	"fmt"
	"io"
	"net/http"
	"reflect"
)

// Op identifies the state operation that failed.
type Op string

const (
	OpBorrow Op = "borrow"
	OpTake   Op = "take"
)

// Error reports an access to a type that is not present in the state.
// It marks a wiring mistake in the pipeline or handler, not a bad request,
// and the dispatcher reports it loudly before answering with a 500.
type Error struct {
	Type reflect.Type
	Op   Op
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %s of absent type %v", e.Op, e.Type)
}

// State is a type-indexed container scoped to one in-flight request. It holds
// at most one value per type. A State is owned exclusively by the dispatch
// that created it and is never shared across requests, so access needs no
// locking.
type State struct {
	values  map[reflect.Type]any
	cleanup []func()
}

// New creates an empty State.
func New() *State {
	return &State{values: make(map[reflect.Type]any)}
}

// Put stores a value, replacing any prior value of the same type. Replacement
// is deliberate: middleware layers refined data over route-level data, e.g. a
// validated session over a raw token.
func Put[T any](s *State, value T) {
	s.values[typeOf[T]()] = value
}

// PutValue stores v keyed by its dynamic type. Prefer the generic Put;
// PutValue exists for callers that build values reflectively, such as the
// route-parameter extractor.
func PutValue(s *State, v any) {
	s.values[reflect.TypeOf(v)] = v
}

// Borrow returns the stored value of type T without removing it.
func Borrow[T any](s *State) (T, error) {
	v, ok := s.values[typeOf[T]()]
	if !ok {
		var zero T
		return zero, &Error{Type: typeOf[T](), Op: OpBorrow}
	}
	return v.(T), nil
}

// Take removes and returns the stored value of type T. Use it for values that
// must be consumed exactly once, such as a request body.
func Take[T any](s *State) (T, error) {
	t := typeOf[T]()
	v, ok := s.values[t]
	if !ok {
		var zero T
		return zero, &Error{Type: t, Op: OpTake}
	}
	delete(s.values, t)
	return v.(T), nil
}

// Has reports whether a value of type T is present.
func Has[T any](s *State) bool {
	_, ok := s.values[typeOf[T]()]
	return ok
}

// MustBorrow is Borrow that panics on absence. The dispatcher's recovery
// converts the panic into a clean 500, so a miswired pipeline fails the
// request rather than the process.
func MustBorrow[T any](s *State) T {
	v, err := Borrow[T](s)
	if err != nil {
		panic(err)
	}
	return v
}

// OnCleanup registers a hook that runs when the request finishes, whether the
// chain completed, halted or failed. Hooks run in LIFO order, mirroring
// scoped-resource release.
func (s *State) OnCleanup(fn func()) {
	s.cleanup = append(s.cleanup, fn)
}

// RunCleanup drains the registered hooks in LIFO order. The dispatcher calls
// it exactly once per request; calling it again is a no-op.
func (s *State) RunCleanup() {
	for i := len(s.cleanup) - 1; i >= 0; i-- {
		s.cleanup[i]()
	}
	s.cleanup = nil
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Request carries the parts of the incoming request that the dispatcher seeds
// into every State before the chain runs.
type Request struct {
	Method     string
	Path       string
	RawQuery   string
	Header     http.Header
	Body       io.ReadCloser
	RemoteAddr string
}

// Params holds the raw path segment values bound by the router, keyed by the
// dynamic or glob segment name from the route pattern.
type Params map[string]string

// Get returns the bound value for name, or "" if the name was not bound.
func (p Params) Get(name string) string {
	return p[name]
}

// RequestID is the correlation ID for one request, seeded by the dispatcher
// and replaced by the request-ID middleware when the client supplied one.
type RequestID string
