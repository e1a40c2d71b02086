// Package dispatch turns raw requests into responses: it matches the router,
// seeds the per-request state, runs the pipeline chain and converts the
// outcome, or any failure, into a wire response.
package dispatch

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vireo-web/vireo/extract"
	vireoerrors "github.com/vireo-web/vireo/pkg/errors"
	"github.com/vireo-web/vireo/pipeline"
	"github.com/vireo-web/vireo/response"
	"github.com/vireo-web/vireo/router"
	"github.com/vireo-web/vireo/state"
)

// requestIDHeader is the correlation header read from the request and echoed
// on every response.
const requestIDHeader = "X-Request-ID"

// Dispatcher is the per-request façade. It holds no cross-request state
// beyond the immutable router, so one instance serves all connections.
type Dispatcher struct {
	router *router.Router
	logger *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// New creates a dispatcher over a built router.
func New(r *router.Router, opts ...Option) *Dispatcher {
	d := &Dispatcher{router: r, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ServeHTTP implements http.Handler. The connection layer supplies the
// request and its context; cancellation of that context (client disconnect or
// an upstream timeout) aborts the chain at its next suspension point.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := d.Dispatch(r.Context(), r)
	if err := resp.Write(w); err != nil {
		d.logger.Debug("failed to write response", zap.Error(err))
	}
}

// Dispatch resolves and executes one request. Router-level outcomes short
// circuit without touching the pipeline chain; a match gets a fresh state,
// the route's extractor, then the chain.
func (d *Dispatcher) Dispatch(ctx context.Context, r *http.Request) *response.Response {
	m := d.router.Match(r.Method, r.URL.Path)

	switch m.Outcome {
	case router.OutcomeNotFound:
		return response.NoContent(http.StatusNotFound)

	case router.OutcomeMethodNotAllowed:
		return response.NoContent(http.StatusMethodNotAllowed).
			WithHeader("Allow", strings.Join(m.Allowed, ", "))
	}

	s := state.New()
	rid := r.Header.Get(requestIDHeader)
	if rid == "" {
		rid = uuid.New().String()
	}
	state.Put(s, state.RequestID(rid))
	state.Put(s, state.Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		RawQuery:   r.URL.RawQuery,
		Header:     r.Header,
		Body:       r.Body,
		RemoteAddr: r.RemoteAddr,
	})
	if m.Params == nil {
		m.Params = state.Params{}
	}
	state.Put(s, m.Params)

	resp := d.run(ctx, m, s)
	resp.Header.Set(requestIDHeader, rid)
	return resp
}

// run executes extraction and the chain with a panic guard. The guard exists
// so a state-contract violation or a panicking handler fails the request, not
// the process.
func (d *Dispatcher) run(ctx context.Context, m router.Match, s *state.State) (resp *response.Response) {
	defer s.RunCleanup()
	defer func() {
		if rec := recover(); rec != nil {
			resp = d.recovered(s, rec)
		}
	}()

	if m.Route.Schema != nil {
		if err := m.Route.Schema.Apply(s, m.Params, rawQuery(s)); err != nil {
			return d.convertError(s, err)
		}
	}

	out, err := m.Route.Chain.Run(ctx, s, m.Route.Handler)
	if err != nil {
		return d.convertError(s, err)
	}
	return out
}

func rawQuery(s *state.State) string {
	req, err := state.Borrow[state.Request](s)
	if err != nil {
		return ""
	}
	return req.RawQuery
}

// convertError maps a chain failure to a wire response. Known kinds get their
// specific status; everything else becomes a generic 500 whose body carries
// no internal detail. The cause always goes to the log, with the request ID.
func (d *Dispatcher) convertError(s *state.State, err error) *response.Response {
	rid := requestID(s)
	log := d.logger.With(zap.String("request_id", rid), zap.Error(err))

	var apiErr *vireoerrors.ErrorResponse
	if errors.As(err, &apiErr) {
		if apiErr.RequestID == "" {
			apiErr.WithRequestID(rid)
		}
		if apiErr.Code().HTTPStatus() >= 500 {
			log.Error("request failed")
		} else {
			log.Debug("request rejected")
		}
		return apiErr.Response()
	}

	var handlerErr *HandlerError
	if errors.As(err, &handlerErr) {
		if handlerErr.Status >= 500 {
			log.Error("handler failure")
		} else {
			log.Debug("handler rejected request")
		}
		code := vireoerrors.CodeHandlerFailure
		if handlerErr.Status < 500 {
			code = vireoerrors.CodeInvalidInput
		}
		resp := vireoerrors.New(code, http.StatusText(handlerErr.Status)).
			WithRequestID(rid).Response()
		resp.Status = handlerErr.Status
		return resp
	}

	var extractErr *extract.Error
	if errors.As(err, &extractErr) {
		log.Debug("extraction failed", zap.String("field", extractErr.Field))
		return vireoerrors.New(vireoerrors.CodeInvalidInput, "invalid request parameters").
			WithRequestID(rid).
			WithDetail("field", extractErr.Field).
			Response()
	}

	var stateErr *state.Error
	if errors.As(err, &stateErr) {
		// A borrow or take of an absent type is a pipeline wiring bug, not a
		// request condition. Loud in the log, clean to the client.
		log.Error("state contract violation",
			zap.String("type", stateErr.Type.String()),
			zap.String("op", string(stateErr.Op)))
		return vireoerrors.NewFromCode(vireoerrors.CodeStateContract).
			WithRequestID(rid).Response()
	}

	if errors.Is(err, context.Canceled) {
		log.Debug("request cancelled")
		return vireoerrors.NewFromCode(vireoerrors.CodeRequestCancelled).
			WithRequestID(rid).Response()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		log.Warn("request deadline exceeded")
		return vireoerrors.NewFromCode(vireoerrors.CodeTimeout).
			WithRequestID(rid).Response()
	}
	if errors.Is(err, pipeline.ErrNoResponse) {
		log.Error("pipeline step produced no outcome")
		return vireoerrors.NewFromCode(vireoerrors.CodeInternalServerError).
			WithRequestID(rid).Response()
	}

	log.Error("unhandled dispatch error")
	return vireoerrors.NewFromCode(vireoerrors.CodeInternalServerError).
		WithRequestID(rid).Response()
}

func (d *Dispatcher) recovered(s *state.State, rec any) *response.Response {
	if err, ok := rec.(*state.Error); ok {
		return d.convertError(s, err)
	}
	d.logger.Error("panic during dispatch",
		zap.String("request_id", requestID(s)),
		zap.Any("panic", rec),
		zap.Stack("stack"))
	return vireoerrors.NewFromCode(vireoerrors.CodeInternalServerError).
		WithRequestID(requestID(s)).Response()
}

func requestID(s *state.State) string {
	rid, err := state.Borrow[state.RequestID](s)
	if err != nil {
		return ""
	}
	return string(rid)
}
