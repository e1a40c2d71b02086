// Package middleware provides the stock pipeline middleware: request ID,
// access logging, recovery, rate limiting, bearer auth, metrics and CORS.
package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/vireo-web/vireo/pipeline"
	"github.com/vireo-web/vireo/response"
	"github.com/vireo-web/vireo/state"
)

// Skipper decides whether a middleware passes a request through untouched.
type Skipper func(s *state.State) bool

// DefaultSkipper processes every request.
func DefaultSkipper(*state.State) bool { return false }

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	Skipper Skipper

	// Generator produces a new ID. Defaults to UUID v4.
	Generator func() string

	// TargetHeader is the header consulted for an existing ID and set on the
	// response. Defaults to X-Request-ID.
	TargetHeader string
}

// DefaultRequestIDConfig is the default RequestID middleware config.
var DefaultRequestIDConfig = RequestIDConfig{
	Skipper:      DefaultSkipper,
	Generator:    func() string { return uuid.New().String() },
	TargetHeader: "X-Request-ID",
}

// RequestID returns middleware that ensures every request carries a
// correlation ID: propagated from the client when present, generated
// otherwise, stored in state and echoed on the response.
func RequestID() pipeline.Middleware {
	return RequestIDWithConfig(DefaultRequestIDConfig)
}

// RequestIDWithConfig returns a RequestID middleware with config.
func RequestIDWithConfig(config RequestIDConfig) pipeline.Middleware {
	if config.Skipper == nil {
		config.Skipper = DefaultRequestIDConfig.Skipper
	}
	if config.Generator == nil {
		config.Generator = DefaultRequestIDConfig.Generator
	}
	if config.TargetHeader == "" {
		config.TargetHeader = DefaultRequestIDConfig.TargetHeader
	}

	return pipeline.Func(func(ctx context.Context, s *state.State, next pipeline.Next) (*response.Response, error) {
		if config.Skipper(s) {
			return next(ctx, s)
		}

		rid := ""
		if req, err := state.Borrow[state.Request](s); err == nil {
			rid = req.Header.Get(config.TargetHeader)
		}
		if rid == "" {
			rid = config.Generator()
		}
		state.Put(s, state.RequestID(rid))

		resp, err := next(ctx, s)
		if resp != nil {
			resp.WithHeader(config.TargetHeader, rid)
		}
		return resp, err
	})
}
