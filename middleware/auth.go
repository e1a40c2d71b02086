package middleware

import (
	"context"
	"strings"

	"github.com/vireo-web/vireo/auth"
	"github.com/vireo-web/vireo/pkg/errors"
	"github.com/vireo-web/vireo/pipeline"
	"github.com/vireo-web/vireo/response"
	"github.com/vireo-web/vireo/state"
)

// BearerAuthConfig configures the bearer auth middleware.
type BearerAuthConfig struct {
	Skipper Skipper

	// Service validates tokens. Required.
	Service *auth.Service
}

// BearerAuth returns middleware that validates the Authorization bearer
// token and layers the validated *auth.Claims into state, replacing nothing
// a handler could confuse with the raw token. Missing or invalid tokens halt
// the chain with a 401 envelope.
func BearerAuth(service *auth.Service) pipeline.Middleware {
	return BearerAuthWithConfig(BearerAuthConfig{Service: service})
}

// BearerAuthWithConfig returns a bearer auth middleware with config.
func BearerAuthWithConfig(config BearerAuthConfig) pipeline.Middleware {
	if config.Skipper == nil {
		config.Skipper = DefaultSkipper
	}

	return pipeline.Func(func(ctx context.Context, s *state.State, next pipeline.Next) (*response.Response, error) {
		if config.Skipper(s) {
			return next(ctx, s)
		}

		req, err := state.Borrow[state.Request](s)
		if err != nil {
			return nil, err
		}

		header := req.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return halt401(s, errors.CodeTokenMissing), nil
		}

		claims, err := config.Service.ValidateToken(token)
		if err != nil {
			return halt401(s, errors.CodeTokenInvalid), nil
		}

		state.Put(s, claims)
		return next(ctx, s)
	})
}

// RequireRole returns middleware that halts with 403 unless the validated
// claims carry the given role. It must run after BearerAuth; running it
// without claims present is a state-contract violation.
func RequireRole(role string) pipeline.Middleware {
	return pipeline.Func(func(ctx context.Context, s *state.State, next pipeline.Next) (*response.Response, error) {
		claims, err := state.Borrow[*auth.Claims](s)
		if err != nil {
			return nil, err
		}
		if claims.Role != role {
			resp := errors.NewFromCode(errors.CodeForbidden).
				WithRequestID(requestIDString(s)).Response()
			return resp, nil
		}
		return next(ctx, s)
	})
}

func halt401(s *state.State, code errors.ErrorCode) *response.Response {
	return errors.NewFromCode(code).WithRequestID(requestIDString(s)).Response()
}

func requestIDString(s *state.State) string {
	rid, err := state.Borrow[state.RequestID](s)
	if err != nil {
		return ""
	}
	return string(rid)
}
