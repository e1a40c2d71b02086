package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/vireo-web/vireo/pipeline"
	"github.com/vireo-web/vireo/response"
	"github.com/vireo-web/vireo/state"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	Skipper Skipper

	// AllowOrigins lists allowed origins; "*" allows all. Defaults to all.
	AllowOrigins []string

	// AllowMethods lists methods advertised on preflight.
	AllowMethods []string

	// AllowHeaders lists headers advertised on preflight.
	AllowHeaders []string
}

// DefaultCORSConfig allows every origin with the common methods.
var DefaultCORSConfig = CORSConfig{
	Skipper:      DefaultSkipper,
	AllowOrigins: []string{"*"},
	AllowMethods: []string{
		http.MethodGet, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	},
	AllowHeaders: []string{"Content-Type", "Authorization"},
}

// CORS returns middleware with the default config.
func CORS() pipeline.Middleware {
	return CORSWithConfig(DefaultCORSConfig)
}

// CORSWithConfig returns a CORS middleware. Preflight OPTIONS requests halt
// with 204 and the advertisement headers; other requests continue with the
// allow-origin header stamped on the eventual response.
func CORSWithConfig(config CORSConfig) pipeline.Middleware {
	if config.Skipper == nil {
		config.Skipper = DefaultSkipper
	}
	if len(config.AllowOrigins) == 0 {
		config.AllowOrigins = DefaultCORSConfig.AllowOrigins
	}
	if len(config.AllowMethods) == 0 {
		config.AllowMethods = DefaultCORSConfig.AllowMethods
	}
	if len(config.AllowHeaders) == 0 {
		config.AllowHeaders = DefaultCORSConfig.AllowHeaders
	}

	methods := strings.Join(config.AllowMethods, ", ")
	headers := strings.Join(config.AllowHeaders, ", ")

	return pipeline.Func(func(ctx context.Context, s *state.State, next pipeline.Next) (*response.Response, error) {
		if config.Skipper(s) {
			return next(ctx, s)
		}

		req, err := state.Borrow[state.Request](s)
		if err != nil {
			return nil, err
		}

		origin := req.Header.Get("Origin")
		allowed := allowedOrigin(config.AllowOrigins, origin)

		if req.Method == http.MethodOptions {
			resp := response.NoContent(http.StatusNoContent)
			if allowed != "" {
				resp.WithHeader("Access-Control-Allow-Origin", allowed).
					WithHeader("Access-Control-Allow-Methods", methods).
					WithHeader("Access-Control-Allow-Headers", headers)
			}
			return resp, nil
		}

		resp, err := next(ctx, s)
		if resp != nil && allowed != "" {
			resp.WithHeader("Access-Control-Allow-Origin", allowed)
		}
		return resp, err
	})
}

func allowedOrigin(allowed []string, origin string) string {
	if origin == "" {
		return ""
	}
	for _, o := range allowed {
		if o == "*" {
			return "*"
		}
		if strings.EqualFold(o, origin) {
			return origin
		}
	}
	return ""
}
