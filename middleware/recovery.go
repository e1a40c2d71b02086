package middleware

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vireo-web/vireo/pipeline"
	"github.com/vireo-web/vireo/response"
	"github.com/vireo-web/vireo/state"
)

// Recovery returns middleware that converts a panic in any later step into a
// chain failure. State-contract violations keep their error kind so the
// dispatcher reports them as such; anything else becomes a generic failure
// logged with its stack.
//
// The dispatcher carries its own last-resort guard; this middleware exists so
// a pipeline can log panics with its own logger and continue LIFO cleanup of
// earlier middleware in the usual way.
func Recovery(logger *zap.Logger) pipeline.Middleware {
	return pipeline.Func(func(ctx context.Context, s *state.State, next pipeline.Next) (resp *response.Response, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				if se, ok := rec.(*state.Error); ok {
					err = se
					return
				}
				logger.Error("panic recovered",
					zap.Any("panic", rec),
					zap.Stack("stack"))
				err = fmt.Errorf("panic: %v", rec)
			}
		}()
		return next(ctx, s)
	})
}
