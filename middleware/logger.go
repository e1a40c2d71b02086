package middleware

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vireo-web/vireo/pipeline"
	"github.com/vireo-web/vireo/response"
	"github.com/vireo-web/vireo/state"
)

// AccessLog returns middleware that logs one structured line per request:
// method, path, status, duration and request ID. Failures are logged with the
// error and re-propagated unchanged.
func AccessLog(logger *zap.Logger) pipeline.Middleware {
	return pipeline.Func(func(ctx context.Context, s *state.State, next pipeline.Next) (*response.Response, error) {
		start := time.Now()

		var method, path string
		if req, err := state.Borrow[state.Request](s); err == nil {
			method, path = req.Method, req.Path
		}

		resp, err := next(ctx, s)

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Duration("duration", time.Since(start)),
		}
		if rid, ridErr := state.Borrow[state.RequestID](s); ridErr == nil {
			fields = append(fields, zap.String("request_id", string(rid)))
		}

		switch {
		case err != nil:
			logger.Warn("request failed", append(fields, zap.Error(err))...)
		case resp != nil:
			logger.Info("request", append(fields, zap.Int("status", resp.Status))...)
		}
		return resp, err
	})
}
