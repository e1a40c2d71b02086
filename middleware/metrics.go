package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vireo-web/vireo/pipeline"
	"github.com/vireo-web/vireo/response"
	"github.com/vireo-web/vireo/state"
)

// MetricsConfig configures the Prometheus metrics middleware.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "vireo").
	Namespace string

	// Subsystem is the metrics subsystem (default: "http").
	Subsystem string

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets.
	Buckets []float64

	// Registry is the Prometheus registerer to use.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// Metrics returns middleware recording a request counter and a duration
// histogram, labeled by method and status. Halted and failed requests are
// counted like completed ones; failures are labeled with the 500 status the
// dispatcher will produce.
func Metrics() pipeline.Middleware {
	return MetricsWithConfig(MetricsConfig{})
}

// MetricsWithConfig returns a metrics middleware with config.
func MetricsWithConfig(config MetricsConfig) pipeline.Middleware {
	if config.Namespace == "" {
		config.Namespace = "vireo"
	}
	if config.Subsystem == "" {
		config.Subsystem = "http"
	}
	if config.Buckets == nil {
		config.Buckets = prometheus.DefBuckets
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: config.Namespace,
		Subsystem: config.Subsystem,
		Name:      "requests_total",
		Help:      "Total number of dispatched requests.",
	}, []string{"method", "status"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: config.Namespace,
		Subsystem: config.Subsystem,
		Name:      "request_duration_seconds",
		Help:      "Request processing duration in seconds.",
		Buckets:   config.Buckets,
	}, []string{"method", "status"})

	config.Registry.MustRegister(requests, duration)

	return pipeline.Func(func(ctx context.Context, s *state.State, next pipeline.Next) (*response.Response, error) {
		start := time.Now()

		method := ""
		if req, err := state.Borrow[state.Request](s); err == nil {
			method = req.Method
		}

		resp, err := next(ctx, s)

		status := "500"
		if resp != nil {
			status = strconv.Itoa(resp.Status)
		}
		requests.WithLabelValues(method, status).Inc()
		duration.WithLabelValues(method, status).Observe(time.Since(start).Seconds())

		return resp, err
	})
}
