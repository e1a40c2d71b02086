package middleware

import (
	"context"
	"net"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vireo-web/vireo/pkg/errors"
	"github.com/vireo-web/vireo/pipeline"
	"github.com/vireo-web/vireo/response"
	"github.com/vireo-web/vireo/state"
)

// RateLimitConfig configures the rate limiter.
type RateLimitConfig struct {
	Skipper Skipper

	// Rate is the sustained requests-per-second allowance per key.
	Rate float64

	// Burst is the instantaneous allowance per key.
	Burst int

	// KeyFunc derives the limiter key from request state. Defaults to the
	// client IP.
	KeyFunc func(s *state.State) string

	// TTL is how long an idle key is kept before the janitor evicts it.
	TTL time.Duration
}

// DefaultRateLimitConfig allows 10 req/s with a burst of 20, keyed by client IP.
var DefaultRateLimitConfig = RateLimitConfig{
	Skipper: DefaultSkipper,
	Rate:    10,
	Burst:   20,
	KeyFunc: clientIP,
	TTL:     3 * time.Minute,
}

func clientIP(s *state.State) string {
	req, err := state.Borrow[state.Request](s)
	if err != nil {
		return ""
	}
	host, _, splitErr := net.SplitHostPort(req.RemoteAddr)
	if splitErr != nil {
		return req.RemoteAddr
	}
	return host
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a token-bucket limiter with one bucket per key. Create one
// with NewRateLimiter, attach Middleware() to a pipeline, and Close it on
// shutdown to stop the eviction janitor.
type RateLimiter struct {
	config   RateLimitConfig
	mu       sync.Mutex
	visitors map[string]*visitor
	done     chan struct{}
	closeOne sync.Once
}

// NewRateLimiter creates a limiter with the given config.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.Skipper == nil {
		config.Skipper = DefaultRateLimitConfig.Skipper
	}
	if config.Rate <= 0 {
		config.Rate = DefaultRateLimitConfig.Rate
	}
	if config.Burst <= 0 {
		config.Burst = DefaultRateLimitConfig.Burst
	}
	if config.KeyFunc == nil {
		config.KeyFunc = DefaultRateLimitConfig.KeyFunc
	}
	if config.TTL <= 0 {
		config.TTL = DefaultRateLimitConfig.TTL
	}

	rl := &RateLimiter{
		config:   config,
		visitors: make(map[string]*visitor),
		done:     make(chan struct{}),
	}
	go rl.janitor()
	return rl
}

// Close stops the background eviction janitor.
func (rl *RateLimiter) Close() {
	rl.closeOne.Do(func() { close(rl.done) })
}

// Allow reports whether the key may proceed now.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(rl.config.Rate), rl.config.Burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter.Allow()
}

// Middleware returns the pipeline step. Over-limit requests halt with a 429
// envelope; nothing later in the chain runs.
func (rl *RateLimiter) Middleware() pipeline.Middleware {
	return pipeline.Func(func(ctx context.Context, s *state.State, next pipeline.Next) (*response.Response, error) {
		if rl.config.Skipper(s) {
			return next(ctx, s)
		}
		if !rl.Allow(rl.config.KeyFunc(s)) {
			return errors.NewFromCode(errors.CodeRateLimitExceeded).Response(), nil
		}
		return next(ctx, s)
	})
}

func (rl *RateLimiter) janitor() {
	ticker := time.NewTicker(rl.config.TTL)
	defer ticker.Stop()
	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, v := range rl.visitors {
				if now.Sub(v.lastSeen) > rl.config.TTL {
					delete(rl.visitors, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}
