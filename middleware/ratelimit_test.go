package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Rate: 1, Burst: 3})
	defer rl.Close()

	mw := rl.Middleware()
	for i := 0; i < 3; i++ {
		resp, err := runChain(t, seedState(http.MethodGet, "/"), okHandler("ok"), mw)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.Status, "request %d within burst", i)
	}
}

func TestRateLimitHaltsOverBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Rate: 0.001, Burst: 1})
	defer rl.Close()

	mw := rl.Middleware()
	resp, err := runChain(t, seedState(http.MethodGet, "/"), okHandler("ok"), mw)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.Status)

	handlerRan := false
	resp, err = runChain(t, seedState(http.MethodGet, "/"), okHandler("ok"), mw,
		// Placed after the limiter to prove the halt short-circuits.
		markerMiddleware(&handlerRan))
	require.NoError(t, err)
	assert.Equal(t, 429, resp.Status)
	assert.False(t, handlerRan)
	assert.Contains(t, string(resp.Body), "Rate limit exceeded")
}

func TestRateLimitKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Rate: 0.001, Burst: 1})
	defer rl.Close()

	assert.True(t, rl.Allow("client-a"))
	assert.False(t, rl.Allow("client-a"))
	assert.True(t, rl.Allow("client-b"))
}

func TestRateLimitJanitorEvictsIdleKeys(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Rate: 1, Burst: 1, TTL: 10 * time.Millisecond})
	defer rl.Close()

	rl.Allow("idle-client")
	assert.Eventually(t, func() bool {
		rl.mu.Lock()
		defer rl.mu.Unlock()
		_, ok := rl.visitors["idle-client"]
		return !ok
	}, time.Second, 5*time.Millisecond)
}
