package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "buckets are per client")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"))
}

func TestRateLimiter_Prune(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(5 * time.Minute)
	rl.Allow("b")
	now = now.Add(6 * time.Minute)

	assert.Equal(t, 1, rl.Prune())
	assert.Len(t, rl.visitors, 1)
}

func TestRateLimitMiddleware(t *testing.T) {
	calls := 0
	h := RateLimitMiddleware(NewRateLimiter(0.001, 1))(countingHandler(&calls))

	send := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send("/analyze"))
	assert.Equal(t, http.StatusTooManyRequests, send("/analyze"))
	assert.Equal(t, http.StatusNoContent, send("/health"))
	assert.Equal(t, 2, calls)
}

func TestClientIP_IgnoresForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "192.0.2.1", clientIP(req))
}

func TestRateLimitMiddleware_SpoofedForwardedForShareBucket(t *testing.T) {
	calls := 0
	h := RateLimitMiddleware(NewRateLimiter(0.001, 1))(countingHandler(&calls))

	send := func(fwd string) int {
		req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		req.Header.Set("X-Forwarded-For", fwd)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send("203.0.113.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("203.0.113.3"))
	assert.Equal(t, 1, calls)
}
