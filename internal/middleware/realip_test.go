package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrustedProxies_ClientIP(t *testing.T) {
	tp, err := NewTrustedProxies([]string{"10.0.0.0/8", "127.0.0.1", ""})
	require.NoError(t, err)

	tests := []struct {
		name   string
		remote string
		fwd    []string
		want   string
	}{
		{"untrusted peer keeps its address", "192.0.2.1:1234", []string{"203.0.113.9"}, "192.0.2.1"},
		{"trusted peer without header", "10.1.2.3:80", nil, "10.1.2.3"},
		{"trusted peer forwards client", "10.1.2.3:80", []string{"203.0.113.9"}, "203.0.113.9"},
		{"rightmost untrusted hop wins", "127.0.0.1:80", []string{"198.51.100.1, 203.0.113.9, 10.0.0.5"}, "203.0.113.9"},
		{"repeated headers are joined", "10.1.2.3:80", []string{"198.51.100.1", "203.0.113.9"}, "203.0.113.9"},
		{"garbage hop stops the walk", "10.1.2.3:80", []string{"not-an-ip"}, "10.1.2.3"},
		{"all hops trusted", "10.1.2.3:80", []string{"10.9.9.9"}, "10.1.2.3"},
		{"ipv6 peer untrusted", "[2001:db8::1]:443", []string{"203.0.113.9"}, "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for _, v := range tt.fwd {
				req.Header.Add("X-Forwarded-For", v)
			}
			assert.Equal(t, tt.want, tp.ClientIP(req))
		})
	}
}

func TestTrustedProxies_NilTrustsNobody(t *testing.T) {
	var tp *TrustedProxies
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:80"
	req.Header.Set("X-Forwarded-For", "203.0.113.9")

	assert.Equal(t, "10.1.2.3", tp.ClientIP(req))
}

func TestNewTrustedProxies_Invalid(t *testing.T) {
	_, err := NewTrustedProxies([]string{"10.0.0.0/33"})
	assert.Error(t, err)
	_, err = NewTrustedProxies([]string{"proxy.internal"})
	assert.Error(t, err)
}

func TestRealIP_FeedsRateLimiter(t *testing.T) {
	tp, err := NewTrustedProxies([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	calls := 0
	h := RealIP(tp)(RateLimitMiddleware(NewRateLimiter(0.001, 1))(countingHandler(&calls)))

	send := func(remote, fwd string) int {
		req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
		req.RemoteAddr = remote
		req.Header.Set("X-Forwarded-For", fwd)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	// behind the proxy each client gets its own bucket
	assert.Equal(t, http.StatusNoContent, send("10.0.0.2:80", "203.0.113.1"))
	assert.Equal(t, http.StatusNoContent, send("10.0.0.2:80", "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.2:80", "203.0.113.1"))

	// a direct caller cannot pick its bucket through the header
	assert.Equal(t, http.StatusNoContent, send("192.0.2.50:80", "203.0.113.3"))
	assert.Equal(t, http.StatusTooManyRequests, send("192.0.2.50:80", "203.0.113.4"))
	assert.Equal(t, 3, calls)
}
