package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCORSMiddleware_Preflight(t *testing.T) {
	s := newServer(nil, Config{CORSOrigin: "https://example.org"})
	called := false
	h := s.corsMiddleware(func(http.ResponseWriter, *http.Request) { called = true })

	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodOptions, "/decode", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, called)
	assert.Equal(t, "https://example.org", rr.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rr.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORSMiddleware_PassesStatus(t *testing.T) {
	s := newServer(nil, Config{CORSOrigin: "*"})
	h := s.corsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitMiddleware(t *testing.T) {
	s := newServer(nil, Config{RateLimit: RateLimitConfig{Enabled: true, RequestsPerMinute: 1, RequestsPerHour: 10}})
	require.NotNil(t, s.RateLimiter())

	calls := 0
	h := s.rateLimitMiddleware(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	req := func(ip string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/decode", strings.NewReader("{}"))
		r.Header.Set("X-Forwarded-For", ip)
		rr := httptest.NewRecorder()
		h(rr, r)
		return rr
	}

	assert.Equal(t, http.StatusOK, req("198.51.100.1").Code)

	rr := req("198.51.100.1")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "minute", rr.Header().Get("X-RateLimit-Type"))
	assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	body := decodeJSON[map[string]any](t, rr)
	assert.Equal(t, "rate_limit_exceeded", body["error"])

	assert.Equal(t, http.StatusOK, req("198.51.100.2").Code)
	assert.Equal(t, 2, calls)
	assert.Equal(t, int64(2), s.RateLimiter().GetUsage("198.51.100.1").BytesToday)
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	s := newServer(nil, Config{})
	assert.Nil(t, s.RateLimiter())

	calls := 0
	h := s.rateLimitMiddleware(func(http.ResponseWriter, *http.Request) { calls++ })
	for range 5 {
		h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	assert.Equal(t, 5, calls)
}

func TestHandleRateLimitError_Quota(t *testing.T) {
	s := newServer(nil, Config{})
	rr := httptest.NewRecorder()
	s.handleRateLimitError(rr, &QuotaExceededError{Type: "data", Limit: 100, Used: 100})

	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "data", rr.Header().Get("X-Quota-Type"))
	assert.Equal(t, "100", rr.Header().Get("X-Quota-Used"))
	body := decodeJSON[map[string]any](t, rr)
	assert.Equal(t, "quota_exceeded", body["error"])

	rr = httptest.NewRecorder()
	s.handleRateLimitError(rr, errors.New("unexpected"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		xff, xri   string
		remoteAddr string
		want       string
	}{
		{"forwarded chain", "203.0.113.5, 10.0.0.1", "", "192.0.2.1:1234", "203.0.113.5"},
		{"forwarded single", " 203.0.113.6 ", "", "192.0.2.1:1234", "203.0.113.6"},
		{"real ip", "", "203.0.113.7", "192.0.2.1:1234", "203.0.113.7"},
		{"remote addr", "", "", "192.0.2.1:1234", "192.0.2.1"},
		{"remote addr without port", "", "", "192.0.2.9", "192.0.2.9"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}
