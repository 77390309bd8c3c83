package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planforge/api/internal/config"
	"github.com/planforge/api/pkg/logger"
)

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	rl := NewRateLimiter(&config.RateLimitConfig{
		Enabled:         true,
		RequestsPerSec:  1,
		Burst:           3,
		CleanupInterval: time.Minute,
	}, logger.NewNop())
	defer rl.Stop()

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i+1)
		assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimiterTracksIPsSeparately(t *testing.T) {
	rl := NewRateLimiter(&config.RateLimitConfig{
		Enabled:         true,
		RequestsPerSec:  0.01,
		Burst:           1,
		CleanupInterval: time.Minute,
	}, logger.NewNop())
	defer rl.Stop()

	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(first, req)
	require.Equal(t, http.StatusOK, first.Code)

	blocked := httptest.NewRecorder()
	handler.ServeHTTP(blocked, req)
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)

	other := httptest.NewRecorder()
	otherReq := httptest.NewRequest(http.MethodGet, "/", nil)
	otherReq.RemoteAddr = "10.0.0.2:1234"
	handler.ServeHTTP(other, otherReq)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestRateLimitWithStopDisabled(t *testing.T) {
	mw, stop := RateLimitWithStop(&config.RateLimitConfig{Enabled: false}, logger.NewNop())
	defer stop()

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "192.168.1.5:4321",
			want:       "192.168.1.5",
		},
		{
			name:       "x-real-ip preferred",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Real-IP": "203.0.113.7"},
			want:       "203.0.113.7",
		},
		{
			name:       "first of x-forwarded-for",
			remoteAddr: "10.0.0.1:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"},
			want:       "203.0.113.7",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(req))
		})
	}
}

func TestUserKeyFunc(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	assert.Equal(t, "ip:10.0.0.9", UserKeyFunc(req))

	authed := req.WithContext(
		context.WithValue(req.Context(), UserIDKey, "user-42"))
	assert.Equal(t, "user:user-42", UserKeyFunc(authed))
}

func TestFailureTrackerBansAfterMaxFailures(t *testing.T) {
	ft := newFailureTracker(3, 15*time.Minute, 5*time.Minute, time.Minute, logger.NewNop())
	defer ft.Stop()

	assert.False(t, ft.RecordFailure("10.0.0.1"))
	assert.False(t, ft.RecordFailure("10.0.0.1"))
	assert.False(t, ft.IsBanned("10.0.0.1"))

	assert.True(t, ft.RecordFailure("10.0.0.1"))
	assert.True(t, ft.IsBanned("10.0.0.1"))

	// Other IPs are unaffected
	assert.False(t, ft.IsBanned("10.0.0.2"))
}

func TestFailureTrackerSuccessClearsRecord(t *testing.T) {
	ft := newFailureTracker(3, 15*time.Minute, 5*time.Minute, time.Minute, logger.NewNop())
	defer ft.Stop()

	ft.RecordFailure("10.0.0.1")
	ft.RecordFailure("10.0.0.1")
	ft.RecordSuccess("10.0.0.1")

	// Counter restarted, two more failures do not ban
	assert.False(t, ft.RecordFailure("10.0.0.1"))
	assert.False(t, ft.RecordFailure("10.0.0.1"))
	assert.False(t, ft.IsBanned("10.0.0.1"))
}

func TestLoginMiddlewareBansRepeatedFailures(t *testing.T) {
	cfg := DefaultAuthRateLimitConfig()
	cfg.LoginRatePerMin = 100 // keep the token bucket out of the way
	cfg.MaxFailures = 3
	arl := NewAuthRateLimiter(cfg, logger.NewNop())
	defer arl.Stop()

	rejectLogin := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	handler := arl.LoginMiddleware()(rejectLogin)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
