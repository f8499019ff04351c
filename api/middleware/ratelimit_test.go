package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pongshipping/forwarding-backend/pkg/logger"
)

type stubRateLimiter struct {
	allowed bool
	count   int64
	err     error
	scopes  []string
}

func (s *stubRateLimiter) FixedWindowAllow(_ context.Context, scope string, _ int64, _ time.Duration) (bool, int64, error) {
	s.scopes = append(s.scopes, scope)
	return s.allowed, s.count, s.err
}

func rateLimitFixture(limiter *stubRateLimiter, calls *int) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test"})
	return PublicRateLimit(limiter, logg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.WriteHeader(http.StatusOK)
	}))
}

func TestPublicRateLimitAllowsUnderLimit(t *testing.T) {
	calls := 0
	limiter := &stubRateLimiter{allowed: true, count: 1}
	handler := rateLimitFixture(limiter, &calls)

	req := httptest.NewRequest(http.MethodGet, "/api/public/track/TRK1A2B3C4D", nil)
	req.RemoteAddr = "203.0.113.9:51442"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, calls)
	require.Equal(t, []string{"public:203.0.113.9"}, limiter.scopes)
}

func TestPublicRateLimitRejectsOverLimit(t *testing.T) {
	calls := 0
	limiter := &stubRateLimiter{allowed: false, count: 61}
	handler := rateLimitFixture(limiter, &calls)

	req := httptest.NewRequest(http.MethodGet, "/api/public/track/TRK1A2B3C4D", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Zero(t, calls)
	require.Contains(t, rec.Body.String(), "RATE_LIMITED")
}

func TestPublicRateLimitFailsOpen(t *testing.T) {
	calls := 0
	limiter := &stubRateLimiter{err: errors.New("redis down")}
	handler := rateLimitFixture(limiter, &calls)

	req := httptest.NewRequest(http.MethodGet, "/api/public/track/TRK1A2B3C4D", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, calls)
}

func TestPublicRateLimitPrefersForwardedFor(t *testing.T) {
	calls := 0
	limiter := &stubRateLimiter{allowed: true}
	handler := rateLimitFixture(limiter, &calls)

	req := httptest.NewRequest(http.MethodGet, "/api/public/track/TRK1A2B3C4D", nil)
	req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, []string{"public:198.51.100.7"}, limiter.scopes)
}
