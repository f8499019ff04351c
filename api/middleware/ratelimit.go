package middleware

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/pongshipping/forwarding-backend/api/responses"
	pkgerrors "github.com/pongshipping/forwarding-backend/pkg/errors"
	"github.com/pongshipping/forwarding-backend/pkg/logger"
	pkgredis "github.com/pongshipping/forwarding-backend/pkg/redis"
)

const (
	publicRateLimit  = 60
	publicRateWindow = time.Minute
)

// PublicRateLimit throttles unauthenticated routes per client IP with a
// fixed window. The limiter fails open: if redis is down the request still
// goes through, a throttle is not worth an outage on the tracking page.
func PublicRateLimit(limiter pkgredis.RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			scope := "public:" + clientIP(r)
			allowed, count, err := limiter.FixedWindowAllow(r.Context(), scope, publicRateLimit, publicRateWindow)
			if err != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "rate limiter unavailable, letting request through")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				ctx := logg.WithFields(r.Context(), map[string]any{
					"scope": scope,
					"count": count,
				})
				logg.Warn(ctx, "public rate limit exceeded")
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimited, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
