package httputil

import (
	"context"
	"net"
	"net/http"

	"github.com/bissquit/job-garden/internal/pkg/metrics"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// RateLimitMiddleware rejects requests over the limit with 429.
// Requests are keyed by route name and client IP; a nil limiter disables limiting.
func RateLimitMiddleware(limiter Limiter, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(r.Context(), route+":"+clientIP(r)) {
				metrics.RateLimited.WithLabelValues(route).Inc()
				w.Header().Set("Retry-After", "60")
				Error(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP returns the request's remote host. RealIP middleware has
// already rewritten RemoteAddr from proxy headers when present.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
