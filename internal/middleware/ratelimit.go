package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"dreamreel/internal/telemetry"
)

// SubmitLimiter is the slice of the token bucket this middleware needs.
type SubmitLimiter interface {
	Allow(ctx context.Context, accountID string) (bool, error)
}

// RateLimit throttles requests per authenticated account. A nil limiter
// disables throttling. Limiter errors fail open so a Redis outage cannot
// block submissions; the error is logged instead.
func RateLimit(limiter SubmitLimiter, l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}
			accountID := AccountIDFromContext(r.Context())
			if accountID == "" {
				next.ServeHTTP(w, r)
				return
			}
			allowed, err := limiter.Allow(r.Context(), accountID)
			if err != nil {
				l.Warn().Err(err).Str("account_id", accountID).Msg("ratelimit: check failed, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				telemetry.RateLimitRejects.Inc()
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
