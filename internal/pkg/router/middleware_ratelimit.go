package router

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/0xmonas/cobbee/internal/pkg/ratelimit"
)

const (
	// HeaderRateLimitLimit reports the tier budget.
	HeaderRateLimitLimit = "X-RateLimit-Limit"
	// HeaderRateLimitRemaining reports requests left in the current window.
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	// HeaderRateLimitReset reports when the window resets, as a Unix timestamp.
	HeaderRateLimitReset = "X-RateLimit-Reset"
)

// RateLimit returns a middleware admitting requests under the given tier
// budget, keyed by client IP. Limiter backend failures are logged and the
// request follows the limiter's fail-open policy rather than erroring.
func RateLimit(limiter ratelimit.Limiter, tier ratelimit.Tier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, err := limiter.Allow(r.Context(), tier, r.RemoteAddr)
			if err != nil {
				slog.WarnContext(r.Context(), "rate limiter backend failure",
					"tier", tier.String(),
					"client", r.RemoteAddr,
					"allowed", res.Allowed,
					"error", err,
				)
			}

			w.Header().Set(HeaderRateLimitLimit, strconv.Itoa(res.Limit))
			w.Header().Set(HeaderRateLimitRemaining, strconv.Itoa(res.Remaining))
			w.Header().Set(HeaderRateLimitReset, strconv.FormatInt(res.ResetAt.Unix(), 10))

			if !res.Allowed {
				retryAfter := int(res.RetryAfter / time.Second)
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeJSON(w, errorResponse{Message: "Too many requests, please retry later"},
					http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
