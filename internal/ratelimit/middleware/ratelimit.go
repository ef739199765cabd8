// Package middleware applies rate limits to HTTP routes.
package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"privacore/internal/platform/middleware"
	"privacore/internal/ratelimit/store"
	"privacore/internal/transport/http/shared"
	dErrors "privacore/pkg/domain-errors"
)

// Limit enforces limit requests per window against the authenticated
// user, falling back to the client IP for unauthenticated calls. The
// store failing open would silently disable the limit, so store errors
// reject the request instead.
func Limit(buckets store.BucketStore, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			key := middleware.GetUser(ctx)
			if key == "" {
				key = clientIP(r)
			}

			result, err := buckets.Allow(ctx, key, limit, window)
			if err != nil {
				logger.ErrorContext(ctx, "rate limit check failed",
					"request_id", middleware.GetRequestID(ctx),
					"error", err.Error(),
				)
				shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "rate limit unavailable"))
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

			if !result.Allowed {
				retryAfter := int(time.Until(result.ResetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				shared.WriteError(w, dErrors.New(dErrors.CodeTooManyRequests, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
