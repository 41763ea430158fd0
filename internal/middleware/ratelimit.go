// Package middleware holds the chi middleware of the API: authentication,
// rate limiting, security headers, request logging and panic recovery.
package middleware

import (
	"math"
	"net"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/constants"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils"
	"github.com/yasinhessnawi1/SecureTransfer_Backend/internal/utils/ratelimit"
)

// RateLimit throttles a route per client IP with the bucket of category.
// The IP is taken from RemoteAddr. Behind a trusted proxy, run
// chimiddleware.RealIP first so RemoteAddr holds the forwarded client.
func RateLimit(store *ratelimit.Store, category string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == constants.HealthPath || r.URL.Path == constants.VersionPath {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			limiter := store.GetLimiter(ip, category)
			if limiter.Allow() {
				next.ServeHTTP(w, r)
				return
			}

			retry := limiter.RetryAfter()
			log.Warn().
				Str("client_ip", ip).
				Str("category", category).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("retry_after", retry).
				Msg("Rate limit exceeded")
			utils.TooManyRequests(w, int(math.Ceil(retry.Seconds())))
		})
	}
}

// clientIP strips the port from RemoteAddr. RealIP leaves a bare address.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
