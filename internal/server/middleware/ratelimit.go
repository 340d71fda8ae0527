package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimit returns an HTTP middleware that limits requests per IP address
// to the specified number per minute. Zero disables the limit.
func RateLimit(requestsPerMinute int) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return passthrough
	}
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(limitExceeded),
	)
}

// RateLimitByIdentity limits requests per authenticated identity (per API
// key when the request used one). It must run after Authorize; requests
// without an identity fall back to the client IP.
func RateLimitByIdentity(requestsPerMinute int) func(http.Handler) http.Handler {
	if requestsPerMinute <= 0 {
		return passthrough
	}
	return httprate.Limit(
		requestsPerMinute,
		time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			id := GetIdentity(r.Context())
			if id == nil {
				return httprate.KeyByIP(r)
			}
			if id.KeyID != 0 {
				return "key:" + strconv.FormatInt(id.KeyID, 10), nil
			}
			return string(id.Kind) + ":" + strconv.FormatInt(id.ID, 10), nil
		}),
		httprate.WithLimitHandler(limitExceeded),
	)
}

func limitExceeded(w http.ResponseWriter, r *http.Request) {
	writeAuthError(w, http.StatusTooManyRequests, "Too many requests, please try again later")
}

func passthrough(next http.Handler) http.Handler { return next }
