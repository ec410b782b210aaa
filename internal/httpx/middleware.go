// Package httpx holds the HTTP middleware shared by every route: request IDs,
// access logging, CORS, body and time limits, and rate limiting.
package httpx

import (
	"net/http"
	"time"
)

// Middleware wraps an http.Handler. Chain applies left to right, so the first
// middleware listed is the outermost.
type Middleware func(http.Handler) http.Handler

func Chain(h http.Handler, m ...Middleware) http.Handler {
	for i := len(m) - 1; i >= 0; i-- {
		h = m[i](h)
	}
	return h
}

// WithBodyLimit caps request bodies. Booking and slot payloads are a few
// hundred bytes; the largest body this API ever sees is a webhook event, and
// the webhook handler caps its read again independently.
func WithBodyLimit(limitBytes int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, limitBytes)
			next.ServeHTTP(w, r)
		})
	}
}

const timeoutBody = `{"error":"request timed out"}`

// WithTimeout aborts handling after d with a 503. Safe on every route here:
// the payment processor retries a timed-out webhook delivery, and all other
// requests are idempotent reads or client-retryable writes.
func WithTimeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, timeoutBody)
	}
}
