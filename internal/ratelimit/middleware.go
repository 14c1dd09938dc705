package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/webshop-works/checkout/internal/common"
)

// Config describes how to derive a limit key and the window thresholds.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler enforces a rate limit before delegating to the next handler.
// Limiter failures fail open: an unreachable Redis must not take the cart
// API down with it.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

// SessionKey derives a limit key from the session header or cookie,
// falling back to the remote address for shoppers without a session yet.
func SessionKey(header, cookie string) func(*http.Request) string {
	return func(r *http.Request) string {
		if id := r.Header.Get(header); id != "" {
			return id
		}
		if c, err := r.Cookie(cookie); err == nil && c.Value != "" {
			return c.Value
		}
		return r.RemoteAddr
	}
}

// Middleware implements the http.Handler middleware interface.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Config.Key == nil {
			next.ServeHTTP(w, r)
			return
		}
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), h.Config.Key(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		limit := h.Config.Max
		if limit < 0 {
			limit = 0
		}
		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
