// Per-client limiter for expensive admin endpoints such as regenerate.
package api

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimiter allows a fixed number of requests per client per window.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	period  time.Duration
	now     func() time.Time
}

type window struct {
	used  int
	start time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per period.
func NewRateLimiter(limit int, period time.Duration) *RateLimiter {
	return &RateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		period:  period,
		now:     time.Now,
	}
}

// Allow reports whether client may make another request, and counts it if so.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	w, ok := rl.windows[client]
	if !ok || now.Sub(w.start) >= rl.period {
		rl.windows[client] = &window{used: 1, start: now}
		return true
	}
	if w.used < rl.limit {
		w.used++
		return true
	}
	return false
}

// RetryAfter returns the seconds until client's window resets.
func (rl *RateLimiter) RetryAfter(client string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[client]
	if !ok {
		return 0
	}
	remaining := rl.period - rl.now().Sub(w.start)
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

// sweep drops expired windows once the table grows. Caller holds mu.
func (rl *RateLimiter) sweep(now time.Time) {
	if len(rl.windows) < 256 {
		return
	}
	for client, w := range rl.windows {
		if now.Sub(w.start) > 2*rl.period {
			delete(rl.windows, client)
		}
	}
}

// clientIP returns the first X-Forwarded-For address, or the remote host.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// RateLimitMiddleware wraps a handler with rate limiting. Returns 429 if exceeded.
func RateLimitMiddleware(rl *RateLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !rl.Allow(ip) {
			w.Header().Set("Retry-After", strconv.Itoa(rl.RetryAfter(ip)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}
