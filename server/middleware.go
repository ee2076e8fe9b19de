package server

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/juju/ratelimit"

	"github.com/giygas/tpn-api/config"
	"github.com/giygas/tpn-api/handlers"
	"github.com/giygas/tpn-api/logging"
	"github.com/giygas/tpn-api/metrics"
)

// RequestSizeMiddleware rejects oversized headers and caps the body at
// MaxRequestBody. A body without Content-Length is cut off by
// http.MaxBytesReader while the handler reads it.
func RequestSizeMiddleware(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > cfg.MaxRequestBody {
				logging.Warn("Request body too large",
					"content_length", r.ContentLength,
					"max_allowed", cfg.MaxRequestBody,
					"remote_addr", r.RemoteAddr)

				handlers.RespondWithError(w, r, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("Request body too large. Maximum allowed size is %d bytes", cfg.MaxRequestBody))
				return
			}

			// rough estimate, keys and values only
			var headerSize int64
			for key, values := range r.Header {
				headerSize += int64(len(key))
				for _, value := range values {
					headerSize += int64(len(value))
				}
			}
			if headerSize > cfg.MaxHeaderSize {
				logging.Warn("Request headers too large",
					"header_size", headerSize,
					"max_allowed", cfg.MaxHeaderSize,
					"remote_addr", r.RemoteAddr)

				handlers.RespondWithError(w, r, http.StatusRequestHeaderFieldsTooLarge,
					fmt.Sprintf("Request headers too large. Maximum allowed size is %d bytes", cfg.MaxHeaderSize))
				return
			}

			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxRequestBody)
			}
			next.ServeHTTP(w, r)
		})
	}
}

type client struct {
	bucket   *ratelimit.Bucket
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client IP
type RateLimiter struct {
	rate     int64
	capacity int64
	now      func() time.Time

	mu      sync.Mutex
	clients map[string]*client
}

// NewRateLimiter creates a limiter refilling rate tokens per second up to
// capacity
func NewRateLimiter(rate, capacity int64) *RateLimiter {
	return &RateLimiter{
		rate:     rate,
		capacity: capacity,
		now:      time.Now,
		clients:  make(map[string]*client),
	}
}

func (rl *RateLimiter) getBucket(clientIP string) *ratelimit.Bucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	c, ok := rl.clients[clientIP]
	if !ok {
		c = &client{bucket: ratelimit.NewBucketWithRate(float64(rl.rate), rl.capacity)}
		rl.clients[clientIP] = c
		metrics.RateLimiterBuckets.Set(float64(len(rl.clients)))
	}
	c.lastSeen = rl.now()
	return c.bucket
}

// Prune drops clients whose bucket has refilled or that have been idle
// longer than idle, and returns how many were dropped
func (rl *RateLimiter) Prune(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-idle)
	removed := 0
	for ip, c := range rl.clients {
		if c.bucket.Available() >= c.bucket.Capacity() || c.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
			removed++
		}
	}
	metrics.RateLimiterBuckets.Set(float64(len(rl.clients)))
	return removed
}

// Len returns the number of tracked clients
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// tokenCost weighs a request; calculations cost the most. No route may
// cost more than config.MaxRequestCost.
func tokenCost(r *http.Request) int64 {
	path := r.URL.Path

	switch {
	case path == "/health" || path == "/metrics":
		return 5
	case path == "/v1/calculations":
		return config.MaxRequestCost
	case path == "/v1/validations":
		return 10
	case path == "/v1/solutions" || strings.HasPrefix(path, "/v1/solutions/"):
		return 5
	}
	return 10
}

// Middleware enforces the per-client budget
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bucket := rl.getBucket(clientIP(r))
		cost := tokenCost(r)

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(rl.capacity, 10))
		w.Header().Set("X-RateLimit-Rate", strconv.FormatInt(rl.rate, 10))

		if bucket.TakeAvailable(cost) < cost {
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", strconv.FormatInt(max(1, cost/rl.rate), 10))
			handlers.RespondWithError(w, r, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}

		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(bucket.Available(), 10))
		next.ServeHTTP(w, r)
	})
}

// clientIP strips the port from RemoteAddr when present
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
