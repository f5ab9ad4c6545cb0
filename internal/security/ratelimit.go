package security

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter is a fixed-window limiter keyed by client
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rate     int           // requests per window
	window   time.Duration // time window
	now      func() time.Time
}

type visitor struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter creates a new rate limiter allowing rate requests per window
func NewRateLimiter(rate int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		window:   window,
		now:      time.Now,
	}
}

// Allow reports whether a request from key fits in its current window
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	v, exists := rl.visitors[key]
	if !exists || now.Sub(v.lastRefill) >= rl.window {
		v = &visitor{tokens: rl.rate, lastRefill: now}
		rl.visitors[key] = v
	}

	if v.tokens > 0 {
		v.tokens--
		return true
	}
	return false
}

// Run evicts idle visitors every interval until ctx is done
func (rl *RateLimiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.evict()
		}
	}
}

func (rl *RateLimiter) evict() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, v := range rl.visitors {
		if now.Sub(v.lastRefill) > rl.window*2 {
			delete(rl.visitors, key)
		}
	}
}

// Middleware rejects clients over their limit with 429
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(ClientIP(r)) {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the host part of the request's remote address. Proxy
// headers are resolved into RemoteAddr by the router's RealIP middleware.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
