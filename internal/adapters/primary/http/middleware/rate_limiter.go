package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyFunc picks the bucket a request is charged to. An empty key falls back
// to the client IP.
type KeyFunc func(r *http.Request) string

// RateLimiterConfig configures a token-bucket limiter.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	// TTL is how long an idle bucket is kept.
	TTL time.Duration
	Key KeyFunc
}

// RateLimiter keeps one token bucket per key.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	limit rate.Limit
	burst int
	ttl   time.Duration
	key   KeyFunc
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter whose idle buckets are swept until ctx is
// cancelled.
func NewRateLimiter(ctx context.Context, cfg RateLimiterConfig) *RateLimiter {
	if cfg.TTL <= 0 {
		cfg.TTL = 3 * time.Minute
	}
	if cfg.Key == nil {
		cfg.Key = ClientIPKey
	}
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.BurstSize,
		ttl:     cfg.TTL,
		key:     cfg.Key,
	}
	go rl.sweep(ctx)
	return rl
}

// Allow takes a token from the key's bucket.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow()
}

func (rl *RateLimiter) sweep(ctx context.Context) {
	ticker := time.NewTicker(rl.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, b := range rl.buckets {
				if now.Sub(b.lastSeen) > rl.ttl {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Middleware rejects requests whose bucket is empty with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := rl.key(r)
		if key == "" {
			key = ClientIPKey(r)
		}
		if !rl.Allow(key) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"Too many requests. Please try again later.","code":"RATE_LIMITED"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClientIPKey charges the caller's address.
func ClientIPKey(r *http.Request) string {
	return "ip:" + getClientIP(r)
}

// TenantKey charges the authenticated tenant, so every member of a tenant
// shares one bucket.
func TenantKey(r *http.Request) string {
	if claims, ok := GetClaims(r.Context()); ok {
		return "tenant:" + claims.TenantID.String()
	}
	return ""
}

// getClientIP prefers the proxy headers over RemoteAddr.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		first = strings.TrimSpace(first)
		if host, _, err := net.SplitHostPort(first); err == nil {
			return host
		}
		return first
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
