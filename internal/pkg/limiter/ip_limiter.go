/*
Package limiter provides request rate limiting keyed by client IP address.

It uses the token bucket algorithm (rate.Limiter) per IP and a cleanup goroutine that
periodically removes idle limiters so the map does not grow without bound.
*/
package limiter

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"chatcast/internal/pkg/errs"
	"chatcast/internal/pkg/logx"
	"chatcast/internal/pkg/resp"
)

// cleanupInterval is how often idle limiters are swept.
const cleanupInterval = 3 * time.Minute

// IPRateLimiter implements a concurrency-safe rate limiter keyed by client IP address.
type IPRateLimiter struct {
	// name labels the limiter in logs.
	name string

	// mu is used to protect concurrent access to the limits map.
	mu sync.RWMutex

	// limits stores the map from client IP address to the *rate.Limiter instance.
	limits map[string]*rate.Limiter

	// r is the number of events allowed per second.
	r rate.Limit

	// b is the burst size (token bucket size).
	b int
}

// NewIPRateLimiter creates an IPRateLimiter allowing r events per second with burst b.
// The cleanup goroutine runs until ctx is cancelled.
func NewIPRateLimiter(ctx context.Context, name string, r rate.Limit, b int) *IPRateLimiter {
	i := &IPRateLimiter{
		name:   name,
		limits: make(map[string]*rate.Limiter),
		r:      r,
		b:      b,
	}

	go i.cleanUpVisitors(ctx)

	return i
}

// GetLimiter retrieves the rate limiter for the given IP address, creating it on first use.
// Double-checked locking keeps the common path on the read lock.
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.RLock()
	limiter, exists := i.limits[ip]
	i.mu.RUnlock()

	if exists {
		return limiter
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	limiter, exists = i.limits[ip]
	if !exists {
		limiter = rate.NewLimiter(i.r, i.b)
		i.limits[ip] = limiter
	}

	return limiter
}

// Allow reports whether a request from r may proceed.
func (i *IPRateLimiter) Allow(r *http.Request) bool {
	return i.GetLimiter(ClientIP(r)).Allow()
}

// Len returns the number of tracked IP addresses.
func (i *IPRateLimiter) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return len(i.limits)
}

// sweep drops every limiter whose bucket is full, i.e. the IP has been idle.
func (i *IPRateLimiter) sweep(now time.Time) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := 0
	for ip, limiter := range i.limits {
		if limiter.TokensAt(now) >= float64(limiter.Burst()) {
			delete(i.limits, ip)
			removed++
		}
	}
	return removed
}

func (i *IPRateLimiter) cleanUpVisitors(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed := i.sweep(now)
			logx.Logger().Debug().
				Str("limiter", i.name).
				Int("removed", removed).
				Int("active", i.Len()).
				Msg("Rate limiter cleanup finished.")
		}
	}
}

// Middleware returns an HTTP middleware that rejects requests over the limit with HTTP 429.
func (i *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !i.Allow(r) {
			logx.Warn("Request rejected: rate limit exceeded.", "limiter", i.name, "path", r.URL.Path)
			resp.RespondError(w, r, errs.NewError(errs.ErrRateLimitExceeded))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP extracts the host part of r.RemoteAddr. chi's RealIP middleware has already
// rewritten RemoteAddr from proxy headers when it is installed.
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}

	if ip == "" {
		ip = "unknown_ip"
	}

	return ip
}
