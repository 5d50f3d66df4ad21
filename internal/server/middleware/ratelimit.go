package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/haskel/benchfox/internal/config"
)

// maxClients bounds the number of tracked client buckets.
const maxClients = 10000

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter keeps a token bucket per client IP. Settings can be replaced
// at runtime with Update.
type Limiter struct {
	mu      sync.Mutex
	enabled bool
	rps     rate.Limit
	burst   int
	clients map[string]*bucket
	now     func() time.Time
}

func NewLimiter(cfg config.RateLimitConfig) *Limiter {
	l := &Limiter{now: time.Now}
	l.Update(cfg)
	return l
}

// Update applies new settings and forgets every client bucket.
func (l *Limiter) Update(cfg config.RateLimitConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.enabled = cfg.Enabled
	l.rps = rate.Limit(cfg.RequestsPerSecond)
	l.burst = cfg.Burst
	l.clients = make(map[string]*bucket)
}

// Allow reports whether a request from ip may proceed.
func (l *Limiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled {
		return true
	}

	b, ok := l.clients[ip]
	if !ok {
		if len(l.clients) >= maxClients {
			l.evictOldestLocked()
		}
		b = &bucket{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[ip] = b
	}
	b.lastSeen = l.now()

	return b.limiter.Allow()
}

// Cleanup drops buckets idle for longer than idle and returns how many
// were removed.
func (l *Limiter) Cleanup(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-idle)
	removed := 0
	for ip, b := range l.clients {
		if b.lastSeen.Before(cutoff) {
			delete(l.clients, ip)
			removed++
		}
	}
	return removed
}

func (l *Limiter) evictOldestLocked() {
	var (
		oldestIP string
		oldest   time.Time
	)
	for ip, b := range l.clients {
		if oldestIP == "" || b.lastSeen.Before(oldest) {
			oldestIP, oldest = ip, b.lastSeen
		}
	}
	delete(l.clients, oldestIP)
}

// RateLimit rejects requests over the client's rate with 429.
func RateLimit(l *Limiter) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(clientIP(r)) {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection address without its port.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
