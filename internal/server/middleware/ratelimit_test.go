package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/haskel/benchfox/internal/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func request(handler http.Handler, remote, xff string) int {
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.RemoteAddr = remote
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_Disabled(t *testing.T) {
	handler := RateLimit(NewLimiter(config.RateLimitConfig{Enabled: false}))(okHandler())

	for i := 0; i < 100; i++ {
		if code := request(handler, "10.0.0.1:1234", ""); code != http.StatusOK {
			t.Errorf("request %d: expected status 200, got %d", i, code)
		}
	}
}

func TestRateLimit_RejectsExcessRequests(t *testing.T) {
	handler := RateLimit(NewLimiter(config.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		Burst:             2,
	}))(okHandler())

	for i := 0; i < 2; i++ {
		if code := request(handler, "10.0.0.1:1234", ""); code != http.StatusOK {
			t.Errorf("burst request %d: expected status 200, got %d", i, code)
		}
	}

	if code := request(handler, "10.0.0.1:1234", ""); code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", code)
	}
}

func TestRateLimit_SeparateBucketsPerClient(t *testing.T) {
	handler := RateLimit(NewLimiter(config.RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 1,
		Burst:             1,
	}))(okHandler())

	if code := request(handler, "10.0.0.1:1111", ""); code != http.StatusOK {
		t.Errorf("expected status 200, got %d", code)
	}
	// same host, different port
	if code := request(handler, "10.0.0.1:2222", ""); code != http.StatusTooManyRequests {
		t.Errorf("expected status 429, got %d", code)
	}
	if code := request(handler, "10.0.0.2:1111", ""); code != http.StatusOK {
		t.Errorf("expected status 200 for another client, got %d", code)
	}
}

func TestLimiter_UpdateResetsBuckets(t *testing.T) {
	l := NewLimiter(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 1})

	if !l.Allow("a") {
		t.Fatal("expected first request allowed")
	}
	if l.Allow("a") {
		t.Fatal("expected second request rejected")
	}

	l.Update(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 3})
	for i := 0; i < 3; i++ {
		if !l.Allow("a") {
			t.Errorf("request %d: expected allowed after update", i)
		}
	}

	l.Update(config.RateLimitConfig{Enabled: false})
	for i := 0; i < 10; i++ {
		if !l.Allow("a") {
			t.Errorf("request %d: expected allowed when disabled", i)
		}
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l := NewLimiter(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 10})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("shared") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 10 {
		t.Errorf("expected 10 allowed requests, got %d", allowed)
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 1})
	l.now = func() time.Time { return now }

	l.Allow("old")
	now = now.Add(time.Hour)
	l.Allow("new")

	if removed := l.Cleanup(30 * time.Minute); removed != 1 {
		t.Errorf("expected 1 bucket removed, got %d", removed)
	}
	if _, ok := l.clients["new"]; !ok {
		t.Error("expected recent bucket kept")
	}
}

func TestLimiter_EvictOldest(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLimiter(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1, Burst: 1})
	l.now = func() time.Time { return now }

	l.Allow("first")
	for i := 0; i < 3; i++ {
		now = now.Add(time.Second)
		l.clients[string(rune('a'+i))] = &bucket{lastSeen: now}
	}

	l.evictOldestLocked()

	if _, ok := l.clients["first"]; ok {
		t.Error("expected oldest bucket evicted")
	}
	if len(l.clients) != 3 {
		t.Errorf("expected 3 buckets, got %d", len(l.clients))
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		expected   string
	}{
		{"remote addr", "192.168.1.1:12345", "", "", "192.168.1.1"},
		{"x-forwarded-for", "10.0.0.1:1", "203.0.113.7", "", "203.0.113.7"},
		{"x-forwarded-for chain", "10.0.0.1:1", "203.0.113.7, 10.0.0.2", "", "203.0.113.7"},
		{"x-real-ip", "10.0.0.1:1", "", "198.51.100.4", "198.51.100.4"},
		{"no port", "unix", "", "", "unix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			if got := clientIP(req); got != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, got)
			}
		})
	}
}
