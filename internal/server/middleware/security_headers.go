package middleware

import "net/http"

var securityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "no-referrer"},
	// progress snapshots and results go stale immediately
	{"Cache-Control", "no-store"},
}

// SecurityHeaders sets the fixed response headers of every API response.
// Event streams additionally disable proxy buffering.
func SecurityHeaders() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range securityHeaders {
				h.Set(kv[0], kv[1])
			}
			if r.Header.Get("Accept") == "text/event-stream" {
				h.Set("X-Accel-Buffering", "no")
			}

			next.ServeHTTP(w, r)
		})
	}
}
