package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// DebugAuthConfig protects the pprof and debug routes.
type DebugAuthConfig struct {
	// Token enables bearer auth and takes precedence over the fallback.
	Token string

	FallbackAuthConfig *AuthConfig
}

// DebugAuth admits a request carrying the bearer token, or the API's basic
// auth credentials when no token is set. With neither configured every
// request is refused.
func DebugAuth(config *DebugAuthConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if config.Token != "" {
				if !checkBearerToken(r, config.Token) {
					writeError(w, http.StatusForbidden, "debug endpoints require a valid token")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			fallback := config.FallbackAuthConfig
			if fallback == nil || !fallback.enabled() {
				writeError(w, http.StatusForbidden, "debug authentication is not configured")
				return
			}
			if !fallback.check(r) {
				unauthorized(w, "benchfox-debug")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func checkBearerToken(r *http.Request, expected string) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}
