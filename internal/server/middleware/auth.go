package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
)

// AuthConfig holds the basic-auth credentials. It is shared between the
// API and debug middlewares and updated in place on config reload.
type AuthConfig struct {
	mu       sync.RWMutex
	Enabled  bool
	User     string
	Password string
}

func (c *AuthConfig) Update(enabled bool, user, password string) {
	c.mu.Lock()
	c.Enabled = enabled
	c.User = user
	c.Password = password
	c.mu.Unlock()
}

func (c *AuthConfig) enabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.Enabled
}

// check compares the request's basic-auth credentials in constant time.
func (c *AuthConfig) check(r *http.Request) bool {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(c.User)) == 1
	passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(c.Password)) == 1
	return userMatch && passMatch
}

// pathSet matches exact paths and, for entries ending in "*", prefixes.
type pathSet struct {
	exact    map[string]bool
	prefixes []string
}

func newPathSet(paths []string) pathSet {
	ps := pathSet{exact: make(map[string]bool)}
	for _, p := range paths {
		if prefix, ok := strings.CutSuffix(p, "*"); ok {
			ps.prefixes = append(ps.prefixes, prefix)
		} else {
			ps.exact[p] = true
		}
	}
	return ps
}

func (ps pathSet) contains(path string) bool {
	if ps.exact[path] {
		return true
	}
	for _, prefix := range ps.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Auth requires basic auth on every path except excludePaths while the
// config is enabled.
func Auth(config *AuthConfig, excludePaths ...string) Middleware {
	public := newPathSet(excludePaths)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !config.enabled() || public.contains(r.URL.Path) || config.check(r) {
				next.ServeHTTP(w, r)
				return
			}
			unauthorized(w, "benchfox")
		})
	}
}

func unauthorized(w http.ResponseWriter, realm string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
	writeError(w, http.StatusUnauthorized, "unauthorized")
}
