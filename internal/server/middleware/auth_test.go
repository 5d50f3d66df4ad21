package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Error
}

func TestAuth(t *testing.T) {
	config := &AuthConfig{Enabled: true, User: "admin", Password: "secret"}
	handler := Auth(config, "/health", "/debug/*")(okHandler())

	tests := []struct {
		name     string
		path     string
		user     string
		password string
		expected int
	}{
		{"valid credentials", "/api/status", "admin", "secret", http.StatusOK},
		{"wrong password", "/api/status", "admin", "wrong", http.StatusUnauthorized},
		{"wrong user", "/api/status", "root", "secret", http.StatusUnauthorized},
		{"no credentials", "/api/benchmark", "", "", http.StatusUnauthorized},
		{"excluded path", "/health", "", "", http.StatusOK},
		{"excluded prefix", "/debug/pprof/heap", "", "", http.StatusOK},
		{"prefix is not exact", "/healthz", "", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.password)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, w.Code)
			}
		})
	}
}

func TestAuth_UnauthorizedResponse(t *testing.T) {
	config := &AuthConfig{Enabled: true, User: "admin", Password: "secret"}
	handler := Auth(config)(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/results", nil))

	if got := w.Header().Get("WWW-Authenticate"); got != `Basic realm="benchfox"` {
		t.Errorf("expected benchfox realm, got %q", got)
	}
	if got := errorBody(t, w); got != "unauthorized" {
		t.Errorf("expected error 'unauthorized', got %q", got)
	}
}

func TestAuth_Update(t *testing.T) {
	config := &AuthConfig{}
	handler := Auth(config)(okHandler())

	serve := func(user, password string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/models", nil)
		if user != "" {
			req.SetBasicAuth(user, password)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	if code := serve("", ""); code != http.StatusOK {
		t.Errorf("disabled: expected status 200, got %d", code)
	}

	config.Update(true, "bench", "fox")
	if code := serve("", ""); code != http.StatusUnauthorized {
		t.Errorf("enabled: expected status 401, got %d", code)
	}
	if code := serve("bench", "fox"); code != http.StatusOK {
		t.Errorf("new credentials: expected status 200, got %d", code)
	}

	config.Update(false, "", "")
	if code := serve("", ""); code != http.StatusOK {
		t.Errorf("disabled again: expected status 200, got %d", code)
	}
}
