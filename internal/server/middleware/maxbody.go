package middleware

import (
	"fmt"
	"net/http"
)

// MaxBodySize is the default request body limit.
const MaxBodySize = 1 << 20

// MaxBody limits request bodies to maxSize bytes (MaxBodySize when 0).
// A declared Content-Length over the limit is rejected with 413 before
// the handler runs; otherwise the handler sees an *http.MaxBytesError
// when it reads past the limit.
func MaxBody(maxSize int64) Middleware {
	if maxSize <= 0 {
		maxSize = MaxBodySize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch:
			default:
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > maxSize {
				writeError(w, http.StatusRequestEntityTooLarge,
					fmt.Sprintf("request body exceeds %d bytes", maxSize))
				return
			}

			r.Body = http.MaxBytesReader(w, r.Body, maxSize)
			next.ServeHTTP(w, r)
		})
	}
}
