// internal/middleware/admin.go

package middleware

import (
	"crypto/subtle"
	"net/http"
)

// RequireAdmin guards an endpoint with a shared header/token pair. The
// header name and token value come from the environment; both master and
// workers use the same pair, so the coordinator can call worker endpoints
// by echoing its own credentials.
func RequireAdmin(header, token string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get(header)
			if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
