// internal/middleware/admin_test.go

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequireAdmin(t *testing.T) {
	ok := false
	h := RequireAdmin("x-admin-token", "secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok = true
	}))

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized || ok {
		t.Fatalf("expected 401 without header, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("x-admin-token", "wrong")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized || ok {
		t.Fatalf("expected 401 with wrong token, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("x-admin-token", "secret")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !ok {
		t.Fatalf("expected pass-through with correct token, got %d", w.Code)
	}
}

// TestRequireAdminEmptyToken: an unset token must fail closed, not open.
func TestRequireAdminEmptyToken(t *testing.T) {
	h := RequireAdmin("x-admin-token", "")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("x-admin-token", "")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 when no token is configured, got %d", w.Code)
	}
}
