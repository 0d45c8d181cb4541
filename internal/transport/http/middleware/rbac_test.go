package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ems/internal/domain/auth"
)

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	guarded := RequireRole(auth.RoleAdmin, auth.RoleHR)(ok)

	cases := []struct {
		name string
		user *auth.UserContext
		want int
	}{
		{"anonymous", nil, http.StatusUnauthorized},
		{"hr", &auth.UserContext{Role: auth.RoleHR, Matched: true}, http.StatusNoContent},
		{"manager", &auth.UserContext{Role: auth.RoleManager, Matched: true}, http.StatusForbidden},
		{"unknown identity", &auth.UserContext{Role: auth.RoleEmployee}, http.StatusForbidden},
		{"lookup failed", &auth.UserContext{Role: auth.RoleEmployee, Degraded: true}, http.StatusServiceUnavailable},
		{"degraded but matched", &auth.UserContext{Role: auth.RoleAdmin, Matched: true, Degraded: true}, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/employees", nil)
			if tc.user != nil {
				req = req.WithContext(WithUser(req.Context(), *tc.user))
			}
			rec := httptest.NewRecorder()
			guarded.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req = req.WithContext(WithUser(req.Context(), auth.UserContext{AuthID: "x"}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
