package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"ems/internal/domain/auth"
)

func TestDecide(t *testing.T) {
	admin := &auth.UserContext{Role: auth.RoleAdmin, Matched: true}
	hr := &auth.UserContext{Role: auth.RoleHR, Matched: true}
	manager := &auth.UserContext{Role: auth.RoleManager, Matched: true}
	employee := &auth.UserContext{Role: auth.RoleEmployee, Matched: true}
	unknown := &auth.UserContext{Role: auth.RoleEmployee}
	degraded := &auth.UserContext{Role: auth.RoleEmployee, Degraded: true}

	cases := []struct {
		name     string
		path     string
		user     *auth.UserContext
		status   int
		location string
	}{
		{"public root", "/", nil, 0, ""},
		{"login page", "/login", nil, 0, ""},
		{"static asset", "/assets/app.js", nil, 0, ""},
		{"api left to handlers", "/api/v1/employees", nil, 0, ""},
		{"anonymous scoped", "/hr/employees", nil, http.StatusFound, LoginPath},
		{"unknown identity", "/employee/dashboard", unknown, http.StatusFound, UnauthorizedPath},
		{"lookup failed", "/employee/dashboard", degraded, http.StatusServiceUnavailable, ""},
		{"admin everywhere", "/manager/team", admin, 0, ""},
		{"hr in hr", "/hr/employees", hr, 0, ""},
		{"hr self service", "/employee/leave", hr, 0, ""},
		{"hr not admin", "/admin/roles", hr, http.StatusFound, "/hr/dashboard"},
		{"manager not hr", "/hr/employees", manager, http.StatusFound, "/manager/dashboard"},
		{"employee not manager", "/manager/team", employee, http.StatusFound, "/employee/dashboard"},
		{"dashboard alias", "/dashboard", manager, http.StatusFound, "/manager/dashboard"},
		{"dashboard alias anonymous", "/dashboard", nil, http.StatusFound, LoginPath},
		{"prefix is not a territory", "/hrportal", employee, 0, ""},
		{"root file is public", "/favicon.ico", nil, 0, ""},
		{"dotted admin page anonymous", "/admin/users.v2", nil, http.StatusFound, LoginPath},
		{"dotted admin page employee", "/admin/users.v2", employee, http.StatusFound, "/employee/dashboard"},
		{"dotted hr page anonymous", "/hr/employees/jane.doe", nil, http.StatusFound, LoginPath},
		{"dotted hr page manager", "/hr/employees/jane.doe", manager, http.StatusFound, "/manager/dashboard"},
		{"dotted page in own territory", "/hr/reports/q1.pdf", hr, 0, ""},
		{"dot segments cleaned", "/employee/../admin/roles", employee, http.StatusFound, "/employee/dashboard"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := Decide(tc.path, tc.user)
			if v.Status != tc.status || v.Location != tc.location {
				t.Fatalf("expected %d %q, got %d %q", tc.status, tc.location, v.Status, v.Location)
			}
		})
	}
}

func TestGatekeeperRedirectsAndServes(t *testing.T) {
	handler := Gatekeeper(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != LoginPath {
		t.Fatalf("expected redirect to login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	req := httptest.NewRequest(http.MethodGet, "/employee/dashboard", nil)
	req = req.WithContext(WithUser(req.Context(), auth.UserContext{Degraded: true}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 503 with Retry-After, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil)
	req = req.WithContext(WithUser(req.Context(), auth.UserContext{Role: auth.RoleAdmin, Matched: true}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected page to be served, got %d", rec.Code)
	}
}
