package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ems/internal/domain/auth"
)

type stubResolver struct {
	res   auth.Resolution
	calls int
}

func (s *stubResolver) Resolve(ctx context.Context, authID, email string) auth.Resolution {
	s.calls++
	return s.res
}

type countingRecorder struct{ degraded, total int }

func (c *countingRecorder) RecordResolution(degraded bool) {
	c.total++
	if degraded {
		c.degraded++
	}
}

func TestAuthMiddlewareSetsUser(t *testing.T) {
	secret := "test-secret"
	token, err := auth.GenerateToken(secret, "idp|u1", "Jane@Example.com", "", time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	resolver := &stubResolver{res: auth.Resolution{Role: auth.RoleHR, Matched: true, Source: auth.SourceHR}}
	recorder := &countingRecorder{}

	var seen auth.UserContext
	handler := Auth(secret, "", resolver, recorder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := GetUser(r.Context())
		if !ok {
			t.Fatal("expected user in context")
		}
		seen = user
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen.AuthID != "idp|u1" || seen.Email != "jane@example.com" || seen.Role != auth.RoleHR || !seen.Matched {
		t.Fatalf("unexpected user: %+v", seen)
	}
	if recorder.total != 1 {
		t.Fatalf("expected one recorded resolution, got %d", recorder.total)
	}
}

func TestAuthMiddlewareReadsCookie(t *testing.T) {
	secret := "test-secret"
	token, _ := auth.GenerateToken(secret, "idp|u2", "a@example.com", "", time.Hour)
	resolver := &stubResolver{res: auth.Resolution{Role: auth.RoleEmployee, Matched: true}}

	found := false
	handler := Auth(secret, "", resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = GetUser(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/employee/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: AccessTokenCookie, Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if !found {
		t.Fatal("expected user from cookie")
	}
}

func TestAuthMiddlewareMissingOrInvalidToken(t *testing.T) {
	resolver := &stubResolver{}
	handler := Auth("secret", "", resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); ok {
			t.Fatal("did not expect user in context")
		}
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if resolver.calls != 0 {
		t.Fatalf("resolver should not run without a valid token, ran %d times", resolver.calls)
	}
}
