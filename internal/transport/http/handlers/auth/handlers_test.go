package authhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/auth"
	"ems/internal/transport/http/middleware"
)

type stubSyncer struct {
	result auth.SyncResult
	err    error
	calls  int
}

func (s *stubSyncer) Sync(ctx context.Context, email, authID string) (auth.SyncResult, error) {
	s.calls++
	return s.result, s.err
}

type auditLog struct{ actions []string }

func (a *auditLog) Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error {
	a.actions = append(a.actions, action)
	return nil
}

func newRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.RegisterPublicRoutes(r)
	h.RegisterRoutes(r)
	return r
}

func postSync(t *testing.T, handler http.Handler, body, secret string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/sync", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(SyncSecretHeader, secret)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSyncRequiresSecret(t *testing.T) {
	hash, err := auth.HashSecret("hook-secret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	syncer := &stubSyncer{result: auth.SyncResult{Target: auth.SyncTargetEmployee, ID: "e1"}}
	handler := newRouter(NewHandler(syncer, hash, nil))

	body := `{"email":"jane@example.com","authId":"idp|1"}`
	if rec := postSync(t, handler, body, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without secret, got %d", rec.Code)
	}
	if rec := postSync(t, handler, body, "wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong secret, got %d", rec.Code)
	}
	if syncer.calls != 0 {
		t.Fatal("sync must not run without a valid secret")
	}
	if rec := postSync(t, handler, body, "hook-secret"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestSyncCreatedAndAudited(t *testing.T) {
	syncer := &stubSyncer{result: auth.SyncResult{Target: auth.SyncTargetAdmin, ID: "a1", Created: true}}
	audits := &auditLog{}
	handler := newRouter(NewHandler(syncer, "", audits))

	rec := postSync(t, handler, `{"email":"root@example.com","authId":"idp|2"}`, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var env struct {
		Data auth.SyncResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Target != auth.SyncTargetAdmin || env.Data.ID != "a1" {
		t.Fatalf("unexpected result %+v", env.Data)
	}
	if len(audits.actions) != 1 {
		t.Fatalf("expected one audit event, got %v", audits.actions)
	}
}

func TestSyncValidationAndFailure(t *testing.T) {
	syncer := &stubSyncer{err: errors.New("db down")}
	handler := newRouter(NewHandler(syncer, "", nil))

	if rec := postSync(t, handler, `{"email":"not-an-email","authId":"x"}`, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := postSync(t, handler, `{"email":"a@example.com","authId":"x"}`, ""); rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestSyncRelinkIsConflict(t *testing.T) {
	syncer := &stubSyncer{err: auth.ErrIdentityTaken}
	audits := &auditLog{}
	handler := newRouter(NewHandler(syncer, "", audits))

	rec := postSync(t, handler, `{"email":"jane@example.com","authId":"idp|other"}`, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if len(audits.actions) != 0 {
		t.Fatalf("expected no audit event, got %v", audits.actions)
	}
}

func TestMe(t *testing.T) {
	handler := newRouter(NewHandler(&stubSyncer{}, "", nil))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), auth.UserContext{AuthID: "idp|3", Role: auth.RoleManager, Matched: true}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	var env struct {
		Data meResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Role != auth.RoleManager || env.Data.DashboardPath != "/manager/dashboard" {
		t.Fatalf("unexpected me %+v", env.Data)
	}
}
