package announcementhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/announcements"
	"ems/internal/domain/auth"
	"ems/internal/domain/core"
	"ems/internal/transport/http/middleware"
)

type fakeService struct {
	items       map[string]announcements.Announcement
	visibleDept string
	created     announcements.Announcement
	archived    string
}

func (f *fakeService) ListVisible(ctx context.Context, departmentID string, limit, offset int) ([]announcements.Announcement, int, error) {
	f.visibleDept = departmentID
	return []announcements.Announcement{}, 0, nil
}

func (f *fakeService) ListAll(ctx context.Context, status string, limit, offset int) ([]announcements.Announcement, int, error) {
	return []announcements.Announcement{}, 0, nil
}

func (f *fakeService) Get(ctx context.Context, id string) (*announcements.Announcement, error) {
	a, ok := f.items[id]
	if !ok {
		return nil, announcements.ErrNotFound
	}
	return &a, nil
}

func (f *fakeService) Create(ctx context.Context, createdBy string, a announcements.Announcement) (*announcements.Announcement, announcements.Delivery, error) {
	if a.TargetAudience == announcements.AudienceDepartment && a.TargetDepartmentID == "" {
		return nil, announcements.Delivery{}, announcements.ErrInvalid
	}
	a.ID = "a-new"
	a.CreatedBy = createdBy
	f.created = a
	return &a, announcements.Delivery{Method: announcements.DeliveryEmail, Recipients: 3, Sent: 2, Failed: 1}, nil
}

func (f *fakeService) Update(ctx context.Context, id string, a announcements.Announcement) (*announcements.Announcement, error) {
	return f.Get(ctx, id)
}

func (f *fakeService) Archive(ctx context.Context, id string) error {
	f.archived = id
	return nil
}

func (f *fakeService) Delete(ctx context.Context, id string) error {
	return announcements.ErrNotFound
}

type directory map[string]string

func (d directory) EmployeeDepartment(ctx context.Context, employeeID string) (string, error) {
	dep, ok := d[employeeID]
	if !ok {
		return "", core.ErrNotFound
	}
	return dep, nil
}

func newRouter(svc *fakeService) http.Handler {
	h := NewHandler(svc, directory{"e1": "d1"}, nil)
	h.Now = func() time.Time { return time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func do(handler http.Handler, method, target, body string, user auth.UserContext) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req = req.WithContext(middleware.WithUser(req.Context(), user))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func userWith(role auth.Role, employeeID string) auth.UserContext {
	return auth.UserContext{AuthID: "idp|" + employeeID, Role: role, EmployeeID: employeeID, Matched: true}
}

func TestVisibleListUsesCallerDepartment(t *testing.T) {
	svc := &fakeService{}
	rec := do(newRouter(svc), http.MethodGet, "/announcements", "", userWith(auth.RoleEmployee, "e1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.visibleDept != "d1" {
		t.Fatalf("expected department d1, got %q", svc.visibleDept)
	}
}

func TestGetHidesOtherAudiences(t *testing.T) {
	svc := &fakeService{items: map[string]announcements.Announcement{
		"own":     {ID: "own", Status: announcements.StatusActive, TargetAudience: announcements.AudienceDepartment, TargetDepartmentID: "d1"},
		"other":   {ID: "other", Status: announcements.StatusActive, TargetAudience: announcements.AudienceDepartment, TargetDepartmentID: "d2"},
		"archive": {ID: "archive", Status: announcements.StatusArchived, TargetAudience: announcements.AudienceAll},
	}}
	handler := newRouter(svc)
	employee := userWith(auth.RoleEmployee, "e1")

	if rec := do(handler, http.MethodGet, "/announcements/own", "", employee); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec := do(handler, http.MethodGet, "/announcements/other", "", employee); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for other department, got %d", rec.Code)
	}
	if rec := do(handler, http.MethodGet, "/announcements/archive", "", employee); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for archived, got %d", rec.Code)
	}
	if rec := do(handler, http.MethodGet, "/announcements/other", "", userWith(auth.RoleHR, "h1")); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for hr, got %d", rec.Code)
	}
}

func TestCreateReportsDelivery(t *testing.T) {
	svc := &fakeService{}
	handler := newRouter(svc)

	body := `{"title":"Office closed","message":"Friday","deliveryMethod":"email","expiryDate":"2026-04-01"}`
	if rec := do(handler, http.MethodPost, "/announcements", body, userWith(auth.RoleManager, "m1")); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for manager, got %d", rec.Code)
	}
	rec := do(handler, http.MethodPost, "/announcements", body, userWith(auth.RoleHR, "h1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var env struct {
		Data struct {
			Delivery announcements.Delivery `json:"delivery"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Data.Delivery.Failed != 1 || svc.created.ExpiryDate == nil {
		t.Fatalf("unexpected delivery %+v created %+v", env.Data.Delivery, svc.created)
	}
}

func TestCreateValidation(t *testing.T) {
	handler := newRouter(&fakeService{})
	hr := userWith(auth.RoleHR, "h1")

	cases := map[string]int{
		`{"title":"","message":"x"}`:                                http.StatusBadRequest,
		`{"title":"t","message":"x","priority":"critical"}`:         http.StatusBadRequest,
		`{"title":"t","message":"x","expiryDate":"soon"}`:           http.StatusBadRequest,
		`{"title":"t","message":"x","targetAudience":"department"}`: http.StatusBadRequest,
	}
	for body, want := range cases {
		if rec := do(handler, http.MethodPost, "/announcements", body, hr); rec.Code != want {
			t.Fatalf("%s: expected %d, got %d", body, want, rec.Code)
		}
	}
}

func TestArchiveAndDelete(t *testing.T) {
	svc := &fakeService{}
	handler := newRouter(svc)
	admin := userWith(auth.RoleAdmin, "")

	if rec := do(handler, http.MethodPost, "/announcements/a1/archive", "", admin); rec.Code != http.StatusOK || svc.archived != "a1" {
		t.Fatalf("archive failed: %d", rec.Code)
	}
	if rec := do(handler, http.MethodDelete, "/announcements/a1", "", admin); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
