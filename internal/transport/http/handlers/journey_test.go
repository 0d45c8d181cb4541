package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"ems/internal/app/server"
	"ems/internal/domain/auth"
	"ems/internal/domain/core"
	"ems/internal/platform/config"
	"ems/internal/transport/http/middleware"
)

const journeySecret = "journey-secret-0123456789abcdef0123"

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error any             `json:"error"`
}

func testConfig(dbURL string) config.Config {
	return config.Config{
		DatabaseURL:        dbURL,
		IdPJWTSecret:       journeySecret,
		FrontendDir:        "frontend/dist",
		Environment:        "test",
		AdminEmails:        []string{"admin@test.local"},
		EmailFrom:          "no-reply@test.local",
		RunMigrations:      true,
		MigrationsDir:      "../../../../migrations",
		RunSeed:            true,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
	}
}

func startApp(t *testing.T) (*server.App, *httptest.Server) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	app, err := server.New(context.Background(), testConfig(dbURL))
	if err != nil {
		t.Fatalf("failed to start app: %v", err)
	}
	ts := httptest.NewServer(app.Router)
	t.Cleanup(func() {
		ts.Close()
		app.Close()
	})
	return app, ts
}

func TestDepartmentManagerJourney(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()
	suffix := time.Now().UnixNano()
	admin := token(t, "idp|admin", "admin@test.local")

	var me map[string]any
	decode(t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/me", admin, nil, http.StatusOK), &me)
	if me["role"] != string(auth.RoleAdmin) {
		t.Fatalf("expected admin role, got %v", me["role"])
	}

	departmentID := createdID(t, doJSON(t, client, http.MethodPost, ts.URL+"/api/v1/departments", admin, map[string]any{
		"name": fmt.Sprintf("Journey %d", suffix),
	}, http.StatusCreated))

	managerEmail := fmt.Sprintf("lead-%d@example.com", suffix)
	memberEmail := fmt.Sprintf("member-%d@example.com", suffix)
	managerID := createEmployee(t, client, ts.URL, admin, managerEmail, departmentID)
	memberID := createEmployee(t, client, ts.URL, admin, memberEmail, departmentID)

	doJSON(t, client, http.MethodPut, ts.URL+"/api/v1/departments/"+departmentID, admin, map[string]any{
		"name":      fmt.Sprintf("Journey %d", suffix),
		"managerId": managerID,
	}, http.StatusOK)

	if got := roleName(t, app, managerID); got != core.RoleNameDepartmentManager {
		t.Fatalf("expected designated manager to hold %q, got %q", core.RoleNameDepartmentManager, got)
	}

	manager := token(t, "idp|lead-"+fmt.Sprint(suffix), managerEmail)
	decode(t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/me", manager, nil, http.StatusOK), &me)
	if me["role"] != string(auth.RoleManager) || me["employeeId"] != managerID {
		t.Fatalf("expected manager resolution for %s, got %v", managerID, me)
	}
	doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/departments/"+departmentID, manager, nil, http.StatusOK)

	member := token(t, "idp|member-"+fmt.Sprint(suffix), memberEmail)
	doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/departments/"+departmentID, member, nil, http.StatusForbidden)

	// A stray second holder is demoted the next time the department is viewed.
	if _, err := app.DB.Exec(context.Background(), `
    UPDATE employees SET role_id = (SELECT id FROM roles WHERE role_name = $1)
    WHERE id = $2
  `, core.RoleNameDepartmentManager, memberID); err != nil {
		t.Fatalf("failed to assign stray role: %v", err)
	}

	var detail struct {
		Members   []map[string]any    `json:"members"`
		Reconcile core.ReconcileResult `json:"reconcile"`
	}
	decode(t, doJSON(t, client, http.MethodGet, ts.URL+"/api/v1/departments/"+departmentID, admin, nil, http.StatusOK), &detail)
	if len(detail.Reconcile.Demoted) != 1 || detail.Reconcile.Demoted[0] != memberID {
		t.Fatalf("expected %s demoted, got %+v", memberID, detail.Reconcile)
	}
	if got := roleName(t, app, memberID); got != core.RoleNameEmployee {
		t.Fatalf("expected stray holder demoted to %q, got %q", core.RoleNameEmployee, got)
	}
	if len(detail.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(detail.Members))
	}
}

func TestUnknownIdentityIsRejected(t *testing.T) {
	_, ts := startApp(t)
	stranger := token(t, fmt.Sprintf("idp|stranger-%d", time.Now().UnixNano()), "stranger@nowhere.test")

	doJSON(t, ts.Client(), http.MethodGet, ts.URL+"/api/v1/employees", stranger, nil, http.StatusForbidden)
}

func TestLeaveRequestIsIdempotent(t *testing.T) {
	app, ts := startApp(t)
	client := ts.Client()
	suffix := time.Now().UnixNano()
	admin := token(t, "idp|admin", "admin@test.local")

	email := fmt.Sprintf("leaver-%d@example.com", suffix)
	createEmployee(t, client, ts.URL, admin, email, "")
	employee := token(t, fmt.Sprintf("idp|leaver-%d", suffix), email)

	var leaveTypeID string
	if err := app.DB.QueryRow(context.Background(), `SELECT id FROM leave_types WHERE code = 'AL'`).Scan(&leaveTypeID); err != nil {
		t.Fatalf("failed to load seeded leave type: %v", err)
	}

	body := map[string]any{
		"leaveTypeId": leaveTypeID,
		"startDate":   "2026-11-02",
		"endDate":     "2026-11-03",
		"reason":      "Family",
	}
	key := fmt.Sprintf("leave-%d", suffix)
	first := createdID(t, doJSONWithKey(t, client, ts.URL+"/api/v1/leave/requests", employee, key, body, http.StatusCreated))
	second := createdID(t, doJSONWithKey(t, client, ts.URL+"/api/v1/leave/requests", employee, key, body, http.StatusCreated))
	if first != second {
		t.Fatalf("expected replayed request %s, got %s", first, second)
	}

	body["reason"] = "Changed"
	doJSONWithKey(t, client, ts.URL+"/api/v1/leave/requests", employee, key, body, http.StatusConflict)
}

func token(t *testing.T, authID, email string) string {
	t.Helper()
	tok, err := auth.GenerateToken(journeySecret, authID, email, "", time.Hour)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return tok
}

func createEmployee(t *testing.T, client *http.Client, baseURL, token, email, departmentID string) string {
	t.Helper()
	return createdID(t, doJSON(t, client, http.MethodPost, baseURL+"/api/v1/employees", token, map[string]any{
		"firstName":      "Journey",
		"lastName":       "Tester",
		"email":          email,
		"departmentId":   departmentID,
		"status":         "active",
		"employmentType": "full_time",
	}, http.StatusCreated))
}

func roleName(t *testing.T, app *server.App, employeeID string) string {
	t.Helper()
	var name string
	err := app.DB.QueryRow(context.Background(), `
    SELECT COALESCE(r.role_name, '')
    FROM employees e
    LEFT JOIN roles r ON e.role_id = r.id
    WHERE e.id = $1
  `, employeeID).Scan(&name)
	if err != nil {
		t.Fatalf("failed to load role of %s: %v", employeeID, err)
	}
	return name
}

func createdID(t *testing.T, resp envelope) string {
	t.Helper()
	var payload map[string]any
	decode(t, resp, &payload)
	id, _ := payload["id"].(string)
	if id == "" {
		t.Fatal("expected id in response")
	}
	return id
}

func decode(t *testing.T, resp envelope, out any) {
	t.Helper()
	if err := json.Unmarshal(resp.Data, out); err != nil {
		t.Fatalf("failed to decode response data: %v", err)
	}
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any, want int) envelope {
	t.Helper()
	return send(t, client, method, url, token, "", body, want)
}

func doJSONWithKey(t *testing.T, client *http.Client, url, token, key string, body any, want int) envelope {
	t.Helper()
	return send(t, client, http.MethodPost, url, token, key, body, want)
}

func send(t *testing.T, client *http.Client, method, url, token, key string, body any, want int) envelope {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: token})
	}
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		t.Fatalf("%s %s: expected status %d, got %d: %s", method, url, want, resp.StatusCode, raw)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("failed to decode envelope: %v", err)
		}
	}
	return env
}
