package shared

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type samplePayload struct {
	Email  string `json:"email" validate:"required,email"`
	Status string `json:"status" validate:"omitempty,oneof=active inactive"`
}

func TestValidatorStructUsesJSONNames(t *testing.T) {
	v := NewValidator()
	v.Struct(samplePayload{Email: "nope", Status: "gone"})
	issues := v.Issues()
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %+v", issues)
	}
	if issues[0].Field != "email" || issues[0].Reason != "must be a valid email" {
		t.Fatalf("unexpected issue %+v", issues[0])
	}
	if issues[1].Field != "status" || issues[1].Reason != "must be one of: active inactive" {
		t.Fatalf("unexpected issue %+v", issues[1])
	}
}

func TestBindRejectsInvalidPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
		ok   bool
	}{
		{name: "valid", body: `{"email":"a@example.com"}`, ok: true},
		{name: "unknown field", body: `{"email":"a@example.com","admin":true}`, want: http.StatusBadRequest},
		{name: "trailing data", body: `{"email":"a@example.com"}{}`, want: http.StatusBadRequest},
		{name: "validation", body: `{"email":""}`, want: http.StatusBadRequest},
		{name: "not json", body: `email=a`, want: http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tc.body))
			var payload samplePayload
			ok := Bind(rec, req, &payload)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v (%s)", tc.ok, ok, rec.Body.String())
			}
			if !tc.ok && rec.Code != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, rec.Code)
			}
		})
	}
}

func TestBindReportsFields(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"email":""}`))
	var payload samplePayload
	Bind(rec, req, &payload)

	var env struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []ValidationIssue `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "validation_error" || len(env.Error.Details.Fields) != 1 || env.Error.Details.Fields[0].Field != "email" {
		t.Fatalf("unexpected error %+v", env.Error)
	}
}

func TestDateOrder(t *testing.T) {
	v := NewValidator()
	start, _ := v.Date("startDate", "2024-03-10")
	end, _ := v.Date("endDate", "2024-03-01")
	v.DateOrder("startDate", start, "endDate", end)
	if len(v.Issues()) != 2 {
		t.Fatalf("expected ordering issues, got %+v", v.Issues())
	}
}

func TestParsePagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=500&offset=-3", nil)
	p := ParsePagination(req, 25, 100)
	if p.Limit != 100 || p.Offset != 0 {
		t.Fatalf("unexpected pagination %+v", p)
	}
}
