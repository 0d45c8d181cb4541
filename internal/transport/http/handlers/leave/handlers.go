package leavehandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/audit"
	"ems/internal/domain/auth"
	"ems/internal/domain/core"
	"ems/internal/domain/leave"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

const createEndpoint = "leave.requests.create"

type Service interface {
	ListTypes(ctx context.Context) ([]leave.LeaveType, error)
	CreateType(ctx context.Context, payload leave.LeaveType) (string, error)
	ListRequests(ctx context.Context, actor leave.Actor, filter leave.RequestFilter) ([]leave.LeaveRequest, int, error)
	GetRequest(ctx context.Context, actor leave.Actor, requestID string) (*leave.LeaveRequest, error)
	CreateRequest(ctx context.Context, employeeID string, in leave.CreateRequestInput) (*leave.LeaveRequest, error)
	Decide(ctx context.Context, actor leave.Actor, requestID string, approve bool, remarks string) (*leave.LeaveRequest, error)
	Cancel(ctx context.Context, actor leave.Actor, requestID string) (*leave.LeaveRequest, error)
}

type Directory interface {
	EmployeeDepartment(ctx context.Context, employeeID string) (string, error)
}

// Idempotency is satisfied by *middleware.IdempotencyStore.
type Idempotency interface {
	Check(ctx context.Context, actorID, endpoint, key, requestHash string) (json.RawMessage, bool, error)
	Save(ctx context.Context, actorID, endpoint, key, requestHash string, response json.RawMessage) error
}

type Handler struct {
	Service     Service
	Directory   Directory
	Idempotency Idempotency
	Audit       shared.AuditRecorder
}

func NewHandler(service Service, directory Directory, idem Idempotency, recorder shared.AuditRecorder) *Handler {
	return &Handler{Service: service, Directory: directory, Idempotency: idem, Audit: recorder}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.Use(middleware.RequireResolved)
		r.Get("/types", h.handleListTypes)
		r.With(middleware.RequireRole(auth.RoleAdmin, auth.RoleHR)).Post("/types", h.handleCreateType)
		r.Get("/requests", h.handleListRequests)
		r.Post("/requests", h.handleCreateRequest)
		r.Get("/requests/{requestID}", h.handleGetRequest)
		r.With(middleware.RequireRole(auth.RoleAdmin, auth.RoleHR, auth.RoleManager)).
			Post("/requests/{requestID}/approve", h.handleDecide(true))
		r.With(middleware.RequireRole(auth.RoleAdmin, auth.RoleHR, auth.RoleManager)).
			Post("/requests/{requestID}/reject", h.handleDecide(false))
		r.Post("/requests/{requestID}/cancel", h.handleCancel)
	})
}

func writeError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, leave.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "leave record not found", reqID)
	case errors.Is(err, leave.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", reqID)
	case errors.Is(err, leave.ErrInvalidState):
		api.Fail(w, http.StatusConflict, "invalid_state", "leave request is no longer pending", reqID)
	case errors.Is(err, leave.ErrOverlap):
		api.Fail(w, http.StatusConflict, "leave_overlap", "overlaps an existing leave request", reqID)
	case errors.Is(err, leave.ErrExceedsLimit):
		api.Fail(w, http.StatusBadRequest, "leave_limit_exceeded", "request exceeds the leave type limit", reqID)
	case errors.Is(err, leave.ErrInvalidRange):
		api.Fail(w, http.StatusBadRequest, "invalid_range", "end date before start date", reqID)
	default:
		slog.Warn(message, "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}

func (h *Handler) actor(ctx context.Context, user auth.UserContext) leave.Actor {
	actor := leave.Actor{
		ID:         user.ActorID(),
		EmployeeID: user.EmployeeID,
		Privileged: user.Role.Privileged(),
		Manager:    user.Role == auth.RoleManager,
	}
	if actor.Manager && user.EmployeeID != "" && h.Directory != nil {
		dep, err := h.Directory.EmployeeDepartment(ctx, user.EmployeeID)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			slog.Warn("manager department lookup failed", "employeeId", user.EmployeeID, "err", err)
		}
		actor.DepartmentID = dep
	}
	return actor
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Service.ListTypes(r.Context())
	if err != nil {
		writeError(w, r, err, "leave_types_failed", "failed to list leave types")
		return
	}
	api.Success(w, types, middleware.GetRequestID(r.Context()))
}

type leaveTypePayload struct {
	Name    string `json:"name" validate:"required,max=80"`
	Code    string `json:"code" validate:"required,max=10"`
	MaxDays int    `json:"maxDays" validate:"min=0,max=366"`
	IsPaid  bool   `json:"isPaid"`
}

func (h *Handler) handleCreateType(w http.ResponseWriter, r *http.Request) {
	var payload leaveTypePayload
	if !shared.Bind(w, r, &payload) {
		return
	}
	id, err := h.Service.CreateType(r.Context(), leave.LeaveType{
		Name:    payload.Name,
		Code:    payload.Code,
		MaxDays: payload.MaxDays,
		IsPaid:  payload.IsPaid,
	})
	if err != nil {
		writeError(w, r, err, "leave_type_create_failed", "failed to create leave type")
		return
	}
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePagination(r, 50, 200)
	filter := leave.RequestFilter{
		EmployeeID:   shared.QueryTrim(r, "employeeId"),
		DepartmentID: shared.QueryTrim(r, "departmentId"),
		Status:       shared.QueryTrim(r, "status"),
		Limit:        page.Limit,
		Offset:       page.Offset,
	}
	v := shared.NewValidator()
	v.Enum("status", filter.Status, []string{leave.StatusPending, leave.StatusApproved, leave.StatusRejected, leave.StatusCancelled}, "unknown leave status")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}

	requests, total, err := h.Service.ListRequests(r.Context(), h.actor(r.Context(), user), filter)
	if err != nil {
		writeError(w, r, err, "leave_list_failed", "failed to list leave requests")
		return
	}
	api.Paged(w, requests, total, page.Limit, page.Offset, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	req, err := h.Service.GetRequest(r.Context(), h.actor(r.Context(), user), chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, err, "leave_get_failed", "failed to load leave request")
		return
	}
	api.Success(w, req, middleware.GetRequestID(r.Context()))
}

type createRequestPayload struct {
	LeaveTypeID string `json:"leaveTypeId" validate:"required,uuid"`
	StartDate   string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string `json:"endDate" validate:"required,datetime=2006-01-02"`
	StartHalf   bool   `json:"startHalf"`
	EndHalf     bool   `json:"endHalf"`
	Reason      string `json:"reason" validate:"max=1000"`
}

// handleCreateRequest files leave for the caller. A repeated Idempotency-Key
// with the same body replays the first response.
func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	if user.EmployeeID == "" {
		api.Fail(w, http.StatusForbidden, "not_an_employee", "only employees can request leave", reqID)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", reqID)
			return
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "unable to read payload", reqID)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	idempotencyKey := r.Header.Get(middleware.IdempotencyHeader)
	requestHash := middleware.RequestHash(body)
	if idempotencyKey != "" && h.Idempotency != nil {
		stored, found, err := h.Idempotency.Check(r.Context(), user.ActorID(), createEndpoint, idempotencyKey, requestHash)
		if errors.Is(err, middleware.ErrIdempotencyConflict) {
			api.Fail(w, http.StatusConflict, "idempotency_conflict", "idempotency key reused with a different payload", reqID)
			return
		}
		if err != nil {
			log.Printf("idempotency check failed: %v", err)
		}
		if found {
			api.Created(w, stored, reqID)
			return
		}
	}

	var payload createRequestPayload
	if !shared.Bind(w, r, &payload) {
		return
	}
	v := shared.NewValidator()
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.CreateRequest(r.Context(), user.EmployeeID, leave.CreateRequestInput{
		LeaveTypeID: payload.LeaveTypeID,
		StartDate:   start,
		EndDate:     end,
		StartHalf:   payload.StartHalf,
		EndHalf:     payload.EndHalf,
		Reason:      payload.Reason,
	})
	if err != nil {
		writeError(w, r, err, "leave_create_failed", "failed to create leave request")
		return
	}

	if idempotencyKey != "" && h.Idempotency != nil {
		if encoded, err := json.Marshal(created); err == nil {
			if err := h.Idempotency.Save(r.Context(), user.ActorID(), createEndpoint, idempotencyKey, requestHash, encoded); err != nil {
				log.Printf("idempotency save failed: %v", err)
			}
		}
	}
	api.Created(w, created, reqID)
}

type decisionPayload struct {
	Remarks string `json:"remarks" validate:"max=1000"`
}

func (h *Handler) handleDecide(approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := middleware.GetUser(r.Context())
		requestID := chi.URLParam(r, "requestID")
		var payload decisionPayload
		if r.ContentLength != 0 && !shared.Bind(w, r, &payload) {
			return
		}

		decided, err := h.Service.Decide(r.Context(), h.actor(r.Context(), user), requestID, approve, payload.Remarks)
		if err != nil {
			writeError(w, r, err, "leave_decide_failed", "failed to decide leave request")
			return
		}

		shared.RecordAudit(h.Audit, r, user, audit.ActionLeaveDecide, "leave_request", requestID,
			map[string]string{"status": leave.StatusPending}, map[string]string{"status": decided.Status, "remarks": decided.Remarks})
		api.Success(w, decided, middleware.GetRequestID(r.Context()))
	}
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	cancelled, err := h.Service.Cancel(r.Context(), h.actor(r.Context(), user), chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, r, err, "leave_cancel_failed", "failed to cancel leave request")
		return
	}
	api.Success(w, cancelled, middleware.GetRequestID(r.Context()))
}
