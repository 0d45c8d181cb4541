package announcementhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/announcements"
	"ems/internal/domain/audit"
	"ems/internal/domain/auth"
	"ems/internal/domain/core"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Service interface {
	ListVisible(ctx context.Context, departmentID string, limit, offset int) ([]announcements.Announcement, int, error)
	ListAll(ctx context.Context, status string, limit, offset int) ([]announcements.Announcement, int, error)
	Get(ctx context.Context, id string) (*announcements.Announcement, error)
	Create(ctx context.Context, createdBy string, a announcements.Announcement) (*announcements.Announcement, announcements.Delivery, error)
	Update(ctx context.Context, id string, a announcements.Announcement) (*announcements.Announcement, error)
	Archive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type Directory interface {
	EmployeeDepartment(ctx context.Context, employeeID string) (string, error)
}

type Handler struct {
	Service   Service
	Directory Directory
	Audit     shared.AuditRecorder
	Now       func() time.Time
}

func NewHandler(service Service, directory Directory, recorder shared.AuditRecorder) *Handler {
	return &Handler{Service: service, Directory: directory, Audit: recorder, Now: time.Now}
}

var writers = []auth.Role{auth.RoleAdmin, auth.RoleHR}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/announcements", func(r chi.Router) {
		r.Use(middleware.RequireResolved)
		r.Get("/", h.handleListVisible)
		r.With(middleware.RequireRole(writers...)).Get("/all", h.handleListAll)
		r.With(middleware.RequireRole(writers...)).Post("/", h.handleCreate)
		r.Get("/{announcementID}", h.handleGet)
		r.With(middleware.RequireRole(writers...)).Put("/{announcementID}", h.handleUpdate)
		r.With(middleware.RequireRole(writers...)).Post("/{announcementID}/archive", h.handleArchive)
		r.With(middleware.RequireRole(writers...)).Delete("/{announcementID}", h.handleDelete)
	})
}

func writeError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, announcements.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "announcement not found", reqID)
	case errors.Is(err, announcements.ErrInvalid):
		api.Fail(w, http.StatusBadRequest, "invalid_announcement", err.Error(), reqID)
	default:
		slog.Warn(message, "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}

func (h *Handler) departmentOf(ctx context.Context, user auth.UserContext) string {
	if user.EmployeeID == "" || h.Directory == nil {
		return ""
	}
	dep, err := h.Directory.EmployeeDepartment(ctx, user.EmployeeID)
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		slog.Warn("announcement audience lookup failed", "employeeId", user.EmployeeID, "err", err)
	}
	return dep
}

func (h *Handler) handleListVisible(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePagination(r, 20, 100)
	items, total, err := h.Service.ListVisible(r.Context(), h.departmentOf(r.Context(), user), page.Limit, page.Offset)
	if err != nil {
		writeError(w, r, err, "announcement_list_failed", "failed to list announcements")
		return
	}
	api.Paged(w, items, total, page.Limit, page.Offset, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 20, 100)
	status := shared.QueryTrim(r, "status")
	v := shared.NewValidator()
	v.Enum("status", status, []string{announcements.StatusActive, announcements.StatusArchived, announcements.StatusExpired}, "unknown announcement status")
	if v.Reject(w, middleware.GetRequestID(r.Context())) {
		return
	}
	items, total, err := h.Service.ListAll(r.Context(), status, page.Limit, page.Offset)
	if err != nil {
		writeError(w, r, err, "announcement_list_failed", "failed to list announcements")
		return
	}
	api.Paged(w, items, total, page.Limit, page.Offset, middleware.GetRequestID(r.Context()))
}

// handleGet hides announcements the caller's audience cannot see.
func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	a, err := h.Service.Get(r.Context(), chi.URLParam(r, "announcementID"))
	if err != nil {
		writeError(w, r, err, "announcement_get_failed", "failed to load announcement")
		return
	}
	if !user.Role.Privileged() && !announcements.IsVisible(*a, h.departmentOf(r.Context(), user), h.Now()) {
		writeError(w, r, announcements.ErrNotFound, "", "")
		return
	}
	api.Success(w, a, middleware.GetRequestID(r.Context()))
}

type announcementPayload struct {
	Title              string `json:"title" validate:"required,max=200"`
	Message            string `json:"message" validate:"required,max=10000"`
	Type               string `json:"type" validate:"omitempty,oneof=general policy event urgent"`
	Priority           string `json:"priority" validate:"omitempty,oneof=low normal high"`
	TargetAudience     string `json:"targetAudience" validate:"omitempty,oneof=all department"`
	TargetDepartmentID string `json:"targetDepartmentId" validate:"omitempty,uuid"`
	DeliveryMethod     string `json:"deliveryMethod" validate:"omitempty,oneof=in_app email push"`
	Status             string `json:"status" validate:"omitempty,oneof=active archived expired"`
	ExpiryDate         string `json:"expiryDate"`
}

func (h *Handler) bindAnnouncement(w http.ResponseWriter, r *http.Request) (announcements.Announcement, bool) {
	var payload announcementPayload
	if !shared.Bind(w, r, &payload) {
		return announcements.Announcement{}, false
	}
	a := announcements.Announcement{
		Title:              payload.Title,
		Message:            payload.Message,
		Type:               payload.Type,
		Priority:           payload.Priority,
		TargetAudience:     payload.TargetAudience,
		TargetDepartmentID: payload.TargetDepartmentID,
		DeliveryMethod:     payload.DeliveryMethod,
		Status:             payload.Status,
	}
	if payload.ExpiryDate != "" {
		v := shared.NewValidator()
		expiry, ok := v.Date("expiryDate", payload.ExpiryDate)
		if !ok {
			v.Reject(w, middleware.GetRequestID(r.Context()))
			return announcements.Announcement{}, false
		}
		a.ExpiryDate = &expiry
	}
	return a, true
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	a, ok := h.bindAnnouncement(w, r)
	if !ok {
		return
	}

	created, delivery, err := h.Service.Create(r.Context(), user.ActorID(), a)
	if err != nil {
		writeError(w, r, err, "announcement_create_failed", "failed to create announcement")
		return
	}

	shared.RecordAudit(h.Audit, r, user, audit.ActionAnnouncementWrite, "announcement", created.ID, nil, created)
	api.Created(w, map[string]any{"announcement": created, "delivery": delivery}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "announcementID")
	a, ok := h.bindAnnouncement(w, r)
	if !ok {
		return
	}

	before, err := h.Service.Update(r.Context(), id, a)
	if err != nil {
		writeError(w, r, err, "announcement_update_failed", "failed to update announcement")
		return
	}

	shared.RecordAudit(h.Audit, r, user, audit.ActionAnnouncementWrite, "announcement", id, before, a)
	api.Success(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "announcementID")
	if err := h.Service.Archive(r.Context(), id); err != nil {
		writeError(w, r, err, "announcement_archive_failed", "failed to archive announcement")
		return
	}
	shared.RecordAudit(h.Audit, r, user, audit.ActionAnnouncementWrite, "announcement", id, nil, map[string]string{"status": announcements.StatusArchived})
	api.Success(w, map[string]string{"id": id, "status": announcements.StatusArchived}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	id := chi.URLParam(r, "announcementID")
	if err := h.Service.Delete(r.Context(), id); err != nil {
		writeError(w, r, err, "announcement_delete_failed", "failed to delete announcement")
		return
	}
	shared.RecordAudit(h.Audit, r, user, audit.ActionAnnouncementWrite, "announcement", id, nil, nil)
	w.WriteHeader(http.StatusNoContent)
}
