package attendancehandler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/attendance"
	"ems/internal/domain/audit"
	"ems/internal/domain/auth"
	"ems/internal/domain/core"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Service interface {
	List(ctx context.Context, filter attendance.Filter) ([]attendance.Record, int, error)
	GetRecord(ctx context.Context, recordID string) (*attendance.Record, error)
	Summary(ctx context.Context, employeeID string, from, to time.Time) (attendance.Summary, error)
	DepartmentSummary(ctx context.Context, departmentID string, from, to time.Time) ([]attendance.Summary, error)
	Regularize(ctx context.Context, recordID, status, reason string) (*attendance.Record, error)
	WriteMonthlyReport(ctx context.Context, w io.Writer, employeeID, month string) error
}

// Directory answers which department an employee belongs to.
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

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/attendance", func(r chi.Router) {
		r.Use(middleware.RequireResolved)
		r.Get("/", h.handleList)
		r.Get("/summary", h.handleSummary)
		r.Get("/report.pdf", h.handleReport)
		r.With(middleware.RequireRole(auth.RoleAdmin, auth.RoleHR, auth.RoleManager)).
			Get("/departments/{departmentID}/summary", h.handleDepartmentSummary)
		r.With(middleware.RequireRole(auth.RoleAdmin, auth.RoleHR, auth.RoleManager)).
			Post("/{recordID}/regularize", h.handleRegularize)
	})
}

func writeError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, attendance.ErrNotFound), errors.Is(err, core.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", reqID)
	case errors.Is(err, attendance.ErrInvalidRange):
		api.Fail(w, http.StatusBadRequest, "invalid_range", "invalid date range", reqID)
	case errors.Is(err, attendance.ErrInvalidStatus):
		api.Fail(w, http.StatusBadRequest, "invalid_status", "invalid attendance status", reqID)
	default:
		slog.Warn(message, "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}

func forbidden(w http.ResponseWriter, r *http.Request) {
	api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", middleware.GetRequestID(r.Context()))
}

// ownDepartment returns the caller's department, "" when unassigned.
func (h *Handler) ownDepartment(ctx context.Context, user auth.UserContext) (string, error) {
	if user.EmployeeID == "" {
		return "", nil
	}
	dep, err := h.Directory.EmployeeDepartment(ctx, user.EmployeeID)
	if errors.Is(err, core.ErrNotFound) {
		return "", nil
	}
	return dep, err
}

// canSeeEmployee applies the employee visibility rules to attendance data.
func (h *Handler) canSeeEmployee(ctx context.Context, user auth.UserContext, employeeID string) (bool, error) {
	if user.Role.Privileged() || (user.EmployeeID != "" && user.EmployeeID == employeeID) {
		return true, nil
	}
	if user.Role != auth.RoleManager {
		return false, nil
	}
	own, err := h.ownDepartment(ctx, user)
	if err != nil || own == "" {
		return false, err
	}
	target, err := h.Directory.EmployeeDepartment(ctx, employeeID)
	if err != nil {
		return false, err
	}
	return target == own, nil
}

func (h *Handler) canSeeDepartment(ctx context.Context, user auth.UserContext, departmentID string) (bool, error) {
	if user.Role.Privileged() {
		return true, nil
	}
	if user.Role != auth.RoleManager {
		return false, nil
	}
	own, err := h.ownDepartment(ctx, user)
	if err != nil {
		return false, err
	}
	return own != "" && own == departmentID, nil
}

// dateRange reads month=YYYY-MM, or from/to, defaulting to the current month
// up to today.
func (h *Handler) dateRange(r *http.Request) (time.Time, time.Time, bool) {
	if month := shared.QueryTrim(r, "month"); month != "" {
		from, to, err := attendance.MonthRange(month)
		return from, to, err == nil
	}
	from, err := shared.ParseDate(shared.QueryTrim(r, "from"))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	to, err := shared.ParseDate(shared.QueryTrim(r, "to"))
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	defaultFrom, defaultTo := attendance.CurrentMonth(h.Now())
	if from.IsZero() {
		from = defaultFrom
	}
	if to.IsZero() {
		to = defaultTo
	}
	return from, to, true
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 50, 200)

	from, err := shared.ParseDate(shared.QueryTrim(r, "from"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_date", "from must be a date", reqID)
		return
	}
	to, err := shared.ParseDate(shared.QueryTrim(r, "to"))
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_date", "to must be a date", reqID)
		return
	}
	filter := attendance.Filter{
		EmployeeID:   shared.QueryTrim(r, "employeeId"),
		DepartmentID: shared.QueryTrim(r, "departmentId"),
		From:         from,
		To:           to,
		Limit:        page.Limit,
		Offset:       page.Offset,
	}

	switch user.Role {
	case auth.RoleAdmin, auth.RoleHR:
	case auth.RoleManager:
		own, err := h.ownDepartment(r.Context(), user)
		if err != nil {
			writeError(w, r, err, "attendance_list_failed", "failed to list attendance")
			return
		}
		if own == "" {
			filter.EmployeeID, filter.DepartmentID = user.EmployeeID, ""
		} else {
			filter.DepartmentID = own
		}
	default:
		filter.EmployeeID, filter.DepartmentID = user.EmployeeID, ""
	}
	if filter.EmployeeID == "" && filter.DepartmentID == "" && !user.Role.Privileged() {
		api.Paged(w, []attendance.Record{}, 0, page.Limit, page.Offset, reqID)
		return
	}

	records, total, err := h.Service.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err, "attendance_list_failed", "failed to list attendance")
		return
	}
	api.Paged(w, records, total, page.Limit, page.Offset, reqID)
}

func (h *Handler) targetEmployee(w http.ResponseWriter, r *http.Request, user auth.UserContext) (string, bool) {
	employeeID := shared.QueryTrim(r, "employeeId")
	if employeeID == "" {
		employeeID = user.EmployeeID
	}
	if employeeID == "" {
		api.Fail(w, http.StatusBadRequest, "employee_required", "employeeId is required", middleware.GetRequestID(r.Context()))
		return "", false
	}
	ok, err := h.canSeeEmployee(r.Context(), user, employeeID)
	if err != nil {
		writeError(w, r, err, "attendance_lookup_failed", "failed to check access")
		return "", false
	}
	if !ok {
		forbidden(w, r)
		return "", false
	}
	return employeeID, true
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID, ok := h.targetEmployee(w, r, user)
	if !ok {
		return
	}
	from, to, ok := h.dateRange(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_range", "invalid date range", middleware.GetRequestID(r.Context()))
		return
	}

	summary, err := h.Service.Summary(r.Context(), employeeID, from, to)
	if err != nil {
		writeError(w, r, err, "attendance_summary_failed", "failed to summarise attendance")
		return
	}
	api.Success(w, summary, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDepartmentSummary(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	departmentID := chi.URLParam(r, "departmentID")
	ok, err := h.canSeeDepartment(r.Context(), user, departmentID)
	if err != nil {
		writeError(w, r, err, "attendance_lookup_failed", "failed to check access")
		return
	}
	if !ok {
		forbidden(w, r)
		return
	}
	from, to, ok := h.dateRange(r)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_range", "invalid date range", middleware.GetRequestID(r.Context()))
		return
	}

	summaries, err := h.Service.DepartmentSummary(r.Context(), departmentID, from, to)
	if err != nil {
		writeError(w, r, err, "attendance_summary_failed", "failed to summarise attendance")
		return
	}
	api.Success(w, summaries, middleware.GetRequestID(r.Context()))
}

type regularizePayload struct {
	Status string `json:"status" validate:"required,oneof=present absent late half_day leave holiday weekoff"`
	Reason string `json:"reason" validate:"required,max=500"`
}

func (h *Handler) handleRegularize(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	recordID := chi.URLParam(r, "recordID")
	var payload regularizePayload
	if !shared.Bind(w, r, &payload) {
		return
	}

	record, err := h.Service.GetRecord(r.Context(), recordID)
	if err != nil {
		writeError(w, r, err, "attendance_regularize_failed", "failed to regularize attendance")
		return
	}
	ok, err := h.canSeeDepartment(r.Context(), user, record.DepartmentID)
	if err != nil {
		writeError(w, r, err, "attendance_regularize_failed", "failed to regularize attendance")
		return
	}
	if !ok || (user.EmployeeID != "" && record.EmployeeID == user.EmployeeID) {
		forbidden(w, r)
		return
	}

	before, err := h.Service.Regularize(r.Context(), recordID, payload.Status, payload.Reason)
	if err != nil {
		writeError(w, r, err, "attendance_regularize_failed", "failed to regularize attendance")
		return
	}

	shared.RecordAudit(h.Audit, r, user, audit.ActionAttendanceAdjust, "attendance", recordID,
		map[string]string{"status": before.Status}, payload)
	api.Success(w, map[string]string{"id": recordID, "status": payload.Status}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID, ok := h.targetEmployee(w, r, user)
	if !ok {
		return
	}
	month := shared.QueryTrim(r, "month")
	if month == "" {
		month = h.Now().Format("2006-01")
	}

	var buf bytes.Buffer
	if err := h.Service.WriteMonthlyReport(r.Context(), &buf, employeeID, month); err != nil {
		writeError(w, r, err, "attendance_report_failed", "failed to build attendance report")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=attendance-"+month+".pdf")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("attendance report write failed", "err", err)
	}
}
