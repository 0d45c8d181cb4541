package corehandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/audit"
	"ems/internal/domain/auth"
	"ems/internal/domain/core"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

// Service is the part of *core.Service the handlers use.
type Service interface {
	ListEmployees(ctx context.Context, user auth.UserContext, filter core.EmployeeFilter) ([]core.Employee, int, error)
	AllEmployees(ctx context.Context, filter core.EmployeeFilter) ([]core.Employee, error)
	GetEmployee(ctx context.Context, user auth.UserContext, employeeID string) (*core.Employee, error)
	CreateEmployee(ctx context.Context, emp core.Employee) (string, error)
	UpdateEmployee(ctx context.Context, actorID, employeeID string, emp core.Employee) (*core.Employee, error)
	DeactivateEmployee(ctx context.Context, employeeID string) error
	EmployeeDepartment(ctx context.Context, employeeID string) (string, error)

	DepartmentCount(ctx context.Context) (int, error)
	ListDepartments(ctx context.Context, limit, offset int) ([]core.Department, error)
	DepartmentDetail(ctx context.Context, actorID, departmentID string) (*core.DepartmentDetail, error)
	CreateDepartment(ctx context.Context, actorID string, dep core.Department) (string, error)
	UpdateDepartment(ctx context.Context, actorID, departmentID string, dep core.Department) (*core.Department, *core.ReconcileResult, error)
	DeleteDepartment(ctx context.Context, departmentID string) error
	ReconcileDepartment(ctx context.Context, actorID, departmentID string) (core.ReconcileResult, error)

	ListRoles(ctx context.Context) ([]core.Role, error)
	CreateRole(ctx context.Context, role core.Role) (string, error)
}

type Handler struct {
	Service Service
	Audit   shared.AuditRecorder
}

func NewHandler(service Service, recorder shared.AuditRecorder) *Handler {
	return &Handler{Service: service, Audit: recorder}
}

var (
	privileged = []auth.Role{auth.RoleAdmin, auth.RoleHR}
	readers    = []auth.Role{auth.RoleAdmin, auth.RoleHR, auth.RoleManager}
)

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.With(middleware.RequireResolved).Get("/", h.handleListEmployees)
		r.With(middleware.RequireRole(privileged...)).Post("/", h.handleCreateEmployee)
		r.With(middleware.RequireRole(privileged...)).Get("/export", h.handleExportEmployees)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.With(middleware.RequireResolved).Get("/", h.handleGetEmployee)
			r.With(middleware.RequireRole(privileged...)).Put("/", h.handleUpdateEmployee)
			r.With(middleware.RequireRole(privileged...)).Post("/deactivate", h.handleDeactivateEmployee)
		})
	})
	r.Route("/departments", func(r chi.Router) {
		r.With(middleware.RequireResolved).Get("/", h.handleListDepartments)
		r.With(middleware.RequireRole(privileged...)).Post("/", h.handleCreateDepartment)
		r.Route("/{departmentID}", func(r chi.Router) {
			r.With(middleware.RequireRole(readers...)).Get("/", h.handleGetDepartment)
			r.With(middleware.RequireRole(privileged...)).Put("/", h.handleUpdateDepartment)
			r.With(middleware.RequireRole(privileged...)).Delete("/", h.handleDeleteDepartment)
			r.With(middleware.RequireRole(privileged...)).Post("/reconcile", h.handleReconcileDepartment)
		})
	})
	r.Route("/roles", func(r chi.Router) {
		r.With(middleware.RequireRole(privileged...)).Get("/", h.handleListRoles)
		r.With(middleware.RequireRole(auth.RoleAdmin)).Post("/", h.handleCreateRole)
	})
}

func writeError(w http.ResponseWriter, r *http.Request, err error, code, message string) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, core.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", reqID)
	case errors.Is(err, core.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed", reqID)
	case errors.Is(err, core.ErrConflict):
		api.Fail(w, http.StatusConflict, "conflict", err.Error(), reqID)
	case errors.Is(err, auth.ErrUnknownRole):
		api.Fail(w, http.StatusBadRequest, "invalid_access_level", "unknown access level", reqID)
	default:
		slog.Warn(message, "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, code, message, reqID)
	}
}

type employeePayload struct {
	Email          string `json:"email" validate:"required,email,max=254"`
	FirstName      string `json:"firstName" validate:"required,max=100"`
	LastName       string `json:"lastName" validate:"max=100"`
	Phone          string `json:"phone" validate:"max=32"`
	DepartmentID   string `json:"departmentId" validate:"omitempty,uuid"`
	RoleID         string `json:"roleId" validate:"omitempty,uuid"`
	ManagerID      string `json:"managerId" validate:"omitempty,uuid"`
	Status         string `json:"status" validate:"omitempty,oneof=active inactive probation resigned on_leave"`
	EmploymentType string `json:"employmentType" validate:"omitempty,oneof=full_time part_time contract intern"`
	JoiningDate    string `json:"joiningDate" validate:"omitempty,datetime=2006-01-02"`
}

func (p employeePayload) toEmployee() core.Employee {
	emp := core.Employee{
		Email:          p.Email,
		FirstName:      p.FirstName,
		LastName:       p.LastName,
		Phone:          p.Phone,
		DepartmentID:   p.DepartmentID,
		RoleID:         p.RoleID,
		ManagerID:      p.ManagerID,
		Status:         p.Status,
		EmploymentType: p.EmploymentType,
	}
	if p.JoiningDate != "" {
		if joined, err := time.Parse("2006-01-02", p.JoiningDate); err == nil {
			emp.JoiningDate = &joined
		}
	}
	return emp
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	page := shared.ParsePagination(r, 50, 200)
	filter := core.EmployeeFilter{
		DepartmentID: shared.QueryTrim(r, "departmentId"),
		Status:       shared.QueryTrim(r, "status"),
		Query:        shared.QueryTrim(r, "q"),
		Limit:        page.Limit,
		Offset:       page.Offset,
	}

	employees, total, err := h.Service.ListEmployees(r.Context(), user, filter)
	if err != nil {
		writeError(w, r, err, "employee_list_failed", "failed to list employees")
		return
	}
	if employees == nil {
		employees = []core.Employee{}
	}
	api.Paged(w, employees, total, page.Limit, page.Offset, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExportEmployees(w http.ResponseWriter, r *http.Request) {
	filter := core.EmployeeFilter{
		DepartmentID: shared.QueryTrim(r, "departmentId"),
		Status:       shared.QueryTrim(r, "status"),
		Query:        shared.QueryTrim(r, "q"),
	}
	format := shared.QueryTrim(r, "format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		api.Fail(w, http.StatusBadRequest, "invalid_format", "format must be csv or xlsx", middleware.GetRequestID(r.Context()))
		return
	}

	employees, err := h.Service.AllEmployees(r.Context(), filter)
	if err != nil {
		writeError(w, r, err, "employee_export_failed", "failed to export employees")
		return
	}

	var writeErr error
	if format == "xlsx" {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", "attachment; filename=employees.xlsx")
		writeErr = core.WriteEmployeesXLSX(w, employees)
	} else {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=employees.csv")
		writeErr = core.WriteEmployeesCSV(w, employees)
	}
	if writeErr != nil {
		slog.Warn("employee export write failed", "format", format, "err", writeErr)
	}
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	emp, err := h.Service.GetEmployee(r.Context(), user, chi.URLParam(r, "employeeID"))
	if err != nil {
		writeError(w, r, err, "employee_get_failed", "failed to load employee")
		return
	}
	api.Success(w, emp, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload employeePayload
	if !shared.Bind(w, r, &payload) {
		return
	}

	emp := payload.toEmployee()
	id, err := h.Service.CreateEmployee(r.Context(), emp)
	if err != nil {
		writeError(w, r, err, "employee_create_failed", "failed to create employee")
		return
	}

	shared.RecordAudit(h.Audit, r, user, audit.ActionEmployeeCreate, "employee", id, nil, emp)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	var payload employeePayload
	if !shared.Bind(w, r, &payload) {
		return
	}

	emp := payload.toEmployee()
	before, err := h.Service.UpdateEmployee(r.Context(), user.ActorID(), employeeID, emp)
	if err != nil {
		writeError(w, r, err, "employee_update_failed", "failed to update employee")
		return
	}

	shared.RecordAudit(h.Audit, r, user, audit.ActionEmployeeUpdate, "employee", employeeID, before, emp)
	api.Success(w, map[string]string{"id": employeeID}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeactivateEmployee(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	employeeID := chi.URLParam(r, "employeeID")
	if err := h.Service.DeactivateEmployee(r.Context(), employeeID); err != nil {
		writeError(w, r, err, "employee_deactivate_failed", "failed to deactivate employee")
		return
	}

	shared.RecordAudit(h.Audit, r, user, audit.ActionEmployeeDeactivate, "employee", employeeID, nil, map[string]string{"status": core.StatusInactive})
	api.Success(w, map[string]string{"id": employeeID, "status": core.StatusInactive}, middleware.GetRequestID(r.Context()))
}

type departmentPayload struct {
	Name        string `json:"name" validate:"required,max=120"`
	Description string `json:"description" validate:"max=1000"`
	ManagerID   string `json:"managerId" validate:"omitempty,uuid"`
	Status      string `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (p departmentPayload) toDepartment() core.Department {
	return core.Department{Name: p.Name, Description: p.Description, ManagerID: p.ManagerID, Status: p.Status}
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 50, 200)
	total, err := h.Service.DepartmentCount(r.Context())
	if err != nil {
		writeError(w, r, err, "department_list_failed", "failed to list departments")
		return
	}
	departments, err := h.Service.ListDepartments(r.Context(), page.Limit, page.Offset)
	if err != nil {
		writeError(w, r, err, "department_list_failed", "failed to list departments")
		return
	}
	if departments == nil {
		departments = []core.Department{}
	}
	api.Paged(w, departments, total, page.Limit, page.Offset, middleware.GetRequestID(r.Context()))
}

// handleGetDepartment runs the manager reconciliation before returning the
// department with its members.
func (h *Handler) handleGetDepartment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	departmentID := chi.URLParam(r, "departmentID")

	if user.Role == auth.RoleManager {
		own, err := h.Service.EmployeeDepartment(r.Context(), user.EmployeeID)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			writeError(w, r, err, "department_get_failed", "failed to load department")
			return
		}
		if own == "" || own != departmentID {
			api.Fail(w, http.StatusForbidden, "forbidden", "managers may only view their own department", middleware.GetRequestID(r.Context()))
			return
		}
	}

	detail, err := h.Service.DepartmentDetail(r.Context(), user.ActorID(), departmentID)
	if err != nil {
		writeError(w, r, err, "department_get_failed", "failed to load department")
		return
	}
	for i := range detail.Members {
		core.FilterEmployeeFields(&detail.Members[i], user)
	}
	api.Success(w, detail, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload departmentPayload
	if !shared.Bind(w, r, &payload) {
		return
	}

	dep := payload.toDepartment()
	id, err := h.Service.CreateDepartment(r.Context(), user.ActorID(), dep)
	if err != nil {
		writeError(w, r, err, "department_create_failed", "failed to create department")
		return
	}

	shared.RecordAudit(h.Audit, r, user, audit.ActionDepartmentCreate, "department", id, nil, dep)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	departmentID := chi.URLParam(r, "departmentID")
	var payload departmentPayload
	if !shared.Bind(w, r, &payload) {
		return
	}

	dep := payload.toDepartment()
	before, reconcile, err := h.Service.UpdateDepartment(r.Context(), user.ActorID(), departmentID, dep)
	if err != nil {
		writeError(w, r, err, "department_update_failed", "failed to update department")
		return
	}

	shared.RecordAudit(h.Audit, r, user, audit.ActionDepartmentUpdate, "department", departmentID, before, dep)
	api.Success(w, map[string]any{"id": departmentID, "reconcile": reconcile}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleDeleteDepartment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	departmentID := chi.URLParam(r, "departmentID")
	if err := h.Service.DeleteDepartment(r.Context(), departmentID); err != nil {
		if errors.Is(err, core.ErrConflict) {
			api.Fail(w, http.StatusConflict, "department_not_empty", "department still has active employees", middleware.GetRequestID(r.Context()))
			return
		}
		writeError(w, r, err, "department_delete_failed", "failed to delete department")
		return
	}

	shared.RecordAudit(h.Audit, r, user, audit.ActionDepartmentDelete, "department", departmentID, nil, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReconcileDepartment(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	result, err := h.Service.ReconcileDepartment(r.Context(), user.ActorID(), chi.URLParam(r, "departmentID"))
	if err != nil {
		writeError(w, r, err, "department_reconcile_failed", "failed to reconcile department")
		return
	}
	api.Success(w, result, middleware.GetRequestID(r.Context()))
}

type rolePayload struct {
	RoleName    string `json:"roleName" validate:"required,max=80"`
	AccessLevel string `json:"accessLevel" validate:"required,oneof=admin hr manager employee"`
}

func (h *Handler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.Service.ListRoles(r.Context())
	if err != nil {
		writeError(w, r, err, "role_list_failed", "failed to list roles")
		return
	}
	if roles == nil {
		roles = []core.Role{}
	}
	api.Success(w, roles, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	var payload rolePayload
	if !shared.Bind(w, r, &payload) {
		return
	}

	role := core.Role{RoleName: payload.RoleName, AccessLevel: auth.Role(payload.AccessLevel)}
	id, err := h.Service.CreateRole(r.Context(), role)
	if err != nil {
		writeError(w, r, err, "role_create_failed", "failed to create role")
		return
	}

	shared.RecordAudit(h.Audit, r, user, audit.ActionRoleCreate, "role", id, nil, payload)
	api.Created(w, map[string]string{"id": id}, middleware.GetRequestID(r.Context()))
}
