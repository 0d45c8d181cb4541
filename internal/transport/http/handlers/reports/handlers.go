package reportshandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/auth"
	"ems/internal/domain/core"
	"ems/internal/domain/reports"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

type Service interface {
	Dashboard(ctx context.Context, kind auth.Role, user auth.UserContext, departmentID string) (reports.Dashboard, error)
	JobRuns(ctx context.Context, filter reports.JobRunFilter, limit, offset int) ([]reports.JobRun, int, error)
}

type Directory interface {
	EmployeeDepartment(ctx context.Context, employeeID string) (string, error)
}

// Sweeper runs the department manager sweep on demand.
type Sweeper interface {
	SweepNow(ctx context.Context) (any, error)
}

type MetricsSource interface {
	Snapshot() map[string]any
}

type Handler struct {
	Service   Service
	Directory Directory
	Jobs      Sweeper
	Metrics   MetricsSource
}

func NewHandler(service Service, directory Directory, jobs Sweeper, metrics MetricsSource) *Handler {
	return &Handler{Service: service, Directory: directory, Jobs: jobs, Metrics: metrics}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireResolved).Get("/dashboard/{kind}", h.handleDashboard)
	r.Route("/jobs", func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin))
		r.Get("/runs", h.handleJobRuns)
		r.Post("/dept-sweep", h.handleSweep)
	})
	r.With(middleware.RequireRole(auth.RoleAdmin)).Get("/metrics", h.handleMetrics)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	kind, err := auth.ParseRole(chi.URLParam(r, "kind"))
	if err != nil {
		api.Fail(w, http.StatusNotFound, "not_found", "unknown dashboard", reqID)
		return
	}

	departmentID := ""
	if user.EmployeeID != "" && h.Directory != nil {
		departmentID, err = h.Directory.EmployeeDepartment(r.Context(), user.EmployeeID)
		if err != nil && !errors.Is(err, core.ErrNotFound) {
			slog.Warn("dashboard department lookup failed", "employeeId", user.EmployeeID, "err", err)
		}
	}

	dashboard, err := h.Service.Dashboard(r.Context(), kind, user, departmentID)
	if errors.Is(err, reports.ErrForbidden) {
		api.Fail(w, http.StatusForbidden, "forbidden", "dashboard not available for this role", reqID)
		return
	}
	if err != nil {
		slog.Warn("dashboard failed", "kind", kind, "err", err)
		api.Fail(w, http.StatusInternalServerError, "dashboard_failed", "failed to build dashboard", reqID)
		return
	}
	api.Success(w, dashboard, reqID)
}

func (h *Handler) handleJobRuns(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	page := shared.ParsePagination(r, 50, 200)
	filter := reports.JobRunFilter{
		JobType: shared.QueryTrim(r, "jobType"),
		Status:  shared.QueryTrim(r, "status"),
	}

	v := shared.NewValidator()
	if raw := shared.QueryTrim(r, "from"); raw != "" {
		if from, ok := v.Date("from", raw); ok {
			filter.StartedFrom = &from
		}
	}
	if raw := shared.QueryTrim(r, "to"); raw != "" {
		if to, err := shared.ParseRangeEnd(raw); err != nil {
			v.Add("to", "must be a valid date in YYYY-MM-DD format")
		} else {
			filter.StartedTo = &to
		}
	}
	if filter.StartedFrom != nil && filter.StartedTo != nil {
		v.DateOrder("from", *filter.StartedFrom, "to", *filter.StartedTo)
	}
	if v.Reject(w, reqID) {
		return
	}

	runs, total, err := h.Service.JobRuns(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		slog.Warn("job runs list failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "job_runs_failed", "failed to list job runs", reqID)
		return
	}
	if runs == nil {
		runs = []reports.JobRun{}
	}
	api.Paged(w, runs, total, page.Limit, page.Offset, reqID)
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if h.Jobs == nil {
		api.Fail(w, http.StatusServiceUnavailable, "jobs_disabled", "background jobs are not running", reqID)
		return
	}
	result, err := h.Jobs.SweepNow(r.Context())
	if err != nil {
		slog.Warn("manual department sweep failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "sweep_failed", "department sweep failed", reqID)
		return
	}
	api.Success(w, result, reqID)
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if h.Metrics == nil {
		api.Fail(w, http.StatusNotFound, "metrics_disabled", "metrics are disabled", reqID)
		return
	}
	api.Success(w, h.Metrics.Snapshot(), reqID)
}
