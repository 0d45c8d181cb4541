package authhandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ems/internal/domain/audit"
	"ems/internal/domain/auth"
	"ems/internal/transport/http/api"
	"ems/internal/transport/http/middleware"
	"ems/internal/transport/http/shared"
)

// SyncSecretHeader carries the shared secret of the identity provider hook.
const SyncSecretHeader = "X-Sync-Secret"

type Syncer interface {
	Sync(ctx context.Context, email, authID string) (auth.SyncResult, error)
}

type Handler struct {
	Syncer     Syncer
	SecretHash string
	Audit      shared.AuditRecorder
}

func NewHandler(syncer Syncer, secretHash string, recorder shared.AuditRecorder) *Handler {
	return &Handler{Syncer: syncer, SecretHash: secretHash, Audit: recorder}
}

type syncRequest struct {
	Email  string `json:"email" validate:"required,email,max=254"`
	AuthID string `json:"authId" validate:"required,max=255"`
}

// RegisterPublicRoutes mounts routes reachable without a token.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Post("/auth/sync", h.HandleSync)
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireAuth).Get("/me", h.handleMe)
}

func (h *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	if h.SecretHash != "" && !auth.CheckSecret(h.SecretHash, r.Header.Get(SyncSecretHeader)) {
		api.Fail(w, http.StatusUnauthorized, "invalid_sync_secret", "sync secret missing or invalid", reqID)
		return
	}

	var payload syncRequest
	if !shared.Bind(w, r, &payload) {
		return
	}

	result, err := h.Syncer.Sync(r.Context(), payload.Email, payload.AuthID)
	if errors.Is(err, auth.ErrIdentityTaken) {
		api.Fail(w, http.StatusConflict, "identity_conflict", "email is linked to another identity", reqID)
		return
	}
	if err != nil {
		slog.Warn("identity sync failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "sync_failed", "failed to sync identity", reqID)
		return
	}

	system := auth.UserContext{AuthID: payload.AuthID}
	shared.RecordAudit(h.Audit, r, system, audit.ActionIdentitySync, string(result.Target), result.ID, nil, result)

	if result.Created {
		api.Created(w, result, reqID)
		return
	}
	api.Success(w, result, reqID)
}

type meResponse struct {
	AuthID        string    `json:"authId"`
	Email         string    `json:"email"`
	Role          auth.Role `json:"role"`
	EmployeeID    string    `json:"employeeId,omitempty"`
	DisplayName   string    `json:"displayName,omitempty"`
	Matched       bool      `json:"matched"`
	Degraded      bool      `json:"degraded,omitempty"`
	DashboardPath string    `json:"dashboardPath,omitempty"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.GetUser(r.Context())
	resp := meResponse{
		AuthID:      user.AuthID,
		Email:       user.Email,
		Role:        user.Role,
		EmployeeID:  user.EmployeeID,
		DisplayName: user.DisplayName,
		Matched:     user.Matched,
		Degraded:    user.Degraded,
	}
	if user.Matched {
		resp.DashboardPath = auth.DashboardPath(user.Role)
	}
	api.Success(w, resp, middleware.GetRequestID(r.Context()))
}
