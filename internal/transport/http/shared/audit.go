package shared

import (
	"context"
	"log"
	"net/http"

	"ems/internal/domain/auth"
	"ems/internal/transport/http/middleware"
)

// AuditRecorder is satisfied by *audit.Service.
type AuditRecorder interface {
	Record(ctx context.Context, actorID, action, entityType, entityID, requestID, ip string, before, after any) error
}

// RecordAudit writes an audit event for the request's caller. Failures are
// logged and never fail the request.
func RecordAudit(rec AuditRecorder, r *http.Request, user auth.UserContext, action, entityType, entityID string, before, after any) {
	if rec == nil {
		return
	}
	if err := rec.Record(r.Context(), user.ActorID(), action, entityType, entityID, middleware.GetRequestID(r.Context()), ClientIP(r), before, after); err != nil {
		log.Printf("audit %s failed: %v", action, err)
	}
}
