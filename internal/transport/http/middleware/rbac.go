package middleware

import (
	"net/http"

	"ems/internal/domain/auth"
	"ems/internal/transport/http/api"
)

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := GetUser(r.Context()); !ok {
			api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", GetRequestID(r.Context()))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits resolved callers whose role is in roles. An identity no
// table knows is refused with 403, or 503 when a lookup failed and the
// answer is unknown.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := GetRequestID(r.Context())
			user, ok := GetUser(r.Context())
			if !ok {
				api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", reqID)
				return
			}
			if !user.Matched {
				if user.Degraded {
					api.Fail(w, http.StatusServiceUnavailable, "role_lookup_failed", "role could not be resolved, retry later", reqID)
					return
				}
				api.Fail(w, http.StatusForbidden, "unknown_identity", "identity is not registered", reqID)
				return
			}
			if !user.Role.In(roles...) {
				api.Fail(w, http.StatusForbidden, "forbidden", "insufficient role", reqID)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireResolved admits every resolved role.
func RequireResolved(next http.Handler) http.Handler {
	return RequireRole(auth.AllRoles...)(next)
}
