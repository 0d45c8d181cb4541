package middleware

import (
	"context"
	"net/http"
	"strings"

	"ems/internal/domain/auth"
)

// AccessTokenCookie carries the IdP token for page requests.
const AccessTokenCookie = "ems-access-token"

type RoleResolver interface {
	Resolve(ctx context.Context, authID, email string) auth.Resolution
}

// ResolutionRecorder observes every resolution, e.g. for metrics.
type ResolutionRecorder interface {
	RecordResolution(degraded bool)
}

// Auth verifies the IdP token and attaches the resolved caller. Requests
// without a valid token pass through anonymous; RequireAuth rejects them.
func Auth(secret, audience string, resolver RoleResolver, recorder ResolutionRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := auth.ParseToken(secret, audience, token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			res := resolver.Resolve(r.Context(), identity.AuthID, identity.Email)
			if recorder != nil {
				recorder.RecordResolution(res.Degraded)
			}
			ctx := WithUser(r.Context(), auth.NewUserContext(identity, res))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.Fields(header)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
