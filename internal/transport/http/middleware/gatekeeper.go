package middleware

import (
	"net/http"
	"path"
	"strings"

	"ems/internal/domain/auth"
)

const (
	LoginPath        = "/login"
	UnauthorizedPath = "/unauthorized"
	DashboardAlias   = "/dashboard"
)

// Verdict is the gatekeeper's decision for one page request.
type Verdict struct {
	Status   int
	Location string
}

func (v Verdict) Allowed() bool {
	return v.Status == 0
}

func isPublicPage(p string) bool {
	switch {
	case p == "/", p == LoginPath, p == UnauthorizedPath:
		return true
	case p == "/api" || strings.HasPrefix(p, "/api/"):
		return true
	case strings.HasPrefix(p, "/assets/"):
		return true
	}
	return false
}

// Decide applies the portal's page access rules. user is nil for anonymous
// requests. Files outside every territory, such as /favicon.ico, pass
// because they are not scoped; a dotted path inside a territory is a page.
func Decide(p string, user *auth.UserContext) Verdict {
	p = path.Clean("/" + p)
	if isPublicPage(p) {
		return Verdict{}
	}
	_, scoped := auth.Territory(p)
	if !scoped && p != DashboardAlias {
		return Verdict{}
	}
	if user == nil {
		return Verdict{Status: http.StatusFound, Location: LoginPath}
	}
	if !user.Matched {
		if user.Degraded {
			return Verdict{Status: http.StatusServiceUnavailable}
		}
		return Verdict{Status: http.StatusFound, Location: UnauthorizedPath}
	}
	if p == DashboardAlias || !auth.CanAccess(user.Role, p) {
		return Verdict{Status: http.StatusFound, Location: auth.DashboardPath(user.Role)}
	}
	return Verdict{}
}

// Gatekeeper guards SPA page routes. It must run after Auth.
func Gatekeeper(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var user *auth.UserContext
		if u, ok := GetUser(r.Context()); ok {
			user = &u
		}
		verdict := Decide(r.URL.Path, user)
		switch {
		case verdict.Allowed():
			next.ServeHTTP(w, r)
		case verdict.Location != "":
			http.Redirect(w, r, verdict.Location, verdict.Status)
		default:
			w.Header().Set("Retry-After", "5")
			http.Error(w, "role lookup failed, retry shortly", verdict.Status)
		}
	})
}
