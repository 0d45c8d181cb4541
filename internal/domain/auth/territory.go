package auth

import "strings"

type territory struct {
	prefix  string
	allowed []Role
}

// Page territories of the web portal, most specific first. Admin reaches
// everything; every resolved role has an /employee self-service area.
var territories = []territory{
	{prefix: "/admin", allowed: []Role{RoleAdmin}},
	{prefix: "/hr", allowed: []Role{RoleAdmin, RoleHR}},
	{prefix: "/manager", allowed: []Role{RoleAdmin, RoleManager}},
	{prefix: "/employee", allowed: []Role{RoleAdmin, RoleHR, RoleManager, RoleEmployee}},
}

// Territory returns the roles allowed on path and whether path is scoped at all.
func Territory(path string) ([]Role, bool) {
	for _, t := range territories {
		if path == t.prefix || strings.HasPrefix(path, t.prefix+"/") {
			return t.allowed, true
		}
	}
	return nil, false
}

func CanAccess(role Role, path string) bool {
	allowed, scoped := Territory(path)
	if !scoped {
		return true
	}
	return role.In(allowed...)
}

func DashboardPath(role Role) string {
	switch role {
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleHR:
		return "/hr/dashboard"
	case RoleManager:
		return "/manager/dashboard"
	default:
		return "/employee/dashboard"
	}
}
