package auth

import (
	"errors"
	"strings"
)

// Role is the access level an identity resolves to. It is stored explicitly
// on roles.access_level and never derived from a role's display name.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleHR       Role = "hr"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

var ErrUnknownRole = errors.New("unknown role")

var AllRoles = []Role{RoleAdmin, RoleHR, RoleManager, RoleEmployee}

func ParseRole(value string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(value))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleHR:
		return RoleHR, nil
	case RoleManager:
		return RoleManager, nil
	case RoleEmployee:
		return RoleEmployee, nil
	}
	return "", ErrUnknownRole
}

func (r Role) String() string {
	return string(r)
}

// Privileged reports whether the role administers the whole organisation.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleHR
}

func (r Role) In(roles ...Role) bool {
	for _, candidate := range roles {
		if r == candidate {
			return true
		}
	}
	return false
}
