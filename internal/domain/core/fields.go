package core

import "ems/internal/domain/auth"

// FilterEmployeeFields strips contact and identity details the caller may
// not see. Admin and HR see everything.
func FilterEmployeeFields(emp *Employee, user auth.UserContext) {
	if user.Role.Privileged() {
		return
	}
	emp.AuthID = ""
	if user.EmployeeID == emp.ID {
		return
	}
	emp.Phone = ""
}
