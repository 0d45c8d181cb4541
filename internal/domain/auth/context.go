package auth

// UserContext is the authenticated caller attached to a request.
type UserContext struct {
	AuthID      string
	Email       string
	Role        Role
	EmployeeID  string
	DisplayName string
	// Matched is false when no table knew the identity.
	Matched bool
	// Degraded is true when a lookup failed during resolution.
	Degraded bool
}

// ActorID identifies the caller in audit records and approvals.
func (u UserContext) ActorID() string {
	if u.EmployeeID != "" {
		return u.EmployeeID
	}
	return u.AuthID
}

func NewUserContext(identity Identity, res Resolution) UserContext {
	return UserContext{
		AuthID:      identity.AuthID,
		Email:       identity.Email,
		Role:        res.Role,
		EmployeeID:  res.EmployeeID,
		DisplayName: res.DisplayName,
		Matched:     res.Matched,
		Degraded:    res.Degraded,
	}
}
