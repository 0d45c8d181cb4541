package auth

import (
	"context"
	"errors"
	"log/slog"
)

var ErrNotFound = errors.New("not found")

// ErrIdentityTaken means the email is already linked to another IdP subject.
var ErrIdentityTaken = errors.New("identity already linked to another subject")

// Source names the lookup that produced a resolution.
type Source string

const (
	SourceAdmin         Source = "admins"
	SourceHR            Source = "hr_staff"
	SourceManager       Source = "managers"
	SourceEmployee      Source = "employees"
	SourceEmployeeEmail Source = "employees_by_email"
	SourceDefault       Source = "default"
)

type Resolution struct {
	Role        Role   `json:"role"`
	EmployeeID  string `json:"employeeId,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Source      Source `json:"source"`
	Matched     bool   `json:"matched"`
	Degraded    bool   `json:"degraded,omitempty"`
}

// Principal is a row from one of the elevated-role lookup tables.
type Principal struct {
	ID          string
	EmployeeID  string
	DisplayName string
}

// EmployeePrincipal is an active employee joined with its role's access level.
type EmployeePrincipal struct {
	ID          string
	AuthID      string
	DisplayName string
	AccessLevel Role
}

// ResolverStore lookups return ErrNotFound when nothing matches.
type ResolverStore interface {
	AdminByEmail(ctx context.Context, email string) (Principal, error)
	HRByEmail(ctx context.Context, email string) (Principal, error)
	ActiveManagerByAuthID(ctx context.Context, authID string) (Principal, error)
	ActiveEmployeeByAuthID(ctx context.Context, authID string) (EmployeePrincipal, error)
	ActiveEmployeeByEmail(ctx context.Context, email string) (EmployeePrincipal, error)
	LinkEmployeeAuthID(ctx context.Context, employeeID, authID string) error
}

type RoleCache interface {
	Get(ctx context.Context, authID string) (Resolution, bool)
	Set(ctx context.Context, authID string, res Resolution)
	Invalidate(ctx context.Context, authIDs ...string)
}

type Resolver struct {
	store ResolverStore
	cache RoleCache
}

func NewResolver(store ResolverStore, cache RoleCache) *Resolver {
	return &Resolver{store: store, cache: cache}
}

// Resolve maps an authenticated identity to a role. Probes run in priority
// order and the first match wins. It never fails: lookup errors are logged,
// count as a miss and mark the result Degraded.
func (r *Resolver) Resolve(ctx context.Context, authID, email string) Resolution {
	email = NormalizeEmail(email)
	if authID != "" && r.cache != nil {
		if cached, ok := r.cache.Get(ctx, authID); ok {
			return cached
		}
	}

	res := r.resolve(ctx, authID, email)
	if authID != "" && r.cache != nil && res.Matched && !res.Degraded {
		r.cache.Set(ctx, authID, res)
	}
	return res
}

func (r *Resolver) resolve(ctx context.Context, authID, email string) Resolution {
	degraded := false
	miss := func(probe Source, err error) {
		if err != nil && !errors.Is(err, ErrNotFound) {
			degraded = true
			slog.Warn("role lookup failed", "probe", probe, "err", err)
		}
	}

	if email != "" {
		p, err := r.store.AdminByEmail(ctx, email)
		if err == nil {
			return principalResolution(RoleAdmin, SourceAdmin, p, degraded)
		}
		miss(SourceAdmin, err)

		p, err = r.store.HRByEmail(ctx, email)
		if err == nil {
			return principalResolution(RoleHR, SourceHR, p, degraded)
		}
		miss(SourceHR, err)
	}

	if authID != "" {
		p, err := r.store.ActiveManagerByAuthID(ctx, authID)
		if err == nil {
			return principalResolution(RoleManager, SourceManager, p, degraded)
		}
		miss(SourceManager, err)

		emp, err := r.store.ActiveEmployeeByAuthID(ctx, authID)
		if err == nil {
			return employeeResolution(SourceEmployee, emp, degraded)
		}
		miss(SourceEmployee, err)
	}

	if email != "" {
		emp, err := r.store.ActiveEmployeeByEmail(ctx, email)
		if err == nil {
			if authID != "" && emp.AuthID == "" {
				if err := r.store.LinkEmployeeAuthID(ctx, emp.ID, authID); err != nil {
					slog.Warn("employee auth id backfill failed", "employeeId", emp.ID, "err", err)
				}
			}
			return employeeResolution(SourceEmployeeEmail, emp, degraded)
		}
		miss(SourceEmployeeEmail, err)
	}

	return Resolution{Role: RoleEmployee, Source: SourceDefault, Matched: false, Degraded: degraded}
}

func principalResolution(role Role, source Source, p Principal, degraded bool) Resolution {
	return Resolution{
		Role:        role,
		EmployeeID:  p.EmployeeID,
		DisplayName: p.DisplayName,
		Source:      source,
		Matched:     true,
		Degraded:    degraded,
	}
}

func employeeResolution(source Source, emp EmployeePrincipal, degraded bool) Resolution {
	role := emp.AccessLevel
	if _, err := ParseRole(string(role)); err != nil {
		role = RoleEmployee
	}
	return Resolution{
		Role:        role,
		EmployeeID:  emp.ID,
		DisplayName: emp.DisplayName,
		Source:      source,
		Matched:     true,
		Degraded:    degraded,
	}
}
