package db

import (
	"context"
	"strings"

	"ems/internal/domain/auth"
	"ems/internal/domain/core"
	"ems/internal/platform/config"
	"ems/internal/platform/querier"
)

type seedRole struct {
	Name  string
	Level auth.Role
}

var defaultRoles = []seedRole{
	{Name: "Admin", Level: auth.RoleAdmin},
	{Name: "HR", Level: auth.RoleHR},
	{Name: core.RoleNameDepartmentManager, Level: auth.RoleManager},
	{Name: "Team Lead", Level: auth.RoleManager},
	{Name: core.RoleNameEmployee, Level: auth.RoleEmployee},
}

type seedLeaveType struct {
	Name    string
	Code    string
	MaxDays int
	IsPaid  bool
}

var defaultLeaveTypes = []seedLeaveType{
	{Name: "Annual Leave", Code: "AL", MaxDays: 20, IsPaid: true},
	{Name: "Sick Leave", Code: "SL", MaxDays: 10, IsPaid: true},
	{Name: "Casual Leave", Code: "CL", MaxDays: 7, IsPaid: true},
	{Name: "Unpaid Leave", Code: "UL", MaxDays: 0, IsPaid: false},
}

// Seed inserts reference data. Existing rows are left untouched so it is
// safe to run on every start.
func Seed(ctx context.Context, db querier.Querier, cfg config.Config) error {
	if err := ensureRoles(ctx, db); err != nil {
		return err
	}
	if err := ensureLeaveTypes(ctx, db); err != nil {
		return err
	}
	return ensureAdmins(ctx, db, cfg.AdminEmails)
}

func ensureRoles(ctx context.Context, db querier.Querier) error {
	for _, role := range defaultRoles {
		_, err := db.Exec(ctx, `
    INSERT INTO roles (role_name, access_level)
    VALUES ($1, $2)
    ON CONFLICT (role_name) DO NOTHING
  `, role.Name, string(role.Level))
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureLeaveTypes(ctx context.Context, db querier.Querier) error {
	for _, lt := range defaultLeaveTypes {
		_, err := db.Exec(ctx, `
    INSERT INTO leave_types (name, code, max_days, is_paid)
    VALUES ($1, $2, $3, $4)
    ON CONFLICT (code) DO NOTHING
  `, lt.Name, lt.Code, lt.MaxDays, lt.IsPaid)
		if err != nil {
			return err
		}
	}
	return nil
}

func ensureAdmins(ctx context.Context, db querier.Querier, emails []string) error {
	for _, email := range adminSeedEmails(emails) {
		_, err := db.Exec(ctx, `
    INSERT INTO admins (email, name)
    VALUES ($1, $2)
    ON CONFLICT (email) DO NOTHING
  `, email, strings.Split(email, "@")[0])
		if err != nil {
			return err
		}
	}
	return nil
}

func adminSeedEmails(emails []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, email := range emails {
		email = auth.NormalizeEmail(email)
		if email == "" || !strings.Contains(email, "@") || seen[email] {
			continue
		}
		seen[email] = true
		out = append(out, email)
	}
	return out
}
