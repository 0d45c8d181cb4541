package auth

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/jackc/pgx/v5"

	"ems/internal/platform/querier"
)

// RoleNameEmployee is the job role new identities receive.
const RoleNameEmployee = "Employee"

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *Store) AdminByEmail(ctx context.Context, email string) (Principal, error) {
	var p Principal
	err := s.DB.QueryRow(ctx, `
    SELECT id, name
    FROM admins
    WHERE lower(email) = $1
  `, email).Scan(&p.ID, &p.DisplayName)
	return p, notFound(err)
}

func (s *Store) HRByEmail(ctx context.Context, email string) (Principal, error) {
	var p Principal
	err := s.DB.QueryRow(ctx, `
    SELECT h.id, h.name, COALESCE(e.id::text, '')
    FROM hr_staff h
    LEFT JOIN employees e ON lower(e.email) = lower(h.email)
    WHERE lower(h.email) = $1
  `, email).Scan(&p.ID, &p.DisplayName, &p.EmployeeID)
	return p, notFound(err)
}

func (s *Store) ActiveManagerByAuthID(ctx context.Context, authID string) (Principal, error) {
	var p Principal
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, COALESCE(employee_id::text, '')
    FROM managers
    WHERE auth_id = $1 AND is_active
  `, authID).Scan(&p.ID, &p.DisplayName, &p.EmployeeID)
	return p, notFound(err)
}

const employeePrincipalSelect = `
    SELECT e.id, COALESCE(e.auth_id, ''), trim(e.first_name || ' ' || e.last_name), COALESCE(r.access_level, 'employee')
    FROM employees e
    LEFT JOIN roles r ON e.role_id = r.id
`

func (s *Store) ActiveEmployeeByAuthID(ctx context.Context, authID string) (EmployeePrincipal, error) {
	var p EmployeePrincipal
	var level string
	err := s.DB.QueryRow(ctx, employeePrincipalSelect+`
    WHERE e.auth_id = $1 AND e.status = 'active'
  `, authID).Scan(&p.ID, &p.AuthID, &p.DisplayName, &level)
	p.AccessLevel = Role(level)
	return p, notFound(err)
}

func (s *Store) ActiveEmployeeByEmail(ctx context.Context, email string) (EmployeePrincipal, error) {
	var p EmployeePrincipal
	var level string
	err := s.DB.QueryRow(ctx, employeePrincipalSelect+`
    WHERE lower(e.email) = $1 AND e.status = 'active'
  `, email).Scan(&p.ID, &p.AuthID, &p.DisplayName, &level)
	p.AccessLevel = Role(level)
	return p, notFound(err)
}

func (s *Store) LinkEmployeeAuthID(ctx context.Context, employeeID, authID string) error {
	_, err := s.DB.Exec(ctx, `
    UPDATE employees SET auth_id = $1, updated_at = now()
    WHERE id = $2 AND auth_id IS NULL
  `, authID, employeeID)
	return err
}

// UpsertAdmin records the admin's IdP subject. An admin row already bound to
// a different subject is left alone and reported as ErrIdentityTaken.
func (s *Store) UpsertAdmin(ctx context.Context, email, authID string) (string, bool, error) {
	var id string
	var inserted bool
	err := s.DB.QueryRow(ctx, `
    INSERT INTO admins (email, auth_id, name)
    VALUES ($1, $2, $3)
    ON CONFLICT (email) DO UPDATE SET auth_id = EXCLUDED.auth_id
    WHERE admins.auth_id IS NULL OR admins.auth_id = EXCLUDED.auth_id
    RETURNING id, (xmax = 0)
  `, email, authID, displayNameFromEmail(email)).Scan(&id, &inserted)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, ErrIdentityTaken
	}
	if err != nil {
		return "", false, err
	}
	return id, inserted, nil
}

// LinkEmployeeByEmail binds authID to the employee with email unless that
// employee is already bound to another subject.
func (s *Store) LinkEmployeeByEmail(ctx context.Context, email, authID string) (string, error) {
	var id, current string
	err := s.DB.QueryRow(ctx, `
    WITH target AS (
      SELECT id, COALESCE(auth_id, '') AS current
      FROM employees
      WHERE lower(email) = $2
      FOR UPDATE
    ), linked AS (
      UPDATE employees e SET auth_id = $1, updated_at = now()
      FROM target t
      WHERE e.id = t.id AND t.current = ''
    )
    SELECT id, current FROM target
  `, authID, email).Scan(&id, &current)
	if err != nil {
		return "", notFound(err)
	}
	if current != "" && current != authID {
		return "", ErrIdentityTaken
	}
	return id, nil
}

func (s *Store) CreateEmployeeIdentity(ctx context.Context, email, authID string) (string, error) {
	first, last := splitName(displayNameFromEmail(email))
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (auth_id, email, first_name, last_name, role_id, status, joining_date)
    VALUES ($1, $2, $3, $4, (SELECT id FROM roles WHERE role_name = $5), 'active', CURRENT_DATE)
    RETURNING id
  `, authID, email, first, last, RoleNameEmployee).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// displayNameFromEmail turns "jane.doe@corp" into "Jane Doe".
func displayNameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	for i, part := range parts {
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		parts[i] = string(runes)
	}
	return strings.Join(parts, " ")
}

func splitName(name string) (string, string) {
	first, last, _ := strings.Cut(name, " ")
	return first, last
}
