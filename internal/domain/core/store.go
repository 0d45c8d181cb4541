package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"ems/internal/platform/querier"
)

type Store struct {
	DB querier.TxBeginner
}

func NewStore(db querier.TxBeginner) *Store {
	return &Store{DB: db}
}

func mapErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

const employeeSelect = `
    SELECT e.id,
           COALESCE(e.auth_id, ''),
           e.email, e.first_name, e.last_name, e.phone,
           COALESCE(e.department_id::text, ''),
           COALESCE(d.name, ''),
           COALESCE(e.role_id::text, ''),
           COALESCE(r.role_name, ''),
           COALESCE(r.access_level, 'employee'),
           COALESCE(e.manager_id::text, ''),
           e.status, e.employment_type, e.joining_date, e.created_at, e.updated_at
    FROM employees e
    LEFT JOIN departments d ON e.department_id = d.id
    LEFT JOIN roles r ON e.role_id = r.id
`

func scanEmployee(row pgx.Row) (Employee, error) {
	var emp Employee
	var level string
	err := row.Scan(
		&emp.ID, &emp.AuthID, &emp.Email, &emp.FirstName, &emp.LastName, &emp.Phone,
		&emp.DepartmentID, &emp.DepartmentName, &emp.RoleID, &emp.RoleName, &level,
		&emp.ManagerID, &emp.Status, &emp.EmploymentType, &emp.JoiningDate, &emp.CreatedAt, &emp.UpdatedAt,
	)
	emp.AccessLevel = roleLevel(level)
	return emp, err
}

func employeeWhere(filter EmployeeFilter) (string, []any) {
	where := " WHERE true"
	var args []any
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		where += fmt.Sprintf(" AND e.department_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND e.status = $%d", len(args))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		where += fmt.Sprintf(" AND (e.first_name || ' ' || e.last_name ILIKE $%d OR e.email ILIKE $%d)", len(args), len(args))
	}
	return where, args
}

func (s *Store) CountEmployees(ctx context.Context, filter EmployeeFilter) (int, error) {
	where, args := employeeWhere(filter)
	var total int
	err := s.DB.QueryRow(ctx, "SELECT COUNT(1) FROM employees e"+where, args...).Scan(&total)
	return total, err
}

func (s *Store) ListEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error) {
	where, args := employeeWhere(filter)
	query := employeeSelect + where + " ORDER BY e.last_name, e.first_name"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, filter.Limit, filter.Offset)
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, emp)
	}
	return out, rows.Err()
}

func (s *Store) GetEmployee(ctx context.Context, employeeID string) (*Employee, error) {
	emp, err := scanEmployee(s.DB.QueryRow(ctx, employeeSelect+" WHERE e.id = $1", employeeID))
	if err != nil {
		return nil, mapErr(err)
	}
	return &emp, nil
}

func (s *Store) CreateEmployee(ctx context.Context, emp Employee) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (email, first_name, last_name, phone, department_id, role_id, manager_id, status, employment_type, joining_date)
    VALUES ($1,$2,$3,$4,$5,
            COALESCE($6::uuid, (SELECT id FROM roles WHERE role_name = $11)),
            $7,$8,$9,$10)
    RETURNING id
  `,
		emp.Email, emp.FirstName, emp.LastName, emp.Phone,
		querier.NullIfEmpty(emp.DepartmentID), querier.NullIfEmpty(emp.RoleID), querier.NullIfEmpty(emp.ManagerID),
		emp.Status, emp.EmploymentType, emp.JoiningDate, RoleNameEmployee,
	).Scan(&id)
	if err != nil {
		return "", mapErr(err)
	}
	return id, nil
}

func (s *Store) UpdateEmployee(ctx context.Context, employeeID string, emp Employee) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE employees
    SET email = $1,
        first_name = $2,
        last_name = $3,
        phone = $4,
        department_id = $5,
        role_id = COALESCE($6::uuid, role_id),
        manager_id = $7,
        status = $8,
        employment_type = $9,
        joining_date = $10,
        updated_at = now()
    WHERE id = $11
  `,
		emp.Email, emp.FirstName, emp.LastName, emp.Phone,
		querier.NullIfEmpty(emp.DepartmentID), querier.NullIfEmpty(emp.RoleID), querier.NullIfEmpty(emp.ManagerID),
		emp.Status, emp.EmploymentType, emp.JoiningDate, employeeID,
	)
	if err != nil {
		return mapErr(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetEmployeeStatus(ctx context.Context, employeeID, status string) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE employees SET status = $1, updated_at = now()
    WHERE id = $2
  `, status, employeeID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// EmployeeDepartment returns the department of an employee, or "" when unassigned.
func (s *Store) EmployeeDepartment(ctx context.Context, employeeID string) (string, error) {
	var departmentID string
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(department_id::text, '')
    FROM employees
    WHERE id = $1
  `, employeeID).Scan(&departmentID)
	if err != nil {
		return "", mapErr(err)
	}
	return departmentID, nil
}

const departmentSelect = `
    SELECT d.id, d.name, d.description,
           COALESCE(d.manager_id::text, ''),
           COALESCE(trim(m.first_name || ' ' || m.last_name), ''),
           d.status,
           (SELECT COUNT(1) FROM employees x WHERE x.department_id = d.id AND x.status = 'active'),
           d.created_at, d.updated_at
    FROM departments d
    LEFT JOIN employees m ON d.manager_id = m.id
`

func scanDepartment(row pgx.Row) (Department, error) {
	var dep Department
	err := row.Scan(&dep.ID, &dep.Name, &dep.Description, &dep.ManagerID, &dep.ManagerName,
		&dep.Status, &dep.MemberCount, &dep.CreatedAt, &dep.UpdatedAt)
	return dep, err
}

func (s *Store) DepartmentCount(ctx context.Context) (int, error) {
	var total int
	err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM departments`).Scan(&total)
	return total, err
}

func (s *Store) ListDepartments(ctx context.Context, limit, offset int) ([]Department, error) {
	rows, err := s.DB.Query(ctx, departmentSelect+`
    ORDER BY d.name
    LIMIT $1 OFFSET $2
  `, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		dep, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, rows.Err()
}

func (s *Store) GetDepartment(ctx context.Context, departmentID string) (*Department, error) {
	dep, err := scanDepartment(s.DB.QueryRow(ctx, departmentSelect+" WHERE d.id = $1", departmentID))
	if err != nil {
		return nil, mapErr(err)
	}
	return &dep, nil
}

func (s *Store) CreateDepartment(ctx context.Context, dep Department) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO departments (name, description, manager_id, status)
    VALUES ($1, $2, $3, $4)
    RETURNING id
  `, dep.Name, dep.Description, querier.NullIfEmpty(dep.ManagerID), dep.Status).Scan(&id)
	if err != nil {
		return "", mapErr(err)
	}
	return id, nil
}

func (s *Store) UpdateDepartment(ctx context.Context, departmentID string, dep Department) (bool, error) {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE departments
    SET name = $1, description = $2, manager_id = $3, status = $4, updated_at = now()
    WHERE id = $5
  `, dep.Name, dep.Description, querier.NullIfEmpty(dep.ManagerID), dep.Status, departmentID)
	if err != nil {
		return false, mapErr(err)
	}
	return cmd.RowsAffected() > 0, nil
}

func (s *Store) DepartmentHasActiveEmployees(ctx context.Context, departmentID string) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (SELECT 1 FROM employees WHERE department_id = $1 AND status = 'active')
  `, departmentID).Scan(&exists)
	return exists, err
}

func (s *Store) DeleteDepartment(ctx context.Context, departmentID string) error {
	cmd, err := s.DB.Exec(ctx, `DELETE FROM departments WHERE id = $1`, departmentID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ActiveDepartmentIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id FROM departments WHERE status = 'active' ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *Store) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, role_name, access_level, created_at
    FROM roles
    ORDER BY role_name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		var role Role
		var level string
		if err := rows.Scan(&role.ID, &role.RoleName, &level, &role.CreatedAt); err != nil {
			return nil, err
		}
		role.AccessLevel = roleLevel(level)
		out = append(out, role)
	}
	return out, rows.Err()
}

func (s *Store) CreateRole(ctx context.Context, role Role) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO roles (role_name, access_level)
    VALUES ($1, $2)
    RETURNING id
  `, role.RoleName, string(role.AccessLevel)).Scan(&id)
	if err != nil {
		return "", mapErr(err)
	}
	return id, nil
}
