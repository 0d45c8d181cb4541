package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ems/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func recordWhere(filter Filter) (string, []any) {
	where := " WHERE true"
	var args []any
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		where += fmt.Sprintf(" AND a.employee_id = $%d", len(args))
	}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		where += fmt.Sprintf(" AND e.department_id = $%d", len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		where += fmt.Sprintf(" AND a.date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		where += fmt.Sprintf(" AND a.date <= $%d", len(args))
	}
	return where, args
}

func (s *Store) CountRecords(ctx context.Context, filter Filter) (int, error) {
	where, args := recordWhere(filter)
	var total int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM attendance_records a
    JOIN employees e ON a.employee_id = e.id
  `+where, args...).Scan(&total)
	return total, err
}

func (s *Store) ListRecords(ctx context.Context, filter Filter) ([]Record, error) {
	where, args := recordWhere(filter)
	query := `
    SELECT a.id, a.employee_id, trim(e.first_name || ' ' || e.last_name),
           COALESCE(e.department_id::text, ''),
           a.date, a.check_in, a.check_out, a.total_hours::float8, a.status,
           a.regularized, a.regularization_reason, a.created_at
    FROM attendance_records a
    JOIN employees e ON a.employee_id = e.id
  ` + where + " ORDER BY a.date DESC, e.last_name"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.EmployeeID, &rec.EmployeeName, &rec.DepartmentID,
			&rec.Date, &rec.CheckIn, &rec.CheckOut, &rec.TotalHours, &rec.Status,
			&rec.Regularized, &rec.RegularizationReason, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) GetRecord(ctx context.Context, recordID string) (*Record, error) {
	var rec Record
	err := s.DB.QueryRow(ctx, `
    SELECT a.id, a.employee_id, trim(e.first_name || ' ' || e.last_name),
           COALESCE(e.department_id::text, ''),
           a.date, a.check_in, a.check_out, a.total_hours::float8, a.status,
           a.regularized, a.regularization_reason, a.created_at
    FROM attendance_records a
    JOIN employees e ON a.employee_id = e.id
    WHERE a.id = $1
  `, recordID).Scan(&rec.ID, &rec.EmployeeID, &rec.EmployeeName, &rec.DepartmentID,
		&rec.Date, &rec.CheckIn, &rec.CheckOut, &rec.TotalHours, &rec.Status,
		&rec.Regularized, &rec.RegularizationReason, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) StatusCounts(ctx context.Context, employeeID string, from, to time.Time) (map[string]int, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT status, COUNT(1)
    FROM attendance_records
    WHERE employee_id = $1 AND date BETWEEN $2 AND $3
    GROUP BY status
  `, employeeID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *Store) DepartmentPresence(ctx context.Context, departmentID string, from, to time.Time) ([]PresenceCount, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT e.id, trim(e.first_name || ' ' || e.last_name),
           COUNT(a.id) FILTER (WHERE a.status = ANY($4))
    FROM employees e
    LEFT JOIN attendance_records a
      ON a.employee_id = e.id AND a.date BETWEEN $2 AND $3
    WHERE e.department_id = $1 AND e.status = 'active'
    GROUP BY e.id, e.first_name, e.last_name
    ORDER BY e.last_name, e.first_name
  `, departmentID, from, to, presentStatuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PresenceCount
	for rows.Next() {
		var pc PresenceCount
		if err := rows.Scan(&pc.EmployeeID, &pc.EmployeeName, &pc.PresentDays); err != nil {
			return nil, err
		}
		out = append(out, pc)
	}
	return out, rows.Err()
}

func (s *Store) Regularize(ctx context.Context, recordID, status, reason string) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE attendance_records
    SET status = $1, regularized = true, regularization_reason = $2
    WHERE id = $3
  `, status, reason, recordID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DayCounts(ctx context.Context, day time.Time, departmentID string) (DayCounts, error) {
	var counts DayCounts
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FILTER (WHERE a.status = 'present'),
           COUNT(1) FILTER (WHERE a.status = 'late'),
           COUNT(1) FILTER (WHERE a.status = 'absent'),
           COUNT(1) FILTER (WHERE a.status = 'leave')
    FROM attendance_records a
    JOIN employees e ON a.employee_id = e.id
    WHERE a.date = $1 AND ($2 = '' OR e.department_id::text = $2)
  `, day, departmentID).Scan(&counts.Present, &counts.Late, &counts.Absent, &counts.OnLeave)
	return counts, err
}

func (s *Store) EmployeeName(ctx context.Context, employeeID string) (string, error) {
	var name string
	err := s.DB.QueryRow(ctx, `
    SELECT trim(first_name || ' ' || last_name) FROM employees WHERE id = $1
  `, employeeID).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return name, err
}
