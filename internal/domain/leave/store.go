package leave

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

func (s *Store) ListTypes(ctx context.Context) ([]LeaveType, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, name, code, max_days, is_paid, created_at
    FROM leave_types
    ORDER BY name
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaveType
	for rows.Next() {
		var lt LeaveType
		if err := rows.Scan(&lt.ID, &lt.Name, &lt.Code, &lt.MaxDays, &lt.IsPaid, &lt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, lt)
	}
	return out, rows.Err()
}

func (s *Store) GetType(ctx context.Context, leaveTypeID string) (*LeaveType, error) {
	var lt LeaveType
	err := s.DB.QueryRow(ctx, `
    SELECT id, name, code, max_days, is_paid, created_at
    FROM leave_types
    WHERE id = $1
  `, leaveTypeID).Scan(&lt.ID, &lt.Name, &lt.Code, &lt.MaxDays, &lt.IsPaid, &lt.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &lt, nil
}

func (s *Store) CreateType(ctx context.Context, payload LeaveType) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_types (name, code, max_days, is_paid)
    VALUES ($1, $2, $3, $4)
    RETURNING id
  `, payload.Name, payload.Code, payload.MaxDays, payload.IsPaid).Scan(&id)
	return id, err
}

const requestSelect = `
    SELECT r.id, r.employee_id, trim(e.first_name || ' ' || e.last_name),
           COALESCE(e.department_id::text, ''),
           r.leave_type_id, lt.name,
           r.start_date, r.end_date, r.total_days::float8, r.status, r.reason, r.remarks,
           COALESCE(r.approved_by, ''), r.approved_at, r.created_at
    FROM leave_requests r
    JOIN employees e ON r.employee_id = e.id
    JOIN leave_types lt ON r.leave_type_id = lt.id
`

func scanRequest(row pgx.Row) (LeaveRequest, error) {
	var req LeaveRequest
	err := row.Scan(&req.ID, &req.EmployeeID, &req.EmployeeName, &req.DepartmentID,
		&req.LeaveTypeID, &req.LeaveTypeName,
		&req.StartDate, &req.EndDate, &req.TotalDays, &req.Status, &req.Reason, &req.Remarks,
		&req.ApprovedBy, &req.ApprovedAt, &req.CreatedAt)
	return req, err
}

func requestWhere(filter RequestFilter) (string, []any) {
	where := " WHERE true"
	var args []any
	if filter.EmployeeID != "" {
		args = append(args, filter.EmployeeID)
		where += fmt.Sprintf(" AND r.employee_id = $%d", len(args))
	}
	if filter.DepartmentID != "" {
		args = append(args, filter.DepartmentID)
		where += fmt.Sprintf(" AND e.department_id = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND r.status = $%d", len(args))
	}
	return where, args
}

func (s *Store) CountRequests(ctx context.Context, filter RequestFilter) (int, error) {
	where, args := requestWhere(filter)
	var total int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1)
    FROM leave_requests r
    JOIN employees e ON r.employee_id = e.id
  `+where, args...).Scan(&total)
	return total, err
}

func (s *Store) ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error) {
	where, args := requestWhere(filter)
	query := requestSelect + where + " ORDER BY r.created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, filter.Limit, filter.Offset)
	}
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaveRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *Store) GetRequest(ctx context.Context, requestID string) (*LeaveRequest, error) {
	req, err := scanRequest(s.DB.QueryRow(ctx, requestSelect+" WHERE r.id = $1", requestID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (s *Store) CreateRequest(ctx context.Context, req LeaveRequest) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO leave_requests (employee_id, leave_type_id, start_date, end_date, total_days, status, reason)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, req.EmployeeID, req.LeaveTypeID, req.StartDate, req.EndDate, req.TotalDays, req.Status, req.Reason).Scan(&id)
	return id, err
}

func (s *Store) HasOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error) {
	var exists bool
	err := s.DB.QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM leave_requests
      WHERE employee_id = $1
        AND status IN ('pending', 'approved')
        AND start_date <= $3 AND end_date >= $2
    )
  `, employeeID, start, end).Scan(&exists)
	return exists, err
}

func (s *Store) TransitionStatus(ctx context.Context, requestID, from, to, actorID, remarks string) (bool, error) {
	var cmdErr error
	var affected int64
	if to == StatusCancelled {
		cmd, err := s.DB.Exec(ctx, `
      UPDATE leave_requests SET status = $1
      WHERE id = $2 AND status = $3
    `, to, requestID, from)
		affected, cmdErr = cmd.RowsAffected(), err
	} else {
		cmd, err := s.DB.Exec(ctx, `
      UPDATE leave_requests
      SET status = $1, approved_by = $2, approved_at = now(), remarks = $3
      WHERE id = $4 AND status = $5
    `, to, actorID, remarks, requestID, from)
		affected, cmdErr = cmd.RowsAffected(), err
	}
	if cmdErr != nil {
		return false, cmdErr
	}
	return affected > 0, nil
}
