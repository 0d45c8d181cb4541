package announcements

import (
	"context"
	"errors"
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

const announcementSelect = `
    SELECT id, title, message, type, priority, target_audience,
           COALESCE(target_department_id::text, ''),
           delivery_method, status, expiry_date, created_by, created_at, updated_at
    FROM announcements
`

// visibleWhere matches active, unexpired announcements for everyone or for
// the given department.
const visibleWhere = `
    WHERE status = 'active'
      AND (expiry_date IS NULL OR expiry_date > $2)
      AND (target_audience = 'all' OR ($1 <> '' AND target_department_id::text = $1))
`

func scanAnnouncement(row pgx.Row) (Announcement, error) {
	var a Announcement
	err := row.Scan(&a.ID, &a.Title, &a.Message, &a.Type, &a.Priority, &a.TargetAudience,
		&a.TargetDepartmentID, &a.DeliveryMethod, &a.Status, &a.ExpiryDate, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func collect(rows pgx.Rows) ([]Announcement, error) {
	defer rows.Close()
	var out []Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) ListVisible(ctx context.Context, departmentID string, now time.Time, limit, offset int) ([]Announcement, error) {
	rows, err := s.DB.Query(ctx, announcementSelect+visibleWhere+`
    ORDER BY CASE priority WHEN 'high' THEN 0 WHEN 'normal' THEN 1 ELSE 2 END, created_at DESC
    LIMIT $3 OFFSET $4
  `, departmentID, now, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (s *Store) CountVisible(ctx context.Context, departmentID string, now time.Time) (int, error) {
	var total int
	err := s.DB.QueryRow(ctx, `SELECT COUNT(1) FROM announcements`+visibleWhere, departmentID, now).Scan(&total)
	return total, err
}

func (s *Store) ListAll(ctx context.Context, status string, limit, offset int) ([]Announcement, error) {
	rows, err := s.DB.Query(ctx, announcementSelect+`
    WHERE ($1 = '' OR status = $1)
    ORDER BY created_at DESC
    LIMIT $2 OFFSET $3
  `, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (s *Store) CountAll(ctx context.Context, status string) (int, error) {
	var total int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM announcements WHERE ($1 = '' OR status = $1)
  `, status).Scan(&total)
	return total, err
}

func (s *Store) Get(ctx context.Context, id string) (*Announcement, error) {
	a, err := scanAnnouncement(s.DB.QueryRow(ctx, announcementSelect+" WHERE id = $1", id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) Create(ctx context.Context, a Announcement) (string, error) {
	var id string
	err := s.DB.QueryRow(ctx, `
    INSERT INTO announcements (title, message, type, priority, target_audience, target_department_id,
      delivery_method, status, expiry_date, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    RETURNING id
  `, a.Title, a.Message, a.Type, a.Priority, a.TargetAudience, querier.NullIfEmpty(a.TargetDepartmentID),
		a.DeliveryMethod, a.Status, a.ExpiryDate, a.CreatedBy).Scan(&id)
	return id, err
}

func (s *Store) Update(ctx context.Context, id string, a Announcement) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE announcements
    SET title = $1, message = $2, type = $3, priority = $4, target_audience = $5,
        target_department_id = $6, delivery_method = $7, status = $8, expiry_date = $9, updated_at = now()
    WHERE id = $10
  `, a.Title, a.Message, a.Type, a.Priority, a.TargetAudience, querier.NullIfEmpty(a.TargetDepartmentID),
		a.DeliveryMethod, a.Status, a.ExpiryDate, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, id, status string) error {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE announcements SET status = $1, updated_at = now() WHERE id = $2
  `, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	cmd, err := s.DB.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := s.DB.Exec(ctx, `
    UPDATE announcements SET status = 'expired', updated_at = now()
    WHERE status = 'active' AND expiry_date IS NOT NULL AND expiry_date <= $1
  `, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// RecipientEmails lists active employees, restricted to departmentID when set.
func (s *Store) RecipientEmails(ctx context.Context, departmentID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT email FROM employees
    WHERE status = 'active' AND ($1 = '' OR department_id::text = $1)
    ORDER BY email
  `, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		out = append(out, email)
	}
	return out, rows.Err()
}
