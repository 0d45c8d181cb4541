package core

import (
	"context"

	"github.com/jackc/pgx/v5"

	"ems/internal/domain/audit"
)

type pgReconcileTx struct {
	tx pgx.Tx
}

// WithinTx runs fn in a read-committed transaction and commits when fn
// returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(tx ReconcileTx) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgReconcileTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (t *pgReconcileTx) LockDepartment(ctx context.Context, departmentID string) (string, error) {
	var managerID string
	err := t.tx.QueryRow(ctx, `
    SELECT COALESCE(manager_id::text, '')
    FROM departments
    WHERE id = $1
    FOR UPDATE
  `, departmentID).Scan(&managerID)
	if err != nil {
		return "", mapErr(err)
	}
	return managerID, nil
}

func (t *pgReconcileTx) RoleIDByName(ctx context.Context, roleName string) (string, error) {
	var id string
	err := t.tx.QueryRow(ctx, `
    SELECT id FROM roles WHERE role_name = $1
  `, roleName).Scan(&id)
	if err != nil {
		return "", mapErr(err)
	}
	return id, nil
}

func (t *pgReconcileTx) ActiveDepartmentMembers(ctx context.Context, departmentID string) ([]Member, error) {
	rows, err := t.tx.Query(ctx, `
    SELECT id, COALESCE(auth_id, ''), COALESCE(role_id::text, '')
    FROM employees
    WHERE department_id = $1 AND status = 'active'
    ORDER BY id
    FOR UPDATE
  `, departmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.AuthID, &m.RoleID); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (t *pgReconcileTx) SetEmployeeRole(ctx context.Context, employeeID, roleID string) error {
	_, err := t.tx.Exec(ctx, `
    UPDATE employees SET role_id = $1, updated_at = now()
    WHERE id = $2
  `, roleID, employeeID)
	return err
}

func (t *pgReconcileTx) RecordRoleChange(ctx context.Context, actorID string, change RoleChange) error {
	return audit.Write(ctx, t.tx, audit.Event{
		ActorID:    actorID,
		Action:     change.Action,
		EntityType: "employee",
		EntityID:   change.EmployeeID,
	}, map[string]string{"roleId": change.FromRoleID}, map[string]string{"roleId": change.ToRoleID})
}
