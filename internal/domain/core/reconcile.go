package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ems/internal/domain/audit"
	"ems/internal/domain/auth"
)

// Member is an active employee of a department as seen by the reconciler.
type Member struct {
	ID     string
	AuthID string
	RoleID string
}

// Plan lists the role writes needed for a department to have exactly one
// holder of the Department Manager role, its designated manager.
type Plan struct {
	Promote        *Member
	Demote         []Member
	ManagerMissing bool
}

func (p Plan) Writes() int {
	n := len(p.Demote)
	if p.Promote != nil {
		n++
	}
	return n
}

// PlanReconciliation is pure. A managerID that is not an active member is
// never promoted.
func PlanReconciliation(managerID, managerRoleID string, members []Member) Plan {
	var plan Plan
	managerFound := false
	for i := range members {
		m := members[i]
		if managerID != "" && m.ID == managerID {
			managerFound = true
			if managerRoleID == "" || m.RoleID != managerRoleID {
				plan.Promote = &m
			}
			continue
		}
		if managerRoleID != "" && m.RoleID == managerRoleID {
			plan.Demote = append(plan.Demote, m)
		}
	}
	plan.ManagerMissing = managerID != "" && !managerFound
	return plan
}

type ReconcileResult struct {
	DepartmentID   string   `json:"departmentId"`
	Promoted       []string `json:"promoted"`
	Demoted        []string `json:"demoted"`
	Writes         int      `json:"writes"`
	ManagerMissing bool     `json:"managerMissing,omitempty"`
}

type RoleChange struct {
	EmployeeID string
	FromRoleID string
	ToRoleID   string
	Action     string
}

// ReconcileTx is the view of the database inside one reconciliation
// transaction. LockDepartment must hold a row lock until commit.
type ReconcileTx interface {
	LockDepartment(ctx context.Context, departmentID string) (managerID string, err error)
	RoleIDByName(ctx context.Context, roleName string) (string, error)
	ActiveDepartmentMembers(ctx context.Context, departmentID string) ([]Member, error)
	SetEmployeeRole(ctx context.Context, employeeID, roleID string) error
	RecordRoleChange(ctx context.Context, actorID string, change RoleChange) error
}

type ReconcileStore interface {
	WithinTx(ctx context.Context, fn func(tx ReconcileTx) error) error
	ActiveDepartmentIDs(ctx context.Context) ([]string, error)
}

type Reconciler struct {
	store ReconcileStore
	cache auth.RoleCache
}

func NewReconciler(store ReconcileStore, cache auth.RoleCache) *Reconciler {
	return &Reconciler{store: store, cache: cache}
}

// Reconcile enforces the single Department Manager rule for one department.
// All reads and writes share one transaction, so a failed write leaves
// every role unchanged.
func (r *Reconciler) Reconcile(ctx context.Context, departmentID, actorID string) (ReconcileResult, error) {
	result := ReconcileResult{DepartmentID: departmentID, Promoted: []string{}, Demoted: []string{}}
	var touched []string

	err := r.store.WithinTx(ctx, func(tx ReconcileTx) error {
		managerID, err := tx.LockDepartment(ctx, departmentID)
		if err != nil {
			return err
		}
		managerRoleID, err := optionalRoleID(ctx, tx, RoleNameDepartmentManager)
		if err != nil {
			return err
		}
		members, err := tx.ActiveDepartmentMembers(ctx, departmentID)
		if err != nil {
			return err
		}

		plan := PlanReconciliation(managerID, managerRoleID, members)
		result.ManagerMissing = plan.ManagerMissing
		if plan.Writes() == 0 {
			return nil
		}

		if len(plan.Demote) > 0 {
			employeeRoleID, err := tx.RoleIDByName(ctx, RoleNameEmployee)
			if err != nil {
				return fmt.Errorf("role %q: %w", RoleNameEmployee, err)
			}
			for _, m := range plan.Demote {
				if err := applyRoleChange(ctx, tx, actorID, m, employeeRoleID, audit.ActionRoleDemote); err != nil {
					return err
				}
				result.Demoted = append(result.Demoted, m.ID)
				touched = append(touched, m.AuthID)
			}
		}
		if plan.Promote != nil {
			if managerRoleID == "" {
				return fmt.Errorf("role %q: %w", RoleNameDepartmentManager, ErrNotFound)
			}
			if err := applyRoleChange(ctx, tx, actorID, *plan.Promote, managerRoleID, audit.ActionRolePromote); err != nil {
				return err
			}
			result.Promoted = append(result.Promoted, plan.Promote.ID)
			touched = append(touched, plan.Promote.AuthID)
		}
		result.Writes = plan.Writes()
		return nil
	})
	if err != nil {
		return ReconcileResult{DepartmentID: departmentID, Promoted: []string{}, Demoted: []string{}}, err
	}

	if r.cache != nil && len(touched) > 0 {
		r.cache.Invalidate(ctx, touched...)
	}
	if result.ManagerMissing {
		slog.Warn("department manager is not an active member", "departmentId", departmentID)
	}
	if result.Writes > 0 {
		slog.Info("department manager reconciled", "departmentId", departmentID,
			"promoted", len(result.Promoted), "demoted", len(result.Demoted))
	}
	return result, nil
}

func applyRoleChange(ctx context.Context, tx ReconcileTx, actorID string, m Member, roleID, action string) error {
	if err := tx.SetEmployeeRole(ctx, m.ID, roleID); err != nil {
		return fmt.Errorf("set role of %s: %w", m.ID, err)
	}
	return tx.RecordRoleChange(ctx, actorID, RoleChange{
		EmployeeID: m.ID,
		FromRoleID: m.RoleID,
		ToRoleID:   roleID,
		Action:     action,
	})
}

// optionalRoleID returns "" when the role does not exist yet: nobody can
// hold it, so there is nothing to demote.
func optionalRoleID(ctx context.Context, tx ReconcileTx, name string) (string, error) {
	id, err := tx.RoleIDByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return id, err
}

type SweepResult struct {
	Departments int `json:"departments"`
	Writes      int `json:"writes"`
	Failed      int `json:"failed"`
}

// ReconcileAll reconciles every active department. A failing department is
// logged and skipped.
func (r *Reconciler) ReconcileAll(ctx context.Context, actorID string) (SweepResult, error) {
	ids, err := r.store.ActiveDepartmentIDs(ctx)
	if err != nil {
		return SweepResult{}, err
	}
	var sweep SweepResult
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return sweep, err
		}
		res, err := r.Reconcile(ctx, id, actorID)
		if err != nil {
			sweep.Failed++
			slog.Warn("department reconcile failed", "departmentId", id, "err", err)
			continue
		}
		sweep.Departments++
		sweep.Writes += res.Writes
	}
	return sweep, nil
}

func roleLevel(level string) auth.Role {
	role, err := auth.ParseRole(level)
	if err != nil {
		return auth.RoleEmployee
	}
	return role
}
