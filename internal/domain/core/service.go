package core

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"ems/internal/domain/auth"
)

type Service struct {
	store      *Store
	reconciler *Reconciler
	cache      auth.RoleCache
}

func NewService(store *Store, reconciler *Reconciler, cache auth.RoleCache) *Service {
	return &Service{store: store, reconciler: reconciler, cache: cache}
}

func (s *Service) Reconciler() *Reconciler {
	return s.reconciler
}

// CanViewEmployee reports whether user may read emp. callerDepartment is the
// caller's own department, needed only for managers.
func CanViewEmployee(user auth.UserContext, emp Employee, callerDepartment string) bool {
	switch {
	case user.Role.Privileged():
		return true
	case user.EmployeeID != "" && user.EmployeeID == emp.ID:
		return true
	case user.Role == auth.RoleManager:
		return callerDepartment != "" && emp.DepartmentID == callerDepartment
	default:
		return false
	}
}

func (s *Service) callerDepartment(ctx context.Context, user auth.UserContext) string {
	if user.Role != auth.RoleManager || user.EmployeeID == "" {
		return ""
	}
	dep, err := s.store.EmployeeDepartment(ctx, user.EmployeeID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		slog.Warn("caller department lookup failed", "employeeId", user.EmployeeID, "err", err)
	}
	return dep
}

// ScopeEmployeeFilter narrows filter to what user may list. ok is false when
// the caller may list nobody but themselves.
func (s *Service) ScopeEmployeeFilter(ctx context.Context, user auth.UserContext, filter EmployeeFilter) (EmployeeFilter, bool) {
	if user.Role.Privileged() {
		return filter, true
	}
	if user.Role == auth.RoleManager {
		dep := s.callerDepartment(ctx, user)
		if dep == "" {
			return filter, false
		}
		filter.DepartmentID = dep
		return filter, true
	}
	return filter, false
}

func (s *Service) ListEmployees(ctx context.Context, user auth.UserContext, filter EmployeeFilter) ([]Employee, int, error) {
	scoped, ok := s.ScopeEmployeeFilter(ctx, user, filter)
	if !ok {
		if user.EmployeeID == "" {
			return []Employee{}, 0, nil
		}
		self, err := s.store.GetEmployee(ctx, user.EmployeeID)
		if errors.Is(err, ErrNotFound) {
			return []Employee{}, 0, nil
		}
		if err != nil {
			return nil, 0, err
		}
		FilterEmployeeFields(self, user)
		return []Employee{*self}, 1, nil
	}

	total, err := s.store.CountEmployees(ctx, scoped)
	if err != nil {
		return nil, 0, err
	}
	employees, err := s.store.ListEmployees(ctx, scoped)
	if err != nil {
		return nil, 0, err
	}
	for i := range employees {
		FilterEmployeeFields(&employees[i], user)
	}
	return employees, total, nil
}

// AllEmployees returns every employee matching filter, unpaginated, for export.
func (s *Service) AllEmployees(ctx context.Context, filter EmployeeFilter) ([]Employee, error) {
	filter.Limit, filter.Offset = 0, 0
	return s.store.ListEmployees(ctx, filter)
}

func (s *Service) GetEmployee(ctx context.Context, user auth.UserContext, employeeID string) (*Employee, error) {
	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !CanViewEmployee(user, *emp, s.callerDepartment(ctx, user)) {
		return nil, ErrForbidden
	}
	FilterEmployeeFields(emp, user)
	return emp, nil
}

func normalizeEmployee(emp *Employee) {
	emp.Email = auth.NormalizeEmail(emp.Email)
	emp.FirstName = strings.TrimSpace(emp.FirstName)
	emp.LastName = strings.TrimSpace(emp.LastName)
	if emp.Status == "" {
		emp.Status = StatusActive
	}
	if emp.EmploymentType == "" {
		emp.EmploymentType = EmploymentFullTime
	}
}

func (s *Service) CreateEmployee(ctx context.Context, emp Employee) (string, error) {
	normalizeEmployee(&emp)
	return s.store.CreateEmployee(ctx, emp)
}

// UpdateEmployee writes emp and re-checks the manager rule of every
// department the change touches.
func (s *Service) UpdateEmployee(ctx context.Context, actorID, employeeID string, emp Employee) (*Employee, error) {
	existing, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	normalizeEmployee(&emp)
	if err := s.store.UpdateEmployee(ctx, employeeID, emp); err != nil {
		return nil, err
	}
	s.invalidate(ctx, existing.AuthID)

	if existing.DepartmentID != emp.DepartmentID || (emp.RoleID != "" && existing.RoleID != emp.RoleID) || existing.Status != emp.Status {
		s.reconcileQuietly(ctx, actorID, existing.DepartmentID, emp.DepartmentID)
	}
	return existing, nil
}

func (s *Service) DeactivateEmployee(ctx context.Context, employeeID string) error {
	existing, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return err
	}
	if err := s.store.SetEmployeeStatus(ctx, employeeID, StatusInactive); err != nil {
		return err
	}
	s.invalidate(ctx, existing.AuthID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, authIDs ...string) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, authIDs...)
	}
}

func (s *Service) reconcileQuietly(ctx context.Context, actorID string, departmentIDs ...string) {
	seen := map[string]bool{}
	for _, id := range departmentIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.reconciler.Reconcile(ctx, id, actorID); err != nil {
			slog.Warn("department reconcile failed", "departmentId", id, "err", err)
		}
	}
}

func (s *Service) DepartmentCount(ctx context.Context) (int, error) {
	return s.store.DepartmentCount(ctx)
}

func (s *Service) ListDepartments(ctx context.Context, limit, offset int) ([]Department, error) {
	return s.store.ListDepartments(ctx, limit, offset)
}

// DepartmentDetail reconciles the department before reading it so the
// returned members reflect a single manager. A failed reconcile is logged
// and the detail is served as stored.
func (s *Service) DepartmentDetail(ctx context.Context, actorID, departmentID string) (*DepartmentDetail, error) {
	var reconcile *ReconcileResult
	res, err := s.reconciler.Reconcile(ctx, departmentID, actorID)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, ErrNotFound
	case err != nil:
		slog.Warn("department reconcile on view failed", "departmentId", departmentID, "err", err)
	default:
		reconcile = &res
	}

	dep, err := s.store.GetDepartment(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListEmployees(ctx, EmployeeFilter{DepartmentID: departmentID})
	if err != nil {
		return nil, err
	}
	if members == nil {
		members = []Employee{}
	}
	return &DepartmentDetail{Department: *dep, Members: members, Reconcile: reconcile}, nil
}

func (s *Service) GetDepartment(ctx context.Context, departmentID string) (*Department, error) {
	return s.store.GetDepartment(ctx, departmentID)
}

func (s *Service) CreateDepartment(ctx context.Context, actorID string, dep Department) (string, error) {
	dep.Name = strings.TrimSpace(dep.Name)
	if dep.Status == "" {
		dep.Status = StatusActive
	}
	id, err := s.store.CreateDepartment(ctx, dep)
	if err != nil {
		return "", err
	}
	if dep.ManagerID != "" {
		s.reconcileQuietly(ctx, actorID, id)
	}
	return id, nil
}

// UpdateDepartment returns the stored department before the change.
func (s *Service) UpdateDepartment(ctx context.Context, actorID, departmentID string, dep Department) (*Department, *ReconcileResult, error) {
	existing, err := s.store.GetDepartment(ctx, departmentID)
	if err != nil {
		return nil, nil, err
	}
	dep.Name = strings.TrimSpace(dep.Name)
	if dep.Status == "" {
		dep.Status = existing.Status
	}
	updated, err := s.store.UpdateDepartment(ctx, departmentID, dep)
	if err != nil {
		return nil, nil, err
	}
	if !updated {
		return nil, nil, ErrNotFound
	}
	if existing.ManagerID == dep.ManagerID {
		return existing, nil, nil
	}
	res, err := s.reconciler.Reconcile(ctx, departmentID, actorID)
	if err != nil {
		slog.Warn("department reconcile after manager change failed", "departmentId", departmentID, "err", err)
		return existing, nil, nil
	}
	return existing, &res, nil
}

func (s *Service) DeleteDepartment(ctx context.Context, departmentID string) error {
	busy, err := s.store.DepartmentHasActiveEmployees(ctx, departmentID)
	if err != nil {
		return err
	}
	if busy {
		return ErrConflict
	}
	return s.store.DeleteDepartment(ctx, departmentID)
}

func (s *Service) ReconcileDepartment(ctx context.Context, actorID, departmentID string) (ReconcileResult, error) {
	return s.reconciler.Reconcile(ctx, departmentID, actorID)
}

func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

func (s *Service) CreateRole(ctx context.Context, role Role) (string, error) {
	level, err := auth.ParseRole(string(role.AccessLevel))
	if err != nil {
		return "", err
	}
	role.AccessLevel = level
	role.RoleName = strings.TrimSpace(role.RoleName)
	return s.store.CreateRole(ctx, role)
}

func (s *Service) EmployeeDepartment(ctx context.Context, employeeID string) (string, error) {
	return s.store.EmployeeDepartment(ctx, employeeID)
}
