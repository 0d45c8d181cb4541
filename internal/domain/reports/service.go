package reports

import (
	"context"
	"errors"
	"log/slog"

	"ems/internal/domain/auth"
)

var ErrForbidden = errors.New("forbidden")

const jobDeptManagerSweep = "dept_manager_sweep"

type Service struct {
	Store      StoreAPI
	Attendance Attendance
}

func NewService(store StoreAPI, attendance Attendance) *Service {
	return &Service{Store: store, Attendance: attendance}
}

// Dashboard builds the summary for the kind dashboard. A caller may open
// any dashboard whose portal area their role can reach. departmentID is the
// caller's own department.
func (s *Service) Dashboard(ctx context.Context, kind auth.Role, user auth.UserContext, departmentID string) (Dashboard, error) {
	if !auth.CanAccess(user.Role, auth.DashboardPath(kind)) {
		return Dashboard{}, ErrForbidden
	}
	switch kind {
	case auth.RoleAdmin, auth.RoleHR:
		return s.organisation(ctx, kind)
	case auth.RoleManager:
		return s.department(ctx, user, departmentID)
	default:
		return s.self(ctx, user, departmentID)
	}
}

func (s *Service) organisation(ctx context.Context, kind auth.Role) (Dashboard, error) {
	d := Dashboard{Role: string(kind)}
	counts, err := s.Store.EmployeeStatusCounts(ctx, "")
	if err != nil {
		return Dashboard{}, err
	}
	d.EmployeesByStatus = counts
	d.TotalEmployees = sum(counts)

	if d.Departments, err = s.Store.DepartmentCount(ctx); err != nil {
		return Dashboard{}, err
	}
	if d.PendingLeave, err = s.Store.PendingLeave(ctx, "", ""); err != nil {
		return Dashboard{}, err
	}
	if d.ActiveAnnouncements, err = s.Store.ActiveAnnouncements(ctx, "", true); err != nil {
		return Dashboard{}, err
	}
	today, err := s.Attendance.TodayCounts(ctx, "")
	if err != nil {
		return Dashboard{}, err
	}
	d.Today = &today

	if kind == auth.RoleAdmin {
		runs, err := s.Store.ListJobRuns(ctx, JobRunFilter{JobType: jobDeptManagerSweep}, 1, 0)
		if err != nil {
			slog.Warn("last sweep lookup failed", "err", err)
		} else if len(runs) > 0 {
			d.LastSweep = &runs[0]
		}
	}
	return d, nil
}

func (s *Service) department(ctx context.Context, user auth.UserContext, departmentID string) (Dashboard, error) {
	d := Dashboard{Role: string(auth.RoleManager), DepartmentID: departmentID}
	if departmentID == "" {
		return s.withOwnPercentage(ctx, user, d), nil
	}
	counts, err := s.Store.EmployeeStatusCounts(ctx, departmentID)
	if err != nil {
		return Dashboard{}, err
	}
	d.EmployeesByStatus = counts
	d.TotalEmployees = sum(counts)

	if d.PendingLeave, err = s.Store.PendingLeave(ctx, departmentID, ""); err != nil {
		return Dashboard{}, err
	}
	if d.ActiveAnnouncements, err = s.Store.ActiveAnnouncements(ctx, departmentID, false); err != nil {
		return Dashboard{}, err
	}
	today, err := s.Attendance.TodayCounts(ctx, departmentID)
	if err != nil {
		return Dashboard{}, err
	}
	d.Today = &today
	return s.withOwnPercentage(ctx, user, d), nil
}

func (s *Service) self(ctx context.Context, user auth.UserContext, departmentID string) (Dashboard, error) {
	d := Dashboard{Role: string(auth.RoleEmployee), DepartmentID: departmentID}
	var err error
	if user.EmployeeID != "" {
		if d.PendingLeave, err = s.Store.PendingLeave(ctx, "", user.EmployeeID); err != nil {
			return Dashboard{}, err
		}
	}
	if d.ActiveAnnouncements, err = s.Store.ActiveAnnouncements(ctx, departmentID, false); err != nil {
		return Dashboard{}, err
	}
	return s.withOwnPercentage(ctx, user, d), nil
}

// withOwnPercentage adds the caller's attendance for the current month. A
// failure only drops the figure.
func (s *Service) withOwnPercentage(ctx context.Context, user auth.UserContext, d Dashboard) Dashboard {
	if user.EmployeeID == "" {
		return d
	}
	pct, err := s.Attendance.CurrentMonthPercentage(ctx, user.EmployeeID)
	if err != nil {
		slog.Warn("attendance percentage failed", "employeeId", user.EmployeeID, "err", err)
		return d
	}
	d.AttendancePercentage = &pct
	return d
}

func (s *Service) JobRuns(ctx context.Context, filter JobRunFilter, limit, offset int) ([]JobRun, int, error) {
	total, err := s.Store.CountJobRuns(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	runs, err := s.Store.ListJobRuns(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if runs == nil {
		runs = []JobRun{}
	}
	return runs, total, nil
}

func sum(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
