package reports

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ems/internal/domain/attendance"
	"ems/internal/domain/auth"
)

type fakeStore struct {
	counts      map[string]map[string]int
	pending     map[string]int
	lastDept    string
	lastEmp     string
	runs        []JobRun
	everyoneArg bool
}

func (f *fakeStore) EmployeeStatusCounts(ctx context.Context, departmentID string) (map[string]int, error) {
	return f.counts[departmentID], nil
}

func (f *fakeStore) DepartmentCount(ctx context.Context) (int, error) { return 3, nil }

func (f *fakeStore) PendingLeave(ctx context.Context, departmentID, employeeID string) (int, error) {
	f.lastDept, f.lastEmp = departmentID, employeeID
	return f.pending[departmentID+"/"+employeeID], nil
}

func (f *fakeStore) ActiveAnnouncements(ctx context.Context, departmentID string, everyone bool) (int, error) {
	f.everyoneArg = everyone
	return 2, nil
}

func (f *fakeStore) ListJobRuns(ctx context.Context, filter JobRunFilter, limit, offset int) ([]JobRun, error) {
	return f.runs, nil
}

func (f *fakeStore) CountJobRuns(ctx context.Context, filter JobRunFilter) (int, error) {
	return len(f.runs), nil
}

type fakeAttendance struct {
	today       attendance.DayCounts
	pct         int
	pctErr      error
	departments []string
}

func (f *fakeAttendance) TodayCounts(ctx context.Context, departmentID string) (attendance.DayCounts, error) {
	f.departments = append(f.departments, departmentID)
	return f.today, nil
}

func (f *fakeAttendance) CurrentMonthPercentage(ctx context.Context, employeeID string) (int, error) {
	return f.pct, f.pctErr
}

func newFixture() (*Service, *fakeStore, *fakeAttendance) {
	store := &fakeStore{
		counts: map[string]map[string]int{
			"":   {"active": 8, "inactive": 2},
			"d1": {"active": 4},
		},
		pending: map[string]int{"/": 5, "d1/": 2, "/e1": 1},
		runs:    []JobRun{{ID: "r1", JobType: jobDeptManagerSweep, Status: "completed"}},
	}
	att := &fakeAttendance{today: attendance.DayCounts{Present: 6, Late: 1}, pct: 90}
	return NewService(store, att), store, att
}

func TestAdminDashboard(t *testing.T) {
	svc, store, _ := newFixture()
	d, err := svc.Dashboard(context.Background(), auth.RoleAdmin, auth.UserContext{Role: auth.RoleAdmin}, "")
	require.NoError(t, err)
	assert.Equal(t, 10, d.TotalEmployees)
	assert.Equal(t, 3, d.Departments)
	assert.Equal(t, 5, d.PendingLeave)
	assert.True(t, store.everyoneArg)
	require.NotNil(t, d.Today)
	assert.Equal(t, 6, d.Today.Present)
	require.NotNil(t, d.LastSweep)
	assert.Equal(t, "r1", d.LastSweep.ID)
	assert.Nil(t, d.AttendancePercentage)
}

func TestHRDashboardOmitsSweep(t *testing.T) {
	svc, _, _ := newFixture()
	d, err := svc.Dashboard(context.Background(), auth.RoleHR, auth.UserContext{Role: auth.RoleHR}, "")
	require.NoError(t, err)
	assert.Nil(t, d.LastSweep)
	assert.Equal(t, "hr", d.Role)
}

func TestManagerDashboardIsDepartmentScoped(t *testing.T) {
	svc, store, att := newFixture()
	user := auth.UserContext{Role: auth.RoleManager, EmployeeID: "m1"}
	d, err := svc.Dashboard(context.Background(), auth.RoleManager, user, "d1")
	require.NoError(t, err)
	assert.Equal(t, 4, d.TotalEmployees)
	assert.Equal(t, 2, d.PendingLeave)
	assert.Equal(t, "d1", store.lastDept)
	assert.False(t, store.everyoneArg)
	assert.Equal(t, []string{"d1"}, att.departments)
	require.NotNil(t, d.AttendancePercentage)
	assert.Equal(t, 90, *d.AttendancePercentage)
}

func TestEmployeeDashboard(t *testing.T) {
	svc, store, _ := newFixture()
	user := auth.UserContext{Role: auth.RoleEmployee, EmployeeID: "e1"}
	d, err := svc.Dashboard(context.Background(), auth.RoleEmployee, user, "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, d.PendingLeave)
	assert.Equal(t, "e1", store.lastEmp)
	assert.Nil(t, d.Today)
	require.NotNil(t, d.AttendancePercentage)
	assert.Equal(t, 90, *d.AttendancePercentage)
}

func TestEmployeeDashboardWithoutPercentage(t *testing.T) {
	svc, _, att := newFixture()
	att.pctErr = errors.New("db down")
	d, err := svc.Dashboard(context.Background(), auth.RoleEmployee, auth.UserContext{Role: auth.RoleEmployee, EmployeeID: "e1"}, "")
	require.NoError(t, err)
	assert.Nil(t, d.AttendancePercentage)
}

func TestDashboardTerritories(t *testing.T) {
	svc, _, _ := newFixture()
	cases := []struct {
		role    auth.Role
		kind    auth.Role
		allowed bool
	}{
		{auth.RoleEmployee, auth.RoleAdmin, false},
		{auth.RoleEmployee, auth.RoleManager, false},
		{auth.RoleManager, auth.RoleHR, false},
		{auth.RoleHR, auth.RoleManager, false},
		{auth.RoleHR, auth.RoleEmployee, true},
		{auth.RoleAdmin, auth.RoleManager, true},
	}
	for _, tc := range cases {
		_, err := svc.Dashboard(context.Background(), tc.kind, auth.UserContext{Role: tc.role}, "")
		if tc.allowed {
			assert.NoError(t, err, "%s on %s", tc.role, tc.kind)
		} else {
			assert.ErrorIs(t, err, ErrForbidden, "%s on %s", tc.role, tc.kind)
		}
	}
}

func TestBuildJobRunsBaseQuery(t *testing.T) {
	query, args := buildJobRunsBaseQuery(JobRunFilter{JobType: "dept_manager_sweep", Status: "failed"})
	assert.Contains(t, query, "job_type = $1")
	assert.Contains(t, query, "status = $2")
	assert.Equal(t, []any{"dept_manager_sweep", "failed"}, args)
}

func TestDecodeDetails(t *testing.T) {
	assert.Equal(t, map[string]any{"writes": float64(2)}, decodeDetails([]byte(`{"writes":2}`)))
	assert.Equal(t, map[string]any{"raw": "nope"}, decodeDetails([]byte("nope")))
	assert.Empty(t, decodeDetails(nil))
}
