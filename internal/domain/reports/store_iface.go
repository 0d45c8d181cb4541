package reports

import (
	"context"

	"ems/internal/domain/attendance"
)

type StoreAPI interface {
	EmployeeStatusCounts(ctx context.Context, departmentID string) (map[string]int, error)
	DepartmentCount(ctx context.Context) (int, error)
	PendingLeave(ctx context.Context, departmentID, employeeID string) (int, error)
	ActiveAnnouncements(ctx context.Context, departmentID string, everyone bool) (int, error)
	ListJobRuns(ctx context.Context, filter JobRunFilter, limit, offset int) ([]JobRun, error)
	CountJobRuns(ctx context.Context, filter JobRunFilter) (int, error)
}

// Attendance is the part of the attendance service dashboards read.
type Attendance interface {
	TodayCounts(ctx context.Context, departmentID string) (attendance.DayCounts, error)
	CurrentMonthPercentage(ctx context.Context, employeeID string) (int, error)
}
