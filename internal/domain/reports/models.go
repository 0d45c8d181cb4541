package reports

import (
	"time"

	"ems/internal/domain/attendance"
)

// Dashboard is the role specific landing page summary. Fields that do not
// apply to the requested role are omitted.
type Dashboard struct {
	Role                 string                `json:"role"`
	DepartmentID         string                `json:"departmentId,omitempty"`
	TotalEmployees       int                   `json:"totalEmployees"`
	EmployeesByStatus    map[string]int        `json:"employeesByStatus,omitempty"`
	Departments          int                   `json:"departments,omitempty"`
	PendingLeave         int                   `json:"pendingLeave"`
	Today                *attendance.DayCounts `json:"today,omitempty"`
	AttendancePercentage *int                  `json:"attendancePercentage,omitempty"`
	ActiveAnnouncements  int                   `json:"activeAnnouncements"`
	LastSweep            *JobRun               `json:"lastSweep,omitempty"`
}

type JobRun struct {
	ID          string         `json:"id"`
	JobType     string         `json:"jobType"`
	Status      string         `json:"status"`
	Details     map[string]any `json:"details"`
	StartedAt   time.Time      `json:"startedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

type JobRunFilter struct {
	JobType     string
	Status      string
	StartedFrom *time.Time
	StartedTo   *time.Time
}
