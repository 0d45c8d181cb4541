package attendance

import (
	"errors"
	"time"
)

const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
	StatusLate    = "late"
	StatusHalfDay = "half_day"
	StatusLeave   = "leave"
	StatusHoliday = "holiday"
	StatusWeekoff = "weekoff"
)

var (
	ErrNotFound      = errors.New("attendance record not found")
	ErrInvalidStatus = errors.New("invalid attendance status")
	ErrInvalidRange  = errors.New("invalid date range")
)

type Record struct {
	ID                   string     `json:"id"`
	EmployeeID           string     `json:"employeeId"`
	EmployeeName         string     `json:"employeeName,omitempty"`
	DepartmentID         string     `json:"departmentId,omitempty"`
	Date                 time.Time  `json:"date"`
	CheckIn              *time.Time `json:"checkIn,omitempty"`
	CheckOut             *time.Time `json:"checkOut,omitempty"`
	TotalHours           float64    `json:"totalHours"`
	Status               string     `json:"status"`
	Regularized          bool       `json:"regularized"`
	RegularizationReason string     `json:"regularizationReason,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
}

type Summary struct {
	EmployeeID   string         `json:"employeeId"`
	EmployeeName string         `json:"employeeName,omitempty"`
	From         time.Time      `json:"from"`
	To           time.Time      `json:"to"`
	WorkingDays  int            `json:"workingDays"`
	PresentDays  int            `json:"presentDays"`
	Percentage   int            `json:"percentage"`
	ByStatus     map[string]int `json:"byStatus,omitempty"`
}

// PresenceCount is one employee's present-day tally within a range.
type PresenceCount struct {
	EmployeeID   string
	EmployeeName string
	PresentDays  int
}

type Filter struct {
	EmployeeID   string
	DepartmentID string
	From         time.Time
	To           time.Time
	Limit        int
	Offset       int
}

type DayCounts struct {
	Present int `json:"present"`
	Late    int `json:"late"`
	Absent  int `json:"absent"`
	OnLeave int `json:"onLeave"`
}
