package leave

import "time"

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

type LeaveType struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	MaxDays   int       `json:"maxDays"`
	IsPaid    bool      `json:"isPaid"`
	CreatedAt time.Time `json:"createdAt"`
}

type LeaveRequest struct {
	ID            string     `json:"id"`
	EmployeeID    string     `json:"employeeId"`
	EmployeeName  string     `json:"employeeName,omitempty"`
	DepartmentID  string     `json:"departmentId,omitempty"`
	LeaveTypeID   string     `json:"leaveTypeId"`
	LeaveTypeName string     `json:"leaveTypeName,omitempty"`
	StartDate     time.Time  `json:"startDate"`
	EndDate       time.Time  `json:"endDate"`
	TotalDays     float64    `json:"totalDays"`
	Status        string     `json:"status"`
	Reason        string     `json:"reason"`
	Remarks       string     `json:"remarks,omitempty"`
	ApprovedBy    string     `json:"approvedBy,omitempty"`
	ApprovedAt    *time.Time `json:"approvedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

type RequestFilter struct {
	EmployeeID   string
	DepartmentID string
	Status       string
	Limit        int
	Offset       int
}

type CreateRequestInput struct {
	LeaveTypeID string
	StartDate   time.Time
	EndDate     time.Time
	StartHalf   bool
	EndHalf     bool
	Reason      string
}

// Actor is the caller of a leave operation. DepartmentID is the caller's
// own department and matters only for managers.
type Actor struct {
	ID           string
	EmployeeID   string
	DepartmentID string
	Privileged   bool
	Manager      bool
}
