package core

import (
	"errors"
	"time"

	"ems/internal/domain/auth"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrForbidden = errors.New("forbidden")
)

// Job role labels the reconciler relies on.
const (
	RoleNameDepartmentManager = "Department Manager"
	RoleNameEmployee          = auth.RoleNameEmployee
)

const (
	StatusActive    = "active"
	StatusInactive  = "inactive"
	StatusProbation = "probation"
	StatusResigned  = "resigned"
	StatusOnLeave   = "on_leave"
)

const (
	EmploymentFullTime = "full_time"
	EmploymentPartTime = "part_time"
	EmploymentContract = "contract"
	EmploymentIntern   = "intern"
)

type Employee struct {
	ID             string     `json:"id"`
	AuthID         string     `json:"authId,omitempty"`
	Email          string     `json:"email"`
	FirstName      string     `json:"firstName"`
	LastName       string     `json:"lastName"`
	Phone          string     `json:"phone,omitempty"`
	DepartmentID   string     `json:"departmentId"`
	DepartmentName string     `json:"departmentName"`
	RoleID         string     `json:"roleId"`
	RoleName       string     `json:"roleName"`
	AccessLevel    auth.Role  `json:"accessLevel"`
	ManagerID      string     `json:"managerId"`
	Status         string     `json:"status"`
	EmploymentType string     `json:"employmentType"`
	JoiningDate    *time.Time `json:"joiningDate,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

func (e Employee) FullName() string {
	if e.LastName == "" {
		return e.FirstName
	}
	return e.FirstName + " " + e.LastName
}

type EmployeeFilter struct {
	DepartmentID string
	Status       string
	Query        string
	Limit        int
	Offset       int
}

type Department struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ManagerID   string    `json:"managerId"`
	ManagerName string    `json:"managerName,omitempty"`
	Status      string    `json:"status"`
	MemberCount int       `json:"memberCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type DepartmentDetail struct {
	Department
	Members   []Employee       `json:"members"`
	Reconcile *ReconcileResult `json:"reconcile,omitempty"`
}

type Role struct {
	ID          string    `json:"id"`
	RoleName    string    `json:"roleName"`
	AccessLevel auth.Role `json:"accessLevel"`
	CreatedAt   time.Time `json:"createdAt"`
}
