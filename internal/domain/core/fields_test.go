package core

import (
	"testing"

	"ems/internal/domain/auth"
)

func sampleEmployee() *Employee {
	return &Employee{ID: "e1", AuthID: "auth-e1", Phone: "+1 555 0100"}
}

func TestFilterEmployeeFieldsHR(t *testing.T) {
	emp := sampleEmployee()
	FilterEmployeeFields(emp, auth.UserContext{Role: auth.RoleHR})

	if emp.AuthID == "" || emp.Phone == "" {
		t.Fatal("HR should retain all fields")
	}
}

func TestFilterEmployeeFieldsManager(t *testing.T) {
	emp := sampleEmployee()
	FilterEmployeeFields(emp, auth.UserContext{Role: auth.RoleManager, EmployeeID: "m1"})

	if emp.AuthID != "" || emp.Phone != "" {
		t.Fatal("manager should not see identity or contact fields of a report")
	}
}

func TestFilterEmployeeFieldsEmployeeSelf(t *testing.T) {
	emp := sampleEmployee()
	FilterEmployeeFields(emp, auth.UserContext{Role: auth.RoleEmployee, EmployeeID: "e1"})

	if emp.AuthID != "" {
		t.Fatal("employee should not see the identity provider id")
	}
	if emp.Phone == "" {
		t.Fatal("employee should see own phone")
	}
}
