package attendance

import (
	"context"
	"time"
)

type StoreAPI interface {
	ListRecords(ctx context.Context, filter Filter) ([]Record, error)
	CountRecords(ctx context.Context, filter Filter) (int, error)
	GetRecord(ctx context.Context, recordID string) (*Record, error)
	StatusCounts(ctx context.Context, employeeID string, from, to time.Time) (map[string]int, error)
	DepartmentPresence(ctx context.Context, departmentID string, from, to time.Time) ([]PresenceCount, error)
	Regularize(ctx context.Context, recordID, status, reason string) error
	DayCounts(ctx context.Context, day time.Time, departmentID string) (DayCounts, error)
	EmployeeName(ctx context.Context, employeeID string) (string, error)
}
