package leave

import (
	"context"
	"time"
)

type StoreAPI interface {
	ListTypes(ctx context.Context) ([]LeaveType, error)
	GetType(ctx context.Context, leaveTypeID string) (*LeaveType, error)
	CreateType(ctx context.Context, payload LeaveType) (string, error)
	ListRequests(ctx context.Context, filter RequestFilter) ([]LeaveRequest, error)
	CountRequests(ctx context.Context, filter RequestFilter) (int, error)
	GetRequest(ctx context.Context, requestID string) (*LeaveRequest, error)
	CreateRequest(ctx context.Context, req LeaveRequest) (string, error)
	HasOverlap(ctx context.Context, employeeID string, start, end time.Time) (bool, error)
	// TransitionStatus moves a request from one status to another and
	// reports false when the request was no longer in from.
	TransitionStatus(ctx context.Context, requestID, from, to, actorID, remarks string) (bool, error)
}
