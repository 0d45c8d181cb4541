package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidState = errors.New("invalid state")
	ErrOverlap      = errors.New("overlapping leave request")
	ErrExceedsLimit = errors.New("request exceeds leave type limit")
)

type Service struct {
	Store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store}
}

func (s *Service) ListTypes(ctx context.Context) ([]LeaveType, error) {
	types, err := s.Store.ListTypes(ctx)
	if types == nil && err == nil {
		types = []LeaveType{}
	}
	return types, err
}

func (s *Service) CreateType(ctx context.Context, payload LeaveType) (string, error) {
	payload.Name = strings.TrimSpace(payload.Name)
	payload.Code = strings.ToUpper(strings.TrimSpace(payload.Code))
	return s.Store.CreateType(ctx, payload)
}

// ScopeFilter restricts filter to the requests actor may see: employees
// their own, managers their department, admin and HR everything.
func ScopeFilter(actor Actor, filter RequestFilter) (RequestFilter, bool) {
	switch {
	case actor.Privileged:
		return filter, true
	case actor.Manager && actor.DepartmentID != "":
		filter.DepartmentID = actor.DepartmentID
		return filter, true
	case actor.EmployeeID != "":
		filter.EmployeeID = actor.EmployeeID
		filter.DepartmentID = ""
		return filter, true
	default:
		return filter, false
	}
}

func (s *Service) ListRequests(ctx context.Context, actor Actor, filter RequestFilter) ([]LeaveRequest, int, error) {
	scoped, ok := ScopeFilter(actor, filter)
	if !ok {
		return []LeaveRequest{}, 0, nil
	}
	total, err := s.Store.CountRequests(ctx, scoped)
	if err != nil {
		return nil, 0, err
	}
	requests, err := s.Store.ListRequests(ctx, scoped)
	if err != nil {
		return nil, 0, err
	}
	if requests == nil {
		requests = []LeaveRequest{}
	}
	return requests, total, nil
}

func (s *Service) GetRequest(ctx context.Context, actor Actor, requestID string) (*LeaveRequest, error) {
	req, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, req) {
		return nil, ErrForbidden
	}
	return req, nil
}

func canSee(actor Actor, req *LeaveRequest) bool {
	return actor.Privileged || req.EmployeeID == actor.EmployeeID || canManage(actor, req)
}

// canManage reports whether actor may decide req. Nobody decides their own
// request; managers decide only within their own department.
func canManage(actor Actor, req *LeaveRequest) bool {
	if actor.EmployeeID != "" && req.EmployeeID == actor.EmployeeID {
		return false
	}
	if actor.Privileged {
		return true
	}
	return actor.Manager &&
		actor.DepartmentID != "" &&
		req.DepartmentID == actor.DepartmentID
}

func (s *Service) CreateRequest(ctx context.Context, employeeID string, in CreateRequestInput) (*LeaveRequest, error) {
	if employeeID == "" {
		return nil, ErrForbidden
	}
	days, err := CalculateRequestDays(in.StartDate, in.EndDate, in.StartHalf, in.EndHalf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	lt, err := s.Store.GetType(ctx, in.LeaveTypeID)
	if err != nil {
		return nil, err
	}
	if lt.MaxDays > 0 && days > float64(lt.MaxDays) {
		return nil, ErrExceedsLimit
	}
	start, end := dateOnly(in.StartDate), dateOnly(in.EndDate)
	overlap, err := s.Store.HasOverlap(ctx, employeeID, start, end)
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, ErrOverlap
	}

	req := LeaveRequest{
		EmployeeID:    employeeID,
		LeaveTypeID:   lt.ID,
		LeaveTypeName: lt.Name,
		StartDate:     start,
		EndDate:       end,
		TotalDays:     days,
		Status:        StatusPending,
		Reason:        strings.TrimSpace(in.Reason),
	}
	id, err := s.Store.CreateRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	req.ID = id
	return &req, nil
}

// Decide approves or rejects a pending request. The status change is a
// compare-and-set on pending, so two concurrent decisions cannot both win.
func (s *Service) Decide(ctx context.Context, actor Actor, requestID string, approve bool, remarks string) (*LeaveRequest, error) {
	req, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, req) {
		return nil, ErrForbidden
	}
	if req.Status != StatusPending {
		return nil, ErrInvalidState
	}
	next := StatusRejected
	if approve {
		next = StatusApproved
	}
	remarks = strings.TrimSpace(remarks)
	ok, err := s.Store.TransitionStatus(ctx, requestID, StatusPending, next, actor.ID, remarks)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}
	req.Status = next
	req.ApprovedBy = actor.ID
	req.Remarks = remarks
	return req, nil
}

func (s *Service) Cancel(ctx context.Context, actor Actor, requestID string) (*LeaveRequest, error) {
	req, err := s.Store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.EmployeeID != actor.EmployeeID {
		return nil, ErrForbidden
	}
	if req.Status != StatusPending {
		return nil, ErrInvalidState
	}
	ok, err := s.Store.TransitionStatus(ctx, requestID, StatusPending, StatusCancelled, actor.ID, "")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidState
	}
	req.Status = StatusCancelled
	return req, nil
}

func (s *Service) PendingCount(ctx context.Context, departmentID string) (int, error) {
	return s.Store.CountRequests(ctx, RequestFilter{DepartmentID: departmentID, Status: StatusPending})
}
