package attendance

import (
	"context"
	"strings"
	"time"
)

type Service struct {
	store StoreAPI
	now   func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) List(ctx context.Context, filter Filter) ([]Record, int, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, 0, ErrInvalidRange
	}
	total, err := s.store.CountRecords(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	records, err := s.store.ListRecords(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	if records == nil {
		records = []Record{}
	}
	return records, total, nil
}

func (s *Service) GetRecord(ctx context.Context, recordID string) (*Record, error) {
	return s.store.GetRecord(ctx, recordID)
}

// Summary computes working days, present days and the attendance
// percentage of one employee over [from, to].
func (s *Service) Summary(ctx context.Context, employeeID string, from, to time.Time) (Summary, error) {
	from, to = dateOnly(from), dateOnly(to)
	if to.Before(from) {
		return Summary{}, ErrInvalidRange
	}
	counts, err := s.store.StatusCounts(ctx, employeeID, from, to)
	if err != nil {
		return Summary{}, err
	}
	present := 0
	for status, n := range counts {
		if CountsAsPresent(status) {
			present += n
		}
	}
	working := WorkingDays(from, to)
	return Summary{
		EmployeeID:  employeeID,
		From:        from,
		To:          to,
		WorkingDays: working,
		PresentDays: present,
		Percentage:  Percentage(working, present),
		ByStatus:    counts,
	}, nil
}

func (s *Service) AttendancePercentage(ctx context.Context, employeeID string, from, to time.Time) (int, error) {
	summary, err := s.Summary(ctx, employeeID, from, to)
	if err != nil {
		return 0, err
	}
	return summary.Percentage, nil
}

// CurrentMonthPercentage covers the first of this month through today.
func (s *Service) CurrentMonthPercentage(ctx context.Context, employeeID string) (int, error) {
	from, to := CurrentMonth(s.now())
	return s.AttendancePercentage(ctx, employeeID, from, to)
}

func (s *Service) DepartmentSummary(ctx context.Context, departmentID string, from, to time.Time) ([]Summary, error) {
	from, to = dateOnly(from), dateOnly(to)
	if to.Before(from) {
		return nil, ErrInvalidRange
	}
	presence, err := s.store.DepartmentPresence(ctx, departmentID, from, to)
	if err != nil {
		return nil, err
	}
	working := WorkingDays(from, to)
	out := make([]Summary, 0, len(presence))
	for _, pc := range presence {
		out = append(out, Summary{
			EmployeeID:   pc.EmployeeID,
			EmployeeName: pc.EmployeeName,
			From:         from,
			To:           to,
			WorkingDays:  working,
			PresentDays:  pc.PresentDays,
			Percentage:   Percentage(working, pc.PresentDays),
		})
	}
	return out, nil
}

// Regularize corrects a record's status and returns the record as it was.
func (s *Service) Regularize(ctx context.Context, recordID, status, reason string) (*Record, error) {
	status = strings.TrimSpace(status)
	if !ValidStatus(status) {
		return nil, ErrInvalidStatus
	}
	existing, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Regularize(ctx, recordID, status, strings.TrimSpace(reason)); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) TodayCounts(ctx context.Context, departmentID string) (DayCounts, error) {
	return s.store.DayCounts(ctx, dateOnly(s.now()), departmentID)
}
