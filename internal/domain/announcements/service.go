package announcements

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Publisher pushes announcements to subscribed clients.
type Publisher interface {
	PublishAnnouncement(ctx context.Context, a Announcement) error
}

type Service struct {
	store       StoreAPI
	Mailer      Mailer
	Publisher   Publisher
	DefaultFrom string
	now         func() time.Time
}

func New(store StoreAPI, mailer Mailer, publisher Publisher) *Service {
	return &Service{
		store:       store,
		Mailer:      mailer,
		Publisher:   publisher,
		DefaultFrom: "no-reply@example.com",
		now:         time.Now,
	}
}

// IsVisible reports whether a is shown to an employee of departmentID at now.
func IsVisible(a Announcement, departmentID string, now time.Time) bool {
	if a.Status != StatusActive {
		return false
	}
	if a.ExpiryDate != nil && !a.ExpiryDate.After(now) {
		return false
	}
	if a.TargetAudience == AudienceAll {
		return true
	}
	return departmentID != "" && a.TargetDepartmentID == departmentID
}

func normalize(a *Announcement) error {
	a.Title = strings.TrimSpace(a.Title)
	a.Message = strings.TrimSpace(a.Message)
	if a.Type == "" {
		a.Type = TypeGeneral
	}
	if a.Priority == "" {
		a.Priority = PriorityNormal
	}
	if a.TargetAudience == "" {
		a.TargetAudience = AudienceAll
	}
	if a.DeliveryMethod == "" {
		a.DeliveryMethod = DeliveryInApp
	}
	if a.Status == "" {
		a.Status = StatusActive
	}
	switch {
	case a.Title == "" || a.Message == "":
		return fmt.Errorf("%w: title and message are required", ErrInvalid)
	case !oneOf(a.Type, validTypes):
		return fmt.Errorf("%w: type %q", ErrInvalid, a.Type)
	case !oneOf(a.Priority, validPriorities):
		return fmt.Errorf("%w: priority %q", ErrInvalid, a.Priority)
	case !oneOf(a.TargetAudience, validAudiences):
		return fmt.Errorf("%w: audience %q", ErrInvalid, a.TargetAudience)
	case !oneOf(a.DeliveryMethod, validDelivery):
		return fmt.Errorf("%w: delivery method %q", ErrInvalid, a.DeliveryMethod)
	case !oneOf(a.Status, validStatuses):
		return fmt.Errorf("%w: status %q", ErrInvalid, a.Status)
	case a.TargetAudience == AudienceDepartment && a.TargetDepartmentID == "":
		return fmt.Errorf("%w: department audience needs a target department", ErrInvalid)
	}
	if a.TargetAudience == AudienceAll {
		a.TargetDepartmentID = ""
	}
	return nil
}

func (s *Service) ListVisible(ctx context.Context, departmentID string, limit, offset int) ([]Announcement, int, error) {
	now := s.now()
	total, err := s.store.CountVisible(ctx, departmentID, now)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.ListVisible(ctx, departmentID, now, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []Announcement{}
	}
	return items, total, nil
}

func (s *Service) ListAll(ctx context.Context, status string, limit, offset int) ([]Announcement, int, error) {
	total, err := s.store.CountAll(ctx, status)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.store.ListAll(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []Announcement{}
	}
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Announcement, error) {
	return s.store.Get(ctx, id)
}

// Create stores a and delivers it. Delivery problems are logged and
// reported in the returned Delivery; they never undo the announcement.
func (s *Service) Create(ctx context.Context, createdBy string, a Announcement) (*Announcement, Delivery, error) {
	if err := normalize(&a); err != nil {
		return nil, Delivery{}, err
	}
	a.CreatedBy = createdBy
	id, err := s.store.Create(ctx, a)
	if err != nil {
		return nil, Delivery{}, err
	}
	a.ID = id
	return &a, s.deliver(ctx, a), nil
}

func (s *Service) Update(ctx context.Context, id string, a Announcement) (*Announcement, error) {
	existing, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := normalize(&a); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, id, a); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *Service) Archive(ctx context.Context, id string) error {
	return s.store.SetStatus(ctx, id, StatusArchived)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) ExpireDue(ctx context.Context) (int64, error) {
	return s.store.ExpireDue(ctx, s.now())
}

func (s *Service) deliver(ctx context.Context, a Announcement) Delivery {
	d := Delivery{Method: a.DeliveryMethod}
	switch a.DeliveryMethod {
	case DeliveryEmail:
		if s.Mailer == nil {
			return d
		}
		recipients, err := s.store.RecipientEmails(ctx, a.TargetDepartmentID)
		if err != nil {
			slog.Warn("announcement recipient lookup failed", "announcementId", a.ID, "err", err)
			return d
		}
		d.Recipients = len(recipients)
		for _, to := range recipients {
			if err := s.Mailer.Send(ctx, s.DefaultFrom, to, a.Title, a.Message); err != nil {
				d.Failed++
				slog.Warn("announcement email send failed", "announcementId", a.ID, "err", err)
				continue
			}
			d.Sent++
		}
	case DeliveryPush:
		if s.Publisher == nil {
			return d
		}
		d.Recipients = 1
		if err := s.Publisher.PublishAnnouncement(ctx, a); err != nil {
			d.Failed = 1
			slog.Warn("announcement publish failed", "announcementId", a.ID, "err", err)
			return d
		}
		d.Sent = 1
	}
	return d
}
