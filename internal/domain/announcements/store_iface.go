package announcements

import (
	"context"
	"time"
)

type StoreAPI interface {
	ListVisible(ctx context.Context, departmentID string, now time.Time, limit, offset int) ([]Announcement, error)
	CountVisible(ctx context.Context, departmentID string, now time.Time) (int, error)
	ListAll(ctx context.Context, status string, limit, offset int) ([]Announcement, error)
	CountAll(ctx context.Context, status string) (int, error)
	Get(ctx context.Context, id string) (*Announcement, error)
	Create(ctx context.Context, a Announcement) (string, error)
	Update(ctx context.Context, id string, a Announcement) error
	SetStatus(ctx context.Context, id, status string) error
	Delete(ctx context.Context, id string) error
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
	RecipientEmails(ctx context.Context, departmentID string) ([]string, error)
}
