package announcements

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	items      map[string]Announcement
	recipients map[string][]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items: map[string]Announcement{},
		recipients: map[string][]string{
			"":   {"a@example.com", "b@example.com", "c@example.com"},
			"d1": {"a@example.com"},
		},
	}
}

func (f *fakeStore) ListVisible(ctx context.Context, departmentID string, now time.Time, limit, offset int) ([]Announcement, error) {
	var out []Announcement
	for _, a := range f.items {
		if IsVisible(a, departmentID, now) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) CountVisible(ctx context.Context, departmentID string, now time.Time) (int, error) {
	items, _ := f.ListVisible(ctx, departmentID, now, 0, 0)
	return len(items), nil
}

func (f *fakeStore) ListAll(ctx context.Context, status string, limit, offset int) ([]Announcement, error) {
	var out []Announcement
	for _, a := range f.items {
		if status == "" || a.Status == status {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) CountAll(ctx context.Context, status string) (int, error) {
	items, _ := f.ListAll(ctx, status, 0, 0)
	return len(items), nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*Announcement, error) {
	a, ok := f.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (f *fakeStore) Create(ctx context.Context, a Announcement) (string, error) {
	a.ID = a.Title
	f.items[a.ID] = a
	return a.ID, nil
}

func (f *fakeStore) Update(ctx context.Context, id string, a Announcement) error {
	if _, ok := f.items[id]; !ok {
		return ErrNotFound
	}
	a.ID = id
	f.items[id] = a
	return nil
}

func (f *fakeStore) SetStatus(ctx context.Context, id, status string) error {
	a, ok := f.items[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	f.items[id] = a
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	delete(f.items, id)
	return nil
}

func (f *fakeStore) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for id, a := range f.items {
		if a.Status == StatusActive && a.ExpiryDate != nil && !a.ExpiryDate.After(now) {
			a.Status = StatusExpired
			f.items[id] = a
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) RecipientEmails(ctx context.Context, departmentID string) ([]string, error) {
	return f.recipients[departmentID], nil
}

type fakeMailer struct {
	sent []string
	fail string
}

func (m *fakeMailer) Send(ctx context.Context, from, to, subject, body string) error {
	if to == m.fail {
		return errors.New("smtp down")
	}
	m.sent = append(m.sent, to)
	return nil
}

type fakePublisher struct {
	published []Announcement
	err       error
}

func (p *fakePublisher) PublishAnnouncement(ctx context.Context, a Announcement) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, a)
	return nil
}

func TestIsVisible(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		a    Announcement
		dept string
		want bool
	}{
		{"everyone", Announcement{Status: StatusActive, TargetAudience: AudienceAll}, "", true},
		{"own department", Announcement{Status: StatusActive, TargetAudience: AudienceDepartment, TargetDepartmentID: "d1"}, "d1", true},
		{"other department", Announcement{Status: StatusActive, TargetAudience: AudienceDepartment, TargetDepartmentID: "d1"}, "d2", false},
		{"no department", Announcement{Status: StatusActive, TargetAudience: AudienceDepartment, TargetDepartmentID: "d1"}, "", false},
		{"archived", Announcement{Status: StatusArchived, TargetAudience: AudienceAll}, "", false},
		{"expired", Announcement{Status: StatusActive, TargetAudience: AudienceAll, ExpiryDate: &past}, "", false},
		{"not yet expired", Announcement{Status: StatusActive, TargetAudience: AudienceAll, ExpiryDate: &future}, "", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsVisible(tc.a, tc.dept, now), tc.name)
	}
}

func TestCreateValidatesAndDefaults(t *testing.T) {
	svc := New(newFakeStore(), nil, nil)

	_, _, err := svc.Create(context.Background(), "u1", Announcement{Title: " ", Message: "x"})
	assert.ErrorIs(t, err, ErrInvalid)

	_, _, err = svc.Create(context.Background(), "u1", Announcement{Title: "t", Message: "m", TargetAudience: AudienceDepartment})
	assert.ErrorIs(t, err, ErrInvalid)

	_, _, err = svc.Create(context.Background(), "u1", Announcement{Title: "t", Message: "m", DeliveryMethod: "fax"})
	assert.ErrorIs(t, err, ErrInvalid)

	a, d, err := svc.Create(context.Background(), "u1", Announcement{Title: "Picnic", Message: "Friday", TargetDepartmentID: "d1"})
	require.NoError(t, err)
	assert.Equal(t, TypeGeneral, a.Type)
	assert.Equal(t, PriorityNormal, a.Priority)
	assert.Equal(t, AudienceAll, a.TargetAudience)
	assert.Empty(t, a.TargetDepartmentID)
	assert.Equal(t, StatusActive, a.Status)
	assert.Equal(t, "u1", a.CreatedBy)
	assert.Equal(t, Delivery{Method: DeliveryInApp}, d)
}

func TestCreateEmailDelivery(t *testing.T) {
	mailer := &fakeMailer{fail: "b@example.com"}
	svc := New(newFakeStore(), mailer, nil)

	_, d, err := svc.Create(context.Background(), "u1", Announcement{Title: "Policy", Message: "Read it", DeliveryMethod: DeliveryEmail})
	require.NoError(t, err)
	assert.Equal(t, Delivery{Method: DeliveryEmail, Recipients: 3, Sent: 2, Failed: 1}, d)

	_, d, err = svc.Create(context.Background(), "u1", Announcement{
		Title: "Ops only", Message: "m", DeliveryMethod: DeliveryEmail,
		TargetAudience: AudienceDepartment, TargetDepartmentID: "d1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Recipients)
}

func TestCreatePushDelivery(t *testing.T) {
	pub := &fakePublisher{}
	svc := New(newFakeStore(), nil, pub)

	a, d, err := svc.Create(context.Background(), "u1", Announcement{Title: "Outage", Message: "VPN down", DeliveryMethod: DeliveryPush, Priority: PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, 1, d.Sent)
	require.Len(t, pub.published, 1)
	assert.Equal(t, a.ID, pub.published[0].ID)

	pub.err = errors.New("broker unavailable")
	_, d, err = svc.Create(context.Background(), "u1", Announcement{Title: "Again", Message: "m", DeliveryMethod: DeliveryPush})
	require.NoError(t, err, "delivery failure must not fail creation")
	assert.Equal(t, 1, d.Failed)
}

func TestExpireDueAndVisibility(t *testing.T) {
	store := newFakeStore()
	svc := New(store, nil, nil)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	past := now.Add(-time.Minute)
	store.items["old"] = Announcement{ID: "old", Status: StatusActive, TargetAudience: AudienceAll, ExpiryDate: &past}
	store.items["new"] = Announcement{ID: "new", Status: StatusActive, TargetAudience: AudienceAll}

	n, err := svc.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, StatusExpired, store.items["old"].Status)

	items, total, err := svc.ListVisible(context.Background(), "", 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "new", items[0].ID)
}
