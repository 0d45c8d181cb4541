package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

type SyncTarget string

const (
	SyncTargetAdmin    SyncTarget = "admin"
	SyncTargetEmployee SyncTarget = "employee"
)

type SyncResult struct {
	Target  SyncTarget `json:"target"`
	ID      string     `json:"id"`
	Created bool       `json:"created"`
}

type SyncStore interface {
	UpsertAdmin(ctx context.Context, email, authID string) (string, bool, error)
	LinkEmployeeByEmail(ctx context.Context, email, authID string) (string, error)
	CreateEmployeeIdentity(ctx context.Context, email, authID string) (string, error)
}

// SyncService records a freshly authenticated identity so later role
// resolution finds it by auth id.
type SyncService struct {
	store       SyncStore
	cache       RoleCache
	adminEmails map[string]struct{}
}

func NewSyncService(store SyncStore, cache RoleCache, adminEmails []string) *SyncService {
	allow := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		if normalized := NormalizeEmail(email); normalized != "" {
			allow[normalized] = struct{}{}
		}
	}
	return &SyncService{store: store, cache: cache, adminEmails: allow}
}

func (s *SyncService) IsAdminEmail(email string) bool {
	_, ok := s.adminEmails[NormalizeEmail(email)]
	return ok
}

func (s *SyncService) Sync(ctx context.Context, email, authID string) (SyncResult, error) {
	email = NormalizeEmail(email)
	if email == "" || authID == "" {
		return SyncResult{}, errors.New("email and auth id are required")
	}
	if s.cache != nil {
		defer s.cache.Invalidate(ctx, authID)
	}

	if s.IsAdminEmail(email) {
		id, created, err := s.store.UpsertAdmin(ctx, email, authID)
		if errors.Is(err, ErrIdentityTaken) {
			slog.Warn("admin sync refused, email bound to another subject", "authId", authID)
			return SyncResult{}, err
		}
		if err != nil {
			return SyncResult{}, fmt.Errorf("upsert admin: %w", err)
		}
		return SyncResult{Target: SyncTargetAdmin, ID: id, Created: created}, nil
	}

	id, err := s.store.LinkEmployeeByEmail(ctx, email, authID)
	if err == nil {
		return SyncResult{Target: SyncTargetEmployee, ID: id}, nil
	}
	if errors.Is(err, ErrIdentityTaken) {
		slog.Warn("employee sync refused, email bound to another subject", "authId", authID)
		return SyncResult{}, err
	}
	if !errors.Is(err, ErrNotFound) {
		return SyncResult{}, fmt.Errorf("link employee: %w", err)
	}

	id, err = s.store.CreateEmployeeIdentity(ctx, email, authID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("create employee: %w", err)
	}
	slog.Info("employee identity created", "employeeId", id)
	return SyncResult{Target: SyncTargetEmployee, ID: id, Created: true}, nil
}
