package db

import (
	"testing"

	"ems/internal/domain/auth"
	"ems/internal/domain/core"
)

func TestDefaultRolesCoverEveryAccessLevel(t *testing.T) {
	levels := map[auth.Role]bool{}
	names := map[string]bool{}
	for _, role := range defaultRoles {
		levels[role.Level] = true
		if names[role.Name] {
			t.Fatalf("duplicate role %q", role.Name)
		}
		names[role.Name] = true
	}
	for _, level := range auth.AllRoles {
		if !levels[level] {
			t.Fatalf("no seeded role for %s", level)
		}
	}
	if !names[core.RoleNameDepartmentManager] || !names[core.RoleNameEmployee] {
		t.Fatal("reconciler roles must be seeded")
	}
}

func TestAdminSeedEmails(t *testing.T) {
	got := adminSeedEmails([]string{" Admin@Example.com", "admin@example.com", "", "not-an-email", "ops@example.com"})
	want := []string{"admin@example.com", "ops@example.com"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
