package auth

import (
	"testing"
	"time"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := "test-secret"
	token, err := GenerateToken(secret, "auth-1", "Jane@Example.com", "authenticated", time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}

	identity, err := ParseToken(secret, "authenticated", token)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if identity.AuthID != "auth-1" || identity.Email != "jane@example.com" {
		t.Fatalf("identity mismatch: %+v", identity)
	}
}

func TestParseTokenRejectsWrongSecretAndAudience(t *testing.T) {
	token, err := GenerateToken("secret-a", "auth-1", "a@example.com", "authenticated", time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret-b", "", token); err == nil {
		t.Fatal("expected signature error")
	}
	if _, err := ParseToken("secret-a", "other", token); err == nil {
		t.Fatal("expected audience error")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	token, err := GenerateToken("secret", "auth-1", "a@example.com", "", -time.Minute)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret", "", token); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestParseTokenRequiresSubject(t *testing.T) {
	token, err := GenerateToken("secret", "", "a@example.com", "", time.Hour)
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if _, err := ParseToken("secret", "", token); err == nil {
		t.Fatal("expected error for token without subject")
	}
}
