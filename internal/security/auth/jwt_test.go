package auth

import (
	"testing"
	"time"

	"github.com/saborytradicion/storefront/internal/domain"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", "")
	user := domain.User{ID: "u1", Name: "Ana", Email: "ana@demo.local", Role: domain.RoleAdmin, TenantDomain: "demo.local"}

	token, err := tm.GenerateToken(user, time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := tm.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.User() != user {
		t.Fatalf("expected %+v, got %+v", user, claims.User())
	}
}

func TestValidateRejectsForeignAndExpiredTokens(t *testing.T) {
	tm := NewTokenManager("secret", "storefront")
	other := NewTokenManager("other", "storefront")
	user := domain.User{ID: "u1", Role: domain.RoleSuperadmin}

	foreign, _ := other.GenerateToken(user, time.Hour)
	if _, err := tm.ValidateToken(foreign); err == nil {
		t.Fatalf("expected signature mismatch to fail")
	}

	past := time.Now().Add(-2 * time.Hour)
	tm.now = func() time.Time { return past }
	expired, _ := tm.GenerateToken(user, time.Hour)
	tm.now = time.Now
	if _, err := tm.ValidateToken(expired); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestExtractToken(t *testing.T) {
	if tok, err := ExtractToken("Bearer abc"); err != nil || tok != "abc" {
		t.Fatalf("unexpected %q %v", tok, err)
	}
	for _, h := range []string{"", "Bearer", "Basic abc", "Bearer "} {
		if _, err := ExtractToken(h); err == nil {
			t.Fatalf("expected error for %q", h)
		}
	}
}

func TestPasswords(t *testing.T) {
	if _, err := HashPassword("short"); err != ErrWeakPassword {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if !CheckPassword(hash, "correct horse") || CheckPassword(hash, "wrong horse") {
		t.Fatalf("password check mismatch")
	}
}
