package auth

import (
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	tm := NewTokenManager("secret", "")

	token, err := tm.GenerateToken("user-1", "admin@example.com", "admin", time.Hour)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := tm.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "admin" || claims.Email != "admin@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateRejectsOtherSecretAndExpired(t *testing.T) {
	issuer := NewTokenManager("secret", "")
	other := NewTokenManager("other", "")

	token, _ := issuer.GenerateToken("user-1", "a@example.com", "admin", time.Hour)
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatalf("expected signature mismatch")
	}

	expired, _ := issuer.GenerateToken("user-1", "a@example.com", "admin", -time.Minute)
	if _, err := issuer.ValidateToken(expired); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestExtractToken(t *testing.T) {
	if tok, err := ExtractToken("Bearer abc"); err != nil || tok != "abc" {
		t.Fatalf("expected abc, got %q %v", tok, err)
	}
	for _, h := range []string{"", "abc", "Basic abc", "Bearer a b"} {
		if _, err := ExtractToken(h); err == nil {
			t.Fatalf("expected error for %q", h)
		}
	}
}
