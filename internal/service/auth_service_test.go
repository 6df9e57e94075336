package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/lobbytrack/lobbytrack/internal/security/auth"
)

func newTestAuthService() (*AuthService, *memIdentities, *memProfiles) {
	identities := newMemIdentities()
	profiles := newMemProfiles()
	s := NewAuthService(identities, profiles, auth.NewTokenManager("secret", ""), time.Hour, nil)
	return s, identities, profiles
}

func TestSeedAdminAndLogin(t *testing.T) {
	ctx := context.Background()
	s, _, profiles := newTestAuthService()

	if err := s.SeedAdmin(ctx, "Admin@Example.com", "Password123"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	// Seeding twice must not create a second profile
	if err := s.SeedAdmin(ctx, "admin@example.com", "Password123"); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}
	if profiles.count() != 1 {
		t.Fatalf("expected 1 profile, got %d", profiles.count())
	}

	lr, err := s.Login(ctx, "admin@example.com", "Password123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if lr.Token == "" || lr.Role != string(domain.RoleAdmin) {
		t.Fatalf("expected admin token, got %+v", lr)
	}
	if lr.ExpiresIn != 3600 {
		t.Fatalf("expected expires_in 3600, got %d", lr.ExpiresIn)
	}

	if _, err := s.Login(ctx, "admin@example.com", "Wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := s.Login(ctx, "nobody@example.com", "Password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestSyncedIdentityCannotLogIn(t *testing.T) {
	ctx := context.Background()
	s, identities, profiles := newTestAuthService()

	r := NewReconciler(profiles, identities, newMemVendors(), nil, nil)
	r.ReconcileUsers(ctx, []domain.ExternalUser{{ExternalID: "1", DisplayName: "Ada", Mail: "ada@example.com"}}, nil)

	if _, err := s.Login(ctx, "ada@example.com", ""); err == nil {
		t.Fatalf("expected error for empty password")
	}
	if _, err := s.Login(ctx, "ada@example.com", "anything"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestAuthService()
	if err := s.SeedAdmin(ctx, "bob@example.com", "OldPass123"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	// Wrong old password
	if err := s.ChangePassword(ctx, "bob@example.com", "bad", "NewPass123"); err == nil {
		t.Fatalf("expected wrong old password error")
	}
	// Good change
	if err := s.ChangePassword(ctx, "bob@example.com", "OldPass123", "NewPass123"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}
	// Old password should no longer work
	if _, err := s.Login(ctx, "bob@example.com", "OldPass123"); err == nil {
		t.Fatalf("expected old password to fail after change")
	}
	// New password works
	if _, err := s.Login(ctx, "bob@example.com", "NewPass123"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}
