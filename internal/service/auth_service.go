package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/lobbytrack/lobbytrack/internal/security/auth"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any failed login
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService handles authentication operations
type AuthService struct {
	identities domain.IdentityRepository
	profiles   domain.ProfileRepository
	tokens     *auth.TokenManager
	tokenTTL   time.Duration
	logger     *slog.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(
	identities domain.IdentityRepository,
	profiles domain.ProfileRepository,
	tokens *auth.TokenManager,
	tokenTTL time.Duration,
	logger *slog.Logger,
) *AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}

	return &AuthService{
		identities: identities,
		profiles:   profiles,
		tokens:     tokens,
		tokenTTL:   tokenTTL,
		logger:     logger,
	}
}

// LoginResult represents login response
type LoginResult struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"` // seconds
	TokenType string `json:"token_type"`
}

// Login authenticates an identity with a password and returns a JWT
// carrying the profile's role. Directory-synced identities have no
// password and cannot log in this way.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Info("login attempt with unknown email", slog.String("email", email))
		return nil, ErrInvalidCredentials
	}
	if identity.PasswordHash == "" {
		s.logger.Info("login attempt for identity without password", slog.String("email", email))
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("email", email))
		return nil, ErrInvalidCredentials
	}

	profile, err := s.profiles.GetByID(ctx, identity.ID)
	if err != nil {
		s.logger.Warn("identity has no profile", slog.String("user_id", identity.ID))
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(profile.ID, profile.Email, string(profile.Role), s.tokenTTL)
	if err != nil {
		s.logger.Error("failed to sign token", slog.String("error", err.Error()))
		return nil, errors.New("failed to generate token")
	}

	s.logger.Info("user logged in",
		slog.String("user_id", profile.ID),
		slog.String("role", string(profile.Role)),
	)

	return &LoginResult{
		UserID:    profile.ID,
		Email:     profile.Email,
		Role:      string(profile.Role),
		Token:     token,
		ExpiresIn: int(s.tokenTTL.Seconds()),
		TokenType: "Bearer",
	}, nil
}

// SeedAdmin makes sure an admin identity and profile exist for email with
// the given password. Running it again only resets a changed password.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil
	}
	if len(password) < 8 {
		return errors.New("admin password must be at least 8 characters")
	}

	identity, err := s.identities.FindOrCreate(ctx, email)
	if err != nil {
		return fmt.Errorf("seed admin identity: %w", err)
	}

	if identity.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)) != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		if err := s.identities.SetPassword(ctx, identity.ID, string(hash)); err != nil {
			return fmt.Errorf("set admin password: %w", err)
		}
	}

	profile, err := s.profiles.GetByID(ctx, identity.ID)
	switch {
	case err == nil:
		if profile.Role != domain.RoleAdmin {
			s.logger.Warn("seed admin email belongs to a non-admin profile",
				slog.String("user_id", profile.ID),
				slog.String("role", string(profile.Role)),
			)
		}
		return nil
	case !errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("lookup admin profile: %w", err)
	}

	if err := s.profiles.Create(ctx, &domain.Profile{
		ID:       identity.ID,
		Email:    email,
		FullName: "Administrator",
		Role:     domain.RoleAdmin,
	}); err != nil {
		return fmt.Errorf("create admin profile: %w", err)
	}
	s.logger.Info("admin seeded", slog.String("user_id", identity.ID))
	return nil
}

// ChangePassword changes an identity's password
func (s *AuthService) ChangePassword(ctx context.Context, email, oldPassword, newPassword string) error {
	if len(newPassword) < 8 {
		return errors.New("new password must be at least 8 characters")
	}

	identity, err := s.identities.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return errors.New("user not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(oldPassword)); err != nil {
		return errors.New("current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.String("error", err.Error()))
		return errors.New("failed to change password")
	}

	if err := s.identities.SetPassword(ctx, identity.ID, string(hash)); err != nil {
		s.logger.Error("failed to update password", slog.String("error", err.Error()))
		return errors.New("failed to change password")
	}

	s.logger.Info("user changed password", slog.String("user_id", identity.ID))
	return nil
}
