package domain

import (
	"context"
	"time"
)

// Role is a profile's privilege level.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// DefaultSyncedRole is assigned to profiles created by directory sync.
const DefaultSyncedRole = RoleEmployee

// Profile is a local person record, unique by lowercase email
type Profile struct {
	ID         string // equals the auth identity ID
	Email      string // lowercase
	FullName   string
	Role       Role
	AvatarURL  string
	JobTitle   string
	Department string
	LocationID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Identity is the login identity underlying a profile
type Identity struct {
	ID           string
	Email        string
	PasswordHash string // empty for directory-synced identities
	CreatedAt    time.Time
}

// ProfileRepository defines data access for profiles
type ProfileRepository interface {
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	GetByID(ctx context.Context, id string) (*Profile, error)
	Create(ctx context.Context, profile *Profile) error
	UpdateFromDirectory(ctx context.Context, profile *Profile) error
	SetAvatar(ctx context.Context, id, avatarURL string) error
	ExistingEmails(ctx context.Context, emails []string) (map[string]bool, error)
}

// IdentityRepository defines data access for auth identities
type IdentityRepository interface {
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	// FindOrCreate returns the identity for email, creating one when absent.
	FindOrCreate(ctx context.Context, email string) (*Identity, error)
	SetPassword(ctx context.Context, id, passwordHash string) error
}

// AvatarRepository stores profile photos
type AvatarRepository interface {
	Put(ctx context.Context, profileID, contentType string, data []byte) error
	Get(ctx context.Context, profileID string) (contentType string, data []byte, err error)
}
