package domain

import (
	"context"
	"strings"
)

// Lane names one independently scheduled sync pipeline.
type Lane string

const (
	LaneAzure Lane = "azure"
	LaneRamp  Lane = "ramp"
)

// Lanes in the order a scheduled run evaluates them.
var Lanes = []Lane{LaneAzure, LaneRamp}

// ParseLane validates a lane name from a URL or CLI argument.
func ParseLane(s string) (Lane, bool) {
	switch Lane(strings.ToLower(strings.TrimSpace(s))) {
	case LaneAzure:
		return LaneAzure, true
	case LaneRamp:
		return LaneRamp, true
	}
	return "", false
}

// ExternalUser is a directory user as returned by the identity provider
type ExternalUser struct {
	ExternalID        string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail,omitempty"`
	UserPrincipalName string `json:"userPrincipalName,omitempty"`
	JobTitle          string `json:"jobTitle,omitempty"`
	Department        string `json:"department,omitempty"`
}

// PrimaryEmail returns the normalized lookup key, or "" when the record has no usable identity.
func (u ExternalUser) PrimaryEmail() string {
	email := strings.TrimSpace(u.Mail)
	if email == "" {
		email = strings.TrimSpace(u.UserPrincipalName)
	}
	return strings.ToLower(email)
}

// ExternalVendor is a vendor as returned by the spend-management platform
type ExternalVendor struct {
	ExternalID   string `json:"id"`
	Name         string `json:"name"`
	LegalName    string `json:"legalName,omitempty"`
	IsActive     bool   `json:"isActive"`
	Country      string `json:"country,omitempty"`
	State        string `json:"state,omitempty"`
	Description  string `json:"description,omitempty"`
	CategoryName string `json:"categoryName,omitempty"`
}

// PreviewRepository holds the last fetched external listing per admin and
// lane so an import can select records by id.
type PreviewRepository interface {
	SaveUsers(ctx context.Context, ownerID string, users []ExternalUser) error
	LoadUsers(ctx context.Context, ownerID string) ([]ExternalUser, error)
	SaveVendors(ctx context.Context, ownerID string, vendors []ExternalVendor) error
	LoadVendors(ctx context.Context, ownerID string) ([]ExternalVendor, error)
}
