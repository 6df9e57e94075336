package domain

import (
	"context"
	"time"
)

// Vendor is a local supplier record keyed by the external vendor id
type Vendor struct {
	ID               string
	ExternalVendorID string
	Name             string
	LegalName        string
	IsActive         bool
	Country          string
	State            string
	Description      string
	CategoryName     string
	SyncedAt         time.Time
}

// VendorRepository defines data access for vendors
type VendorRepository interface {
	// UpsertBatch writes all vendors in one statement keyed on ExternalVendorID.
	UpsertBatch(ctx context.Context, vendors []*Vendor) error
	ExistingExternalIDs(ctx context.Context, ids []string) (map[string]bool, error)
}
