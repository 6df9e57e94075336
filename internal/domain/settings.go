package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Setting keys. Per-lane keys are built with the helpers below.
const (
	SettingAzureTenantID     = "azure_tenant_id"
	SettingAzureClientID     = "azure_client_id"
	SettingAzureClientSecret = "azure_client_secret"
	SettingAzureCallbackURL  = "azure_callback_url"
	SettingAzureSyncPhotos   = "azure_sync_photos"
	SettingRampAPIToken      = "ramp_api_token"
	SettingRampClientID      = "ramp_client_id"
	SettingRampClientSecret  = "ramp_client_secret"
	SettingPlanTier          = "plan_tier"
)

func ScheduleKey(lane Lane) string { return "sync_schedule_" + string(lane) }
func StartKey(lane Lane) string    { return "sync_start_" + string(lane) }
func LastSyncKey(lane Lane) string { return "last_" + string(lane) + "_sync" }

// SettingsRepository is a flat global key/value store. Get returns "" and
// no error for absent keys.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, error)
	GetMany(ctx context.Context, keys []string) (map[string]string, error)
	Set(ctx context.Context, key, value string) error
}

// AuditEntry is an append-only record of one sync attempt or admin action
type AuditEntry struct {
	ID          string
	Action      string
	EntityType  string
	Description string
	Metadata    json.RawMessage
	ActorID     string
	CreatedAt   time.Time
}

// AuditRepository appends and lists audit entries
type AuditRepository interface {
	Append(ctx context.Context, entry *AuditEntry) error
	List(ctx context.Context, entityType string, limit int) ([]*AuditEntry, error)
}
