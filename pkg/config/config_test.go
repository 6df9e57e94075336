package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "enterprise", cfg.PlanTier)
	assert.Equal(t, 15*time.Minute, cfg.PreviewTTL)
	assert.Zero(t, cfg.SyncTickInterval)
	assert.Equal(t, "https://graph.microsoft.com", cfg.GraphURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SYNC_TICK_INTERVAL", "1h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("RAMP_API_TOKEN", "ramp-static")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, time.Hour, cfg.SyncTickInterval)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, "ramp-static", cfg.RampAPIToken)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	_, err := Load()
	assert.Error(t, err)
}

func TestProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET")

	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CRON_SECRET", "")
	_, err = Load()
	assert.ErrorContains(t, err, "CRON_SECRET")
}
