package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("QUOTA_TIMEZONE", "")
	t.Setenv("REDIS_DB", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Quota.TrialDailyLimit)
	assert.Equal(t, 999999, cfg.Quota.PaidDailyLimit)
	assert.Equal(t, 3, cfg.Quota.WarningThreshold)
	assert.Equal(t, time.UTC, cfg.Quota.Location)
	assert.Equal(t, 30*time.Second, cfg.Browser.NavigationTimeout())
	assert.Equal(t, 15*time.Second, cfg.Browser.FallbackTimeout())
	assert.Equal(t, "memory", cfg.Worker.QueueBackend)
	assert.Equal(t, time.Hour, cfg.Worker.TrialCheckInterval())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("QUOTA_TRIAL_DAILY_LIMIT", "5")
	t.Setenv("QUOTA_TIMEZONE", "America/New_York")
	t.Setenv("BROWSER_NAVIGATION_TIMEOUT_SECONDS", "45")
	t.Setenv("WORKER_CONCURRENCY", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Quota.TrialDailyLimit)
	assert.Equal(t, "America/New_York", cfg.Quota.Location.String())
	assert.Equal(t, 45*time.Second, cfg.Browser.NavigationTimeout())
	assert.Equal(t, 4, cfg.Worker.Concurrency)
}

func TestLoadRejectsBadTimezone(t *testing.T) {
	t.Setenv("QUOTA_TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.Error(t, err)
}

func TestSMTPEnabled(t *testing.T) {
	assert.False(t, NotificationConfig{SMTPHost: "smtp.example.com"}.SMTPEnabled())
	assert.True(t, NotificationConfig{SMTPHost: "smtp.example.com", OperatorEmail: "ops@example.com"}.SMTPEnabled())
}
