package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STOCKCART_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 5*time.Second, cfg.AutomationInterval)
	assert.Equal(t, 60*time.Second, cfg.MarketInterval)
	assert.Equal(t, 2*time.Second, cfg.QuoteTimeout)
	assert.False(t, cfg.Backup.Enabled)
	assert.Equal(t, 30, cfg.Backup.RetentionDays)
	assert.Contains(t, cfg.DatabasePath(), "stockcart.db")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STOCKCART_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "9100")
	t.Setenv("AUTOMATION_INTERVAL", "250ms")
	t.Setenv("MARKET_INTERVAL", "30")
	t.Setenv("DEV_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 250*time.Millisecond, cfg.AutomationInterval)
	assert.Equal(t, 30*time.Second, cfg.MarketInterval)
	assert.True(t, cfg.DevMode)
}

func TestLoad_BackupWithoutBucket(t *testing.T) {
	t.Setenv("STOCKCART_DATA_DIR", t.TempDir())
	t.Setenv("BACKUP_ENABLED", "true")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "BACKUP_BUCKET")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Port:               8000,
			AutomationInterval: time.Second,
			MarketInterval:     time.Second,
			QuoteTimeout:       time.Second,
		}
	}

	assert.NoError(t, base().Validate())

	cfg := base()
	cfg.AutomationInterval = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Port = 70000
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.QuoteTimeout = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Backup = &BackupConfig{RetentionDays: -1}
	assert.Error(t, cfg.Validate())
}
