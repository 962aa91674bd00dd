package di

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockcart/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		DataDir:            t.TempDir(),
		Port:               8000,
		AutomationInterval: 5 * time.Second,
		MarketInterval:     time.Minute,
		QuoteTimeout:       2 * time.Second,
		Backup:             &config.BackupConfig{Enabled: false},
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(context.Background(), cfg, "test", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.NotNil(t, container.DB)
	assert.NotNil(t, container.CartService)
	assert.NotNil(t, container.RulesService)
	assert.NotNil(t, container.Engine)
	assert.NotNil(t, container.Hub)
	assert.NotNil(t, container.CartHandler)
	assert.NotNil(t, container.RulesHandler)
	assert.Nil(t, container.BackupService, "backups are off unless enabled")

	assert.Nil(t, jobs.Backup)
	names := make([]string, 0)
	for _, job := range jobs.All() {
		names = append(names, job.Name())
	}
	assert.ElementsMatch(t, []string{"automation_tick", "market_refresh", "database_maintenance", "database_vacuum"}, names)
	assert.Len(t, container.Scheduler.Status(), 4)
}

func TestWire_JobsShareState(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(context.Background(), cfg, "test", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	// A manual tick runs against the wired stores
	require.NoError(t, container.Scheduler.RunNow(jobs.AutomationTick))
	assert.False(t, container.Engine.LastTick().StartedAt.IsZero())
}

func TestWire_BackupEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backup = &config.BackupConfig{
		Enabled:         true,
		Schedule:        "@every 6h",
		Bucket:          "stockcart-test",
		Endpoint:        "http://127.0.0.1:1",
		Region:          "auto",
		AccessKeyID:     "id",
		SecretAccessKey: "secret",
		RetentionDays:   7,
	}

	container, jobs, err := Wire(context.Background(), cfg, "test", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.NotNil(t, container.BackupService)
	require.NotNil(t, jobs.Backup)
	assert.Equal(t, "r2_backup", jobs.Backup.Name())
	assert.Len(t, jobs.All(), 5)
}

func TestRegisterJobs_NilContainer(t *testing.T) {
	_, err := RegisterJobs(nil, testConfig(t), zerolog.Nop())
	assert.Error(t, err)
}
