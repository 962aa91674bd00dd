// Package config provides configuration management functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir        string // Base directory for the database and backup staging (always absolute)
	LogLevel       string
	Port           int
	DevMode        bool
	FrontendOrigin string

	AutomationInterval time.Duration // Cadence of the cart automation tick
	MarketInterval     time.Duration // Cadence of the simulated price refresh
	QuoteTimeout       time.Duration // Upper bound on a single quote fetch during a tick

	Backup *BackupConfig
}

// BackupConfig holds off-site backup configuration.
// Any S3-compatible endpoint works; Cloudflare R2 is the expected target.
type BackupConfig struct {
	Enabled         bool
	Schedule        string // cron schedule, e.g. "@every 6h" or "0 0 3 * * *"
	Bucket          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
	RetentionDays   int // 0 keeps every backup
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("STOCKCART_DATA_DIR", "./data")

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:            absDataDir,
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnvAsInt("PORT", 8000),
		DevMode:            getEnvAsBool("DEV_MODE", false),
		FrontendOrigin:     getEnv("FRONTEND_ORIGIN", "http://localhost:5173"),
		AutomationInterval: getEnvAsDuration("AUTOMATION_INTERVAL", 5*time.Second),
		MarketInterval:     getEnvAsDuration("MARKET_INTERVAL", 60*time.Second),
		QuoteTimeout:       getEnvAsDuration("QUOTE_TIMEOUT", 2*time.Second),
		Backup:             loadBackupConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DatabasePath returns the location of the SQLite database file
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "stockcart.db")
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	if c.AutomationInterval <= 0 {
		return errors.New("AUTOMATION_INTERVAL must be positive")
	}
	if c.MarketInterval <= 0 {
		return errors.New("MARKET_INTERVAL must be positive")
	}
	if c.QuoteTimeout <= 0 {
		return errors.New("QUOTE_TIMEOUT must be positive")
	}
	if c.Backup != nil && c.Backup.Enabled && c.Backup.Bucket == "" {
		return errors.New("BACKUP_BUCKET is required when backups are enabled")
	}
	if c.Backup != nil && c.Backup.RetentionDays < 0 {
		return errors.New("BACKUP_RETENTION_DAYS must not be negative")
	}
	return nil
}

func loadBackupConfig() *BackupConfig {
	return &BackupConfig{
		Enabled:         getEnvAsBool("BACKUP_ENABLED", false),
		Schedule:        getEnv("BACKUP_SCHEDULE", "@every 6h"),
		Bucket:          getEnv("BACKUP_BUCKET", ""),
		Endpoint:        getEnv("BACKUP_ENDPOINT", ""),
		Region:          getEnv("BACKUP_REGION", "auto"),
		AccessKeyID:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		SecretAccessKey: getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		Prefix:          getEnv("BACKUP_PREFIX", "stockcart/"),
		RetentionDays:   getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
	}
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("5s", "1m") and bare integers, read as seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
