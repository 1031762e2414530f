package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Resource paths
	DataDir    string
	SQLitePath string

	// Elasticsearch archive (optional; empty URL disables archiving)
	ElasticsearchURL   string
	ArchiveIndexPrefix string
	ArchiveInterval    time.Duration

	// Engine tuning
	StoreTimeout time.Duration // bound on any single persistence call
	SessionTTL   time.Duration // idle time before a session is abandoned
	ReapInterval time.Duration

	// Environment
	Environment string // "development" or "production"
	LogLevel    string
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Only return error if file exists but couldn't be loaded
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	// Get working directory for resource paths
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	dataDir := getEnvWithDefault("DATA_DIR", filepath.Join(wd, "data"))

	cfg := &Config{
		DataDir:            dataDir,
		SQLitePath:         getEnvWithDefault("SQLITE_PATH", filepath.Join(dataDir, "casino.db")),
		ElasticsearchURL:   os.Getenv("ELASTICSEARCH_URL"),
		ArchiveIndexPrefix: getEnvWithDefault("ARCHIVE_INDEX_PREFIX", "game-sessions"),
		ArchiveInterval:    getDurationWithDefault("ARCHIVE_INTERVAL", time.Hour),
		StoreTimeout:       getDurationWithDefault("STORE_TIMEOUT", 5*time.Second),
		SessionTTL:         getDurationWithDefault("SESSION_TTL", 30*time.Minute),
		ReapInterval:       getDurationWithDefault("REAP_INTERVAL", 5*time.Minute),
		Environment:        getEnvWithDefault("ENVIRONMENT", "development"),
		LogLevel:           getEnvWithDefault("LOG_LEVEL", "info"),
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// validate checks if all required configuration is present
func (c *Config) validate() error {
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be positive")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	if c.ReapInterval <= 0 {
		return fmt.Errorf("REAP_INTERVAL must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// getEnvWithDefault returns environment variable value or default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationWithDefault parses a duration env var, accepting either a Go
// duration string ("30m") or a plain number of seconds.
func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
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
