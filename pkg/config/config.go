package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/lopanhq/gatekeeper/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server ServerConfig
	Cache  CacheConfig
	Audit  AuditConfig
	Engine EngineConfig

	// Logging
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for probes)
	HealthPort string
}

// CacheConfig holds permission result cache configuration
type CacheConfig struct {
	// Backend selects the cache implementation: "memory" or "redis".
	Backend    string
	TTL        time.Duration
	MaxEntries int
	RedisURL   string
}

// AuditConfig holds audit sink configuration
type AuditConfig struct {
	// Backend selects the sink: "file", "sqlite", "none", or
	// comma-free combinations are wired in main via a multi sink.
	Backend string
	Dir     string
	DBPath  string
}

// EngineConfig holds access engine tunables
type EngineConfig struct {
	// MaxElevation bounds temporary elevation durations.
	MaxElevation time.Duration

	// CleanupSchedule is the cron expression for the expired
	// assignment sweep.
	CleanupSchedule string

	// AdminUser is the seed administrator account id.
	AdminUser string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("LOPAN_HOST", "0.0.0.0"),
			Port:            getEnv("LOPAN_PORT", "8080"),
			ReadTimeout:     getEnvDuration("LOPAN_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("LOPAN_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("LOPAN_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("LOPAN_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("LOPAN_HEALTH_PORT", "9090"),
		},
		Cache: CacheConfig{
			Backend:    getEnv("LOPAN_CACHE_BACKEND", "memory"),
			TTL:        getEnvDuration("LOPAN_CACHE_TTL", 5*time.Minute),
			MaxEntries: getEnvInt("LOPAN_CACHE_MAX_ENTRIES", 4096),
			RedisURL:   getEnv("LOPAN_REDIS_URL", "redis://localhost:6379/0"),
		},
		Audit: AuditConfig{
			Backend: getEnv("LOPAN_AUDIT_BACKEND", "file"),
			Dir:     getEnv("LOPAN_AUDIT_DIR", "/var/log/gatekeeper/audit"),
			DBPath:  getEnv("LOPAN_AUDIT_DB", "gatekeeper-audit.db"),
		},
		Engine: EngineConfig{
			MaxElevation:    getEnvDuration("LOPAN_MAX_ELEVATION", 24*time.Hour),
			CleanupSchedule: getEnv("LOPAN_CLEANUP_SCHEDULE", "*/15 * * * *"),
			AdminUser:       getEnv("LOPAN_ADMIN_USER", "admin"),
		},
		LogLevel:       observability.ParseLogLevel(getEnv("LOPAN_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("LOPAN_METRICS_ENABLED", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Audit.Backend {
	case "file", "sqlite", "none":
	default:
		return fmt.Errorf("unknown audit backend %q", c.Audit.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.Engine.MaxElevation <= 0 {
		return fmt.Errorf("max elevation must be positive")
	}
	return nil
}

// getEnv returns an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an environment variable as int or a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvBool returns an environment variable as bool or a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns an environment variable as duration or a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
