package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lopanhq/gatekeeper/pkg/observability"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 4096, cfg.Cache.MaxEntries)
	assert.Equal(t, "file", cfg.Audit.Backend)
	assert.Equal(t, 24*time.Hour, cfg.Engine.MaxElevation)
	assert.Equal(t, "*/15 * * * *", cfg.Engine.CleanupSchedule)
	assert.Equal(t, observability.InfoLevel, cfg.LogLevel)
	assert.True(t, cfg.MetricsEnabled)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("LOPAN_PORT", "9999")
	t.Setenv("LOPAN_CACHE_BACKEND", "redis")
	t.Setenv("LOPAN_CACHE_TTL", "90s")
	t.Setenv("LOPAN_AUDIT_BACKEND", "sqlite")
	t.Setenv("LOPAN_MAX_ELEVATION", "8h")
	t.Setenv("LOPAN_METRICS_ENABLED", "false")
	t.Setenv("LOPAN_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "sqlite", cfg.Audit.Backend)
	assert.Equal(t, 8*time.Hour, cfg.Engine.MaxElevation)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, observability.DebugLevel, cfg.LogLevel)
}

func TestLoadConfig_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("LOPAN_CACHE_TTL", "soon")
	t.Setenv("LOPAN_CACHE_MAX_ENTRIES", "many")
	t.Setenv("LOPAN_METRICS_ENABLED", "maybe")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 4096, cfg.Cache.MaxEntries)
	assert.True(t, cfg.MetricsEnabled)
}

func TestValidate(t *testing.T) {
	t.Setenv("LOPAN_CACHE_BACKEND", "memcached")
	_, err := LoadConfig()
	assert.Error(t, err)

	t.Setenv("LOPAN_CACHE_BACKEND", "memory")
	t.Setenv("LOPAN_AUDIT_BACKEND", "syslog")
	_, err = LoadConfig()
	assert.Error(t, err)

	t.Setenv("LOPAN_AUDIT_BACKEND", "none")
	t.Setenv("LOPAN_MAX_ELEVATION", "-1h")
	_, err = LoadConfig()
	assert.Error(t, err)
}
