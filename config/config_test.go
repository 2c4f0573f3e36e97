package config

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("MAX_UPLOAD_MB", "")
	t.Setenv("ENRICH_WORKERS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, int64(50), cfg.MaxUploadMB)
	assert.Equal(t, 4, cfg.EnrichWorkers)
	assert.Equal(t, int64(64<<20), cfg.AudioCacheCost)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("ENRICH_WORKERS", "2")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 2, cfg.EnrichWorkers)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Setenv("ENRICH_QUEUE", "lots")
	_, err := Load()
	require.ErrorContains(t, err, "ENRICH_QUEUE")
}

func TestValidateEnv(t *testing.T) {
	for _, k := range RequiredEnvVars {
		t.Setenv(k, "set")
	}
	require.NoError(t, ValidateEnv(slog.Default()))

	t.Setenv("JWT_SECRET", "change-me-in-production")
	require.Error(t, ValidateEnv(slog.Default()))

	t.Setenv("AUTH_EMAIL", "")
	require.ErrorContains(t, ValidateEnv(slog.Default()), "AUTH_EMAIL")
}
