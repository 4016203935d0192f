package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, 24*time.Hour, cfg.Poll.ResultRetention)
	assert.Equal(t, 10*time.Minute, cfg.Poll.CleanupInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)

	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "0.0.0.0:8080", cfg.GetAddr())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("ENV", "production")
	t.Setenv("RESULT_RETENTION_HOURS", "48")
	t.Setenv("CLEANUP_INTERVAL_MINUTES", "5")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg := Load()

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:9000", cfg.GetAddr())
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 48*time.Hour, cfg.Poll.ResultRetention)
	assert.Equal(t, 5*time.Minute, cfg.Poll.CleanupInterval)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadIgnoresUnparseableNumbers(t *testing.T) {
	t.Setenv("RESULT_RETENTION_HOURS", "two days")

	cfg := Load()

	assert.Equal(t, 24*time.Hour, cfg.Poll.ResultRetention)
}
