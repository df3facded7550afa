package config

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, "memory", cfg.StorageBackend)
	assert.Equal(t, 5, cfg.Dispatch.MaxAttempts)
	assert.Equal(t, ":8080", cfg.GetHTTPAddr())
	assert.True(t, cfg.MaxSingleTradePct().Equal(decimal.NewFromInt(5)))
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MCU_HTTP_PORT", "9090")
	t.Setenv("MCU_STORAGE_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("DISPATCH_MAX_ATTEMPTS", "3")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "redis", cfg.StorageBackend)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Dispatch.MaxAttempts)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidateRejectsBadValues(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load()
		require.NoError(t, err)
		return cfg
	}

	cfg := valid()
	cfg.HTTPPort = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.StorageBackend = "postgres"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Dispatch.MaxAttempts = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Dispatch.RetryMaxDelay = cfg.Dispatch.RetryBaseDelay / 2
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Risk.MaxSingleTradePct = 0
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Risk.MaxSingleTradePct = 101
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.LogLevel = "verbose"
	assert.Error(t, cfg.Validate())
}
