package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("MANAGER_PIN", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.AuthSecret)
	assert.Empty(t, cfg.ManagerPIN)
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("APP_ENV", "production")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "0")
	t.Setenv("AUTH_SECRET", "  padded-secret  ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Address())
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, 480, cfg.AccessTokenTTLMinutes)
	assert.Equal(t, "padded-secret", cfg.AuthSecret)
}
