package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_FILE_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "meal-client", cfg.App.Name)
	assert.Equal(t, "http://127.0.0.1:8000/api", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout())
	assert.Equal(t, SessionStoreFile, cfg.Session.Store)
	assert.Equal(t, "meal-client:auth-storage", cfg.Session.StoreKey(cfg.App.Name))
	assert.Equal(t, 2, cfg.Ordering.LeadDays)
	assert.Equal(t, 60, cfg.DevServer.AccessTokenTTLMinutes)
	assert.Equal(t, 1440, cfg.DevServer.RefreshTTLMinutes)
	assert.Equal(t, "127.0.0.1:8000", cfg.DevServer.Addr())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://meals.example.com/api/")
	t.Setenv("API_RATE_LIMIT_RPS", "2.5")
	t.Setenv("SESSION_STORE", "REDIS")
	t.Setenv("ORDER_LEAD_DAYS", "3")
	t.Setenv("API_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://meals.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 2.5, cfg.API.RateLimitRPS)
	assert.Equal(t, SessionStoreRedis, cfg.Session.Store)
	assert.Equal(t, 3, cfg.Ordering.LeadDays)
	assert.Equal(t, 30, cfg.API.TimeoutSeconds)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Run("unknown store", func(t *testing.T) {
		t.Setenv("SESSION_STORE", "etcd")
		_, err := Load()
		assert.ErrorContains(t, err, "unknown SESSION_STORE")
	})
	t.Run("postgres without dsn", func(t *testing.T) {
		t.Setenv("SESSION_STORE", "postgres")
		t.Setenv("POSTGRES_DSN", "")
		_, err := Load()
		assert.ErrorContains(t, err, "requires POSTGRES_DSN")
	})
	t.Run("negative lead days", func(t *testing.T) {
		t.Setenv("ORDER_LEAD_DAYS", "-1")
		_, err := Load()
		assert.ErrorContains(t, err, "ORDER_LEAD_DAYS")
	})
	t.Run("bad redis db", func(t *testing.T) {
		t.Setenv("REDIS_DB", "x")
		_, err := Load()
		assert.ErrorContains(t, err, "invalid REDIS_DB")
	})
}
