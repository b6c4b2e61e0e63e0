package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "")
	t.Setenv("AUTH_TOKEN_TTL_HOURS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:5000", cfg.App.Addr())
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.TokenTTL())
	assert.Equal(t, "support-desk:ticket-events", cfg.Notification.RedisChannel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("AUTH_RATE_LIMIT_MAX", "3")
	t.Setenv("AUTH_RATE_LIMIT_WINDOW_SECONDS", "60")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("HTTP_REQUEST_TIMEOUT_SECONDS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 3, cfg.RateLimit.Max)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window())
	assert.True(t, cfg.Notification.SMTPEnabled())
	assert.False(t, cfg.Postgres.RunMigrations)
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoadRejectsDefaultSecretInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("AUTH_JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadRedisDB(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("REDIS_DB", "x")

	_, err := Load()
	assert.Error(t, err)
}
