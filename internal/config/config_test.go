package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("JWT_SECRET_KEY", "jwt")
	t.Setenv("WEBHOOK_SECRET", "hook")
	t.Setenv("CRON_SECRET", "cron")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "Asia/Tokyo", cfg.App.Timezone)
	assert.Equal(t, LockBackendPostgres, cfg.Lock.Backend)
	assert.Equal(t, 600, cfg.Lock.TTLSeconds)
	assert.False(t, cfg.Cron.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Cron.SyncBaseOrders)
	assert.Equal(t, 100, cfg.Marketplace.PageLimit)
	assert.Equal(t, "postgres://postgres:pw@localhost:5432/cast_backoffice?sslmode=disable", cfg.DatabaseURL())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("LOCK_BACKEND", "Redis")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("CRON_ENABLED", "true")
	t.Setenv("CRON_RECALCULATE_INTERVAL", "5m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, LockBackendRedis, cfg.Lock.Backend)
	assert.Equal(t, "localhost:6380", cfg.RedisAddr())
	assert.True(t, cfg.Cron.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Cron.RecalculateDailyStats)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.App.AllowedOrigins)
}

func TestLoad_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"missing webhook secret", "WEBHOOK_SECRET", "", "WEBHOOK_SECRET"},
		{"bad port", "APP_PORT", "eighty", "APP_PORT"},
		{"bad lock backend", "LOCK_BACKEND", "etcd", "LOCK_BACKEND"},
		{"bad interval", "CRON_SYNC_BASE_ORDERS_INTERVAL", "often", "CRON_SYNC_BASE_ORDERS_INTERVAL"},
		{"bad timezone", "APP_TIMEZONE", "Mars/Olympus", "APP_TIMEZONE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
