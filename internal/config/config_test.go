package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreBackendPostgres, cfg.StoreBackend)
	assert.Equal(t, LockBackendMemory, cfg.LockBackend)
	assert.Equal(t, 10*time.Second, cfg.LockTTL)
	assert.Equal(t, 2, cfg.StorageRetries)
	assert.Equal(t, Facility{OpenHour: 6, CloseHour: 22, MinDurationMinutes: 15, MaxDurationMinutes: 120}, cfg.Facility)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("LOCK_TTL", "3s")
	t.Setenv("FACILITY_OPEN_HOUR", "0")
	t.Setenv("FACILITY_CLOSE_HOUR", "24")
	t.Setenv("MAX_DURATION_MINUTES", "90")
	t.Setenv("EMAIL_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StoreBackendMemory, cfg.StoreBackend)
	assert.Equal(t, LockBackendRedis, cfg.LockBackend)
	assert.Equal(t, 3*time.Second, cfg.LockTTL)
	assert.Equal(t, 0, cfg.Facility.OpenHour)
	assert.Equal(t, 24, cfg.Facility.CloseHour)
	assert.Equal(t, 90, cfg.Facility.MaxDurationMinutes)
	assert.True(t, cfg.EmailEnabled)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown store backend", "STORE_BACKEND", "mongo"},
		{"unknown lock backend", "LOCK_BACKEND", "etcd"},
		{"close before open", "FACILITY_CLOSE_HOUR", "5"},
		{"close hour past midnight", "FACILITY_CLOSE_HOUR", "25"},
		{"max below min", "MAX_DURATION_MINUTES", "10"},
		{"zero min duration", "MIN_DURATION_MINUTES", "0"},
		{"too many retries", "STORAGE_RETRIES", "9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	t.Setenv("FACILITY_OPEN_HOUR", "8")
	t.Setenv("FACILITY_CLOSE_HOUR", "20")

	f, err := LoadPolicy()
	require.NoError(t, err)
	assert.Equal(t, 8, f.OpenHour)
	assert.Equal(t, 20, f.CloseHour)
	assert.Equal(t, 15, f.MinDurationMinutes)
}

func TestGetEnvFallbacks(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	t.Setenv("SOME_DURATION", "forever")

	assert.Equal(t, 7, getEnvInt("SOME_INT", 7))
	assert.Equal(t, time.Minute, getEnvDuration("SOME_DURATION", time.Minute))
	assert.Equal(t, "fallback", getEnv("UNSET_KEY_FOR_TEST", "fallback"))
}
