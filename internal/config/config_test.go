package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every key Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"APP_ENV", "PORT", "STORE_DRIVER", "DATABASE_URL",
		"POSTGRES_ADDR", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB", "POSTGRES_SSLMODE",
		"JWT_SECRET", "JWT_ISSUER",
		"REDIS_ENABLED", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "CACHE_EVENT_TTL",
		"RL_ENABLED", "RL_BACKEND", "RL_REQUESTS_LIMIT", "RL_WINDOW_SECONDS",
		"RABBITMQ_URL", "RABBIT_URL", "RABBITMQ_EXCHANGE", "RABBIT_EXCHANGE",
		"GUEST_EMAIL_DOMAINS", "MAX_GUESTS", "REQUEST_TIMEOUT",
		"LOG_LEVEL", "LOG_FORMAT", "OUTBOX_ENABLED", "CHECKIN_CONSUMER_ENABLED",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("should_return_error_if_database_url_is_missing", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("JWT_SECRET", "secret")

		cfg, err := Load()
		assert.Nil(t, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing database config")
	})

	t.Run("memory_store_does_not_need_a_database", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("STORE_DRIVER", "memory")
		t.Setenv("JWT_SECRET", "secret")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	})

	t.Run("should_return_error_if_jwt_secret_is_missing", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DATABASE_URL", "postgres://localhost:5432/db")

		cfg, err := Load()
		assert.Nil(t, cfg)
		assert.EqualError(t, err, "missing JWT_SECRET")
	})

	t.Run("should_load_defaults", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("DATABASE_URL", "postgres://localhost:5432/db")
		t.Setenv("JWT_SECRET", "super-secret")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "dev", cfg.AppEnv)
		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "terpspark.events", cfg.RabbitExchange)
		assert.Equal(t, []string{"@umd.edu"}, cfg.GuestDomains)
		assert.Equal(t, 2, cfg.MaxGuests)
		assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
		assert.Equal(t, RLBackendRedis, cfg.RLBackend)
		assert.Equal(t, time.Minute, cfg.RLWindow)
	})

	t.Run("builds_dsn_from_postgres_parts", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("POSTGRES_ADDR", "db:5432")
		t.Setenv("POSTGRES_USER", "terp")
		t.Setenv("POSTGRES_PASSWORD", "p@ss word")
		t.Setenv("POSTGRES_DB", "admission")
		t.Setenv("JWT_SECRET", "secret")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "postgres://terp:p%40ss%20word@db:5432/admission?sslmode=disable", cfg.DBDSN)
	})

	t.Run("should_fail_in_prod_if_rabbit_url_is_missing", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("APP_ENV", "prod")
		t.Setenv("DATABASE_URL", "postgres://localhost")
		t.Setenv("JWT_SECRET", "secret")

		cfg, err := Load()
		assert.Nil(t, cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing RABBITMQ_URL")
	})

	t.Run("redis_rate_limit_needs_redis", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("STORE_DRIVER", "memory")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("REDIS_ENABLED", "false")
		t.Setenv("RL_BACKEND", "redis")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("redis_disabled_defaults_to_memory_limiter", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("STORE_DRIVER", "memory")
		t.Setenv("JWT_SECRET", "secret")
		t.Setenv("REDIS_ENABLED", "off")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, RLBackendMemory, cfg.RLBackend)
	})
}

func TestGetList(t *testing.T) {
	t.Setenv("TEST_LIST", " @umd.edu, ,terpmail.umd.edu ")
	assert.Equal(t, []string{"@umd.edu", "terpmail.umd.edu"}, getList("TEST_LIST", nil))

	t.Setenv("TEST_LIST", " , ")
	assert.Equal(t, []string{"x"}, getList("TEST_LIST", []string{"x"}))
}

func TestGetBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "yes")
	assert.True(t, getBool("TEST_BOOL", false))

	t.Setenv("TEST_BOOL", "maybe")
	assert.Panics(t, func() { getBool("TEST_BOOL", false) })
}

func TestGetDuration(t *testing.T) {
	t.Run("should_parse_valid_duration", func(t *testing.T) {
		t.Setenv("TEST_DUR", "5s")
		assert.Equal(t, 5*time.Second, getDuration("TEST_DUR", 10*time.Second))
	})

	t.Run("should_return_default_on_invalid_duration", func(t *testing.T) {
		t.Setenv("TEST_DUR", "invalid")
		assert.Equal(t, 10*time.Second, getDuration("TEST_DUR", 10*time.Second))
	})
}
