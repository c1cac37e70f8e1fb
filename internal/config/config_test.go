package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setRequired(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_BACKEND", "memory")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg := Load()
	assert.Equal(t, "memory", cfg.StoreBackend)
	assert.Equal(t, 15, cfg.AccessTTLMin)
	assert.Equal(t, 7, cfg.RefreshTTLDays)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "local", cfg.BlobBackend)
	assert.Equal(t, "http://localhost:8080", cfg.PublicBaseURL)
	assert.Equal(t, "@every 1m", cfg.SweeperSchedule)
	assert.False(t, cfg.SweeperEnabled)
	assert.Equal(t, 15*time.Minute, cfg.PresignTTL)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("STORE_BACKEND", "mysql")
	t.Setenv("DB_USER", "parking")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "parking")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "30")
	t.Setenv("AMQP_URL", "amqp://broker:5672/")
	t.Setenv("SWEEPER_ENABLED", "yes")
	t.Setenv("PUBLIC_BASE_URL", "https://parking.example.com")
	t.Setenv("ADMIN_EMAILS", "a@x.io, ,b@x.io")

	cfg := Load()
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, cfg.AdminEmails)
	assert.Equal(t, "db", cfg.DBHost)
	assert.Equal(t, 30, cfg.AccessTTLMin)
	assert.Equal(t, "amqp://broker:5672/", cfg.RabbitURL)
	assert.True(t, cfg.SweeperEnabled)
	assert.Equal(t, "https://parking.example.com", cfg.PublicBaseURL)
}

func TestRabbitURLPrefersRabbitMQVar(t *testing.T) {
	setRequired(t)
	t.Setenv("AMQP_URL", "amqp://a/")
	t.Setenv("RABBITMQ_URL", "amqp://b/")
	assert.Equal(t, "amqp://b/", Load().RabbitURL)
}

func TestLoadRateLimitConfigClamps(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 1, cfg.Capacity)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL)
}

func TestLoadRateLimitConfigBurst(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "500ms")

	cfg := LoadRateLimitConfig()
	assert.Equal(t, 5, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 500*time.Millisecond, cfg.RefillInterval)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_ENABLED", "off")

	cfg := LoadCacheConfig()
	assert.False(t, cfg.Enabled)
	assert.True(t, cfg.Methods["GET"])
	assert.True(t, cfg.Methods["HEAD"])
	assert.Equal(t, 5*time.Minute, cfg.TTL)
}

func TestRedisOptions(t *testing.T) {
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("REDIS_DB", "2")
	opts := RedisOptions()
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Nil(t, opts.TLSConfig)

	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("REDIS_TLS", "1")
	opts = RedisOptions()
	assert.Equal(t, "redis:6379", opts.Addr)
	assert.NotNil(t, opts.TLSConfig)
}
