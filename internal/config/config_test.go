package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT",
	"MAILDROP_SERVER_HOST",
	"MAILDROP_SERVER_PORT",
	"MAILDROP_UPSTREAM_BASE_URL",
	"MAILDROP_UPSTREAM_DOMAIN",
	"MAILDROP_UPSTREAM_PASSWORD",
	"MAILDROP_UPSTREAM_RANDOM_PASSWORD",
	"MAILDROP_UPSTREAM_TIMEOUT",
	"MAILDROP_UPSTREAM_RATE_LIMIT",
	"MAILDROP_UPSTREAM_DOMAIN_CACHE_TTL",
	"MAILDROP_GENERATION_RANDOM_ATTEMPTS",
	"MAILDROP_GENERATION_RANDOM_LENGTH",
	"MAILDROP_REGISTRY_BACKEND",
	"MAILDROP_REGISTRY_TTL",
	"MAILDROP_CORS_ALLOWED_ORIGINS",
	"MAILDROP_LOG_LEVEL",
	"MAILDROP_LOG_DEVELOPMENT",
}

// clearEnv 清空相关环境变量（空值会被 viper 忽略）
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("加载默认配置成功", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 10000, cfg.Server.Port)
		assert.Equal(t, "0.0.0.0:10000", cfg.Server.Addr())
		assert.Equal(t, "https://api.mail.tm", cfg.Upstream.BaseURL)
		assert.Equal(t, "punkproof.com", cfg.Upstream.Domain)
		assert.Equal(t, "password123", cfg.Upstream.Password)
		assert.False(t, cfg.Upstream.RandomPassword)
		assert.Equal(t, 15*time.Second, cfg.Upstream.Timeout)
		assert.Equal(t, 8.0, cfg.Upstream.RateLimit)
		assert.Equal(t, 10*time.Minute, cfg.Upstream.DomainCacheTTL)
		assert.Equal(t, 3, cfg.Generation.RandomAttempts)
		assert.Equal(t, 8, cfg.Generation.RandomLength)
		assert.Equal(t, RegistryBackendMemory, cfg.Registry.Backend)
		assert.Equal(t, time.Duration(0), cfg.Registry.TTL)
		assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "info", cfg.Log.Level)
		assert.False(t, cfg.Log.Development)
	})

	t.Run("PORT 环境变量生效", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("PORT", "3000")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, 3000, cfg.Server.Port)
	})

	t.Run("加载自定义配置成功", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MAILDROP_SERVER_HOST", "127.0.0.1")
		t.Setenv("MAILDROP_SERVER_PORT", "9090")
		t.Setenv("MAILDROP_UPSTREAM_BASE_URL", "http://localhost:8081/")
		t.Setenv("MAILDROP_UPSTREAM_DOMAIN", "Example.COM")
		t.Setenv("MAILDROP_UPSTREAM_RANDOM_PASSWORD", "true")
		t.Setenv("MAILDROP_UPSTREAM_TIMEOUT", "3s")
		t.Setenv("MAILDROP_GENERATION_RANDOM_ATTEMPTS", "5")
		t.Setenv("MAILDROP_REGISTRY_BACKEND", "Redis")
		t.Setenv("MAILDROP_REGISTRY_TTL", "24h")
		t.Setenv("MAILDROP_CORS_ALLOWED_ORIGINS", "http://localhost:3000, http://localhost:5173")
		t.Setenv("MAILDROP_LOG_LEVEL", "debug")
		t.Setenv("MAILDROP_LOG_DEVELOPMENT", "true")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "http://localhost:8081", cfg.Upstream.BaseURL)
		assert.Equal(t, "example.com", cfg.Upstream.Domain)
		assert.True(t, cfg.Upstream.RandomPassword)
		assert.Equal(t, 3*time.Second, cfg.Upstream.Timeout)
		assert.Equal(t, 5, cfg.Generation.RandomAttempts)
		assert.Equal(t, RegistryBackendRedis, cfg.Registry.Backend)
		assert.Equal(t, 24*time.Hour, cfg.Registry.TTL)
		assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORS.AllowedOrigins)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Log.Development)
	})

	t.Run("未知注册表后端失败", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MAILDROP_REGISTRY_BACKEND", "etcd")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "unsupported registry.backend")
	})

	t.Run("上游地址无效失败", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MAILDROP_UPSTREAM_BASE_URL", "not a url")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
	})

	t.Run("重试次数非正数失败", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MAILDROP_GENERATION_RANDOM_ATTEMPTS", "0")

		_, err := Load()

		assert.Error(t, err)
	})

	t.Run("随机前缀长度越界失败", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MAILDROP_GENERATION_RANDOM_LENGTH", "40")

		_, err := Load()

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "between 3 and 30")
	})

	t.Run("域名缓存时间无法解析失败", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MAILDROP_UPSTREAM_DOMAIN_CACHE_TTL", "ten minutes")

		cfg, err := Load()

		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid upstream.domain_cache_ttl")
	})

	t.Run("域名缓存时间非正数失败", func(t *testing.T) {
		for _, value := range []string{"0s", "-1m"} {
			clearEnv(t)
			t.Setenv("MAILDROP_UPSTREAM_DOMAIN_CACHE_TTL", value)

			cfg, err := Load()

			assert.Error(t, err, value)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "upstream.domain_cache_ttl must be positive")
		}
	})

	t.Run("自定义域名缓存时间生效", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("MAILDROP_UPSTREAM_DOMAIN_CACHE_TTL", "30s")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, cfg.Upstream.DomainCacheTTL)
	})
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseList(" a , ,b,"))
	assert.Empty(t, parseList(""))
}
