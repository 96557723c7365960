package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"maildrop/backend/internal/domain"
)

// 注册表后端类型
const (
	RegistryBackendMemory = "memory"
	RegistryBackendRedis  = "redis"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 10000（也可通过 PORT 环境变量设置）
}

// UpstreamConfig 定义上游临时邮箱服务商（mail.tm 兼容接口）的配置
type UpstreamConfig struct {
	BaseURL        string        // 上游 API 地址，默认 "https://api.mail.tm"
	Domain         string        // 固定使用的邮箱域名，留空则通过 GET /domains 自动发现
	Password       string        // 所有上游账户共用的密码
	RandomPassword bool          // 为每个账户生成随机密码（覆盖 Password）
	Timeout        time.Duration // 单次上游请求超时
	RateLimit      float64       // 每秒最多发往上游的请求数，<=0 表示不限制
	DomainCacheTTL time.Duration // 自动发现域名的缓存时间
}

// GenerationConfig 定义邮箱生成流程的重试策略
type GenerationConfig struct {
	RandomAttempts int // 随机前缀最多尝试次数，默认 3
	RandomLength   int // 随机前缀长度，默认 8
}

// RegistryConfig 定义账户注册表配置
type RegistryConfig struct {
	Backend string        // 注册表后端: "memory" 或 "redis"
	TTL     time.Duration // 条目过期时间，0 表示永不过期
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	File        string // 日志文件路径，留空只输出到控制台
}

// RedisConfig 定义 Redis 服务配置（仅在 registry.backend=redis 时使用）
type RedisConfig struct {
	Address  string // Redis 服务地址，格式 "host:port"，默认 "localhost:6379"
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// Config 是系统核心配置的根结构体
type Config struct {
	Server     ServerConfig
	Upstream   UpstreamConfig
	Generation GenerationConfig
	Registry   RegistryConfig
	CORS       CORSConfig
	Log        LogConfig
	Redis      RedisConfig
}

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: MAILDROP_
// 例如: MAILDROP_UPSTREAM_DOMAIN, MAILDROP_REGISTRY_BACKEND
// 监听端口额外兼容 PORT 环境变量。
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetEnvPrefix("maildrop")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("server.port", "MAILDROP_SERVER_PORT", "PORT")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 10000)
	v.SetDefault("upstream.base_url", "https://api.mail.tm")
	v.SetDefault("upstream.domain", "punkproof.com")
	v.SetDefault("upstream.password", "password123")
	v.SetDefault("upstream.random_password", false)
	v.SetDefault("upstream.timeout", "15s")
	v.SetDefault("upstream.rate_limit", 8)
	v.SetDefault("upstream.domain_cache_ttl", "10m")
	v.SetDefault("generation.random_attempts", 3)
	v.SetDefault("generation.random_length", 8)
	v.SetDefault("registry.backend", RegistryBackendMemory)
	v.SetDefault("registry.ttl", "0s")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cors.allowed_origins", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", "")

	baseURL := strings.TrimRight(strings.TrimSpace(v.GetString("upstream.base_url")), "/")
	if u, err := url.Parse(baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream.base_url: %q", baseURL)
	}

	timeout, err := time.ParseDuration(v.GetString("upstream.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream.timeout: %w", err)
	}

	domainCacheTTL, err := time.ParseDuration(v.GetString("upstream.domain_cache_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid upstream.domain_cache_ttl: %w", err)
	}
	if domainCacheTTL <= 0 {
		return nil, fmt.Errorf("upstream.domain_cache_ttl must be positive")
	}

	registryTTL, err := time.ParseDuration(v.GetString("registry.ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid registry.ttl: %w", err)
	}
	if registryTTL < 0 {
		return nil, fmt.Errorf("registry.ttl must not be negative")
	}

	backend := strings.ToLower(strings.TrimSpace(v.GetString("registry.backend")))
	if backend != RegistryBackendMemory && backend != RegistryBackendRedis {
		return nil, fmt.Errorf("unsupported registry.backend: %q", backend)
	}

	attempts := v.GetInt("generation.random_attempts")
	if attempts <= 0 {
		return nil, fmt.Errorf("generation.random_attempts must be positive")
	}

	randomLength := v.GetInt("generation.random_length")
	if randomLength < domain.MinPrefixLength || randomLength > domain.MaxPrefixLength {
		return nil, fmt.Errorf("generation.random_length must be between %d and %d", domain.MinPrefixLength, domain.MaxPrefixLength)
	}

	password := v.GetString("upstream.password")
	randomPassword := v.GetBool("upstream.random_password")
	if password == "" && !randomPassword {
		return nil, fmt.Errorf("upstream.password must not be empty unless upstream.random_password is set")
	}

	corsOrigins := parseList(v.GetString("cors.allowed_origins"))
	if len(corsOrigins) == 0 {
		corsOrigins = []string{"*"}
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		Upstream: UpstreamConfig{
			BaseURL:        baseURL,
			Domain:         strings.ToLower(strings.TrimSpace(v.GetString("upstream.domain"))),
			Password:       password,
			RandomPassword: randomPassword,
			Timeout:        timeout,
			RateLimit:      v.GetFloat64("upstream.rate_limit"),
			DomainCacheTTL: domainCacheTTL,
		},
		Generation: GenerationConfig{
			RandomAttempts: attempts,
			RandomLength:   randomLength,
		},
		Registry: RegistryConfig{
			Backend: backend,
			TTL:     registryTTL,
		},
		CORS: CORSConfig{
			AllowedOrigins: corsOrigins,
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
			File:        v.GetString("log.file"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
	}

	return cfg, nil
}

// Addr 返回 HTTP 监听地址
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// parseList 将逗号分隔的字符串解析为字符串切片，去除空白项
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 先找当前目录，再找父目录；文件不存在时静默跳过，已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
