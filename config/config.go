package config

import (
	"fmt"
	"net"
	"os"
	"proxy2api/log"
	"proxy2api/pkg/constants"
	"proxy2api/pkg/errors"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 应用配置结构
type Config struct {
	Server    ServerConfig    `json:"server"`
	Auth      AuthConfig      `json:"auth"`
	Sources   SourcesConfig   `json:"sources"`
	Pool      PoolConfig      `json:"pool"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Cache     CacheConfig     `json:"cache"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Log       LogConfig       `json:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	ApiKey        string `json:"api_key"`
	RequireApiKey bool   `json:"require_api_key"`
}

// SourcesConfig 代理源配置
type SourcesConfig struct {
	SourceURLs      []string `json:"source_urls"`      // 主源：纯文本列表，轮询使用
	FallbackURL     string   `json:"fallback_url"`     // 备用源：JSON 数组
	WebpageURL      string   `json:"webpage_url"`      // 网页源：HTML 表格
	FallbackEnabled bool     `json:"fallback_enabled"` // 主源失败后是否尝试备用源
	ScrapeEnabled   bool     `json:"scrape_enabled"`   // 备用源失败后是否尝试网页抓取
}

// PoolConfig 代理池配置
type PoolConfig struct {
	TestURL          string        `json:"test_url"`
	Expiration       time.Duration `json:"expiration"` // 为 0 时每次读取都会刷新
	TestTimeout      time.Duration `json:"test_timeout"`
	BatchSize        int           `json:"batch_size"`
	ConcurrencyLimit int           `json:"concurrency_limit"`
}

// SchedulerConfig 定时刷新配置
type SchedulerConfig struct {
	RefreshInterval time.Duration `json:"refresh_interval"`
	MaxRunTime      time.Duration `json:"max_run_time"`
}

// CacheConfig 源列表缓存配置
type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	SourceCacheTTL  time.Duration `json:"source_cache_ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// RateLimitConfig 强制刷新限流配置
type RateLimitConfig struct {
	RefreshRatePerMinute int `json:"refresh_rate_per_minute"`
	RefreshBurst         int `json:"refresh_burst"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `json:"level"`
}

// NewConfig 创建新的配置实例
func NewConfig() (*Config, error) {
	// 加载环境变量文件
	if err := godotenv.Load(); err != nil {
		log.Warn("Failed to load .env file: %v", err)
	}

	config := &Config{}

	// 加载各种配置
	configLoaders := []struct {
		name   string
		loader func() error
	}{
		{"server", config.loadServerConfig},
		{"auth", config.loadAuthConfig},
		{"sources", config.loadSourcesConfig},
		{"pool", config.loadPoolConfig},
		{"scheduler", config.loadSchedulerConfig},
		{"cache", config.loadCacheConfig},
		{"ratelimit", config.loadRateLimitConfig},
		{"log", config.loadLogConfig},
	}

	for _, cl := range configLoaders {
		if err := cl.loader(); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", errors.ErrConfigLoad, cl.name, err)
		}
	}

	// 验证配置
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrConfigValidation, err)
	}

	// 应用日志级别
	log.SetLevel(config.Log.Level)

	return config, nil
}

// loadServerConfig 加载服务器配置
func (c *Config) loadServerConfig() error {
	c.Server.Host = getEnvWithDefault("HOST", constants.DefaultHost)
	c.Server.Port = getEnvWithDefault("PORT", constants.DefaultPort)
	c.Server.ReadTimeout = time.Duration(getEnvAsInt("READ_TIMEOUT", int(constants.DefaultReadTimeout.Seconds()))) * time.Second
	c.Server.WriteTimeout = time.Duration(getEnvAsInt("WRITE_TIMEOUT", int(constants.DefaultWriteTimeout.Seconds()))) * time.Second
	c.Server.IdleTimeout = time.Duration(getEnvAsInt("IDLE_TIMEOUT", int(constants.DefaultIdleTimeout.Seconds()))) * time.Second
	return nil
}

// loadAuthConfig 加载认证配置
func (c *Config) loadAuthConfig() error {
	c.Auth.ApiKey = os.Getenv("APIKEY")
	c.Auth.RequireApiKey = getEnvAsBool("REQUIRE_API_KEY", false)

	if c.Auth.RequireApiKey && c.Auth.ApiKey == "" {
		log.Warn("REQUIRE_API_KEY is set but APIKEY is empty, authentication disabled")
	}

	return nil
}

// loadSourcesConfig 加载代理源配置
func (c *Config) loadSourcesConfig() error {
	urlsEnv := getEnvWithDefault("PROXY_SOURCE_URLS", constants.DefaultSourceURLs)
	urls := strings.Split(urlsEnv, ",")

	// 清理源地址，移除空白字符
	var cleanURLs []string
	for _, u := range urls {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			cleanURLs = append(cleanURLs, trimmed)
		}
	}
	c.Sources.SourceURLs = cleanURLs

	c.Sources.FallbackURL = getEnvWithDefault("PROXY_FALLBACK_URL", constants.DefaultFallbackURL)
	c.Sources.WebpageURL = getEnvWithDefault("PROXY_WEBPAGE", constants.DefaultProxyWebpage)
	c.Sources.FallbackEnabled = getEnvAsBool("FALLBACK_ENABLED", true)
	c.Sources.ScrapeEnabled = getEnvAsBool("SCRAPE_ENABLED", true)
	return nil
}

// loadPoolConfig 加载代理池配置
func (c *Config) loadPoolConfig() error {
	c.Pool.TestURL = getEnvWithDefault("PROXY_TEST_URL", constants.DefaultTestURL)
	c.Pool.Expiration = time.Duration(getEnvAsInt("PROXY_EXPIRATION_MINUTES", int(constants.DefaultProxyExpiration.Minutes()))) * time.Minute
	c.Pool.TestTimeout = time.Duration(getEnvAsInt("PROXY_TEST_TIMEOUT", int(constants.DefaultTestTimeout.Seconds()))) * time.Second
	c.Pool.BatchSize = getEnvAsInt("BATCH_SIZE", constants.DefaultBatchSize)
	c.Pool.ConcurrencyLimit = getEnvAsInt("CONCURRENCY_LIMIT", constants.DefaultConcurrencyLimit)
	return nil
}

// loadSchedulerConfig 加载定时刷新配置
func (c *Config) loadSchedulerConfig() error {
	c.Scheduler.RefreshInterval = time.Duration(getEnvAsInt("REFRESH_INTERVAL_MINUTES", int(constants.DefaultRefreshInterval.Minutes()))) * time.Minute
	c.Scheduler.MaxRunTime = time.Duration(getEnvAsInt("REFRESH_MAX_RUN_TIME", int(constants.DefaultMaxRunTime.Seconds()))) * time.Second
	return nil
}

// loadCacheConfig 加载缓存配置
func (c *Config) loadCacheConfig() error {
	c.Cache.Enabled = getEnvAsBool(constants.EnvCacheEnabled, true)
	c.Cache.SourceCacheTTL = time.Duration(getEnvAsInt(constants.EnvSourceCacheTTL, int(constants.DefaultSourceCacheTTL.Seconds()))) * time.Second
	c.Cache.CleanupInterval = time.Duration(getEnvAsInt(constants.EnvCleanupInterval, int(constants.DefaultCleanupInterval.Seconds()))) * time.Second
	return nil
}

// loadRateLimitConfig 加载限流配置
func (c *Config) loadRateLimitConfig() error {
	c.RateLimit.RefreshRatePerMinute = getEnvAsInt("REFRESH_RATE_LIMIT", constants.DefaultRefreshRatePerMinute)
	c.RateLimit.RefreshBurst = getEnvAsInt("REFRESH_RATE_BURST", constants.DefaultRefreshBurst)
	return nil
}

// loadLogConfig 加载日志配置
func (c *Config) loadLogConfig() error {
	c.Log.Level = getEnvWithDefault("LOG_LEVEL", "info")
	return nil
}

// validate 验证配置
func (c *Config) validate() error {
	// 验证端口
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("%w: %s", errors.ErrInvalidPort, c.Server.Port)
	}

	// 验证代理源
	if len(c.Sources.SourceURLs) == 0 {
		return errors.ErrNoSourceURL
	}

	// 验证代理池参数
	if c.Pool.TestURL == "" {
		return fmt.Errorf("proxy test URL must not be empty")
	}
	if c.Pool.Expiration < 0 {
		return fmt.Errorf("proxy expiration must not be negative")
	}
	if c.Pool.TestTimeout <= 0 {
		return fmt.Errorf("proxy test timeout must be positive")
	}
	if c.Pool.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.Pool.ConcurrencyLimit <= 0 {
		return fmt.Errorf("concurrency limit must be positive")
	}

	// 验证调度器参数
	if c.Scheduler.RefreshInterval <= 0 {
		return fmt.Errorf("refresh interval must be positive")
	}
	if c.Scheduler.MaxRunTime <= 0 {
		return fmt.Errorf("max run time must be positive")
	}

	return nil
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt 获取环境变量并转换为整数
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn("Invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// getEnvAsBool 获取环境变量并转换为布尔值
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Warn("Invalid boolean value for %s: %s, using default: %v", key, valueStr, defaultValue)
		return defaultValue
	}

	return value
}

// 兼容性方法
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

func (c *Config) Port() string {
	return c.Server.Port
}

func (c *Config) ApiKey() string {
	return c.Auth.ApiKey
}

// AuthEnabled 是否启用 API Key 认证
func (c *Config) AuthEnabled() bool {
	return c.Auth.RequireApiKey && c.Auth.ApiKey != ""
}

func (c *Config) SourceURLs() []string {
	return c.Sources.SourceURLs
}

func (c *Config) TestURL() string {
	return c.Pool.TestURL
}

func (c *Config) Expiration() time.Duration {
	return c.Pool.Expiration
}

func (c *Config) BatchSize() int {
	return c.Pool.BatchSize
}

func (c *Config) ConcurrencyLimit() int {
	return c.Pool.ConcurrencyLimit
}
