// Package config loads service settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata" // FEED_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/spf13/viper"

	"github.com/pfrederiksen/skate-feed/internal/aggregator"
	"github.com/pfrederiksen/skate-feed/internal/cache"
	"github.com/pfrederiksen/skate-feed/internal/logger"
	"github.com/pfrederiksen/skate-feed/internal/server"
	"github.com/pfrederiksen/skate-feed/internal/telemetry"
)

// Cache backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Feed   FeedConfig   `mapstructure:"feed"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Redis  RedisConfig  `mapstructure:"redis"`
	OTel   OTelConfig   `mapstructure:"otel"`
}

// AppConfig holds application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"` // development, production
	Version     string `mapstructure:"version"`
	LogLevel    string `mapstructure:"log_level"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// FeedConfig holds the feed computation settings
type FeedConfig struct {
	Horizon            time.Duration `mapstructure:"horizon"`
	TTL                time.Duration `mapstructure:"ttl"`
	Timezone           string        `mapstructure:"timezone"`
	AdapterTimeout     time.Duration `mapstructure:"adapter_timeout"`
	AdapterConcurrency int           `mapstructure:"adapter_concurrency"`

	location *time.Location
}

// CacheConfig selects where the computed feed is stored
type CacheConfig struct {
	Backend string `mapstructure:"backend"` // memory, redis
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

// Addr returns the Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	ServiceName   string `mapstructure:"service_name"`
	CollectorAddr string `mapstructure:"collector_addr"`
}

// Load loads configuration from environment variables and a .env file.
// An empty path reads ./.env if it exists; a non-empty path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()

	required := path != ""
	if !required {
		path = ".env"
	}
	v.SetConfigFile(path)
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		if required || !isNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := &Config{}
	bindConfig(v, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("APP_NAME", "skate-feed")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_VERSION", "1.0.0")
	v.SetDefault("LOG_LEVEL", "info")

	// Server defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "120s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")

	// Feed defaults
	v.SetDefault("FEED_HORIZON", "48h")
	v.SetDefault("FEED_TTL", "12h")
	v.SetDefault("FEED_TIMEZONE", "America/Chicago")
	v.SetDefault("ADAPTER_TIMEOUT", "30s")
	v.SetDefault("ADAPTER_CONCURRENCY", 4)

	// Cache defaults
	v.SetDefault("CACHE_BACKEND", BackendMemory)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY", cache.DefaultRedisKey)

	// OpenTelemetry defaults
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_SERVICE_NAME", "skate-feed")
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
}

func bindConfig(v *viper.Viper, cfg *Config) {
	// App
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Version = v.GetString("APP_VERSION")
	cfg.App.LogLevel = v.GetString("LOG_LEVEL")

	// Server
	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.ShutdownTimeout = v.GetDuration("SERVER_SHUTDOWN_TIMEOUT")

	// Feed
	cfg.Feed.Horizon = v.GetDuration("FEED_HORIZON")
	cfg.Feed.TTL = v.GetDuration("FEED_TTL")
	cfg.Feed.Timezone = v.GetString("FEED_TIMEZONE")
	cfg.Feed.AdapterTimeout = v.GetDuration("ADAPTER_TIMEOUT")
	cfg.Feed.AdapterConcurrency = v.GetInt("ADAPTER_CONCURRENCY")

	// Cache
	cfg.Cache.Backend = strings.ToLower(v.GetString("CACHE_BACKEND"))
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetInt("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.Key = v.GetString("REDIS_KEY")

	// OpenTelemetry
	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.ServiceName = v.GetString("OTEL_SERVICE_NAME")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")
}

// Validate checks the configuration and resolves the feed time zone.
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}

	if _, err := logger.ParseLevel(c.App.LogLevel); err != nil {
		return err
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Feed.Horizon <= 0 {
		return fmt.Errorf("FEED_HORIZON must be positive, got %s", c.Feed.Horizon)
	}
	if c.Feed.TTL <= 0 {
		return fmt.Errorf("FEED_TTL must be positive, got %s", c.Feed.TTL)
	}
	if c.Feed.AdapterTimeout <= 0 {
		return fmt.Errorf("ADAPTER_TIMEOUT must be positive, got %s", c.Feed.AdapterTimeout)
	}
	if c.Feed.AdapterConcurrency < 1 {
		return fmt.Errorf("ADAPTER_CONCURRENCY must be at least 1, got %d", c.Feed.AdapterConcurrency)
	}

	loc, err := time.LoadLocation(c.Feed.Timezone)
	if err != nil {
		return fmt.Errorf("invalid FEED_TIMEZONE %q: %w", c.Feed.Timezone, err)
	}
	c.Feed.location = loc

	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("REDIS_HOST is required when CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown CACHE_BACKEND %q (use memory or redis)", c.Cache.Backend)
	}

	if c.OTel.Enabled && c.OTel.CollectorAddr == "" {
		return fmt.Errorf("OTEL_COLLECTOR_ADDR is required when OTEL_ENABLED=true")
	}

	return nil
}

// ComputeBudget is the longest a cold feed computation over n sources can
// take: one adapter timeout per round of AdapterConcurrency sources.
func (c *Config) ComputeBudget(sources int) time.Duration {
	if sources <= 0 || c.Feed.AdapterConcurrency < 1 {
		return 0
	}
	rounds := (sources + c.Feed.AdapterConcurrency - 1) / c.Feed.AdapterConcurrency
	return time.Duration(rounds) * c.Feed.AdapterTimeout
}

// ValidateServe checks that a request hitting a cache miss can finish before
// SERVER_WRITE_TIMEOUT when sources adapters are registered.
func (c *Config) ValidateServe(sources int) error {
	if budget := c.ComputeBudget(sources); c.Server.WriteTimeout <= budget {
		return fmt.Errorf("SERVER_WRITE_TIMEOUT (%s) must exceed the worst-case feed computation of %s (%d sources, ADAPTER_CONCURRENCY=%d, ADAPTER_TIMEOUT=%s)",
			c.Server.WriteTimeout, budget, sources, c.Feed.AdapterConcurrency, c.Feed.AdapterTimeout)
	}
	return nil
}

// Location returns the feed time zone. It is resolved by Validate.
func (f *FeedConfig) Location() *time.Location {
	if f.location == nil {
		return time.Local
	}
	return f.location
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// LogLevel returns the configured log level.
func (c *Config) LogLevel() logger.Level {
	level, _ := logger.ParseLevel(c.App.LogLevel)
	return level
}

// AggregatorConfig returns the adapter fan-out settings.
func (c *Config) AggregatorConfig() aggregator.Config {
	return aggregator.Config{
		Timeout:     c.Feed.AdapterTimeout,
		Concurrency: c.Feed.AdapterConcurrency,
	}
}

// ServerConfig returns the HTTP server settings.
func (c *Config) ServerConfig() server.Config {
	return server.Config{
		Host:            c.Server.Host,
		Port:            c.Server.Port,
		ReadTimeout:     c.Server.ReadTimeout,
		WriteTimeout:    c.Server.WriteTimeout,
		ShutdownTimeout: c.Server.ShutdownTimeout,
	}
}

// RedisConfig returns the Redis connection settings.
func (c *Config) RedisConfig() cache.RedisConfig {
	rc := cache.DefaultRedisConfig()
	rc.Addr = c.Redis.Addr()
	rc.Password = c.Redis.Password
	rc.DB = c.Redis.DB
	rc.Key = c.Redis.Key
	return rc
}

// TelemetryConfig returns the tracing settings.
func (c *Config) TelemetryConfig() *telemetry.Config {
	return &telemetry.Config{
		Enabled:        c.OTel.Enabled,
		ServiceName:    c.OTel.ServiceName,
		ServiceVersion: c.App.Version,
		Environment:    c.App.Environment,
		CollectorAddr:  c.OTel.CollectorAddr,
	}
}
