package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the mission control unit
type Config struct {
	// Server configuration
	HTTPPort int    `env:"MCU_HTTP_PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Storage backend: "memory" or "redis"
	StorageBackend string `env:"MCU_STORAGE_BACKEND" envDefault:"memory"`

	// Redis configuration
	Redis RedisConfig

	// Dispatch configuration
	Dispatch DispatchConfig

	// Risk configuration
	Risk RiskConfig

	// Agent configuration
	Agents AgentConfig

	// Market data configuration
	MarketData MarketDataConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`

	// Retention for job snapshots; zero keeps them forever
	JobTTL time.Duration `env:"REDIS_JOB_TTL" envDefault:"168h"`
}

// DispatchConfig holds job dispatch and retry configuration
type DispatchConfig struct {
	MaxAttempts      int           `env:"DISPATCH_MAX_ATTEMPTS" envDefault:"5"`
	RetryBaseDelay   time.Duration `env:"DISPATCH_RETRY_BASE_DELAY" envDefault:"1s"`
	RetryMaxDelay    time.Duration `env:"DISPATCH_RETRY_MAX_DELAY" envDefault:"60s"`
	AgentJobDeadline time.Duration `env:"DISPATCH_AGENT_JOB_DEADLINE" envDefault:"120s"`
}

// RiskConfig holds default compliance limits for accounts without
// explicit constraints
type RiskConfig struct {
	MaxSingleTradePct float64 `env:"RISK_MAX_SINGLE_TRADE_PCT" envDefault:"5"`
}

// AgentConfig holds built-in agent concurrency limits
type AgentConfig struct {
	EquityConcurrency int `env:"AGENT_EQUITY_CONCURRENCY" envDefault:"4"`
	CryptoConcurrency int `env:"AGENT_CRYPTO_CONCURRENCY" envDefault:"4"`
	RiskConcurrency   int `env:"AGENT_RISK_CONCURRENCY" envDefault:"2"`
	CashConcurrency   int `env:"AGENT_CASH_CONCURRENCY" envDefault:"2"`

	HealthCheckInterval time.Duration `env:"AGENT_HEALTH_CHECK_INTERVAL" envDefault:"30s"`
}

// MarketDataConfig holds the tick feeder configuration
type MarketDataConfig struct {
	TickInterval time.Duration `env:"MARKET_TICK_INTERVAL" envDefault:"5s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	switch c.StorageBackend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis address is required")
		}
	default:
		return fmt.Errorf("unsupported storage backend: %s (must be memory or redis)", c.StorageBackend)
	}

	if c.Dispatch.MaxAttempts < 1 {
		return fmt.Errorf("dispatch max attempts must be at least 1")
	}
	if c.Dispatch.RetryBaseDelay <= 0 {
		return fmt.Errorf("dispatch retry base delay must be positive")
	}
	if c.Dispatch.RetryMaxDelay < c.Dispatch.RetryBaseDelay {
		return fmt.Errorf("dispatch retry max delay must be at least the base delay")
	}

	if c.Risk.MaxSingleTradePct <= 0 || c.Risk.MaxSingleTradePct > 100 {
		return fmt.Errorf("max single trade pct must be in (0, 100]: %f", c.Risk.MaxSingleTradePct)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// MaxSingleTradePct returns the default trade size cap as a decimal
// percentage.
func (c *Config) MaxSingleTradePct() decimal.Decimal {
	return decimal.NewFromFloat(c.Risk.MaxSingleTradePct)
}
