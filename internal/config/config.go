package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// API server configuration
	API APIConfig

	// Admin authentication
	Admin AdminConfig

	// Daily volume update schedule
	Schedule ScheduleConfig

	// Market data vendor configuration
	Market MarketConfig

	// Legacy import configuration
	Migrate MigrateConfig

	// Logging configuration
	Log LogConfig
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"tracker"`
	Password        string        `envconfig:"DB_PASSWORD" default:"tracker"`
	Name            string        `envconfig:"DB_NAME" default:"volume_tracker"`
	SSLMode         string        `envconfig:"DB_SSL_MODE" default:"disable"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// APIConfig holds API server settings
type APIConfig struct {
	Host            string        `envconfig:"API_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"API_PORT" default:"3000"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimitRPS    int           `envconfig:"API_RATE_LIMIT_RPS" default:"50"`
	CacheTTL        time.Duration `envconfig:"API_CACHE_TTL" default:"30s"`
	StaticDir       string        `envconfig:"API_STATIC_DIR" default:"./public"`
	CORSOrigins     []string      `envconfig:"API_CORS_ORIGINS" default:"*"`
}

// AdminConfig holds the shared admin secret
type AdminConfig struct {
	Password string `envconfig:"ADMIN_PASSWORD" default:""`
}

// ScheduleConfig holds the daily batch schedule.
// Spec is a standard five-field cron expression evaluated in Timezone.
type ScheduleConfig struct {
	Enabled           bool          `envconfig:"SCHEDULE_ENABLED" default:"true"`
	Spec              string        `envconfig:"SCHEDULE_CRON" default:"1 7 * * *"`
	Timezone          string        `envconfig:"SCHEDULE_TIMEZONE" default:"Asia/Bangkok"`
	ReportingTimezone string        `envconfig:"REPORTING_TIMEZONE" default:"Asia/Bangkok"`
	TokenDelay        time.Duration `envconfig:"SCHEDULE_TOKEN_DELAY" default:"1s"`
	FetchTimeout      time.Duration `envconfig:"SCHEDULE_FETCH_TIMEOUT" default:"30s"`
}

// MarketConfig holds market data vendor settings
type MarketConfig struct {
	BaseURL        string        `envconfig:"MARKET_BASE_URL" default:"https://www.binance.com"`
	RequestTimeout time.Duration `envconfig:"MARKET_REQUEST_TIMEOUT" default:"15s"`
	MaxRetries     int           `envconfig:"MARKET_MAX_RETRIES" default:"2"`
	RetryDelay     time.Duration `envconfig:"MARKET_RETRY_DELAY" default:"1s"`
	TokenListTTL   time.Duration `envconfig:"MARKET_TOKEN_LIST_TTL" default:"10m"`
	UserAgent      string        `envconfig:"MARKET_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"`
}

// MigrateConfig holds legacy import settings
type MigrateConfig struct {
	Source string `envconfig:"MIGRATE_SOURCE" default:"database.json"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if _, err := cfg.Schedule.Location(); err != nil {
		return nil, err
	}
	if _, err := cfg.Schedule.ReportingLocation(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Location returns the timezone the cron schedule is evaluated in
func (c ScheduleConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid SCHEDULE_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// ReportingLocation returns the timezone used for history calendar days
func (c ScheduleConfig) ReportingLocation() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ReportingTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORTING_TIMEZONE %q: %w", c.ReportingTimezone, err)
	}
	return loc, nil
}
