package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config holds runtime configuration read from the environment (and .env when present).
type Config struct {
	AppName string `envconfig:"APP_NAME" default:"Pharmacy POS v1.0"`
	AppEnv  string `envconfig:"APP_ENV" default:"development"`
	Port    string `envconfig:"PORT" default:"3000"`

	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST" default:"localhost"`
	DBUser      string `envconfig:"DB_USER" default:"postgres"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	DBName      string `envconfig:"DB_NAME" default:"pharmacy_pos"`
	DBPort      string `envconfig:"DB_PORT" default:"5432"`
	DBTimezone  string `envconfig:"DB_TIMEZONE" default:"Asia/Jakarta"`

	JWTSecret          string        `envconfig:"JWT_SECRET"`
	JWTTTL             time.Duration `envconfig:"JWT_TTL" default:"24h"`
	ResetTokenTTL      time.Duration `envconfig:"RESET_TOKEN_TTL" default:"30m"`
	SessionIdleTimeout time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"0"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	RedisAddr         string        `envconfig:"REDIS_ADDR"`
	RedisPassword     string        `envconfig:"REDIS_PASSWORD"`
	RedisDB           int           `envconfig:"REDIS_DB" default:"0"`
	DashboardCacheTTL time.Duration `envconfig:"DASHBOARD_CACHE_TTL" default:"30s"`

	LowStockThreshold    int    `envconfig:"LOW_STOCK_THRESHOLD" default:"10"`
	ExpiryWarningDays    int    `envconfig:"EXPIRY_WARNING_DAYS" default:"30"`
	DefaultMarkupPercent string `envconfig:"DEFAULT_MARKUP_PERCENT" default:"25"`
	TaxRatePercent       string `envconfig:"TAX_RATE_PERCENT" default:"0"`
	PhoneRegion          string `envconfig:"PHONE_REGION" default:"ID"`

	TracingEnabled bool `envconfig:"TRACING_ENABLED" default:"false"`

	SeedAdminEmail    string `envconfig:"SEED_ADMIN_EMAIL" default:"admin@example.com"`
	SeedAdminPassword string `envconfig:"SEED_ADMIN_PASSWORD" default:"admin123"`
}

const devJWTSecret = "dev-secret-change-in-production"

// Load reads .env (if any) and decodes the environment into Config.
// The returned bool is false when no .env file was found.
func Load() (*Config, bool, error) {
	envLoaded := godotenv.Load() == nil

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, envLoaded, err
	}
	if err := cfg.validate(); err != nil {
		return nil, envLoaded, err
	}
	return &cfg, envLoaded, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET must be provided in production")
		}
		c.JWTSecret = devJWTSecret
	}
	if c.LowStockThreshold < 0 {
		return errors.New("LOW_STOCK_THRESHOLD must not be negative")
	}
	if _, err := decimal.NewFromString(c.DefaultMarkupPercent); err != nil {
		return fmt.Errorf("DEFAULT_MARKUP_PERCENT: %w", err)
	}
	if _, err := decimal.NewFromString(c.TaxRatePercent); err != nil {
		return fmt.Errorf("TAX_RATE_PERCENT: %w", err)
	}
	if _, err := time.LoadLocation(c.DBTimezone); err != nil {
		return fmt.Errorf("DB_TIMEZONE: %w", err)
	}
	return nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// DSN returns DATABASE_URL or builds a key/value DSN from the DB_* settings.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBTimezone,
	)
}

// Location is the business timezone used for "today" boundaries.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DBTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) MarkupPercent() decimal.Decimal {
	return decimal.RequireFromString(c.DefaultMarkupPercent)
}

func (c *Config) TaxRate() decimal.Decimal {
	return decimal.RequireFromString(c.TaxRatePercent)
}
