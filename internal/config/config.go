package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	// Server
	Port           int    `mapstructure:"PORT"`
	Env            string `mapstructure:"APP_ENV"` // development | production
	NodeEnv        string `mapstructure:"NODE_ENV"`
	WorkerPoolSize int    `mapstructure:"WORKER_POOL_SIZE"`

	// Database. DATABASE_URL wins; otherwise the DSN is built from DB_*.
	DatabaseURL      string `mapstructure:"DATABASE_URL"`
	DBUser           string `mapstructure:"DB_USER"`
	DBPassword       string `mapstructure:"DB_PASSWORD"`
	DBHost           string `mapstructure:"DB_HOST"`
	DBPort           int    `mapstructure:"DB_PORT"`
	DBName           string `mapstructure:"DB_NAME"`
	DBSSLMode        string `mapstructure:"DB_SSLMODE"`
	DBConnectTimeout int    `mapstructure:"DB_CONNECT_TIMEOUT_MS"`
	DBMaxOpenConns   int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns   int    `mapstructure:"DB_MAX_IDLE_CONNS"`

	// Redis
	RedisURL string `mapstructure:"REDIS_URL"`

	// Auth
	JWTSecret          string `mapstructure:"JWT_SECRET"`
	JWTExpirationHours int    `mapstructure:"JWT_EXPIRATION_HOURS"`

	// SMTP
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUser     string `mapstructure:"SMTP_USER"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`

	// Business
	PDFStoragePath string `mapstructure:"PDF_STORAGE_PATH"`
	RestaurantName string `mapstructure:"RESTAURANT_NAME"`

	// Minutes between background integrity checks; 0 disables them.
	IntegridadIntervalMin int `mapstructure:"INTEGRIDAD_INTERVAL_MIN"`
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	v.SetDefault("PORT", 8000)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("NODE_ENV", "")
	v.SetDefault("WORKER_POOL_SIZE", 3)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_USER", "restopos")
	v.SetDefault("DB_PASSWORD", "restopos")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_NAME", "restopos")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_CONNECT_TIMEOUT_MS", 2000)
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_EXPIRATION_HOURS", 12)
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USER", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("PDF_STORAGE_PATH", "/tmp/restopos/pdfs")
	v.SetDefault("RESTAURANT_NAME", "Restaurante")
	v.SetDefault("INTEGRIDAD_INTERVAL_MIN", 15)

	// Optional .env file for local development; a missing file is fine.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if cfg.Env == "" {
		cfg.Env = cfg.NodeEnv
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool { return c.Env == "production" }

// DSN returns the Postgres connection string. DATABASE_URL is used verbatim
// when present.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:   "/" + c.DBName,
	}
	q := url.Values{}
	q.Set("sslmode", c.DBSSLMode)
	if c.DBConnectTimeout > 0 {
		// libpq only accepts whole seconds; round up.
		q.Set("connect_timeout", fmt.Sprintf("%d", int((c.ConnectTimeout()+time.Second-1)/time.Second)))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ConnectTimeout is DB_CONNECT_TIMEOUT_MS as a duration.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.DBConnectTimeout) * time.Millisecond
}

// IntegridadInterval is INTEGRIDAD_INTERVAL_MIN as a duration.
func (c *Config) IntegridadInterval() time.Duration {
	return time.Duration(c.IntegridadIntervalMin) * time.Minute
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}
	return nil
}
