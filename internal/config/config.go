package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Env        string
	ServerPort string
	LogLevel   string

	// Database
	DatabaseType string
	DatabaseURL  string
	DatabasePath string

	// Admin access
	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string
	TokenSecret       string
	TokenTTL          time.Duration

	// Entertainment content cache
	CacheDir string
	CacheTTL time.Duration

	// RSVP confirmation email (disabled when SESFromEmail is empty)
	AWSRegion    string
	SESFromEmail string
	SESFromName  string
	SiteBaseURL  string

	// Public family lookup rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load reads configuration from a .env file (if present) and environment variables
// with sensible defaults
func Load() *Config {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	cfg := &Config{
		Env:               getEnv("APP_ENV", "development"),
		ServerPort:        getEnv("PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DatabaseType:      strings.ToLower(getEnv("DATABASE_TYPE", "sqlite")),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DatabasePath:      getEnv("DB_PATH", "./wedding.db"),
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		TokenSecret:       getEnv("TOKEN_SECRET", ""),
		TokenTTL:          getDurationEnv("TOKEN_TTL", 12*time.Hour),
		CacheDir:          getEnv("CACHE_DIR", "./cache"),
		CacheTTL:          getDurationEnv("CACHE_TTL", 24*time.Hour),
		AWSRegion:         getEnv("AWS_REGION", "eu-west-2"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		SESFromName:       getEnv("SES_FROM_NAME", ""),
		SiteBaseURL:       getEnv("SITE_BASE_URL", "http://localhost:8080"),
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 20),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
	}

	if cfg.DatabaseURL != "" && cfg.IsPostgres() {
		cfg.DatabaseURL = NormalizeDatabaseURL(cfg.DatabaseURL)
	}

	return cfg
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// IsPostgres reports whether the configured database is PostgreSQL
func (c *Config) IsPostgres() bool {
	return c.DatabaseType == "postgres" || c.DatabaseType == "postgresql"
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	if c.ServerPort == "" {
		errs = append(errs, errors.New("PORT is required"))
	}
	if c.Env != "development" && c.Env != "production" && c.Env != "test" {
		errs = append(errs, fmt.Errorf("APP_ENV must be 'development', 'production', or 'test', got '%s'", c.Env))
	}

	switch c.DatabaseType {
	case "sqlite", "sqlite3":
		if c.DatabasePath == "" {
			errs = append(errs, errors.New("DB_PATH is required for sqlite"))
		}
	case "postgres", "postgresql", "mysql":
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for %s", c.DatabaseType))
		}
	default:
		errs = append(errs, fmt.Errorf("DATABASE_TYPE must be 'sqlite', 'postgres', or 'mysql', got '%s'", c.DatabaseType))
	}

	if c.AdminUsername == "" {
		errs = append(errs, errors.New("ADMIN_USERNAME is required"))
	}
	if c.AdminPassword == "" && c.AdminPasswordHash == "" {
		errs = append(errs, errors.New("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required"))
	}
	if c.IsProduction() && len(c.TokenSecret) < 32 {
		errs = append(errs, errors.New("TOKEN_SECRET must be at least 32 characters in production"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}

	if c.CacheDir == "" {
		errs = append(errs, errors.New("CACHE_DIR is required"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL must be positive"))
	}

	if c.RateLimitRequests <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_REQUESTS must be positive"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
