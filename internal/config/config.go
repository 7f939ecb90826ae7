// Package config loads the job pipeline's environment configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every tunable named in spec.md §6.
type Config struct {
	RedisURL string

	MySQLHost            string
	MySQLPort            int
	MySQLUser            string
	MySQLPassword        string
	MySQLDatabase        string
	MySQLConnectionLimit int

	CypressAPIKey  string
	CypressBaseURL string

	MaxRetries  int
	BaseDelayMS int

	LogLevel  string
	LogFormat string

	HTTPClientTimeout time.Duration

	HealthPort     int
	MetricsEnabled bool

	SkipMigrations bool
}

// Load reads an optional .env file, then fills Config from the environment,
// applying the defaults spec.md §6 documents.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Printf("warning: could not load .env: %v\n", err)
		}
	}

	cfg := &Config{}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	c.RedisURL = getEnv("REDIS_URL", "redis://localhost:6379")

	c.MySQLHost = getEnv("MYSQL_HOST", "localhost")
	c.MySQLPort = getIntEnv("MYSQL_PORT", 3306)
	c.MySQLUser = getEnv("MYSQL_USER", "root")
	c.MySQLPassword = getEnv("MYSQL_PASSWORD", "")
	c.MySQLDatabase = getEnv("MYSQL_DATABASE", "dashboard")
	c.MySQLConnectionLimit = getIntEnv("MYSQL_CONNECTION_LIMIT", 10)

	c.CypressAPIKey = getEnv("CYPRESS_API_KEY", "")
	c.CypressBaseURL = getEnv("CYPRESS_BASE_URL", "")

	c.MaxRetries = getIntEnv("MAX_RETRIES", 3)
	c.BaseDelayMS = getIntEnv("BASE_DELAY_MS", 5000)

	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogFormat = getEnv("LOG_FORMAT", "json")

	timeoutStr := getEnv("HTTP_CLIENT_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return fmt.Errorf("invalid HTTP_CLIENT_TIMEOUT: %w", err)
	}
	c.HTTPClientTimeout = timeout

	c.HealthPort = getIntEnv("HEALTH_PORT", 8090)
	c.MetricsEnabled = getBoolEnv("METRICS_ENABLED", true)
	c.SkipMigrations = getBoolEnv("SKIP_MIGRATIONS", false)

	return nil
}

// Validate rejects a retry bound below 1 and a non-positive base delay. It
// does not check the Cypress credentials; testreport.New rejects those.
func (c *Config) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1")
	}
	if c.BaseDelayMS < 1 {
		return fmt.Errorf("BASE_DELAY_MS must be positive")
	}
	return nil
}

// MySQLDSN builds the DSN the lib/pq-style store adapter connects with.
// The store uses Postgres wire semantics ($N placeholders); MYSQL_* names
// are kept because spec.md §6 enumerates them verbatim.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.MySQLHost, c.MySQLPort, c.MySQLUser, c.MySQLPassword, c.MySQLDatabase)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}
