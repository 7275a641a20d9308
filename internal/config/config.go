// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Tracing
	OTLPEndpoint string // OTLP gRPC endpoint; empty disables tracing

	// Session lifecycle
	SessionTTL    time.Duration // how long a registration stays fetchable
	SweepInterval time.Duration // expiry sweeper period

	// Completion delay range (inclusive, seconds) drawn per registration
	DelayMinSeconds int
	DelayMaxSeconds int

	// Risk decision
	DecisionRulesPath   string // JSON rules file, hot-reloaded; empty = built-in rules
	RiskAmountThreshold string // decimal string, built-in rules only
	RiskAddressPrefix   string // hex-body prefix, built-in rules only
}

// Defaults
const (
	DefaultPort            = "8080"
	DefaultEnv             = "development"
	DefaultLogLevel        = "info"
	DefaultSessionTTL      = time.Hour
	DefaultSweepInterval   = 10 * time.Minute
	DefaultDelayMaxSeconds = 10
	DefaultAmountThreshold = "5000"
	DefaultAddressPrefix   = "1"
)

// Load reads configuration from environment variables.
// It loads .env file if present (for local development).
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                getEnv("PORT", DefaultPort),
		Env:                 getEnv("ENV", DefaultEnv),
		LogLevel:            getEnv("LOG_LEVEL", DefaultLogLevel),
		OTLPEndpoint:        os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		SessionTTL:          getEnvDuration("SESSION_TTL", DefaultSessionTTL),
		SweepInterval:       getEnvDuration("SWEEP_INTERVAL", DefaultSweepInterval),
		DelayMinSeconds:     getEnvInt("COMPLETION_DELAY_MIN_SECONDS", 0),
		DelayMaxSeconds:     getEnvInt("COMPLETION_DELAY_MAX_SECONDS", DefaultDelayMaxSeconds),
		DecisionRulesPath:   os.Getenv("DECISION_RULES_PATH"),
		RiskAmountThreshold: getEnv("RISK_AMOUNT_THRESHOLD", DefaultAmountThreshold),
		RiskAddressPrefix:   getEnv("RISK_ADDRESS_PREFIX", DefaultAddressPrefix),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is coherent
func (c *Config) Validate() error {
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	if c.DelayMinSeconds < 0 {
		return fmt.Errorf("COMPLETION_DELAY_MIN_SECONDS must not be negative, got %d", c.DelayMinSeconds)
	}
	if c.DelayMaxSeconds < c.DelayMinSeconds {
		return fmt.Errorf("COMPLETION_DELAY_MAX_SECONDS (%d) must be >= COMPLETION_DELAY_MIN_SECONDS (%d)",
			c.DelayMaxSeconds, c.DelayMinSeconds)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
