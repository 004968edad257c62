// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://novusai-backend.onrender.com"

// Config holds all client configuration.
type Config struct {
	APIBaseURL     string
	RequestTimeout time.Duration
	RatePerSec     int
	RateBurst      int
	ResetDelay     time.Duration
	MetricsAddr    string
	Verbose        bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		APIBaseURL:     getEnv("NOVUS_API_BASE_URL", defaultBaseURL),
		RequestTimeout: getEnvDuration("NOVUS_REQUEST_TIMEOUT", 30*time.Second),
		RatePerSec:     getEnvInt("NOVUS_RATE_PER_SEC", 5),
		RateBurst:      getEnvInt("NOVUS_RATE_BURST", 10),
		ResetDelay:     getEnvDuration("NOVUS_RESET_DELAY", 300*time.Millisecond),
		MetricsAddr:    getEnv("NOVUS_METRICS_ADDR", ""),
		Verbose:        getEnvBool("NOVUS_VERBOSE", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.APIBaseURL) == "" {
		return fmt.Errorf("NOVUS_API_BASE_URL cannot be empty")
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("NOVUS_API_BASE_URL must be an http(s) URL")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("NOVUS_REQUEST_TIMEOUT must be > 0")
	}
	if c.RatePerSec <= 0 {
		return fmt.Errorf("NOVUS_RATE_PER_SEC must be > 0")
	}
	if c.RateBurst <= 0 {
		return fmt.Errorf("NOVUS_RATE_BURST must be > 0")
	}
	if c.ResetDelay < 0 {
		return fmt.Errorf("NOVUS_RESET_DELAY cannot be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
