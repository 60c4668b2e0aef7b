package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all environment-driven configuration. Environment
// variables are read here and nowhere else.
type Config struct {
	Env string // development, staging, production

	// HTTP API
	APIPort string

	// Database
	Database DatabaseConfig

	// Market data provider
	MarketData MarketDataConfig

	// Universe listing pages, scraped when no static ticker list is
	// given.
	ListingURLs []string

	// Scheduler
	ScanCron string // cron expression for the daily scan

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// MarketDataConfig holds the daily-aggregates provider settings.
type MarketDataConfig struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	RatePerSecond  float64 // requests per second for the rate limiter
	RateBurst      int
}

// Load reads configuration from the environment, consulting a .env file
// when one is present.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env:     getEnv("ENV", "development"),
		APIPort: getEnv("API_PORT", "8080"),
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},
		MarketData: MarketDataConfig{
			BaseURL:        getEnv("MARKET_DATA_BASE_URL", "https://api.polygon.io"),
			APIKey:         getEnv("MARKET_DATA_API_KEY", ""),
			RequestTimeout: getEnvAsDuration("MARKET_DATA_TIMEOUT", "30s"),
			RatePerSecond:  getEnvAsFloat("MARKET_DATA_RATE_PER_SEC", 5),
			RateBurst:      getEnvAsInt("MARKET_DATA_RATE_BURST", 5),
		},
		ListingURLs: getEnvAsSlice("LISTING_URLS"),
		ScanCron:    getEnv("SCAN_CRON", "30 16 * * MON-FRI"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}
	if c.MarketData.RatePerSecond <= 0 {
		return fmt.Errorf("MARKET_DATA_RATE_PER_SEC must be > 0")
	}
	return nil
}

// loadEnvFile tries .env in the working directory and next to the
// executable.
func loadEnvFile() {
	paths := []string{".env"}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		paths = append(paths, filepath.Join(dir, ".env"), filepath.Join(dir, "..", ".env"))
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvAsFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvAsSlice(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvAsDuration(key, fallback string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		v = fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}
