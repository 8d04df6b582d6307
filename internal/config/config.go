// Package config loads process configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the fully resolved process configuration.
type Config struct {
	Server    ServerConfig
	Upstream  UpstreamConfig
	SlowTier  SlowTierConfig
	Coalesce  CoalesceConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	Service   ServiceConfig
	CORS      CORSConfig
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// CORSConfig controls the CORS policy applied to every response.
type CORSConfig struct {
	Environment    string
	Development    bool
	AllowedOrigins []string
}

// UpstreamConfig controls the market-price API client.
type UpstreamConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// SlowTierConfig controls the optional Redis-backed slow cache tier.
// RedisAddr empty means no slow tier is attached.
type SlowTierConfig struct {
	RedisAddr string
	RedisDB   int
}

// CoalesceConfig controls the single-flight coalescer's lifetime bounds.
type CoalesceConfig struct {
	MaxInFlight     time.Duration
	CleanupInterval time.Duration
	Linger          time.Duration
}

// RateLimitConfig controls the sliding-window admission limiter.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
}

// LogConfig controls structured log output.
type LogConfig struct {
	Level  string
	Pretty bool
}

// ServiceConfig names this process for logs and metrics.
type ServiceConfig struct {
	Name    string
	Version string
}

// Load reads configuration from the environment, loading a .env file
// first if one is present in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Upstream: UpstreamConfig{
			BaseURL:    getEnv("UNIVERSALIS_API_BASE", "https://universalis.app"),
			Timeout:    getDurationEnv("UPSTREAM_TIMEOUT_SECONDS", 10*time.Second),
			MaxRetries: getEnvInt("UPSTREAM_MAX_RETRIES", 2),
		},
		SlowTier: SlowTierConfig{
			RedisAddr: getEnv("SLOW_TIER_REDIS_ADDR", ""),
			RedisDB:   getEnvInt("SLOW_TIER_REDIS_DB", 0),
		},
		Coalesce: CoalesceConfig{
			MaxInFlight:     getDurationEnv("COALESCE_MAX_INFLIGHT_SECONDS", 60*time.Second),
			CleanupInterval: getDurationEnv("COALESCE_CLEANUP_INTERVAL_SECONDS", 10*time.Second),
			Linger:          time.Duration(getEnvInt("COALESCE_LINGER_MILLISECONDS", 100)) * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			MaxRequests: getEnvInt("RATE_LIMIT_REQUESTS", 60),
			Window:      getDurationEnv("RATE_LIMIT_WINDOW_SECONDS", time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
		Service: ServiceConfig{
			Name:    getEnv("SERVICE_NAME", "universalis-cache-proxy"),
			Version: getEnv("SERVICE_VERSION", "dev"),
		},
		CORS: CORSConfig{
			Environment:    getEnv("ENVIRONMENT", "production"),
			Development:    strings.EqualFold(getEnv("ENVIRONMENT", "production"), "development"),
			AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "")),
		},
	}

	return cfg, nil
}

func splitCSV(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
