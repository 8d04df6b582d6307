// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component names the proxy subsystem a logger is bound to. Scoping this to
// a closed set (rather than an arbitrary string) keeps the "component"
// field consistent across cache/coalescer/ratelimit/upstream/httpapi, which
// is what log aggregation in this service groups on.
type Component string

const (
	ComponentMain            Component = "main"
	ComponentCache           Component = "cache"
	ComponentCoalescer       Component = "coalescer"
	ComponentRateLimit       Component = "ratelimit"
	ComponentUpstream        Component = "upstream"
	ComponentUpstreamBreaker Component = "upstream-breaker"
	ComponentHTTPAPI         Component = "httpapi"
)

// NewLogger creates a new logger scoped to component.
func NewLogger(component Component) zerolog.Logger {
	return log.With().Str("component", string(component)).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Slow-tier probe and write failures (treated as a miss / swallowed)
//   - Background revalidation failures
//   - Upstream retry backoff scheduling
//   - Breaker state unavailable (defaults to allow)
//   - Each handled HTTP request
//
// Info: Normal operation events
//   - Server startup/shutdown
//   - Redis connection status at startup
//
// Warn: Warning conditions that don't prevent operation
//   - Redis unreachable at startup (runs without slow tier)
//   - Shared upstream breaker blocking a request
//
// Error: Error conditions requiring attention
//   - Recovered panics
//   - Server stopped with an error
//
// Context Fields:
//   - component: subsystem name (main, cache, coalescer, ratelimit, upstream, upstream-breaker, httpapi)
//   - key: cache key
//   - method, path, status, duration: per-request fields from the HTTP layer
