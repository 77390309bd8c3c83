// Package logger wraps log/slog with credential masking, sampling for
// high-traffic environments, and optional async buffered output.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger. When async output is enabled, Close must be
// called at shutdown to flush buffered records.
type Logger struct {
	*slog.Logger
	async *asyncHandler
}

// Config holds logger configuration.
type Config struct {
	Level  string
	Format string
	Output io.Writer

	// Sampling contains rate limits applied per distinct message.
	Sampling SamplingConfig

	// Async moves handler writes off the caller's goroutine.
	Async AsyncConfig
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: os.Stdout,
	}
}

// New creates a Logger. The handler chain is built inside out: format
// handler, then async buffering, then sampling, so sampled-away records
// never occupy buffer space.
func New(cfg Config) *Logger {
	level := parseLevel(cfg.Level)
	opts := &slog.HandlerOptions{
		Level:       level,
		AddSource:   level == slog.LevelDebug,
		ReplaceAttr: sanitizeAttr,
	}

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		handler = slog.NewTextHandler(output, opts)
	} else {
		handler = slog.NewJSONHandler(output, opts)
	}

	var async *asyncHandler
	if cfg.Async.Enabled {
		async = NewAsyncHandler(handler, cfg.Async)
		handler = async
	}
	handler = NewSamplingHandler(handler, cfg.Sampling)

	return &Logger{Logger: slog.New(handler), async: async}
}

// NewDefault creates a Logger with default configuration.
func NewDefault() *Logger {
	return New(DefaultConfig())
}

// NewDevelopment creates a logger configured for development.
func NewDevelopment() *Logger {
	return New(Config{
		Level:  "debug",
		Format: "text",
		Output: os.Stdout,
	})
}

// NewProductionWithConfig creates a JSON logger with the given sampling
// settings and async output enabled.
func NewProductionWithConfig(sampling SamplingConfig) *Logger {
	return New(Config{
		Level:    "info",
		Format:   "json",
		Output:   os.Stdout,
		Sampling: sampling,
		Async: AsyncConfig{
			Enabled:       true,
			BufferSize:    4096,
			FlushInterval: 100 * time.Millisecond,
		},
	})
}

// NewNop creates a logger that discards all output, for tests.
func NewNop() *Logger {
	return New(Config{
		Level:  "error",
		Format: "json",
		Output: io.Discard,
	})
}

// With returns a new Logger with the given attributes. The derived logger
// shares the async buffer, so Close on the root flushes everything.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), async: l.async}
}

// SetDefault installs this logger as the slog default.
func (l *Logger) SetDefault() {
	slog.SetDefault(l.Logger)
}

// Close flushes and stops the async writer, if one is configured.
func (l *Logger) Close() error {
	if l.async == nil {
		return nil
	}
	return l.async.Close()
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
