package observability

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// current is the global logger. It starts as a development console logger
// and is swapped atomically so goroutines may log while it is replaced.
var current atomic.Pointer[zerolog.Logger]

func init() {
	InitLogger(false)
}

// Current returns the global logger
func Current() *zerolog.Logger {
	return current.Load()
}

// InitLogger initializes the global logger with the appropriate writer
// For production, use JSON format; for development, use console format
func InitLogger(production bool) {
	InitLoggerWithLevel(production, zerolog.InfoLevel)
}

// InitLoggerWithLevel initializes the logger with a specific log level
func InitLoggerWithLevel(production bool, level zerolog.Level) {
	var output io.Writer = os.Stdout
	if !production {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	SetOutput(output, level)
}

// SetOutput points the global logger at w. Tests use it to capture log lines.
func SetOutput(w io.Writer, level zerolog.Level) {
	l := zerolog.New(w).Level(level).With().Timestamp().Logger()
	current.Store(&l)
}

// SetLogger replaces the global logger, typically to restore one saved with Current
func SetLogger(l *zerolog.Logger) {
	if l != nil {
		current.Store(l)
	}
}

// ParseLevel converts a LOG_LEVEL string to a zerolog level, defaulting to info
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func logger() *zerolog.Logger {
	return current.Load()
}

// Info logs an info message with key/value pairs
func Info(msg string, args ...any) {
	logger().Info().Fields(args).Msg(msg)
}

// Warn logs a warning message
func Warn(msg string, args ...any) {
	logger().Warn().Fields(args).Msg(msg)
}

// Error logs an error message
func Error(msg string, args ...any) {
	logger().Error().Fields(args).Msg(msg)
}

// Debug logs a debug message
func Debug(msg string, args ...any) {
	logger().Debug().Fields(args).Msg(msg)
}

// WithSymbol returns a logger with symbol field
func WithSymbol(symbol string) zerolog.Logger {
	return logger().With().Str("symbol", symbol).Logger()
}

// WithProvider returns a logger with provider field
func WithProvider(provider string) zerolog.Logger {
	return logger().With().Str("provider", provider).Logger()
}

// WithError returns a logger with error field
func WithError(err error) zerolog.Logger {
	return logger().With().Err(err).Logger()
}
