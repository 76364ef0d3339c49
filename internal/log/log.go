// Package log provides the logging infrastructure for the assistant.
//
// This package provides:
//   - A type alias for *slog.Logger to use as DI dependency
//   - Factory functions to create configured loggers
//   - A Nop logger for testing
//
// Design Philosophy:
//   - Use Dependency Injection (DI) for loggers, not globals
//   - Each component receives a logger via constructor
//   - Components can add context via logger.With()
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a type alias for *slog.Logger.
// Using the standard library type directly provides:
//   - Full compatibility with slog ecosystem
//   - Access to With() for adding context
//   - No need for custom interface definitions
//
// Components should accept log.Logger as a dependency.
type Logger = *slog.Logger

// Config defines logger configuration options.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo
	Level slog.Level

	// JSON enables JSON format output. Default: false (text format)
	JSON bool

	// AddSource adds source file information to log entries. Default: false
	AddSource bool
}

// New creates a new logger with the given configuration.
// Output is written to os.Stderr by default.
//
// Example:
//
//	logger := log.New(log.Config{
//	    Level: slog.LevelDebug,
//	    JSON:  true,
//	})
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a new logger that writes to the specified writer.
// Useful for testing or custom output destinations.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewNop creates a logger that discards all output.
//
// This should only be used in tests. Production code should always use
// New() or NewWithWriter() with proper configuration.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
