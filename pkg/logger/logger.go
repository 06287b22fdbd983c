package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format represents logger output format.
type Format string

const (
	// FormatJSON outputs structured logs for log aggregation systems.
	FormatJSON Format = "json"
	// FormatText outputs human-readable logs for development.
	FormatText Format = "text"
)

// Config describes logger behavior, populated from the environment.
type Config struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`   // debug | info | warn | error
	Format Format `env:"LOG_FORMAT" envDefault:"json"` // json | text
}

// New creates a slog.Logger from the config, writing to the given output.
func New(cfg Config, output io.Writer) (*slog.Logger, error) {
	if output == nil {
		output = os.Stdout
	}

	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level %q", cfg.Level)
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch cfg.Format {
	case FormatText:
		handler = slog.NewTextHandler(output, opts)
	case FormatJSON, "":
		handler = slog.NewJSONHandler(output, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q: must be %q or %q", cfg.Format, FormatJSON, FormatText)
	}

	return slog.New(handler), nil
}
