// SPDX-License-Identifier: MIT

// Package log provides structured logging utilities.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config captures options for configuring the global logger.
type Config struct {
	Level   string    // optional log level ("debug", "info", etc.)
	Output  io.Writer // optional writer (defaults to os.Stderr)
	Service string    // optional service name attached to every log entry
	Version string    // optional build version attached to every log entry
}

func (c Config) isZero() bool {
	return c.Level == "" && c.Output == nil && c.Service == "" && c.Version == ""
}

var (
	mu      sync.Mutex
	ready   bool
	current Config
	base    zerolog.Logger
)

// Configure initialises the global zerolog logger. The first call seeds the
// defaults; later calls re-apply any fields that are set, so an explicit
// Configure wins even when lazy logging already initialised the logger
// (config parsing logs before main configures the level).
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()

	if ready && cfg.isZero() {
		return
	}

	if cfg.Level != "" {
		current.Level = cfg.Level
	}
	if cfg.Output != nil {
		current.Output = cfg.Output
	}
	if cfg.Service != "" {
		current.Service = cfg.Service
	}
	if cfg.Version != "" {
		current.Version = cfg.Version
	}
	ready = true

	level := zerolog.InfoLevel
	if current.Level != "" {
		if parsed, err := zerolog.ParseLevel(current.Level); err == nil {
			level = parsed
		}
	} else if env := os.Getenv("CCAN_LOG_LEVEL"); env != "" {
		if parsed, err := zerolog.ParseLevel(env); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	writer := current.Output
	if writer == nil {
		writer = os.Stderr
	}

	service := current.Service
	if service == "" {
		service = "ccan"
	}

	ctx := zerolog.New(writer).With().
		Timestamp().
		Str("service", service)
	if current.Version != "" {
		ctx = ctx.Str("version", current.Version)
	}
	base = ctx.Logger()
}

func logger() zerolog.Logger {
	Configure(Config{})
	return base
}

// Base returns the configured base logger instance.
func Base() zerolog.Logger {
	return logger()
}

// WithComponent returns a child logger annotated with the given component name.
func WithComponent(component string) zerolog.Logger {
	return logger().With().Str(FieldComponent, component).Logger()
}

// Derive attaches arbitrary fields to a child logger using the provided builder function.
func Derive(build func(zerolog.Context) zerolog.Context) zerolog.Logger {
	ctx := logger().With()
	if build != nil {
		ctx = build(ctx)
	}
	return ctx.Logger()
}
