// Package log wraps zerolog with the service's base fields and component helpers.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config controls the process-wide logger.
type Config struct {
	Level   string    // "debug", "info", ...; falls back to LOG_LEVEL
	Output  io.Writer // defaults to os.Stdout
	Service string
}

var (
	mu   sync.RWMutex
	base = newLogger(Config{})
)

// Configure replaces the base logger. Safe to call more than once; the last call wins.
func Configure(cfg Config) {
	l := newLogger(cfg)
	mu.Lock()
	base = l
	mu.Unlock()
}

func newLogger(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	raw := cfg.Level
	if raw == "" {
		raw = os.Getenv("LOG_LEVEL")
	}
	if raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	service := cfg.Service
	if service == "" {
		service = "lulutv"
	}
	return zerolog.New(out).Level(level).With().
		Timestamp().
		Str("service", service).
		Logger()
}

// Base returns the configured base logger.
func Base() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// WithComponent returns a child logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	l := Base()
	return l.With().Str("component", component).Logger()
}
