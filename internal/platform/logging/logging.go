// Package logging builds the structured logger the processing pipeline is
// wired with.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/clinsafe/clinsafe/internal/config"
)

// New creates a logger configured from the service settings: JSON output at
// the configured level, a console writer in development.
func New(cfg config.Config) zerolog.Logger {
	return NewWithOutput(cfg, os.Stdout)
}

// NewWithOutput is New with an explicit sink, for callers embedding the
// pipeline that want log routing under their control.
func NewWithOutput(cfg config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.IsDev() {
		out = zerolog.ConsoleWriter{Out: out}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "clinsafe").
		Str("version", cfg.ServiceVersion).
		Logger()
}
