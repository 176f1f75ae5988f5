// Package logging wires zerolog: a level from config, an optional pretty
// console writer, timestamp+caller fields on every line.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config controls the constructed logger.
type Config struct {
	Level  string // debug, info, warn, error
	Pretty bool
}

// New builds a structured logger per cfg.
func New(cfg Config) zerolog.Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Caller().Logger()
}

// Nop returns a logger that discards everything, for tests that don't want
// log noise but still need a zerolog.Logger to satisfy a constructor.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
