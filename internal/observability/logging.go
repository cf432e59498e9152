// Package observability sets up structured logging for the services
// and CLI commands.
package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds a zerolog logger writing to w. Level accepts the
// usual zerolog names; unknown values fall back to info. Set pretty
// for human-readable console output in CLI use.
func NewLogger(w io.Writer, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Default is the process-wide logger for commands that do not carry
// their own.
func Default(level string, pretty bool) zerolog.Logger {
	return NewLogger(os.Stderr, level, pretty)
}
