// Package logger builds the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger in development and a JSON logger in
// production. Unknown levels fall back to info.
func New(production bool, level string) zerolog.Logger {
	return NewWithWriter(os.Stdout, production, level)
}

// NewWithWriter is New with an explicit sink.
func NewWithWriter(out io.Writer, production bool, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if !production {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "mindwell").
		Logger()
}
