// Package logger wraps zerolog for darkcrypt.
//
// Log entries must never carry plaintext, passphrases or keys. Payload
// lengths, journal IDs and error kinds are fine.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const DefaultLevel = zerolog.WarnLevel

// Logger is a thin wrapper around zerolog.Logger
type Logger struct {
	zerolog.Logger
}

// New creates a console logger writing to w at the given level.
// Unknown or empty levels fall back to DefaultLevel.
func New(w io.Writer, level string) *Logger {
	lvl := ParseLevel(level)

	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    true,
		TimeFormat: "15:04:05",
	}

	l := zerolog.New(out).Level(lvl).With().
		Timestamp().
		Logger()

	return &Logger{l}
}

// NewCLI creates the logger used by the darkcrypt binary (stderr)
func NewCLI(level string) *Logger {
	return New(os.Stderr, level)
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

// With returns a child logger tagged with the component name
func (l *Logger) With(component string) *Logger {
	return &Logger{l.Logger.With().Str("component", component).Logger()}
}

// ParseLevel converts a level name to a zerolog level
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		return DefaultLevel
	}
	return lvl
}
