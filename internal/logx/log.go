// Package logx configures the zerolog loggers used by the host binaries.
//
// A native messaging host's stdout carries the protocol, so every logger built
// here writes to stderr or a file, never to stdout.
package logx

import (
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Environment variables consulted by New when the corresponding option is
// empty.
const (
	EnvLevel = "NMHOST_LOG_LEVEL"
	EnvFile  = "NMHOST_LOG_FILE"
)

// Options selects where and how much to log.
type Options struct {
	// Level is a level name such as "debug" or "warn".  Empty means the value
	// of NMHOST_LOG_LEVEL, then info.
	Level string

	// File, if set, receives the log in addition to Out.  Empty means the
	// value of NMHOST_LOG_FILE.
	File string

	// Out defaults to os.Stderr.  os.Stdout is never used.
	Out io.Writer

	// JSON disables the human-readable console format.
	JSON bool
}

// New builds a logger from o.  The returned close function releases the log
// file, if one was opened.
func New(o Options) (zerolog.Logger, func() error, error) {
	if o.Level == "" {
		o.Level = os.Getenv(EnvLevel)
	}
	if o.File == "" {
		o.File = os.Getenv(EnvFile)
	}

	out := o.Out
	if out == nil || out == os.Stdout {
		out = os.Stderr
	}
	if !o.JSON {
		out = zerolog.ConsoleWriter{Out: out, NoColor: true}
	}

	closeFn := func() error { return nil }
	if o.File != "" {
		f, err := os.OpenFile(o.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Nop(), closeFn, err
		}
		out = zerolog.MultiLevelWriter(out, f)
		closeFn = f.Close
	}

	log := zerolog.New(out).Level(ParseLevel(o.Level)).With().Timestamp().Logger()
	return log, closeFn, nil
}

// WithSession tags log with a fresh session id and returns both.
func WithSession(log zerolog.Logger) (zerolog.Logger, string) {
	id := uuid.NewString()
	return log.With().Str("session", id).Logger(), id
}

// ParseLevel converts a string to a zerolog level.
// Accepts: all, trace, debug, info, warn, warning, error, fatal, none.
// Unknown values default to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "all", "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "none", "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
