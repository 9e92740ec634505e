package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "pensionledger"

// Config selects the level and encoding of the process logger.
type Config struct {
	Level  string // trace, debug, info, warn, error
	Format string // json, console
	Caller bool   // annotate entries with file:line
}

// New builds the process logger on stdout.
func New(cfg Config) zerolog.Logger {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter builds a logger on w. Every entry carries a timestamp and
// the service name so ledger logs can be told apart in shared sinks.
func NewWithWriter(w io.Writer, cfg Config) zerolog.Logger {
	ctx := zerolog.New(encoder(w, cfg.Format)).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Str("service", serviceName)

	if cfg.Caller {
		ctx = ctx.Caller()
	}

	return ctx.Logger()
}

func encoder(w io.Writer, format string) io.Writer {
	if !strings.EqualFold(format, "console") {
		return w
	}

	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    true,
	}
}

// parseLevel accepts any zerolog level name, case-insensitively. Empty,
// unknown and disabling values fall back to info.
func parseLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel || parsed == zerolog.Disabled {
		return zerolog.InfoLevel
	}

	return parsed
}
