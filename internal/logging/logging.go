// Package logging builds the zerolog loggers used by the CLI and the server.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a logger writing to w at the named level ("debug", "info",
// "warn", ...). pretty selects the human readable console format; otherwise
// one JSON object is written per line.
func New(w io.Writer, level string, pretty bool) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		var err error
		lvl, err = zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
		}
	}

	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// MustNew is like New but falls back to info level on a bad level name.
func MustNew(w io.Writer, level string, pretty bool) zerolog.Logger {
	logger, err := New(w, level, pretty)
	if err != nil {
		logger, _ = New(w, "info", pretty)
		logger.Warn().Err(err).Msg("using info level")
	}
	return logger
}
