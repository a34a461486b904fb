// Package logging builds the structured loggers used by the CLI and
// passed down into the codec, cipher and schedulers.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// New creates a structured logger writing to w. When w is a terminal
// the output uses slog.TextHandler for human-readable lines; when it
// is piped or redirected it uses slog.JSONHandler so scripts and CI can
// parse it.
//
// Callers scope the logger with operation context via With():
//
//	logger := logging.New(os.Stderr, slog.LevelInfo).With(
//	    "operation", "encrypt",
//	    "input", input,
//	)
func New(w io.Writer, level slog.Level) *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: level}
	if isTerminal(w) {
		handler = slog.NewTextHandler(w, options)
	} else {
		handler = slog.NewJSONHandler(w, options)
	}
	return slog.New(handler)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// Discard returns a logger that drops every record. Library code falls
// back to it when no logger is configured.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns logger, or a discarding logger when it is nil.
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}

// ParseLevel parses "debug", "info", "warn" or "error" (case
// insensitive) into a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("parsing log level %q: %w", name, err)
	}
	return level, nil
}
