// Package logging defines a minimal structured-logging interface used across
// the project. Implementations wrap slog and zerolog.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key-value pairs, e.g.:
//
//	log.Info(ctx, "pin issued", "user_id", id)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn logs unusual but non-fatal conditions.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key-value pairs.
	With(args ...any) Logger
}

// Format selects the backend and encoding used by New.
const (
	FormatText    = "text"    // slog text
	FormatJSON    = "json"    // slog JSON
	FormatZerolog = "zerolog" // zerolog JSON
	FormatConsole = "console" // zerolog console writer
)

// New builds a Logger for the given format and level writing to w.
// Unknown formats fall back to slog text and unknown levels to info. Values
// logged under secret keys (password, pin, code, token) are redacted.
func New(format, level string, w io.Writer) Logger {
	switch strings.ToLower(format) {
	case FormatZerolog:
		return NewZerologLogger(zerolog.New(w).Level(zerologLevel(level)).With().Timestamp().Logger())
	case FormatConsole:
		out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
		return NewZerologLogger(zerolog.New(out).Level(zerologLevel(level)).With().Timestamp().Logger())
	case FormatJSON:
		return NewSlogLogger(slog.New(newSlogHandler(w, true, slogLevel(level))))
	default:
		return NewSlogLogger(slog.New(newSlogHandler(w, false, slogLevel(level))))
	}
}

// Nop discards everything.
func Nop() Logger {
	return NewZerologLogger(zerolog.Nop())
}

func slogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func zerologLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
