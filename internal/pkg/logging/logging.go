package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
)

// Options controls where and how logs are written.
type Options struct {
	Level  string
	Format string
	// File, when set, adds a size-rotated log file next to stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// Setup initialises the global slog default logger.
// level may be "debug", "info", "warn", or "error" (default "info").
// format may be "json" or "text" (default "json").
func Setup(level, format string) {
	SetupWith(Options{Level: level, Format: format})
}

// SetupWith is Setup with an optional rotating file sink.
func SetupWith(o Options) {
	slog.SetDefault(slog.New(NewHandler(writerFor(o), o.Level, o.Format)))
}

// NewHandler builds the slog handler used by Setup.
func NewHandler(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if strings.ToLower(format) == "text" {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func writerFor(o Options) io.Writer {
	if o.File == "" {
		return os.Stdout
	}
	return io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   o.File,
		MaxSize:    o.MaxSizeMB,
		MaxBackups: o.MaxBackups,
		Compress:   true,
	})
}
