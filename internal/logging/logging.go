package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls where and how diagnostics are written.
type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Format string // "json" or "console"
	File   string // when set, logs go to a size-rotated file instead of stderr
}

// Init creates and sets the package-level default slog logger.
// Records are encoded by zerolog; console format is meant for terminals.
func Init(cfg Config) *slog.Logger {
	var w io.Writer = os.Stderr
	if cfg.File != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    64, // megabytes
			MaxBackups: 5,
			MaxAge:     7, // days
			Compress:   true,
		}
	}
	logger := New(w, cfg.Format, ParseLevel(cfg.Level))
	slog.SetDefault(logger)
	return logger
}

// New returns an slog.Logger writing to w through zerolog.
func New(w io.Writer, format string, level slog.Level) *slog.Logger {
	if strings.EqualFold(format, "console") {
		cw := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
		if _, ok := w.(*os.File); !ok {
			cw.NoColor = true
		}
		w = cw
	}
	zl := zerolog.New(w).With().Timestamp().Logger()
	return slog.New(NewHandler(zl, level))
}

// ParseLevel converts a string ("debug", "info", "warn", "error") to slog.Level.
// Unknown strings default to LevelInfo.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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
