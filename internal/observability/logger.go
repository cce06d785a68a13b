package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/bless2804/CrisisOps-Mesh/internal/config"
	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
// Formats: "json" (default), "text", and "console" for local development.
func NewLogger(cfg *config.Config) *slog.Logger {
	return newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	lvl := parseLevel(level)

	var h slog.Handler
	switch strings.ToLower(format) {
	case "text":
		h = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})
	case "console":
		zl := zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Stamp}).With().Timestamp().Logger()
		h = zeroslog.NewHandler(zl, &zeroslog.HandlerOptions{Level: lvl})
	default:
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	}
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
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
