// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/alanyoungcy/tradesim/internal/config"
)

// ParseLevel maps a config log level to slog. Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// New returns a JSON logger writing to stdout, and also to a rotated file
// when cfg.File is set. The returned closer releases the file.
func New(level string, cfg config.LogConfig) (*slog.Logger, io.Closer) {
	return newLogger(os.Stdout, level, cfg)
}

func newLogger(stdout io.Writer, level string, cfg config.LogConfig) (*slog.Logger, io.Closer) {
	var (
		w      io.Writer = stdout
		closer io.Closer = nopCloser{}
	)

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err == nil {
			file := &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    cfg.MaxSizeMB,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAgeDays,
				Compress:   cfg.Compress,
			}
			w = io.MultiWriter(stdout, file)
			closer = file
		}
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	return slog.New(handler), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
