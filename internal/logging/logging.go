package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"neuropixel/internal/config"
)

// New returns a slog.Logger with the provided level string (info,
// debug, warn, error). format may be "json" or "text".
func New(level string, format string) *slog.Logger {
	return slog.New(handlerFor(os.Stdout, level, format))
}

// Setup configures logging per config, optionally teeing output into a
// dated log file, and installs the result as the default logger.
func Setup(cfg *config.Logging) (*slog.Logger, error) {
	var writers []io.Writer
	writers = append(writers, os.Stdout)

	if cfg.FileOutput {
		if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %v", err)
		}
		logFile := filepath.Join(cfg.LogDir, fmt.Sprintf("neuropixel-%s.log",
			time.Now().Format("2006-01-02")))
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %v", err)
		}
		writers = append(writers, file)
	}

	logger := slog.New(handlerFor(io.MultiWriter(writers...), cfg.Level, cfg.Format))
	slog.SetDefault(logger)

	logger.Info("neuropixel logging initialized",
		"level", cfg.Level,
		"format", cfg.Format,
		"file_output", cfg.FileOutput,
	)
	return logger, nil
}

func handlerFor(w io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

// LogJobStart logs the beginning of a batch job run.
func LogJobStart(logger *slog.Logger, jobID string, inputs, steps int) {
	logger.Info("batch job started",
		"id", jobID,
		"inputs", inputs,
		"steps", steps,
	)
}

// LogJobComplete logs a batch job reaching a terminal state.
func LogJobComplete(logger *slog.Logger, jobID, status string, duration time.Duration, processed, failed int) {
	logger.Info("batch job finished",
		"id", jobID,
		"status", status,
		"duration_ms", duration.Milliseconds(),
		"processed", processed,
		"failed", failed,
	)
}
