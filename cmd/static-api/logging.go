package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const appName = "static-api"

// Log level mapping
var logLevelMap = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// parseLogLevel maps a level name to a slog level, defaulting to warn
func parseLogLevel(name string) slog.Level {
	level, ok := logLevelMap[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return slog.LevelWarn
	}
	return level
}

// initLogging creates the process logger. Records always go to a JSON log
// file in the XDG cache dir; with logStdout they are also printed as text.
// The returned logger is installed as the slog default.
func initLogging(logLevel string, logStdout bool) (*slog.Logger, error) {
	level := parseLogLevel(logLevel)

	logDir := getXDGCacheDir()
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	logPath := filepath.Join(logDir, appName+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	// Create file handler with JSON format for structured logging
	var handler slog.Handler = slog.NewJSONHandler(logFile, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})

	if logStdout {
		stdoutHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
		handler = &multiHandler{
			handlers: []slog.Handler{handler, stdoutHandler},
		}
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	logger.Debug("logging initialized",
		"level", level.String(),
		"log_file", logPath,
		"log_stdout", logStdout)

	return logger, nil
}

// getXDGCacheDir returns the XDG cache directory for static-api
func getXDGCacheDir() string {
	// First check XDG_CACHE_HOME
	if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
		return filepath.Join(xdgCache, appName)
	}

	// Fall back to default based on OS
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Last resort - use temp directory
		return filepath.Join(os.TempDir(), appName)
	}

	if runtime.GOOS == "darwin" {
		// macOS uses ~/Library/Caches
		return filepath.Join(homeDir, "Library", "Caches", appName)
	}

	// Linux and others use ~/.cache
	return filepath.Join(homeDir, ".cache", appName)
}

// multiHandler implements slog.Handler to write to multiple handlers
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, record.Level) {
			continue
		}
		if err := handler.Handle(ctx, record.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: newHandlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	newHandlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		newHandlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: newHandlers}
}
