package main

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	testCases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		" warn ":  slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelWarn,
		"":        slog.LevelWarn,
	}
	for input, want := range testCases {
		if got := parseLogLevel(input); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestMultiHandler(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}
	logger := slog.New(h).With("component", "test")

	logger.Debug("quiet")
	logger.Warn("loud")

	if !strings.Contains(debugBuf.String(), "quiet") || !strings.Contains(debugBuf.String(), "loud") {
		t.Errorf("debug handler missed records: %q", debugBuf.String())
	}
	if strings.Contains(warnBuf.String(), "quiet") {
		t.Errorf("warn handler received a debug record: %q", warnBuf.String())
	}
	if !strings.Contains(warnBuf.String(), "component=test") {
		t.Errorf("attrs not propagated: %q", warnBuf.String())
	}
}

func TestInitLoggingWritesToCacheDir(t *testing.T) {
	cacheDir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cacheDir)
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	logger, err := initLogging("info", false)
	if err != nil {
		t.Fatalf("initLogging failed: %v", err)
	}
	logger.Info("hello", "key", "value")

	content, err := os.ReadFile(filepath.Join(cacheDir, appName, appName+".log"))
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"hello"`) {
		t.Errorf("expected JSON record in log file, got %q", content)
	}
}
