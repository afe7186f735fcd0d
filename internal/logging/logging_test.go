package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/valpere/medassist/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" DEBUG ", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_Stderr(t *testing.T) {
	logger, err := NewLogger(config.LogConfig{Level: "debug"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("expected debug level enabled")
	}
}

func TestNewLogger_File(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := NewLogger(config.LogConfig{
		Level:      "info",
		Dir:        dir,
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	logger.Info("answer_generated", "backend", "fake")

	data, err := os.ReadFile(filepath.Join(dir, defaultLogFileName))
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected log output in file")
	}
}

func TestNewLogger_InvalidRotation(t *testing.T) {
	_, err := NewLogger(config.LogConfig{Dir: t.TempDir()})
	if err == nil {
		t.Error("expected error for zero rotation settings")
	}
}
