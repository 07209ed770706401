package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitLogger(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "bridge.log")

	err := InitLogger(LoggerConfig{LogPath: logPath, LogLevel: "debug", MaxLogFiles: 3})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer Close()

	Info("hello from test")
	Debug("debug line")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("Expected log content, got: %s", string(data))
	}

	if !strings.Contains(string(data), "debug line") {
		t.Errorf("Expected debug line at debug level, got: %s", string(data))
	}
}

func TestInitLoggerLevelFilter(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "bridge.log")

	err := InitLogger(LoggerConfig{LogPath: logPath, LogLevel: "warn"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer Close()

	Info("filtered info")
	Warn("kept warning")

	data, _ := os.ReadFile(logPath)

	if strings.Contains(string(data), "filtered info") {
		t.Error("Info line should be filtered at warn level")
	}

	if !strings.Contains(string(data), "kept warning") {
		t.Error("Warn line should be written at warn level")
	}
}

func TestInitLoggerEmptyPath(t *testing.T) {
	if err := InitLogger(LoggerConfig{}); err == nil {
		t.Error("Expected error for empty log path")
	}
}

func TestRotateKeepsBoundedFiles(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "bridge.log")

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(logPath, []byte("old"), 0o644); err != nil {
			t.Fatal(err)
		}

		if err := InitLogger(LoggerConfig{LogPath: logPath, MaxLogFiles: 2}); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}

		Close()
	}

	matches, err := filepath.Glob(logPath + ".*")
	if err != nil {
		t.Fatal(err)
	}

	if len(matches) > 2 {
		t.Errorf("Expected at most 2 rotated files, got %d", len(matches))
	}
}
