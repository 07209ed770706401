package logger

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// LoggerConfig controls the global logger.
type LoggerConfig struct {
	LogPath     string
	LogLevel    string
	MaxLogFiles int
}

var (
	mu      sync.RWMutex
	log     *slog.Logger
	logFile *os.File
)

// InitLogger opens the log file and installs the global logger. A previous
// log file at the same path is rotated aside; at most MaxLogFiles rotated
// files are kept.
func InitLogger(config LoggerConfig) error {
	if config.LogPath == "" {
		return fmt.Errorf("log path is required")
	}

	if err := os.MkdirAll(filepath.Dir(config.LogPath), 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	if err := rotate(config.LogPath, config.MaxLogFiles); err != nil {
		return fmt.Errorf("failed to rotate logs: %w", err)
	}

	file, err := os.OpenFile(config.LogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	handler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level: parseLevel(config.LogLevel),
	})

	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
	}

	logFile = file
	log = slog.New(handler)

	return nil
}

// Close flushes and closes the log file. Subsequent log calls fall back to
// stderr.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	log = nil
}

func Debug(msg string) { current().Debug(msg) }
func Info(msg string)  { current().Info(msg) }
func Warn(msg string)  { current().Warn(msg) }
func Error(msg string) { current().Error(msg) }

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	if log != nil {
		return log
	}

	return slog.Default()
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

// rotate moves an existing log file aside with a timestamp suffix and prunes
// old rotations beyond maxFiles.
func rotate(path string, maxFiles int) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	rotated := fmt.Sprintf("%s.%s", path, time.Now().Format("20060102-150405.000000000"))
	if err := os.Rename(path, rotated); err != nil {
		return err
	}

	if maxFiles <= 0 {
		return nil
	}

	matches, err := filepath.Glob(path + ".*")
	if err != nil {
		return err
	}

	sort.Strings(matches)

	for len(matches) > maxFiles {
		os.Remove(matches[0])
		matches = matches[1:]
	}

	return nil
}
