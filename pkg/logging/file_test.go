package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newTestFileLogger(t *testing.T, config FileLoggerConfig) *FileLogger {
	t.Helper()
	logger, err := NewFileLogger(config)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	return logger
}

func TestNewFileLogger_CreatesDirectory(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "logging-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	logPath := filepath.Join(tempDir, "nested", "dir", "mediakit.log")
	logger := newTestFileLogger(t, FileLoggerConfig{Path: logPath, Format: FormatText, Level: InfoLevel})
	defer logger.Close()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}
}

func TestFileLogger_LogLevels(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "mediakit.log")
	logger := newTestFileLogger(t, FileLoggerConfig{Path: logPath, Format: FormatText, Level: WarnLevel})

	ctx := context.Background()
	logger.Debug(ctx, "probing", nil)
	logger.Info(ctx, "transcoding", nil)
	logger.Warn(ctx, "metadata missing", nil)
	logger.Error(ctx, "encoder failed", errors.New("exit 1"), nil)
	logger.Close()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	log := string(content)

	for _, filtered := range []string{"probing", "transcoding"} {
		if strings.Contains(log, filtered) {
			t.Errorf("%q should be filtered at WARN level", filtered)
		}
	}
	for _, kept := range []string{"[WARN] metadata missing", "[ERROR] encoder failed", `error="exit 1"`} {
		if !strings.Contains(log, kept) {
			t.Errorf("log should contain %q, got:\n%s", kept, log)
		}
	}
}

func TestFileLogger_JSONFormat(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "mediakit.log")
	logger := newTestFileLogger(t, FileLoggerConfig{Path: logPath, Format: FormatJSON, Level: InfoLevel})

	logger.Error(context.Background(), "move failed", errors.New("permission denied"), Fields{"path": "/photos/a.jpg"})
	logger.Close()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(content, &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	want := map[string]string{
		"level":   "ERROR",
		"message": "move failed",
		"error":   "permission denied",
		"path":    "/photos/a.jpg",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %s", k, entry[k], v)
		}
	}
	if entry["timestamp"] == nil {
		t.Error("timestamp should be present")
	}
}

func TestFileLogger_WithFieldsSharesFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "mediakit.log")
	logger := newTestFileLogger(t, FileLoggerConfig{Path: logPath, Format: FormatJSON, Level: InfoLevel})

	child := logger.WithFields(Fields{"command": "catalog"})
	child.Info(context.Background(), "moved", Fields{"bucket": "2023-07"})
	logger.Info(context.Background(), "done", nil)

	// closing the parent closes the shared file
	logger.Close()
	child.Info(context.Background(), "after close", nil)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), content)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["command"] != "catalog" || entry["bucket"] != "2023-07" {
		t.Errorf("entry = %v", entry)
	}
	if strings.Contains(lines[1], "catalog") {
		t.Error("parent logger should not carry child fields")
	}
}

func TestFileLogger_Rotation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "mediakit.log")
	logger := newTestFileLogger(t, FileLoggerConfig{
		Path:       logPath,
		Format:     FormatText,
		Level:      InfoLevel,
		MaxSize:    100,
		MaxBackups: 2,
	})

	for i := 0; i < 20; i++ {
		logger.Info(context.Background(), "This is a message long enough to trigger rotation eventually", nil)
	}
	logger.Close()

	if _, err := os.Stat(logPath + ".1"); os.IsNotExist(err) {
		t.Error("Backup file .1 should exist after rotation")
	}
	if _, err := os.Stat(logPath + ".2"); os.IsNotExist(err) {
		t.Error("Backup file .2 should exist after rotation")
	}
	if _, err := os.Stat(logPath + ".3"); !os.IsNotExist(err) {
		t.Error("Backup file .3 should not exist with MaxBackups=2")
	}
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("Main log file should still exist")
	}
}

func TestFileLogger_ConcurrentWrites(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "mediakit.log")
	logger := newTestFileLogger(t, FileLoggerConfig{Path: logPath, Format: FormatText, Level: InfoLevel})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			l := logger.WithFields(Fields{"worker": id})
			for j := 0; j < 100; j++ {
				l.Info(context.Background(), "resolved", Fields{"chunk": j})
			}
		}(i)
	}
	wg.Wait()
	logger.Close()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 1000 {
		t.Errorf("Expected 1000 log lines, got %d", len(lines))
	}
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(&buf, InfoLevel)

	logger.Debug(context.Background(), "hidden", nil)
	logger.WithFields(Fields{"file": "a.wav"}).Info(context.Background(), "transcoding", Fields{"kind": "audio"})

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Error("debug entry should be filtered")
	}
	want := "[INFO] transcoding file=a.wav kind=audio\n"
	if got != want {
		t.Errorf("output = %q, want %q", got, want)
	}
}

func TestTee(t *testing.T) {
	var a, b bytes.Buffer
	logger := NewTee(NewConsoleLogger(&a, DebugLevel), nil, NewConsoleLogger(&b, ErrorLevel))

	logger.Info(context.Background(), "scan", nil)
	logger.Error(context.Background(), "boom", nil, nil)

	if !strings.Contains(a.String(), "scan") || !strings.Contains(a.String(), "boom") {
		t.Errorf("first sink = %q", a.String())
	}
	if strings.Contains(b.String(), "scan") || !strings.Contains(b.String(), "boom") {
		t.Errorf("second sink = %q", b.String())
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if _, ok := NewTee().(*NullLogger); !ok {
		t.Error("empty tee should be a NullLogger")
	}
	single := NewConsoleLogger(&a, InfoLevel)
	if NewTee(single) != Logger(single) {
		t.Error("single-logger tee should return the logger itself")
	}
}

func TestNullLogger(t *testing.T) {
	logger := OrNull(nil)
	ctx := context.Background()

	logger.Debug(ctx, "debug", nil)
	logger.Info(ctx, "info", nil)
	logger.Warn(ctx, "warn", nil)
	logger.Error(ctx, "error", nil, nil)

	if logger.WithFields(Fields{"key": "value"}) == nil {
		t.Error("WithFields should return a logger")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"WARNING", WarnLevel},
		{"error", ErrorLevel},
		{"unknown", InfoLevel},
		{"", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := LevelString(tt.level); got != tt.expected {
				t.Errorf("LevelString(%v) = %q, want %q", tt.level, got, tt.expected)
			}
		})
	}
}
