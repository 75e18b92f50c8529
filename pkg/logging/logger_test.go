package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DEBUG},
		{"DEBUG", DEBUG},
		{"info", INFO},
		{"warn", WARN},
		{"warning", WARN},
		{"error", ERROR},
		{"fatal", FATAL},
		{"nonsense", INFO},
		{"", INFO},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{FATAL, "FATAL"},
		{Level(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		if got := tt.level.String(); got != tt.expected {
			t.Errorf("Level(%d).String() = %q, expected %q", tt.level, got, tt.expected)
		}
	}
}

func TestRotateIfNeeded(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("Failed to open log file: %v", err)
	}
	logger := &Logger{
		level:   INFO,
		output:  logFile,
		fields:  make(map[string]interface{}),
		logFile: logFile,
	}
	defer logger.Close()

	logger.Info(strings.Repeat("x", 100))

	// Under the threshold, nothing moves
	if err := logger.RotateIfNeeded(1 << 20); err != nil {
		t.Fatalf("RotateIfNeeded failed: %v", err)
	}
	if entries, _ := filepath.Glob(logPath + ".*"); len(entries) != 0 {
		t.Fatalf("Expected no backup below threshold, got %v", entries)
	}

	if err := logger.RotateIfNeeded(10); err != nil {
		t.Fatalf("RotateIfNeeded failed: %v", err)
	}

	entries, _ := filepath.Glob(logPath + ".*")
	if len(entries) != 1 {
		t.Fatalf("Expected one timestamped backup, got %v", entries)
	}
	backup, err := os.ReadFile(entries[0])
	if err != nil {
		t.Fatalf("Failed to read backup: %v", err)
	}
	if !strings.Contains(string(backup), strings.Repeat("x", 100)) {
		t.Errorf("Expected backup to hold the old entries")
	}
	fresh, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Expected log file reopened after rotation: %v", err)
	}
	if strings.Contains(string(fresh), strings.Repeat("x", 100)) {
		t.Errorf("Expected rotated file to start fresh")
	}
}

func TestRotateIfNeededWithoutFile(t *testing.T) {
	logger := NewLogger(INFO, false)
	if err := logger.RotateIfNeeded(1); err != nil {
		t.Errorf("Expected nil for a stdout logger, got %v", err)
	}
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	parent := NewLogger(INFO, false)
	child := parent.WithField("component", "test")

	if len(parent.fields) != 0 {
		t.Errorf("Expected parent fields untouched, got %v", parent.fields)
	}
	if child.fields["component"] != "test" {
		t.Errorf("Expected child to carry the field, got %v", child.fields)
	}
}
