package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; expected %v (err %v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bertcam.log")
	logger, closer, err := New(Config{File: path, Level: "info"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("recording saved", "asset", "abc")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected the log file to exist: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "recording saved") || !strings.Contains(out, "asset=abc") {
		t.Errorf("Expected the info record, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("Expected debug records to be filtered at info level")
	}
}

func TestNew_NoFile(t *testing.T) {
	logger, closer, err := New(Config{Level: "debug"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("dropped")
	if err := closer.Close(); err != nil {
		t.Errorf("Expected a no-op closer, got %v", err)
	}
}
