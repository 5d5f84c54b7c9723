package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "promptdojo.log")
	l, err := New(path, "debug")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	l.Info("level.start", "level", 2, "session", "abc")
	l.Debug("gateway.call", "op", "generate")
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), body)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("line is not json: %v", err)
	}
	if entry["msg"] != "level.start" || entry["session"] != "abc" {
		t.Fatalf("unexpected entry: %#v", entry)
	}
}

func TestLoggerLevelFilters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	l, err := New(path, "warn")
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	l.Info("dropped")
	l.Warn("kept")
	_ = l.Close()
	body, _ := os.ReadFile(path)
	if strings.Contains(string(body), "dropped") || !strings.Contains(string(body), "kept") {
		t.Fatalf("unexpected log body: %s", body)
	}
}

func TestParseLevelRejectsUnknown(t *testing.T) {
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestDiscardIsUsable(t *testing.T) {
	l := Discard()
	l.Error("nothing", "k", "v")
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
