package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("info", "json", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Debug("hidden")
	log.Info("hello", zap.String("path", "/p/a.jpg"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	for _, key := range []string{"timestamp", "message", "level", "path"} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("missing key %q in %v", key, entry)
		}
	}
	if entry["message"] != "hello" || entry["level"] != "info" {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNew_ConsoleDebug(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("debug", "console", &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	log.Debug("visible")
	if !strings.Contains(buf.String(), "DEBUG") || !strings.Contains(buf.String(), "visible") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestNew_Errors(t *testing.T) {
	if _, err := New("loud", "console", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for bad level")
	}
	if _, err := New("info", "xml", &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for bad format")
	}
}
