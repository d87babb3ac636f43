package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"pdf-chat-backend/internal/config"
)

func TestInitLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	initWithWriter(&config.Config{GinMode: "release"}, &buf)
	t.Cleanup(func() { Logger = nil })

	Info("index ready", "index", "pdf_chunks_vector")
	Debug("hidden in release mode")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %s", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "index ready" || entry["index"] != "pdf_chunks_vector" {
		t.Errorf("unexpected entry: %v", entry)
	}
	if entry["service"] != "pdf-chat-backend" {
		t.Errorf("missing service attribute: %v", entry)
	}
}

func TestHelpersBeforeInit(t *testing.T) {
	Logger = nil
	if L() == nil {
		t.Fatal("L() must never return nil")
	}
	Warn("no logger yet")
}
