package rlog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewConsoleWritesHeaderLine(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("drive attached", String("component", "watcher"), String("drive", "DRIVE1"))

	out := buf.String()
	if !strings.Contains(out, "[watcher]") {
		t.Fatalf("expected component tag in output, got %q", out)
	}
	if !strings.Contains(out, "drive attached") {
		t.Fatalf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, "drive: DRIVE1") {
		t.Fatalf("expected attribute line, got %q", out)
	}
}

func TestNewJSONEmitsParsableLines(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("probe failed", Error(nil))

	var decoded map[string]any
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json line: %v, raw=%q", err, buf.String())
	}
	if decoded["msg"] != "probe failed" {
		t.Fatalf("unexpected msg field: %v", decoded["msg"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "console", Output: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered out, got %q", buf.String())
	}
	logger.Warn("should appear")
	if buf.Len() == 0 {
		t.Fatalf("expected warn line to be written")
	}
}
