package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/five82/ripperd/internal/config"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommandPrintsVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if strings.TrimSpace(out) != version {
		t.Fatalf("got %q, want %q", out, version)
	}
}

func TestConfigInitWritesSampleFile(t *testing.T) {
	target := filepath.Join(t.TempDir(), "ripperd.toml")
	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected output to mention %q, got %q", target, out)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected second init to fail because file already exists")
	}
}

func TestLockFilePathJoinsLogDir(t *testing.T) {
	cfg := config.Default()
	cfg.LogDir = "/tmp/logs"
	if got, want := lockFilePath(&cfg), "/tmp/logs/ripperd.lock"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRootCommandWithoutArgsPrintsHelp(t *testing.T) {
	out, err := runCLI(t)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	if !strings.Contains(out, "ripperd") {
		t.Fatalf("expected help text to mention ripperd, got %q", out)
	}
}
