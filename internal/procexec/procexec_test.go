package procexec

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestStartStreamsStdoutLines(t *testing.T) {
	var mu sync.Mutex
	var lines []string

	h, err := Start(context.Background(), t.TempDir(), []string{"sh", "-c", "echo one; echo two"}, func(line string) {
		mu.Lock()
		lines = append(lines, line)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.Wait(); err != nil {
		t.Fatalf("wait: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Fatalf("got %v", lines)
	}
}

func TestStartRejectsEmptyArgv(t *testing.T) {
	if _, err := Start(context.Background(), t.TempDir(), nil, nil); err == nil {
		t.Fatalf("expected error for empty argv")
	}
}

func TestWaitReportsNonZeroExit(t *testing.T) {
	h, err := Start(context.Background(), t.TempDir(), []string{"sh", "-c", "exit 1"}, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.Wait(); err == nil {
		t.Fatalf("expected non-zero exit to surface as error")
	}
}

func TestKillTerminatesLongRunningChild(t *testing.T) {
	h, err := Start(context.Background(), t.TempDir(), []string{"sh", "-c", "sleep 30"}, nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := h.Kill(); err != nil {
		t.Fatalf("kill: %v", err)
	}

	done := make(chan struct{})
	go func() {
		h.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("expected killed child to be reaped promptly")
	}
}

func TestLastCRFragmentKeepsOnlyFinalSegment(t *testing.T) {
	got := lastCRFragment("50%\rfoo\rbar")
	if got != "bar" {
		t.Fatalf("got %q", got)
	}
	if got := lastCRFragment("no carriage return"); got != "no carriage return" {
		t.Fatalf("got %q", got)
	}
}
