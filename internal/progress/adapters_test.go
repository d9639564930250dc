package progress

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/five82/ripperd/internal/hostops"
)

func TestHandbrakeAdapterParsesTaskProgress(t *testing.T) {
	dir := t.TempDir()
	outDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "title1.mkv"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "title2.mkv"), nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	a := &HandbrakeAdapter{TempDir: dir, OutputDir: outDir}
	step, title, ok := a.OnLine("Encoding: task 1 of 2, 50.00 %")
	if !ok {
		t.Fatalf("expected line recognized")
	}
	if title != 50.0 {
		t.Fatalf("expected title progress 50, got %v", title)
	}
	if step <= 0 || step >= 100 {
		t.Fatalf("expected partial step progress, got %v", step)
	}
}

func TestHandbrakeAdapterIgnoresUnrelatedLines(t *testing.T) {
	a := &HandbrakeAdapter{TempDir: t.TempDir(), OutputDir: t.TempDir()}
	if _, _, ok := a.OnLine("some unrelated log line"); ok {
		t.Fatalf("expected no match")
	}
}

func TestCompressAdapterParsesPercent(t *testing.T) {
	a := CompressAdapter{}
	step, _, ok := a.OnLine("compressing: 73.5% done")
	if !ok || step != 73.5 {
		t.Fatalf("got %v %v", step, ok)
	}
}

func TestAudioRipAdapterComputesFraction(t *testing.T) {
	a := AudioRipAdapter{}
	step, title, ok := a.OnLine("Ripping track 3 of 12")
	if !ok {
		t.Fatalf("expected match")
	}
	want := 3.0 / 12.0 * 100
	if step != want || title != want {
		t.Fatalf("got %v %v want %v", step, title, want)
	}
}

func TestRawCopyAdapterPollsDestinationSize(t *testing.T) {
	host := hostops.NewFake()
	host.SetDeviceSize("/dev/sr0", 1000)
	dest := filepath.Join(t.TempDir(), "out.iso")
	if err := os.WriteFile(dest, make([]byte, 250), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	a := &RawCopyAdapter{Host: host, DevicePath: "/dev/sr0", DestPath: dest}
	if err := a.OnStart(); err != nil {
		t.Fatalf("on start: %v", err)
	}
	pct, ok := a.Poll()
	if !ok || pct != 25.0 {
		t.Fatalf("got %v %v", pct, ok)
	}
}

func TestMakeMKVPollerParsesLastPRGVLine(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "makemkv_progress.txt")
	content := "PRGT:1,2,\"Analyzing\"\nPRGV:10,0,100\nPRGV:55,0,100\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	p := NewMakeMKVPoller(path)
	p.pollOnce()
	step, title := p.Progress()
	if step != 55.0 || title != 55.0 {
		t.Fatalf("got step=%v title=%v", step, title)
	}
}

func TestMakeMKVPollerToleratesMissingFile(t *testing.T) {
	p := NewMakeMKVPoller(filepath.Join(t.TempDir(), "missing.txt"))
	p.pollOnce()
	step, title := p.Progress()
	if step != 0 || title != 0 {
		t.Fatalf("expected zero progress for missing file, got %v %v", step, title)
	}
}
