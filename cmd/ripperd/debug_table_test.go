package main

import (
	"strings"
	"testing"

	"github.com/five82/ripperd/internal/driveregistry"
	"github.com/five82/ripperd/internal/hostops"
)

func TestRenderDriveTableReportsNoDrives(t *testing.T) {
	if got := renderDriveTable(driveregistry.New()); got != "no optical drives detected" {
		t.Fatalf("got %q", got)
	}
}

func TestRenderDriveTableIncludesRegisteredDrives(t *testing.T) {
	registry := driveregistry.New()
	registry.Register("D1", "/dev/sr0", "Model X", hostops.CapDVD|hostops.CapCD)
	registry.AssignJob("D1", "job-1")

	out := renderDriveTable(registry)
	if !strings.Contains(out, "/dev/sr0") || !strings.Contains(out, "job-1") {
		t.Fatalf("expected drive row in output, got %q", out)
	}
}

func TestCapabilityLabelCombinesFlags(t *testing.T) {
	if got := capabilityLabel(hostops.CapBluray | hostops.CapDVD | hostops.CapCD); got != "BD/DVD/CD" {
		t.Fatalf("got %q", got)
	}
	if got := capabilityLabel(0); got != "unknown" {
		t.Fatalf("got %q", got)
	}
}

func TestTruncateLabelShortensOverlongASCII(t *testing.T) {
	got := truncateLabel("A_VERY_LONG_DISC_LABEL_THAT_OVERFLOWS", 10)
	if displayWidth(got) > 10 {
		t.Fatalf("truncated label too wide: %q", got)
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("expected ellipsis suffix, got %q", got)
	}
}

func TestTruncateLabelLeavesShortLabelsUnchanged(t *testing.T) {
	if got := truncateLabel("SHORT", 10); got != "SHORT" {
		t.Fatalf("got %q", got)
	}
}

func TestJobColumnPrefersBlacklistOverJobID(t *testing.T) {
	d := driveregistry.Drive{JobID: "job-1", Blacklisted: true}
	if got := jobColumn(d); got != "blacklisted" {
		t.Fatalf("got %q", got)
	}
}
