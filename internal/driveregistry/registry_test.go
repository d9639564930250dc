package driveregistry

import (
	"testing"

	"github.com/five82/ripperd/internal/hostops"
)

func TestRegisterPreservesJobAndBlacklistAcrossUpdates(t *testing.T) {
	r := New()
	r.Register("D1", "/dev/sr0", "Model A", hostops.CapDVD)
	if !r.AssignJob("D1", "job-1") {
		t.Fatalf("expected assignment to succeed")
	}
	r.Blacklist("D1")

	r.Register("D1", "/dev/sr0", "Model A (rescanned)", hostops.CapDVD|hostops.CapBluray)

	d, ok := r.Get("D1")
	if !ok {
		t.Fatalf("expected drive to exist")
	}
	if d.JobID != "job-1" {
		t.Fatalf("expected job id preserved, got %q", d.JobID)
	}
	if !d.Blacklisted {
		t.Fatalf("expected blacklist preserved")
	}
}

func TestAssignJobFailsWhenUnavailable(t *testing.T) {
	r := New()
	r.Register("D1", "/dev/sr0", "Model", hostops.CapDVD)
	if !r.AssignJob("D1", "job-1") {
		t.Fatalf("first assignment should succeed")
	}
	if r.AssignJob("D1", "job-2") {
		t.Fatalf("second assignment should fail: drive already has a job")
	}

	r2 := New()
	r2.Register("D2", "/dev/sr1", "Model", hostops.CapDVD)
	r2.Blacklist("D2")
	if r2.AssignJob("D2", "job-3") {
		t.Fatalf("assignment to blacklisted drive should fail")
	}
}

func TestResolveAcceptsLogicalIDOrDevicePath(t *testing.T) {
	r := New()
	r.Register("D1", "/dev/sr0", "Model", hostops.CapDVD)

	if _, ok := r.Resolve("D1"); !ok {
		t.Fatalf("expected resolve by logical id to succeed")
	}
	if _, ok := r.Resolve("/dev/sr0"); !ok {
		t.Fatalf("expected resolve by device path to succeed")
	}
	if _, ok := r.Resolve("nope"); ok {
		t.Fatalf("expected resolve of unknown identifier to fail")
	}
}

func TestAllReturnsCopiedSnapshotNotLiveView(t *testing.T) {
	r := New()
	r.Register("D1", "/dev/sr0", "Model", hostops.CapDVD)

	snapshot := r.All()
	r.AssignJob("D1", "job-1")

	if snapshot[0].JobID != "" {
		t.Fatalf("expected snapshot to be a copy, unaffected by later mutation")
	}
}

func TestUnregisterRemovesDriveAndReverseIndex(t *testing.T) {
	r := New()
	r.Register("D1", "/dev/sr0", "Model", hostops.CapDVD)
	r.Unregister("D1")

	if _, ok := r.Get("D1"); ok {
		t.Fatalf("expected drive removed")
	}
	if _, ok := r.Resolve("/dev/sr0"); ok {
		t.Fatalf("expected reverse index cleared")
	}
}
