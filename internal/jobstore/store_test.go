package jobstore

import (
	"testing"

	"github.com/five82/ripperd/internal/discclassifier"
	"github.com/five82/ripperd/internal/driveregistry"
	"github.com/five82/ripperd/internal/hostops"
	"github.com/five82/ripperd/internal/jobstate"
	"github.com/five82/ripperd/internal/telemetry"
)

type fakeController struct {
	cancelled bool
	retried   bool
}

func (f *fakeController) Cancel() error         { f.cancelled = true; return nil }
func (f *fakeController) RetryFromLast() error  { f.retried = true; return nil }

func TestCreateJobAssignsDriveAndPersists(t *testing.T) {
	registry := driveregistry.New()
	registry.Register("D1", "/dev/sr0", "Drive", hostops.CapDVD)

	store := New(registry, 8)
	job, err := store.CreateJob(discclassifier.KindDVDVideo, "D1", "MyMovie", t.TempDir(), "/out")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	d, _ := registry.Get("D1")
	if d.JobID != job.ID {
		t.Fatalf("expected drive assigned to job, got %q", d.JobID)
	}

	got, ok := store.GetJob(job.ID)
	if !ok || got.ID != job.ID {
		t.Fatalf("expected job retrievable")
	}
}

func TestCreateJobFailsWhenDriveUnavailable(t *testing.T) {
	registry := driveregistry.New()
	registry.Register("D1", "/dev/sr0", "Drive", hostops.CapDVD)
	registry.Blacklist("D1")

	store := New(registry, 8)
	if _, err := store.CreateJob(discclassifier.KindDVDVideo, "D1", "MyMovie", t.TempDir(), "/out"); err == nil {
		t.Fatalf("expected error for blacklisted drive")
	}
}

func TestSetOutputRejectsAfterLockAndBadExtension(t *testing.T) {
	store := New(nil, 8)
	job, err := store.CreateJob(discclassifier.KindCDROM, "", "Disc", t.TempDir(), "/out")
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	if err := store.SetOutput(job.ID, "/out/disc.txt"); err == nil {
		t.Fatalf("expected validation error for bad extension")
	}
	if err := store.SetOutput(job.ID, "/out/disc.iso"); err != nil {
		t.Fatalf("expected valid extension accepted: %v", err)
	}

	job.OutputLocked = true
	if err := store.SetOutput(job.ID, "/out/other.iso"); err == nil {
		t.Fatalf("expected precondition error once locked")
	}
}

func TestCancelJobDelegatesToAttachedController(t *testing.T) {
	store := New(nil, 8)
	job, _ := store.CreateJob(discclassifier.KindCDAudio, "", "Disc", t.TempDir(), "/out")

	ctrl := &fakeController{}
	store.Attach(job.ID, ctrl)

	if err := store.CancelJob(job.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !ctrl.cancelled {
		t.Fatalf("expected controller.Cancel invoked")
	}
}

func TestCancelJobWithoutControllerMarksCancelledDirectly(t *testing.T) {
	registry := driveregistry.New()
	registry.Register("D1", "/dev/sr0", "Drive", hostops.CapDVD)
	store := New(registry, 8)
	job, _ := store.CreateJob(discclassifier.KindDVDVideo, "D1", "Disc", t.TempDir(), "/out")

	if err := store.CancelJob(job.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	got, _ := store.GetJob(job.ID)
	if got.Status != jobstate.StatusCancelled {
		t.Fatalf("expected cancelled status, got %v", got.Status)
	}
	if d, _ := registry.Get("D1"); d.JobID != "" {
		t.Fatalf("expected drive released")
	}
}

func TestRetryRejectsRunningOrStepBelowTwo(t *testing.T) {
	store := New(nil, 8)
	job, _ := store.CreateJob(discclassifier.KindDVDVideo, "", "Disc", t.TempDir(), "/out")

	if err := store.Retry(job.ID); err == nil {
		t.Fatalf("expected error: step < 2")
	}

	job.Step = 2
	job.Status = jobstate.StatusRunning
	if err := store.Retry(job.ID); err == nil {
		t.Fatalf("expected error: job running")
	}

	job.Status = jobstate.StatusPaused
	ctrl := &fakeController{}
	store.Attach(job.ID, ctrl)
	if err := store.Retry(job.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !ctrl.retried {
		t.Fatalf("expected controller.RetryFromLast invoked")
	}
}

func TestSubscribeReturnsLiveTelemetryHandle(t *testing.T) {
	store := New(nil, 8)
	job, _ := store.CreateJob(discclassifier.KindCDAudio, "", "Disc", t.TempDir(), "/out")

	sub, ok := store.Subscribe(job.ID)
	if !ok {
		t.Fatalf("expected subscription")
	}
	hub := store.Hub(job.ID)
	hub.Publish(telemetry.Message{Type: telemetry.TypeLog, Line: "hello"})

	select {
	case <-sub.C():
	default:
		t.Fatalf("expected message delivered to subscriber")
	}
}
