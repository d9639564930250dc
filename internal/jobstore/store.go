// Package jobstore implements the in-memory Job Store (§2 item 5, §6):
// create/get/list/cancel/remove/set_output/retry/subscribe over Jobs backed
// by jobstate persistence and a per-job telemetry.Hub. Grounded on
// five82-spindle/internal/queue/store_core.go's mutex-guarded
// map-of-records API shape, adapted from a SQLite-backed store to an
// in-memory one fronting jobstate's file persistence.
package jobstore

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/five82/ripperd/internal/discclassifier"
	"github.com/five82/ripperd/internal/driveregistry"
	"github.com/five82/ripperd/internal/jobstate"
	"github.com/five82/ripperd/internal/rerrors"
	"github.com/five82/ripperd/internal/telemetry"
)

// Controller is the subset of Runner behavior the Store delegates
// cancel/retry operations to. The daemon registers each job's Runner via
// Attach after constructing it, avoiding an import cycle between jobstore
// and runner.
type Controller interface {
	Cancel() error
	RetryFromLast() error
}

type entry struct {
	job        *jobstate.Job
	hub        *telemetry.Hub
	controller Controller
}

// Store is the thread-safe in-memory Job Store.
type Store struct {
	mu            sync.Mutex
	entries       map[string]*entry
	registry      *driveregistry.Registry
	subscriberBuf int
}

// New constructs an empty Store.
func New(registry *driveregistry.Registry, subscriberBufferSize int) *Store {
	return &Store{
		entries:       make(map[string]*entry),
		registry:      registry,
		subscriberBuf: subscriberBufferSize,
	}
}

// Adopt registers an already-persisted Job recovered via jobstate.Bootstrap,
// giving it a fresh telemetry hub. Used once at startup.
func (s *Store) Adopt(job *jobstate.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[job.ID] = &entry{job: job, hub: telemetry.New(s.subscriberBuf)}
}

// CreateJob builds a new Queued job rooted at <tempDirRoot>/<job id>,
// assigns the drive in the Registry, and persists its initial state.json
// (§6 create_job).
func (s *Store) CreateJob(kind discclassifier.DiscKind, drive driveregistry.LogicalID, label, tempDirRoot, outputRoot string) (*jobstate.Job, error) {
	id := uuid.NewString()
	tempPath := filepath.Join(tempDirRoot, id)
	if err := os.MkdirAll(tempPath, 0o755); err != nil {
		return nil, rerrors.Internal("jobstore.CreateJob", "create job temp directory", err)
	}

	job := jobstate.New(id, kind, drive, tempPath)
	if label == "" {
		label = "UNKNOWN_" + id[:8]
	}
	job.DiscLabel = label
	job.OutputPath = outputRoot

	if s.registry != nil && drive != "" {
		if !s.registry.AssignJob(drive, id) {
			return nil, rerrors.Precondition("jobstore.CreateJob", "drive unavailable")
		}
	}

	if err := jobstate.Save(job); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.entries[id] = &entry{job: job, hub: telemetry.New(s.subscriberBuf)}
	s.mu.Unlock()
	return job, nil
}

// Attach registers the Controller that owns execution of job jobID, enabling
// Cancel/Retry delegation.
func (s *Store) Attach(jobID string, controller Controller) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[jobID]; ok {
		e.controller = controller
	}
}

// Hub returns the telemetry hub for jobID, or nil if unknown.
func (s *Store) Hub(jobID string) *telemetry.Hub {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[jobID]; ok {
		return e.hub
	}
	return nil
}

// GetJob returns the job record for jobID.
func (s *Store) GetJob(jobID string) (*jobstate.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[jobID]
	if !ok {
		return nil, false
	}
	return e.job, true
}

// ListJobs returns every tracked job.
func (s *Store) ListJobs() []*jobstate.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*jobstate.Job, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.job)
	}
	return out
}

// CancelJob cancels jobID. If a Controller is attached, cancellation is
// delegated to it (which handles process-group kill, drive release/eject,
// and status transition). Otherwise the job is marked Cancelled directly,
// covering jobs that never started running (§6 cancel_job).
func (s *Store) CancelJob(jobID string) error {
	s.mu.Lock()
	e, ok := s.entries[jobID]
	s.mu.Unlock()
	if !ok {
		return rerrors.NotFound("jobstore.CancelJob", "job not found")
	}

	if e.controller != nil {
		return e.controller.Cancel()
	}

	if e.job.Status.Terminal() {
		return nil
	}
	e.job.Status = jobstate.StatusCancelled
	if s.registry != nil && e.job.Drive != "" {
		s.registry.Release(e.job.Drive)
	}
	if err := jobstate.Save(e.job); err != nil {
		return err
	}
	e.hub.Close(telemetry.Message{Status: string(jobstate.StatusCancelled)})
	return nil
}


// RemoveJob deletes the job record. When nukeTemp is true, its temp
// directory tree is removed as well (§6 remove_job).
func (s *Store) RemoveJob(jobID string, nukeTemp bool) error {
	s.mu.Lock()
	e, ok := s.entries[jobID]
	if ok {
		delete(s.entries, jobID)
	}
	s.mu.Unlock()
	if !ok {
		return rerrors.NotFound("jobstore.RemoveJob", "job not found")
	}

	if nukeTemp && e.job.TempPath != "" {
		if err := os.RemoveAll(e.job.TempPath); err != nil {
			return rerrors.Internal("jobstore.RemoveJob", "delete temp directory", err)
		}
	}
	return nil
}

// romExtensions validates the override filename extension for ROM-kind jobs
// (§6 set_output).
var romExtensions = []string{".iso", ".iso.zst", ".iso.bz2"}

// SetOutput updates a job's output path. Fails with Precondition if the
// output is already locked; for ROM/other kinds the path must end in a
// supported extension (§6 set_output).
func (s *Store) SetOutput(jobID, newPath string) error {
	s.mu.Lock()
	e, ok := s.entries[jobID]
	s.mu.Unlock()
	if !ok {
		return rerrors.NotFound("jobstore.SetOutput", "job not found")
	}

	if e.job.OutputLocked {
		return rerrors.Precondition("jobstore.SetOutput", "output path already locked")
	}

	if e.job.DiscKind.IsROMLike() {
		valid := false
		lower := strings.ToLower(newPath)
		for _, ext := range romExtensions {
			if strings.HasSuffix(lower, ext) {
				valid = true
				break
			}
		}
		if !valid {
			return rerrors.Validation("jobstore.SetOutput", "output path has unsupported extension for this disc kind")
		}
	}

	e.job.OutputPath = newPath
	return jobstate.Save(e.job)
}

// Retry resumes a Paused job from its last completed step (§6 retry,
// §4.7 retry_from_last). Legal only if step >= 2 and the job is not
// currently Running.
func (s *Store) Retry(jobID string) error {
	s.mu.Lock()
	e, ok := s.entries[jobID]
	s.mu.Unlock()
	if !ok {
		return rerrors.NotFound("jobstore.Retry", "job not found")
	}
	if e.job.Status == jobstate.StatusRunning {
		return rerrors.Precondition("jobstore.Retry", "job is currently running")
	}
	if e.job.Step < 2 {
		return rerrors.Precondition("jobstore.Retry", "job has not completed a first step to retry from")
	}
	if e.controller == nil {
		return rerrors.Precondition("jobstore.Retry", "job has no attached runner to resume it")
	}
	return e.controller.RetryFromLast()
}

// Subscribe returns a telemetry subscription for jobID (§6 subscribe).
func (s *Store) Subscribe(jobID string) (*telemetry.Subscription, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[jobID]
	if !ok {
		return nil, false
	}
	return e.hub.Subscribe(), true
}
