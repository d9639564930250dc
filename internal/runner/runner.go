// Package runner implements the Runner (process supervisor / job state
// machine, §4.7): it executes a job's Step list, spawning each step as a
// process group, applying progress adapters, updating progress, handling
// cancellation/eject, and persisting state on every transition. Grounded on
// five82-spindle/internal/stageexec/run.go's prepare/execute/persist/
// handle-failure shape and internal/workflow/manager.go's
// mutex-guarded-running-flag/cancel-func convention, generalized from a
// fixed 5-stage pipeline to the spec's N-step weighted pipeline with
// re-planning before each step >= 2 (§4.5 "picks up renames").
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/five82/ripperd/internal/config"
	"github.com/five82/ripperd/internal/driveregistry"
	"github.com/five82/ripperd/internal/hostops"
	"github.com/five82/ripperd/internal/jobstate"
	"github.com/five82/ripperd/internal/planner"
	"github.com/five82/ripperd/internal/procexec"
	"github.com/five82/ripperd/internal/progress"
	"github.com/five82/ripperd/internal/rlog"
	"github.com/five82/ripperd/internal/telemetry"
)

// heartbeatInterval is the periodic progress-snapshot publish cadence
// (§4.7 "Log fan-out").
const heartbeatInterval = 500 * time.Millisecond

// Runner supervises execution of a single Job's pipeline.
type Runner struct {
	job      *jobstate.Job
	cfg      *config.Config
	host     hostops.HostOps
	registry *driveregistry.Registry
	hub      *telemetry.Hub
	logger   *slog.Logger

	mu        sync.Mutex
	wg        sync.WaitGroup
	cancelled bool
	cancel    context.CancelFunc
	handle    *procexec.Handle

	// logMu serializes writes to the job's log file across the stdout and
	// stderr scanner goroutines a single step's onLine callback is shared
	// between.
	logMu sync.Mutex
}

// New constructs a Runner for job. The job starts Queued; call Start to
// begin execution from step 1.
func New(job *jobstate.Job, cfg *config.Config, host hostops.HostOps, registry *driveregistry.Registry, hub *telemetry.Hub, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = rlog.NewNop()
	}
	return &Runner{
		job:      job,
		cfg:      cfg,
		host:     host,
		registry: registry,
		hub:      hub,
		logger:   logger.With(rlog.String("component", "runner"), rlog.String("job_id", job.ID)),
	}
}

// Start begins execution from step 1 in a background goroutine.
func (r *Runner) Start() {
	r.wg.Add(1)
	go r.run(1)
}

// RetryFromLast implements jobstore.Controller: resumes a Paused job from
// max(1, step if step_progress < 100 else step+1), pre-crediting the
// weights of earlier completed steps (§4.7 Retry).
func (r *Runner) RetryFromLast() error {
	r.mu.Lock()
	if r.job.Status == jobstate.StatusRunning {
		r.mu.Unlock()
		return fmt.Errorf("runner: job already running")
	}
	startIndex := r.job.Step
	if r.job.StepProgress >= 100 {
		startIndex++
	}
	if startIndex < 1 {
		startIndex = 1
	}
	r.cancelled = false
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(startIndex)
	return nil
}

// Cancel implements jobstore.Controller: sets a flag, kills the active
// process group, releases and ejects the drive, marks Cancelled.
// Idempotent (§4.7 Cancellation).
func (r *Runner) Cancel() error {
	r.mu.Lock()
	if r.job.Status.Terminal() {
		r.mu.Unlock()
		return nil
	}
	r.cancelled = true
	if r.cancel != nil {
		r.cancel()
	}
	handle := r.handle
	r.mu.Unlock()

	if handle != nil {
		_ = handle.Kill()
	}
	return nil
}

func (r *Runner) run(startIndex int) {
	defer r.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	job := r.job
	job.Status = jobstate.StatusRunning
	if err := jobstate.Save(job); err != nil {
		r.logger.Warn("persist running transition failed", rlog.Error(err))
	}

	plan, err := planner.Plan(job.DiscKind, job, r.cfg)
	if err != nil {
		r.fail(fmt.Sprintf("planning failed: %v", err))
		return
	}
	job.StepsTotal = len(plan.Steps)

	heartbeatStop := make(chan struct{})
	go r.heartbeat(heartbeatStop)
	defer close(heartbeatStop)

	var totalDoneWeight float64
	for idx := 1; idx <= len(plan.Steps); idx++ {
		if idx < startIndex {
			totalDoneWeight += plan.Steps[idx-1].Weight
			continue
		}

		step := plan.Steps[idx-1]
		if idx >= 2 {
			// Re-plan so a rename of output_path since the last attempt
			// takes effect, but keep the originally computed weight
			// (§4.5).
			fresh, err := planner.Plan(job.DiscKind, job, r.cfg)
			if err == nil && idx-1 < len(fresh.Steps) {
				weight := step.Weight
				step = fresh.Steps[idx-1]
				step.Weight = weight
			}
		}

		r.mu.Lock()
		job.Step = idx
		job.StepDescription = step.Description
		job.StepProgress = 0
		job.TitleProgress = 0
		r.mu.Unlock()
		if err := jobstate.Save(job); err != nil {
			r.logger.Warn("persist step transition failed", rlog.Error(err))
		}

		if idx == plan.LockIndex {
			if err := r.lockOutput(step); err != nil {
				r.fail(fmt.Sprintf("locking output failed: %v", err))
				return
			}
		}

		rc, cancelledMidStep := r.runStep(ctx, job, step)
		if cancelledMidStep {
			r.finishCancelled()
			return
		}
		if rc != 0 {
			r.fail(fmt.Sprintf("step %d (%s) exited with code %d", idx, step.Description, rc))
			return
		}

		r.mu.Lock()
		job.StepProgress = 100
		totalDoneWeight += step.Weight
		job.TotalProgress = clampProgress(totalDoneWeight)
		r.mu.Unlock()
		if err := jobstate.Save(job); err != nil {
			r.logger.Warn("persist step completion failed", rlog.Error(err))
		}

		if step.ReleaseDriveAfter {
			r.releaseDrive()
		}
	}

	job.Status = jobstate.StatusFinished
	job.TotalProgress = 100
	if err := jobstate.Save(job); err != nil {
		r.logger.Warn("persist finished transition failed", rlog.Error(err))
	}
	r.hub.Close(r.tick())
}

// lockOutput implements §4.6: create the destination directory (or its
// parent for a file target), set output_locked, persist, log.
func (r *Runner) lockOutput(step jobstate.Step) error {
	dest := step.FinalDest
	dir := dest
	if filepath.Ext(dest) != "" {
		dir = filepath.Dir(dest)
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	r.job.OutputLocked = true
	if err := jobstate.Save(r.job); err != nil {
		return err
	}
	r.logger.Info("output path locked", rlog.String("output_path", r.job.OutputPath))
	r.publishLog("output path locked")
	return nil
}

// runStep spawns the step's process and drives it to completion, wiring in
// the step kind's progress adapter and makemkv poller where applicable.
// Returns the exit code (0 on cancellation, for bookkeeping purposes only)
// and whether cancellation occurred mid-step.
func (r *Runner) runStep(ctx context.Context, job *jobstate.Job, step jobstate.Step) (int, bool) {
	kind := detectStepKind(step)

	var poller *progress.MakeMKVPoller
	pollStop := make(chan struct{})
	if kind == stepKindMakeMKV {
		poller = progress.NewMakeMKVPoller(filepath.Join(job.TempPath, "makemkv_progress.txt"))
		go poller.Run(pollStop)
		go r.applyMakeMKVPolling(poller, pollStop)
	}
	defer close(pollStop)

	adapter := step.ProgressAdapter
	if adapter == nil {
		adapter = r.adapterFor(kind, job, step)
	}

	if adapter != nil {
		if err := adapter.OnStart(); err != nil {
			r.logger.Warn("progress adapter start failed", rlog.Error(err))
		}
		if p, ok := adapter.(polledAdapter); ok {
			go r.applyAdapterPolling(p, pollStop)
		}
	}

	onLine := func(line string) {
		r.job.AppendLog(line)
		r.appendLogFile(line)
		r.publishLog(line)
		if adapter != nil {
			if stepPct, titlePct, ok := adapter.OnLine(line); ok {
				r.mu.Lock()
				job.StepProgress = stepPct
				job.TitleProgress = titlePct
				r.mu.Unlock()
			}
		}
	}

	handle, err := procexec.Start(ctx, job.TempPath, step.Argv, onLine)
	if err != nil {
		r.logger.Warn("failed to start step process", rlog.Error(err))
		return 1, false
	}
	r.mu.Lock()
	r.handle = handle
	r.mu.Unlock()

	waitErr := handle.Wait()

	r.mu.Lock()
	r.handle = nil
	cancelled := r.cancelled
	r.mu.Unlock()

	if cancelled {
		return 0, true
	}
	if waitErr == nil {
		return 0, false
	}
	return exitCodeOf(waitErr), false
}

// polledAdapter is implemented by progress adapters that derive progress
// from external state (e.g. a growing destination file) rather than from
// parsing child stdout/stderr lines.
type polledAdapter interface {
	Poll() (float64, bool)
}

// adapterFor constructs the default jobstate.ProgressAdapter for a detected
// step kind (§4.7 step 8), giving every step kind the Planner doesn't
// already override a working adapter.
func (r *Runner) adapterFor(kind stepKind, job *jobstate.Job, step jobstate.Step) jobstate.ProgressAdapter {
	switch kind {
	case stepKindHandbrake:
		return &progress.HandbrakeAdapter{TempDir: job.TempPath, OutputDir: step.FinalDest}
	case stepKindCompress:
		return progress.CompressAdapter{}
	case stepKindAudioRip:
		return progress.AudioRipAdapter{}
	case stepKindRawCopy:
		return &progress.RawCopyAdapter{Host: r.host, DevicePath: r.devicePathFor(job), DestPath: step.FinalDest}
	default:
		return nil
	}
}

// devicePathFor resolves the current device path backing job's assigned
// drive, used by RawCopyAdapter to query expected_bytes via
// HostOps.DeviceSizeBytes.
func (r *Runner) devicePathFor(job *jobstate.Job) string {
	if r.registry == nil || job.Drive == "" {
		return ""
	}
	if d, ok := r.registry.Get(job.Drive); ok {
		return d.DevicePath
	}
	return ""
}

// applyAdapterPolling drives a polledAdapter on a fixed tick, mirroring
// applyMakeMKVPolling's cadence for adapters that don't get step_progress
// updates from stdout/stderr lines (§4.7 step 8 raw-copy).
func (r *Runner) applyAdapterPolling(p polledAdapter, stop <-chan struct{}) {
	ticker := time.NewTicker(progress.MakeMKVPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if pct, ok := p.Poll(); ok {
				r.mu.Lock()
				r.job.StepProgress = pct
				r.mu.Unlock()
			}
		}
	}
}

func (r *Runner) applyMakeMKVPolling(poller *progress.MakeMKVPoller, stop <-chan struct{}) {
	ticker := time.NewTicker(progress.MakeMKVPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			stepPct, titlePct := poller.Progress()
			r.mu.Lock()
			r.job.StepProgress = stepPct
			r.job.TitleProgress = titlePct
			r.mu.Unlock()
		}
	}
}

func (r *Runner) heartbeat(stop <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.hub.Publish(r.tick())
			// Persist the in-flight step_progress/title_progress alongside
			// the telemetry snapshot so a crash mid-step leaves bootstrap
			// something closer to the true progress than the last step
			// boundary (§4.7 crash recovery).
			if err := jobstate.Save(r.job); err != nil {
				r.logger.Warn("persist heartbeat snapshot failed", rlog.Error(err))
			}
		}
	}
}

func (r *Runner) tick() telemetry.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	j := r.job
	return telemetry.Message{
		Type:            telemetry.TypeTick,
		Progress:        j.TotalProgress,
		StepProgress:    j.StepProgress,
		TitleProgress:   j.TitleProgress,
		Status:          string(j.Status),
		StepDescription: j.StepDescription,
		OutputPath:      j.OutputPath,
		OutputLocked:    j.OutputLocked,
	}
}

func (r *Runner) publishLog(line string) {
	msg := r.tick()
	msg.Type = telemetry.TypeLog
	msg.Line = line
	r.hub.Publish(msg)
}

func (r *Runner) appendLogFile(line string) {
	r.logMu.Lock()
	defer r.logMu.Unlock()
	f, err := os.OpenFile(filepath.Join(r.job.TempPath, "log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = f.WriteString(line + "\n")
}

func (r *Runner) releaseDrive() {
	if r.registry == nil || r.job.Drive == "" {
		return
	}
	r.registry.Release(r.job.Drive)
	if r.host != nil {
		if d, ok := r.registry.Get(r.job.Drive); ok {
			_ = r.host.Eject(context.Background(), d.DevicePath)
		}
	}
	r.job.Drive = ""
	if err := jobstate.Save(r.job); err != nil {
		r.logger.Warn("persist drive release failed", rlog.Error(err))
	}
}

func (r *Runner) fail(message string) {
	r.logger.Warn("job failed", rlog.String("reason", message))
	r.job.Status = jobstate.StatusFailed
	if err := jobstate.Save(r.job); err != nil {
		r.logger.Warn("persist failed transition failed", rlog.Error(err))
	}
	r.hub.Close(r.tick())
}

func (r *Runner) finishCancelled() {
	r.job.Status = jobstate.StatusCancelled
	r.releaseDrive()
	if err := jobstate.Save(r.job); err != nil {
		r.logger.Warn("persist cancelled transition failed", rlog.Error(err))
	}
	r.hub.Close(r.tick())
}

// clampProgress implements total_progress = floor(100 * total_done_weight)
// (§3 invariant), clamped to [0, 100].
func clampProgress(totalDoneWeight float64) int {
	pct := int(math.Floor(100 * totalDoneWeight))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

type stepKind int

const (
	stepKindGeneric stepKind = iota
	stepKindMakeMKV
	stepKindHandbrake
	stepKindCompress
	stepKindAudioRip
	stepKindRawCopy
)

// detectStepKind inspects the step's argv/description to classify it, per
// §4.7 step 5.
func detectStepKind(step jobstate.Step) stepKind {
	text := strings.ToLower(step.Description)
	if len(step.Argv) > 0 {
		text += " " + strings.ToLower(step.Argv[0])
	}
	switch {
	case strings.Contains(text, "makemkv") || strings.Contains(text, "extract"):
		return stepKindMakeMKV
	case strings.Contains(text, "handbrake") || strings.Contains(text, "transcode"):
		return stepKindHandbrake
	case strings.Contains(text, "compress") || strings.Contains(text, "zstd") || strings.Contains(text, "bzip2"):
		return stepKindCompress
	case strings.Contains(text, "audio") || strings.Contains(text, "abcde") || strings.Contains(text, "freac"):
		return stepKindAudioRip
	case strings.Contains(text, "raw-image") || strings.Contains(text, "raw-copy") || strings.Contains(text, "imaging"):
		return stepKindRawCopy
	default:
		return stepKindGeneric
	}
}

// exitCodeOf extracts a process exit code from a procexec.Handle.Wait
// error, defaulting to 1 for errors that aren't a plain exit-status
// (process killed, failed to start, etc).
func exitCodeOf(err error) int {
	type exitCoder interface{ ExitCode() int }
	type unwrapper interface{ Unwrap() error }
	for e := err; e != nil; {
		if ec, ok := e.(exitCoder); ok {
			if code := ec.ExitCode(); code >= 0 {
				return code
			}
		}
		u, ok := e.(unwrapper)
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return 1
}
