package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/five82/ripperd/internal/driveregistry"
	"github.com/five82/ripperd/internal/hostops"
	"github.com/five82/ripperd/internal/rlog"
)

// JobCanceller is the minimal surface the Watcher needs from the Job Store:
// cancelling any active job bound to a drive that has gone missing.
type JobCanceller interface {
	CancelJob(jobID string) error
}

const (
	// detachThreshold is the number of consecutive missed polls before a
	// drive is considered detached (§4.4 step 3).
	detachThreshold = 3

	// insertDebounce is the default settle time before a DiscInserted
	// event is emitted, absorbing tray-close noise (§4.4 step 2).
	insertDebounce = 2 * time.Second
)

type driveState struct {
	mediaPresent  bool
	missCount     int
	pendingSince  time.Time
	pendingInsert bool
}

// Watcher is the Watcher Loop (§4.4): it owns no drives itself, only the
// Registry and the HostOps backend it polls.
type Watcher struct {
	host     hostops.HostOps
	registry *driveregistry.Registry
	jobs     JobCanceller
	logger   *slog.Logger

	pollInterval    time.Duration
	insertDebounce  time.Duration
	detachThreshold int

	states map[driveregistry.LogicalID]*driveState
	events chan Event
	nudge  chan struct{}
}

// Option customizes Watcher construction.
type Option func(*Watcher)

// WithPollInterval overrides the default poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) { w.pollInterval = d }
}

// WithInsertDebounce overrides the default DiscInserted debounce.
func WithInsertDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.insertDebounce = d }
}

// WithDetachThreshold overrides the default miss-count detach threshold.
func WithDetachThreshold(n int) Option {
	return func(w *Watcher) { w.detachThreshold = n }
}

// New constructs a Watcher. Its events channel (see Events) holds up to 64
// events; when it is full, further events are dropped so a slow consumer
// never blocks the poll loop.
func New(host hostops.HostOps, registry *driveregistry.Registry, jobs JobCanceller, logger *slog.Logger, opts ...Option) *Watcher {
	if logger == nil {
		logger = rlog.NewNop()
	}
	w := &Watcher{
		host:            host,
		registry:        registry,
		jobs:            jobs,
		logger:          logger.With(rlog.String("component", "watcher")),
		pollInterval:    4 * time.Second,
		insertDebounce:  insertDebounce,
		detachThreshold: detachThreshold,
		states:          make(map[driveregistry.LogicalID]*driveState),
		events:          make(chan Event, 64),
		nudge:           make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Events returns the channel on which the Watcher publishes transitions.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run blocks, polling until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		case <-w.nudge:
			w.poll(ctx)
		}
	}
}

// Nudge requests an out-of-band poll on the next loop iteration, without
// waiting for the ticker. Safe to call from any goroutine; a pending nudge
// already queued is not duplicated.
func (w *Watcher) Nudge() {
	select {
	case w.nudge <- struct{}{}:
	default:
	}
}

// poll runs one Watcher Loop iteration (§4.4 steps 1-4).
func (w *Watcher) poll(ctx context.Context) {
	drives, err := w.host.ListDrives(ctx)
	if err != nil {
		w.logger.Warn("list drives failed", rlog.Error(err))
		return
	}

	seen := make(map[driveregistry.LogicalID]bool, len(drives))
	for _, d := range drives {
		id := driveregistry.LogicalID(d.LogicalID)
		seen[id] = true
		w.registry.Register(id, d.DevicePath, d.Model, d.Capability)
		w.pollOne(ctx, id, d)
	}

	for id, st := range w.states {
		if seen[id] {
			continue
		}
		st.missCount++
		if st.missCount < w.detachThreshold {
			continue
		}
		w.handleDetach(id)
		delete(w.states, id)
	}
}

func (w *Watcher) pollOne(ctx context.Context, id driveregistry.LogicalID, drive hostops.ProbeDrive) {
	st, ok := w.states[id]
	if !ok {
		st = &driveState{}
		w.states[id] = st
		w.emit(Event{Kind: EventDriveAttached, Drive: id, Device: drive.DevicePath})
	}
	st.missCount = 0

	snap, err := w.host.ProbeMedia(ctx, drive)
	if err != nil {
		w.logger.Debug("probe media failed", rlog.String("drive", string(id)), rlog.Error(err))
		return
	}

	switch {
	case snap.MediaPresent && !st.mediaPresent && !st.pendingInsert:
		st.pendingInsert = true
		st.pendingSince = time.Now()
	case snap.MediaPresent && st.pendingInsert:
		if time.Since(st.pendingSince) >= w.insertDebounce {
			st.pendingInsert = false
			st.mediaPresent = true
			w.registry.SetLabel(id, snap.Label)
			w.emit(Event{Kind: EventDiscInserted, Drive: id, Device: drive.DevicePath})
		}
	case !snap.MediaPresent && st.mediaPresent:
		st.mediaPresent = false
		st.pendingInsert = false
		w.emit(Event{Kind: EventDiscRemoved, Drive: id, Device: drive.DevicePath})
	case !snap.MediaPresent:
		st.pendingInsert = false
	}
}

// handleDetach implements §4.4 step 3: cancel any active job, unregister,
// emit DriveDetached. The Watcher MUST NOT eject or re-probe a drive holding
// a non-terminal job id (§5); cancellation here is the hand-off that clears
// that hold before Unregister runs.
func (w *Watcher) handleDetach(id driveregistry.LogicalID) {
	if d, ok := w.registry.Get(id); ok && d.JobID != "" && w.jobs != nil {
		if err := w.jobs.CancelJob(d.JobID); err != nil {
			w.logger.Warn("cancel job for detached drive failed",
				rlog.String("drive", string(id)), rlog.String("job_id", d.JobID), rlog.Error(err))
		}
	}
	w.registry.Unregister(id)
	w.emit(Event{Kind: EventDriveDetached, Drive: id})
}

// emit publishes an event, dropping it if the consumer is too slow to keep
// up rather than blocking the poll loop.
func (w *Watcher) emit(ev Event) {
	select {
	case w.events <- ev:
	default:
		w.logger.Warn("watcher event dropped, subscriber too slow", rlog.String("kind", string(ev.Kind)))
	}
}
