package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/five82/ripperd/internal/config"
	"github.com/five82/ripperd/internal/discclassifier"
	"github.com/five82/ripperd/internal/driveregistry"
	"github.com/five82/ripperd/internal/hostops"
	"github.com/five82/ripperd/internal/jobstate"
	"github.com/five82/ripperd/internal/jobstore"
	"github.com/five82/ripperd/internal/rlog"
	"github.com/five82/ripperd/internal/runner"
	"github.com/five82/ripperd/internal/watcher"
)

// daemon owns every long-lived collaborator: the Drive Registry, the Job
// Store, the Watcher Loop, and the live Runners it spawns in response to
// watcher events. Grounded on five82-spindle/internal/daemon.Daemon's
// wiring shape, trimmed to drop the IPC/API server the spec does not call
// for.
type daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	host     hostops.HostOps
	registry *driveregistry.Registry
	store    *jobstore.Store
	watcher  *watcher.Watcher
}

func newDaemon(cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	host := hostops.New()
	registry := driveregistry.New()
	store := jobstore.New(registry, cfg.SubscriptionBufferSize)

	recovered, err := jobstate.Bootstrap(cfg.TempDirectory, logger)
	if err != nil {
		return nil, fmt.Errorf("recover persisted jobs: %w", err)
	}
	for _, job := range recovered {
		store.Adopt(job)
		if job.Drive != "" {
			registry.AssignJob(job.Drive, job.ID)
		}
		logger.Info("recovered job from disk",
			rlog.String("job_id", job.ID), rlog.String("status", string(job.Status)))
	}

	d := &daemon{
		cfg:      cfg,
		logger:   logger,
		host:     host,
		registry: registry,
		store:    store,
	}

	d.watcher = watcher.New(host, registry, store, logger,
		watcher.WithPollInterval(secondsOption(cfg.PollIntervalSeconds)),
		watcher.WithInsertDebounce(secondsOption(cfg.InsertDebounceSeconds)),
		watcher.WithDetachThreshold(cfg.MissedPollThreshold),
	)

	return d, nil
}

// run starts the Watcher Loop and consumes its events until ctx is
// cancelled, spawning a Runner for every disc insertion the classifier
// resolves to a known kind.
func (d *daemon) run(ctx context.Context) {
	stop := make(chan struct{})
	defer close(stop)
	d.startNetlinkNudge(stop)

	go d.watcher.Run(ctx)

	events := d.watcher.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Kind == watcher.EventDiscInserted {
				d.handleInsert(ctx, ev)
			}
		}
	}
}

func (d *daemon) handleInsert(ctx context.Context, ev watcher.Event) {
	drive, ok := d.registry.Get(ev.Drive)
	if !ok {
		return
	}

	snap, err := d.host.ProbeMedia(ctx, hostops.ProbeDrive{
		LogicalID: string(ev.Drive), DevicePath: ev.Device, Capability: drive.Capability,
	})
	if err != nil {
		d.logger.Warn("probe media failed after insert event",
			rlog.String("drive", string(ev.Drive)), rlog.Error(err))
		return
	}

	kind := discclassifier.Classify(snap)
	if kind == discclassifier.KindUnknown {
		d.logger.Warn("disc classified as unknown, skipping", rlog.String("drive", string(ev.Drive)))
		return
	}

	job, err := d.store.CreateJob(kind, ev.Drive, drive.Label, d.cfg.TempDirectory, outputRootFor(d.cfg, kind))
	if err != nil {
		d.logger.Error("create job failed", rlog.String("drive", string(ev.Drive)), rlog.Error(err))
		return
	}

	hub := d.store.Hub(job.ID)
	r := runner.New(job, d.cfg, d.host, d.registry, hub, d.logger)
	d.store.Attach(job.ID, r)
	r.Start()

	d.logger.Info("job started",
		rlog.String("job_id", job.ID), rlog.String("kind", string(kind)), rlog.String("drive", string(ev.Drive)))
}

// outputRootFor resolves the per-kind output directory, falling back to the
// general OutputDirectory when a kind-specific one was left blank (§6
// normalize already does this for the config file itself; this covers the
// in-memory Default() case used by tests).
func outputRootFor(cfg *config.Config, kind discclassifier.DiscKind) string {
	switch {
	case kind == discclassifier.KindCDAudio:
		return firstNonEmpty(cfg.CDOutputDirectory, cfg.OutputDirectory)
	case kind == discclassifier.KindDVDVideo || kind == discclassifier.KindDVDROM:
		return firstNonEmpty(cfg.DVDOutputDirectory, cfg.OutputDirectory)
	case kind == discclassifier.KindBlurayVideo || kind == discclassifier.KindBlurayROM:
		return firstNonEmpty(cfg.BlurayOutputDirectory, cfg.OutputDirectory)
	default:
		return firstNonEmpty(cfg.OtherOutputDirectory, cfg.OutputDirectory)
	}
}

func secondsOption(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
