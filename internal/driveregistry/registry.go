// Package driveregistry implements the Drive Registry (§4.2): a
// thread-safe map of logical id -> Drive with a reverse index by device
// path, guarding assignment of a drive to at most one active job. Grounded
// on five82-spindle's general mutex-guarded-map store convention
// (internal/queue/store_core.go), adapted to the Registry's specific
// contract.
package driveregistry

import (
	"sync"

	"github.com/five82/ripperd/internal/hostops"
)

// LogicalID is a stable drive identifier. It is a distinct type (not a bare
// string) so that collaborator-facing APIs cannot accidentally accept a raw
// OS device path where a logical id is required (§9 Open Question,
// SPEC_FULL §13).
type LogicalID string

// Drive is the Registry's record for one tracked drive (§3 Data Model).
type Drive struct {
	ID          LogicalID
	DevicePath  string
	Model       string
	Capability  hostops.Capability
	Label       string
	JobID       string
	Blacklisted bool
}

// Available reports whether the drive can accept a new job.
func (d Drive) Available() bool {
	return d.JobID == "" && !d.Blacklisted
}

// Registry is the thread-safe Drive Registry.
type Registry struct {
	mu        sync.Mutex
	byID      map[LogicalID]*Drive
	byDevice  map[string]LogicalID
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		byID:     make(map[LogicalID]*Drive),
		byDevice: make(map[string]LogicalID),
	}
}

// Register upserts a drive record, preserving JobID and Blacklisted across
// updates (§4.2).
func (r *Registry) Register(id LogicalID, devicePath, model string, capability hostops.Capability) Drive {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok {
		existing = &Drive{ID: id}
		r.byID[id] = existing
	}
	existing.DevicePath = devicePath
	existing.Model = model
	existing.Capability = capability

	if devicePath != "" {
		r.byDevice[devicePath] = id
	}
	return *existing
}

// SetLabel updates the disc label for a drive, independent of Register, so
// callers that only learn the label after a media probe don't need to
// re-supply model/capability.
func (r *Registry) SetLabel(id LogicalID, label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byID[id]; ok {
		d.Label = label
	}
}

// Resolve accepts either a logical id or a device path and returns the
// canonical record.
func (r *Registry) Resolve(identifier string) (Drive, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.byID[LogicalID(identifier)]; ok {
		return *d, true
	}
	if id, ok := r.byDevice[identifier]; ok {
		if d, ok := r.byID[id]; ok {
			return *d, true
		}
	}
	return Drive{}, false
}

// AssignJob succeeds only when the drive is available (no job, not
// blacklisted); the check-and-set happens under the single registry mutex,
// making it atomic.
func (r *Registry) AssignJob(id LogicalID, jobID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[id]
	if !ok || !d.Available() {
		return false
	}
	d.JobID = jobID
	return true
}

// Release clears the job assignment for a drive.
func (r *Registry) Release(id LogicalID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byID[id]; ok {
		d.JobID = ""
	}
}

// Blacklist marks a drive as unavailable for future job assignment (§12 of
// SPEC_FULL, grounded on original_source's drive/manager.py blacklist flag).
func (r *Registry) Blacklist(id LogicalID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byID[id]; ok {
		d.Blacklisted = true
	}
}

// Unblacklist clears a drive's blacklisted flag.
func (r *Registry) Unblacklist(id LogicalID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byID[id]; ok {
		d.Blacklisted = false
	}
}

// Unregister removes a drive entirely. Callers must first cancel any
// associated job (§4.2).
func (r *Registry) Unregister(id LogicalID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d, ok := r.byID[id]; ok {
		delete(r.byDevice, d.DevicePath)
		delete(r.byID, id)
	}
}

// All returns a copied snapshot of every tracked drive, not a live view.
func (r *Registry) All() []Drive {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Drive, 0, len(r.byID))
	for _, d := range r.byID {
		out = append(out, *d)
	}
	return out
}

// Get returns a single drive snapshot by logical id.
func (r *Registry) Get(id LogicalID) (Drive, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.byID[id]
	if !ok {
		return Drive{}, false
	}
	return *d, true
}
