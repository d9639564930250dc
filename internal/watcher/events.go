// Package watcher implements the Watcher Loop (§4.4): a single long-lived
// poller that diffs Platform Probe output against the Drive Registry and
// emits attach/detach/insert/remove events. Grounded on
// five82-spindle/internal/daemon/netlink_monitor.go's event-driven shape and
// internal/disc/tray.go's poll-and-compare pattern, recast here as a
// pure-polling loop since the spec's Watcher is poll-based rather than
// netlink-driven (the udev netlink path remains available as a supplementary
// wakeup source, see NetlinkNudge in netlink.go).
package watcher

import "github.com/five82/ripperd/internal/driveregistry"

// EventKind identifies the kind of change the Watcher observed.
type EventKind string

const (
	EventDriveAttached EventKind = "drive_attached"
	EventDriveDetached EventKind = "drive_detached"
	EventDiscInserted  EventKind = "disc_inserted"
	EventDiscRemoved   EventKind = "disc_removed"
)

// Event is emitted by the Watcher Loop for a single drive transition.
type Event struct {
	Kind   EventKind
	Drive  driveregistry.LogicalID
	Device string
}
