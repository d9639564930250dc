// Package hostops encapsulates every OS-specific operation the core needs
// (§4.1 Platform Probe, eject, device-size queries) behind one HostOps
// interface, selected at startup by build tag (§9 "OS-specific glue").
package hostops

import "context"

// ProbeDrive describes one drive as reported by the host.
type ProbeDrive struct {
	LogicalID  string
	DevicePath string
	Model      string
	Capability Capability
}

// Capability is a bitset of media types a drive can read.
type Capability uint8

const (
	CapCD Capability = 1 << iota
	CapDVD
	CapBluray
)

func (c Capability) Has(flag Capability) bool { return c&flag != 0 }

// DiscSnapshot is the raw, OS-reported state of a drive's media (§3 Data
// Model). The Disc Classifier turns this into a DiscKind.
type DiscSnapshot struct {
	MediaPresent bool
	TypeHint     string // e.g. "CD", "DVD", "BD", "BLU"
	HasVideoTS   bool
	HasBDMV      bool
	AudioTracks  bool
	SizeBytes    int64
	Label        string
	MountPoint   string

	// FilesystemType is the lowercased data filesystem reported for the
	// medium (e.g. "iso9660", "udf"), or "" when the OS reports none at all
	// — the direct signal an audio CD gives, since it carries no data
	// filesystem for the drive to mount.
	FilesystemType string
}

// HostOps is the uniform view of optical drives regardless of host OS.
type HostOps interface {
	// ListDrives enumerates currently attached optical drives. Probing
	// failures are non-fatal: implementations return a partial or empty
	// list rather than an error where possible.
	ListDrives(ctx context.Context) ([]ProbeDrive, error)

	// ProbeMedia inspects the media currently in a drive. Failures are
	// reported as an error; callers treat them as "no change" (§7
	// Transient) and rely on the watcher's debounce/miss-counter.
	ProbeMedia(ctx context.Context, drive ProbeDrive) (DiscSnapshot, error)

	// Eject physically ejects the tray for the given device path.
	// Failure is logged, never fatal to a job (§6 Eject semantics).
	Eject(ctx context.Context, devicePath string) error

	// DeviceSizeBytes returns the raw block size of a device, used by the
	// raw-copy progress adapter to compute expected_bytes (§4.7 step 8).
	DeviceSizeBytes(ctx context.Context, devicePath string) (int64, error)
}
