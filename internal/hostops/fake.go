package hostops

import (
	"context"
	"sync"
)

// Fake is an in-memory HostOps implementation for tests: the watcher,
// registry, and runner packages all exercise it instead of shelling out to
// real OS tools.
type Fake struct {
	mu        sync.Mutex
	drives    []ProbeDrive
	media     map[string]DiscSnapshot
	ejected   []string
	sizes     map[string]int64
	listErr   error
	probeErrs map[string]error
}

// NewFake constructs an empty Fake HostOps backend.
func NewFake() *Fake {
	return &Fake{
		media:     make(map[string]DiscSnapshot),
		sizes:     make(map[string]int64),
		probeErrs: make(map[string]error),
	}
}

func (f *Fake) SetDrives(drives []ProbeDrive) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drives = append([]ProbeDrive(nil), drives...)
}

func (f *Fake) SetMedia(devicePath string, snap DiscSnapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.media[devicePath] = snap
}

func (f *Fake) SetListError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *Fake) SetProbeError(devicePath string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeErrs[devicePath] = err
}

func (f *Fake) SetDeviceSize(devicePath string, size int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sizes[devicePath] = size
}

func (f *Fake) Ejected() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ejected...)
}

func (f *Fake) ListDrives(context.Context) ([]ProbeDrive, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]ProbeDrive(nil), f.drives...), nil
}

func (f *Fake) ProbeMedia(_ context.Context, drive ProbeDrive) (DiscSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.probeErrs[drive.DevicePath]; err != nil {
		return DiscSnapshot{}, err
	}
	return f.media[drive.DevicePath], nil
}

func (f *Fake) Eject(_ context.Context, devicePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ejected = append(f.ejected, devicePath)
	return nil
}

func (f *Fake) DeviceSizeBytes(_ context.Context, devicePath string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sizes[devicePath], nil
}

var _ HostOps = (*Fake)(nil)
