//go:build !linux && !darwin && !windows

package hostops

import (
	"context"
	"errors"
)

// New returns a no-op HostOps backend for platforms without a dedicated
// probe implementation. It reports zero drives rather than failing, the
// same "best-effort" posture the spec requires of every probe (§4.1).
func New() HostOps {
	return &genericHostOps{}
}

type genericHostOps struct{}

func (genericHostOps) ListDrives(context.Context) ([]ProbeDrive, error) { return nil, nil }

func (genericHostOps) ProbeMedia(context.Context, ProbeDrive) (DiscSnapshot, error) {
	return DiscSnapshot{}, errors.New("media probing unsupported on this platform")
}

func (genericHostOps) Eject(context.Context, string) error {
	return errors.New("eject unsupported on this platform")
}

func (genericHostOps) DeviceSizeBytes(context.Context, string) (int64, error) {
	return 0, errors.New("device size query unsupported on this platform")
}
