//go:build linux

package hostops

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// New returns the Linux HostOps backend: lsblk for enumeration,
// CDROM_DRIVE_STATUS ioctl for tray state (grounded on
// five82-spindle/internal/disc/tray.go), `eject` for ejection (grounded on
// five82-spindle/internal/disc/ejector.go), and BLKGETSIZE64 for device
// size.
func New() HostOps {
	return &linuxHostOps{ejectBinary: "eject"}
}

type linuxHostOps struct {
	ejectBinary string
}

// CDROM_DRIVE_STATUS status codes (linux/cdrom.h).
const (
	cdsNoInfo   = 0
	cdsNoDisc   = 1
	cdsTrayOpen = 2
	cdsDriveNotReady = 3
	cdsDiscOK  = 4
)

func (h *linuxHostOps) ListDrives(ctx context.Context) ([]ProbeDrive, error) {
	out, err := exec.CommandContext(ctx, "lsblk", "-ndo", "NAME,TYPE,MODEL").Output()
	if err != nil {
		// Non-fatal (§4.1 contract): callers rely on missed-poll counters.
		return nil, nil
	}

	var drives []ProbeDrive
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	idx := 0
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[1] != "rom" {
			continue
		}
		name := fields[0]
		model := ""
		if len(fields) > 2 {
			model = strings.Join(fields[2:], " ")
		}
		devicePath := filepath.Join("/dev", name)
		drives = append(drives, ProbeDrive{
			LogicalID:  fmt.Sprintf("drive-%d", idx),
			DevicePath: devicePath,
			Model:      model,
			Capability: CapCD | CapDVD | CapBluray,
		})
		idx++
	}
	return drives, nil
}

func (h *linuxHostOps) ProbeMedia(ctx context.Context, drive ProbeDrive) (DiscSnapshot, error) {
	status, err := checkDriveStatus(drive.DevicePath)
	if err != nil {
		return DiscSnapshot{}, fmt.Errorf("check drive status %s: %w", drive.DevicePath, err)
	}
	if status != cdsDiscOK {
		return DiscSnapshot{MediaPresent: false}, nil
	}

	snap := DiscSnapshot{MediaPresent: true}
	snap.SizeBytes, _ = h.DeviceSizeBytes(ctx, drive.DevicePath)

	out, err := exec.CommandContext(ctx, "blkid", "-o", "value", "-s", "LABEL", drive.DevicePath).Output()
	if err == nil {
		snap.Label = strings.TrimSpace(string(out))
	}

	mount, err := findMountPoint(drive.DevicePath)
	if err == nil && mount != "" {
		snap.MountPoint = mount
		if _, statErr := os.Stat(filepath.Join(mount, "VIDEO_TS")); statErr == nil {
			snap.HasVideoTS = true
			snap.TypeHint = "DVD"
		}
		if _, statErr := os.Stat(filepath.Join(mount, "BDMV")); statErr == nil {
			snap.HasBDMV = true
			snap.TypeHint = "BD"
		}
	}

	if fsType, err := exec.CommandContext(ctx, "blkid", "-o", "value", "-s", "TYPE", drive.DevicePath).Output(); err == nil {
		t := strings.ToLower(strings.TrimSpace(string(fsType)))
		snap.FilesystemType = t
		if t == "" {
			snap.AudioTracks = true
		} else if snap.TypeHint == "" {
			switch {
			case strings.Contains(t, "udf"), strings.Contains(t, "iso9660"):
				snap.TypeHint = "CD"
			}
		}
	}

	return snap, nil
}

func (h *linuxHostOps) Eject(ctx context.Context, devicePath string) error {
	cmd := exec.CommandContext(ctx, h.ejectBinary, devicePath)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("eject %s: %w", devicePath, err)
	}
	return nil
}

func (h *linuxHostOps) DeviceSizeBytes(ctx context.Context, devicePath string) (int64, error) {
	fd, err := unix.Open(devicePath, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", devicePath, err)
	}
	defer unix.Close(fd)

	size, err := unix.IoctlGetUint64(fd, unix.BLKGETSIZE64)
	if err != nil {
		return 0, fmt.Errorf("BLKGETSIZE64 %s: %w", devicePath, err)
	}
	return int64(size), nil
}

func checkDriveStatus(devicePath string) (int, error) {
	fd, err := unix.Open(devicePath, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return cdsNoInfo, fmt.Errorf("open %s: %w", devicePath, err)
	}
	defer unix.Close(fd)

	const ioctlCDROMDriveStatus = 0x5326
	r1, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(ioctlCDROMDriveStatus), 0)
	if errno != 0 {
		return cdsNoInfo, errno
	}
	return int(r1), nil
}

func findMountPoint(devicePath string) (string, error) {
	file, err := os.Open("/proc/mounts")
	if err != nil {
		return "", err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		if fields[0] == devicePath {
			return fields[1], nil
		}
	}
	return "", nil
}
