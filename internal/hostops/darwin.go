//go:build darwin

package hostops

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// New returns the macOS HostOps backend, shelling out to drutil/diskutil the
// way original_source's app/core/discdetection/macos.py does (reimplemented
// idiomatically, not translated).
func New() HostOps {
	return &darwinHostOps{}
}

type darwinHostOps struct{}

func (h *darwinHostOps) ListDrives(ctx context.Context) ([]ProbeDrive, error) {
	out, err := exec.CommandContext(ctx, "drutil", "list").Output()
	if err != nil {
		return nil, nil
	}
	var drives []ProbeDrive
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	idx := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "Vendor") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		drives = append(drives, ProbeDrive{
			LogicalID:  fmt.Sprintf("drive-%d", idx),
			DevicePath: fields[0],
			Model:      strings.Join(fields[1:], " "),
			Capability: CapCD | CapDVD | CapBluray,
		})
		idx++
	}
	return drives, nil
}

func (h *darwinHostOps) ProbeMedia(ctx context.Context, drive ProbeDrive) (DiscSnapshot, error) {
	out, err := exec.CommandContext(ctx, "drutil", "status").Output()
	if err != nil {
		return DiscSnapshot{}, fmt.Errorf("drutil status: %w", err)
	}
	text := string(out)
	if strings.Contains(text, "Type: None") || strings.Contains(text, "No Media") {
		return DiscSnapshot{MediaPresent: false}, nil
	}

	snap := DiscSnapshot{MediaPresent: true}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "blu-ray"), strings.Contains(lower, "bd-"):
		snap.TypeHint = "BD"
	case strings.Contains(lower, "dvd"):
		snap.TypeHint = "DVD"
	case strings.Contains(lower, "cd"):
		snap.TypeHint = "CD"
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Name:") {
			snap.Label = strings.TrimSpace(strings.TrimPrefix(line, "Name:"))
		}
	}
	snap.FilesystemType = h.filesystemPersonality(ctx, drive.DevicePath)
	return snap, nil
}

// filesystemPersonality shells out to `diskutil info` for the mounted
// medium's "File System Personality" line, returning "" when the device
// carries no data filesystem at all (the signal an audio CD gives).
func (h *darwinHostOps) filesystemPersonality(ctx context.Context, devicePath string) string {
	out, err := exec.CommandContext(ctx, "diskutil", "info", devicePath).Output()
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "File System Personality:") {
			continue
		}
		value := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(line, "File System Personality:")))
		if value == "" || strings.Contains(value, "not applicable") {
			return ""
		}
		return value
	}
	return ""
}

func (h *darwinHostOps) Eject(ctx context.Context, devicePath string) error {
	cmd := exec.CommandContext(ctx, "drutil", "eject")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("eject %s: %w", devicePath, err)
	}
	return nil
}

func (h *darwinHostOps) DeviceSizeBytes(ctx context.Context, devicePath string) (int64, error) {
	out, err := exec.CommandContext(ctx, "diskutil", "info", "-plist", devicePath).Output()
	if err != nil {
		return 0, fmt.Errorf("diskutil info %s: %w", devicePath, err)
	}
	// Minimal plist scrape for <key>TotalSize</key><integer>N</integer>.
	text := string(out)
	idx := strings.Index(text, "TotalSize")
	if idx < 0 {
		return 0, fmt.Errorf("TotalSize not found in diskutil output")
	}
	rest := text[idx:]
	start := strings.Index(rest, "<integer>")
	end := strings.Index(rest, "</integer>")
	if start < 0 || end < 0 || end < start {
		return 0, fmt.Errorf("malformed diskutil plist output")
	}
	value := strings.TrimSpace(rest[start+len("<integer>") : end])
	return strconv.ParseInt(value, 10, 64)
}
