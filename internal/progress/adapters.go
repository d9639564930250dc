package progress

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/five82/ripperd/internal/hostops"
)

// handbrakeLine matches HandBrake's "task N of M, P.PP %" progress output
// (§4.7 step 8).
var handbrakeLine = regexp.MustCompile(`task\s+\d+\s+of\s+(\d+),\s+([0-9]+(?:\.[0-9]+)?)\s*%`)

// HandbrakeAdapter derives step_progress from the count of produced output
// files relative to the total titles discovered under the job's temp tree,
// refined by the in-flight title's own percentage.
type HandbrakeAdapter struct {
	TempDir   string
	OutputDir string

	mu          sync.Mutex
	totalTitles int
	cached      bool
}

func (a *HandbrakeAdapter) OnStart() error { return nil }

func (a *HandbrakeAdapter) OnLine(line string) (float64, float64, bool) {
	m := handbrakeLine.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	titlePct, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, 0, false
	}

	total := a.totalTitleCount()
	if total <= 0 {
		return 0, titlePct, true
	}
	produced := countMediaFiles(a.OutputDir)
	share := 100.0 / float64(total)
	stepPct := float64(produced)*share + titlePct*share/100
	if stepPct > 100 {
		stepPct = 100
	}
	return stepPct, titlePct, true
}

// totalTitleCount counts .mkv files under TempDir, lazily and cached (§4.7
// step 8).
func (a *HandbrakeAdapter) totalTitleCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cached {
		return a.totalTitles
	}
	a.totalTitles = countFilesWithExt(a.TempDir, ".mkv")
	a.cached = true
	return a.totalTitles
}

func countFilesWithExt(dir, ext string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ext) {
			n++
		}
	}
	return n
}

var mediaExtensions = []string{".mkv", ".mp4", ".m4v"}

func countMediaFiles(dir string) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		for _, want := range mediaExtensions {
			if ext == want {
				n++
				break
			}
		}
	}
	return n
}

// compressLine matches a bare "NN.NN%" anywhere in a compress tool's
// progress output (zstd --progress / bzip2 -v style lines).
var compressLine = regexp.MustCompile(`([0-9]+(?:\.[0-9]+)?)\s*%`)

// CompressAdapter reports step_progress from the `%` figure in compress
// tool output (§4.7 step 8).
type CompressAdapter struct{}

func (CompressAdapter) OnStart() error { return nil }

func (CompressAdapter) OnLine(line string) (float64, float64, bool) {
	m := compressLine.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, 0, false
	}
	return pct, 0, true
}

// audioTrackLine matches an audio-rip tool's "track N of M" progress line.
var audioTrackLine = regexp.MustCompile(`(?i)track\s+(\d+)\s+of\s+(\d+)`)

// AudioRipAdapter reports step_progress as the fraction of tracks ripped so
// far (§4.7 step 8).
type AudioRipAdapter struct{}

func (AudioRipAdapter) OnStart() error { return nil }

func (AudioRipAdapter) OnLine(line string) (float64, float64, bool) {
	m := audioTrackLine.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	current, err1 := strconv.ParseFloat(m[1], 64)
	total, err2 := strconv.ParseFloat(m[2], 64)
	if err1 != nil || err2 != nil || total <= 0 {
		return 0, 0, false
	}
	pct := current / total * 100
	if pct > 100 {
		pct = 100
	}
	return pct, pct, true
}

// RawCopyAdapter computes done_bytes/expected_bytes for raw device-to-file
// copy steps (dd / hdiutil / PowerShell raw read). expected_bytes is
// obtained once via the OS-specific device-size call during OnStart
// (§4.7 step 8).
type RawCopyAdapter struct {
	Host       hostops.HostOps
	DevicePath string
	DestPath   string

	expectedBytes int64
}

func (a *RawCopyAdapter) OnStart() error {
	size, err := a.Host.DeviceSizeBytes(context.Background(), a.DevicePath)
	if err != nil {
		return err
	}
	a.expectedBytes = size
	return nil
}

// OnLine is a no-op for RawCopyAdapter: progress is polled from the
// destination file's growing size rather than parsed from stdout. Poll is
// exported for the Runner to call on its own ticker.
func (a *RawCopyAdapter) OnLine(string) (float64, float64, bool) {
	return 0, 0, false
}

// Poll reports progress from the current size of DestPath relative to the
// expected device size.
func (a *RawCopyAdapter) Poll() (float64, bool) {
	if a.expectedBytes <= 0 {
		return 0, false
	}
	info, err := os.Stat(a.DestPath)
	if err != nil {
		return 0, false
	}
	pct := float64(info.Size()) / float64(a.expectedBytes) * 100
	if pct > 100 {
		pct = 100
	}
	return pct, true
}
