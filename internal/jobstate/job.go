// Package jobstate defines the Job/Step data model (§3) and the
// state.json persistence contract (§4.8). Grounded on
// five82-spindle/internal/queue/models.go's Item/Status shape, recast from a
// SQLite-row model into a per-job directory-and-file model per the spec.
package jobstate

import (
	"sync"
	"time"

	"github.com/five82/ripperd/internal/discclassifier"
	"github.com/five82/ripperd/internal/driveregistry"
)

// Status is the Job lifecycle state (§4.7).
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
	StatusFinished  Status = "finished"
)

// Terminal reports whether the status is one from which no further
// transition is possible (§4.7).
func (s Status) Terminal() bool {
	switch s {
	case StatusCancelled, StatusFailed, StatusFinished:
		return true
	default:
		return false
	}
}

// maxLogLines bounds the in-memory recent-log ring (§3).
const maxLogLines = 200

// Job is the core per-disc unit of work (§3).
type Job struct {
	ID               string
	DiscKind         discclassifier.DiscKind
	Drive            driveregistry.LogicalID
	DiscLabel        string
	TempPath         string
	OutputPath       string
	OverrideFilename string

	StepsTotal      int
	Step            int
	StepDescription string
	StepProgress    float64
	TitleProgress   float64
	TotalProgress   int

	Status       Status
	OutputLocked bool

	// Extras carries imdb_id/metadata/season and any other fields opaque
	// to the core (§3).
	Extras map[string]any

	CreatedAt time.Time
	UpdatedAt time.Time

	logMu   sync.Mutex
	logRing []string
}

// New constructs a fresh Queued job owning the given temp directory.
func New(id string, kind discclassifier.DiscKind, drive driveregistry.LogicalID, tempPath string) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        id,
		DiscKind:  kind,
		Drive:     drive,
		TempPath:  tempPath,
		Status:    StatusQueued,
		Extras:    make(map[string]any),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AppendLog appends a line to the bounded recent-log ring, dropping the
// oldest line once the cap is reached. Safe for concurrent use: a Runner's
// stdout and stderr scanners both call this for the same Job.
func (j *Job) AppendLog(line string) {
	j.logMu.Lock()
	defer j.logMu.Unlock()
	j.logRing = append(j.logRing, line)
	if over := len(j.logRing) - maxLogLines; over > 0 {
		j.logRing = j.logRing[over:]
	}
}

// RecentLog returns a copy of the bounded recent-log ring.
func (j *Job) RecentLog() []string {
	j.logMu.Lock()
	defer j.logMu.Unlock()
	return append([]string(nil), j.logRing...)
}

// Touch refreshes UpdatedAt to now.
func (j *Job) Touch() {
	j.UpdatedAt = time.Now().UTC()
}
