package jobstate

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/five82/ripperd/internal/discclassifier"
	"github.com/five82/ripperd/internal/driveregistry"
	"github.com/five82/ripperd/internal/rerrors"
	"github.com/five82/ripperd/internal/rlog"
)

// StateFileName is the per-job persistence file under TempPath (§4.8).
const StateFileName = "state.json"

// record is the on-disk state.json schema (§4.8). All timestamp fields are
// unix seconds; free-form extras are preserved round-trip via Extras.
type record struct {
	JobID            string         `json:"job_id"`
	DiscType         string         `json:"disc_type"`
	DiscLabel        string         `json:"disc_label"`
	Drive            *string        `json:"drive"`
	Status           string         `json:"status"`
	Progress         int            `json:"progress"`
	Step             int            `json:"step"`
	StepDescription  string         `json:"step_description"`
	StepProgress     float64        `json:"step_progress"`
	TitleProgress    float64        `json:"title_progress"`
	StepsTotal       int            `json:"steps_total"`
	OutputPath       string         `json:"output_path"`
	OutputLocked     bool           `json:"output_locked"`
	OverrideFilename *string        `json:"override_filename"`
	Timestamp        int64          `json:"timestamp"`
	CreatedAt        int64          `json:"created_at"`
	Extras           map[string]any `json:"-"`
}

// MarshalJSON flattens Extras alongside the fixed fields, matching the
// schema's "free-form extras permitted" clause (§4.8).
func (r record) MarshalJSON() ([]byte, error) {
	base := map[string]any{
		"job_id":            r.JobID,
		"disc_type":         r.DiscType,
		"disc_label":        r.DiscLabel,
		"drive":             r.Drive,
		"status":            r.Status,
		"progress":          r.Progress,
		"step":              r.Step,
		"step_description":  r.StepDescription,
		"step_progress":     r.StepProgress,
		"title_progress":    r.TitleProgress,
		"steps_total":       r.StepsTotal,
		"output_path":       r.OutputPath,
		"output_locked":     r.OutputLocked,
		"override_filename": r.OverrideFilename,
		"timestamp":         r.Timestamp,
		"created_at":        r.CreatedAt,
	}
	for k, v := range r.Extras {
		if _, reserved := base[k]; reserved {
			continue
		}
		base[k] = v
	}
	return json.Marshal(base)
}

func (r *record) UnmarshalJSON(data []byte) error {
	type alias record
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = record(a)

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	known := map[string]bool{
		"job_id": true, "disc_type": true, "disc_label": true, "drive": true,
		"status": true, "progress": true, "step": true, "step_description": true,
		"step_progress": true, "title_progress": true, "steps_total": true,
		"output_path": true, "output_locked": true, "override_filename": true,
		"timestamp": true, "created_at": true,
	}
	r.Extras = make(map[string]any)
	for k, v := range raw {
		if !known[k] {
			r.Extras[k] = v
		}
	}
	return nil
}

func toRecord(j *Job) record {
	var drive *string
	if j.Drive != "" {
		s := string(j.Drive)
		drive = &s
	}
	var override *string
	if j.OverrideFilename != "" {
		s := j.OverrideFilename
		override = &s
	}
	return record{
		JobID:            j.ID,
		DiscType:         string(j.DiscKind),
		DiscLabel:        j.DiscLabel,
		Drive:            drive,
		Status:           string(j.Status),
		Progress:         j.TotalProgress,
		Step:             j.Step,
		StepDescription:  j.StepDescription,
		StepProgress:     j.StepProgress,
		TitleProgress:    j.TitleProgress,
		StepsTotal:       j.StepsTotal,
		OutputPath:       j.OutputPath,
		OutputLocked:     j.OutputLocked,
		OverrideFilename: override,
		Timestamp:        j.UpdatedAt.Unix(),
		CreatedAt:        j.CreatedAt.Unix(),
		Extras:           j.Extras,
	}
}

func fromRecord(r record) *Job {
	j := &Job{
		ID:              r.JobID,
		DiscKind:        discclassifier.DiscKind(r.DiscType),
		DiscLabel:       r.DiscLabel,
		Status:          Status(r.Status),
		TotalProgress:   r.Progress,
		Step:            r.Step,
		StepDescription: r.StepDescription,
		StepProgress:    r.StepProgress,
		TitleProgress:   r.TitleProgress,
		StepsTotal:      r.StepsTotal,
		OutputPath:      r.OutputPath,
		OutputLocked:    r.OutputLocked,
		Extras:          r.Extras,
		CreatedAt:       time.Unix(r.CreatedAt, 0).UTC(),
		UpdatedAt:       time.Unix(r.Timestamp, 0).UTC(),
	}
	if r.Drive != nil {
		j.Drive = driveregistry.LogicalID(*r.Drive)
	}
	if r.OverrideFilename != nil {
		j.OverrideFilename = *r.OverrideFilename
	}
	if j.Extras == nil {
		j.Extras = make(map[string]any)
	}
	return j
}

// Save writes state.json under j.TempPath as a whole-file replacement via
// write-then-rename, so a crash mid-write never leaves a partial file that
// fails to parse (§4.8).
func Save(j *Job) error {
	j.Touch()
	data, err := json.MarshalIndent(toRecord(j), "", "  ")
	if err != nil {
		return rerrors.Internal("jobstate.Save", "marshal state", err)
	}

	path := filepath.Join(j.TempPath, StateFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return rerrors.Internal("jobstate.Save", "write temp state file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return rerrors.Internal("jobstate.Save", "rename state file into place", err)
	}
	return nil
}

// Load parses state.json from dir.
func Load(dir string) (*Job, error) {
	data, err := os.ReadFile(filepath.Join(dir, StateFileName))
	if err != nil {
		return nil, rerrors.Wrap(rerrors.ErrNotFound, "jobstate.Load", "read state file", err)
	}
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, rerrors.Wrap(rerrors.ErrValidation, "jobstate.Load", "parse state file", err)
	}
	j := fromRecord(r)
	j.TempPath = dir
	return j, nil
}

// Bootstrap scans each subdirectory of tempRoot, rebuilding a Job from every
// parseable state.json. A Running or Queued status on disk is rewritten to
// Paused (the process that owned it no longer exists). Directories with a
// corrupt or missing state.json are removed entirely (§4.8).
func Bootstrap(tempRoot string, logger *slog.Logger) ([]*Job, error) {
	if logger == nil {
		logger = rlog.NewNop()
	}
	entries, err := os.ReadDir(tempRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, rerrors.Internal("jobstate.Bootstrap", "read temp root", err)
	}

	var jobs []*Job
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(tempRoot, entry.Name())
		job, err := Load(dir)
		if err != nil {
			logger.Warn("removing unparseable job directory", rlog.String("dir", dir), rlog.Error(err))
			_ = os.RemoveAll(dir)
			continue
		}

		if job.Status == StatusRunning || job.Status == StatusQueued {
			job.Status = StatusPaused
			if err := Save(job); err != nil {
				logger.Warn("failed to persist paused status during bootstrap", rlog.String("dir", dir), rlog.Error(err))
			}
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
