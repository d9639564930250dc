package jobstate

// ProgressAdapter consumes one line of child output and reports an updated
// step/title progress percentage, or ok=false for "no change" (§4.7 step 8).
type ProgressAdapter interface {
	OnLine(line string) (stepProgress float64, titleProgress float64, ok bool)
	// OnStart is called once before the child process is spawned, letting
	// adapters that need to precompute something (e.g. the raw-copy
	// adapter's expected_bytes) do so.
	OnStart() error
}

// Step is a single unit of work within a Job's pipeline (§3), built by the
// Pipeline Planner and ephemeral to one execution attempt.
type Step struct {
	Argv               []string
	Description        string
	ReleaseDriveAfter  bool
	Weight             float64
	FinalDest          string
	ProgressAdapter    ProgressAdapter
}
