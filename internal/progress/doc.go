package progress

import "github.com/five82/ripperd/internal/jobstate"

var (
	_ jobstate.ProgressAdapter = (*HandbrakeAdapter)(nil)
	_ jobstate.ProgressAdapter = CompressAdapter{}
	_ jobstate.ProgressAdapter = AudioRipAdapter{}
	_ jobstate.ProgressAdapter = (*RawCopyAdapter)(nil)
)
