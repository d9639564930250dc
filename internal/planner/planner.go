// Package planner implements the Pipeline Planner (§4.5, §4.6): a pure
// mapping from (DiscKind, Job, Config) to an ordered Step slice, deciding
// per-step weights, output destinations, and the output-lock index.
// Grounded in spirit on five82-spindle/internal/workflow/manager.go's typed
// stage-descriptor convention, recast as a pure function over
// jobstate.Step rather than a stateful workflow manager, since the spec
// requires the Planner be callable repeatedly and side-effect free.
package planner

import (
	"fmt"
	"path/filepath"

	"github.com/five82/ripperd/internal/config"
	"github.com/five82/ripperd/internal/discclassifier"
	"github.com/five82/ripperd/internal/jobstate"
	"github.com/five82/ripperd/internal/textutil"
)

// Pipeline is the ordered pipeline for one job attempt, plus the 1-based lock
// index at which output_path/override_filename becomes immutable (§4.6).
// LockIndex of 0 means the kind never locks (cd_audio).
type Pipeline struct {
	Steps     []jobstate.Step
	LockIndex int
}

// Plan computes the Step list for job given its classified kind and the
// active configuration. It is pure and may be called repeatedly — the
// Runner re-invokes it before executing any step ≥ 2 so a UI-initiated
// rename of output_path takes effect (§4.5).
func Plan(kind discclassifier.DiscKind, job *jobstate.Job, cfg *config.Config) (Pipeline, error) {
	switch kind {
	case discclassifier.KindCDAudio:
		return planCDAudio(job, cfg), nil
	case discclassifier.KindCDROM, discclassifier.KindDVDROM, discclassifier.KindBlurayROM, discclassifier.KindOtherDisc:
		return planROM(kind, job, cfg), nil
	case discclassifier.KindDVDVideo, discclassifier.KindBlurayVideo:
		return planVideo(kind, job, cfg), nil
	default:
		return Pipeline{}, fmt.Errorf("planner: unsupported disc kind %q", kind)
	}
}

func planCDAudio(job *jobstate.Job, cfg *config.Config) Pipeline {
	argv := []string{cfg.CDAudioRipBinary}
	if cfg.CDAdditionalOptions != "" {
		argv = append(argv, cfg.CDAdditionalOptions)
	}
	return Pipeline{
		Steps: []jobstate.Step{
			{
				Argv:              argv,
				Description:       "ripping and encoding audio CD",
				ReleaseDriveAfter: true,
				Weight:            1.0,
				FinalDest:         job.OutputPath,
			},
		},
		LockIndex: 0,
	}
}

func planROM(kind discclassifier.DiscKind, job *jobstate.Job, cfg *config.Config) Pipeline {
	w1, w2 := romWeights(kind)

	isoName := textutil.SanitizeFileName(job.DiscLabel) + ".iso"
	tempISO := filepath.Join(job.TempPath, isoName)

	finalName := isoName
	switch {
	case cfg.OtherUseCompression && cfg.OtherCompression == config.CompressionZstd:
		finalName += ".zst"
	case cfg.OtherUseCompression && cfg.OtherCompression == config.CompressionBz2:
		finalName += ".bz2"
	}
	finalDest := job.OutputPath
	if job.OverrideFilename != "" {
		finalDest = filepath.Join(filepath.Dir(job.OutputPath), job.OverrideFilename)
	} else if finalDest == "" || isDir(job.OutputPath) {
		finalDest = filepath.Join(job.OutputPath, finalName)
	}
	finalDest = textutil.Unique(finalDest)

	return Pipeline{
		Steps: []jobstate.Step{
			{
				Argv:              []string{"raw-image", job.TempPath},
				Description:       "imaging disc to temporary ISO",
				ReleaseDriveAfter: true,
				Weight:            w1,
				FinalDest:         tempISO,
			},
			{
				Argv:              []string{"transform", tempISO, finalDest},
				Description:       "compressing and copying to destination",
				ReleaseDriveAfter: false,
				Weight:            w2,
				FinalDest:         finalDest,
			},
		},
		LockIndex: 2,
	}
}

func planVideo(kind discclassifier.DiscKind, job *jobstate.Job, cfg *config.Config) Pipeline {
	w1, w2 := videoWeights(kind)

	useHandbrake := cfg.DVDUseHandbrake
	if kind == discclassifier.KindBlurayVideo {
		useHandbrake = cfg.BlurayUseHandbrake
	}

	desc := "copying titles to destination"
	if useHandbrake {
		desc = "transcoding titles with configured preset"
	}

	return Pipeline{
		Steps: []jobstate.Step{
			{
				Argv:              []string{"makemkv", "extract", job.TempPath},
				Description:       "extracting titles",
				ReleaseDriveAfter: true,
				Weight:            w1,
			},
			{
				Argv:              []string{"transcode-or-copy", job.TempPath, job.OutputPath},
				Description:       desc,
				ReleaseDriveAfter: false,
				Weight:            w2,
				FinalDest:         job.OutputPath,
			},
		},
		LockIndex: 2,
	}
}

// romWeights returns (w1, w2) for ROM/other kinds (§4.5 weight policy).
func romWeights(kind discclassifier.DiscKind) (float64, float64) {
	switch kind {
	case discclassifier.KindBlurayROM:
		return 0.70, 0.30
	case discclassifier.KindCDROM:
		return 0.50, 0.50
	default: // dvd_rom, other_disc
		return 0.60, 0.40
	}
}

// videoWeights returns (w1, w2) for the two video kinds (§4.5 weight
// policy).
func videoWeights(kind discclassifier.DiscKind) (float64, float64) {
	if kind == discclassifier.KindBlurayVideo {
		return 0.70, 0.30
	}
	return 0.60, 0.40
}

func isDir(path string) bool {
	return filepath.Ext(path) == ""
}
