package planner

import (
	"testing"

	"github.com/five82/ripperd/internal/config"
	"github.com/five82/ripperd/internal/discclassifier"
	"github.com/five82/ripperd/internal/jobstate"
)

func TestPlanCDAudioSingleStepNoLock(t *testing.T) {
	cfg := config.Default()
	job := jobstate.New("job-1", discclassifier.KindCDAudio, "D1", t.TempDir())

	plan, err := Plan(discclassifier.KindCDAudio, job, &cfg)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(plan.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(plan.Steps))
	}
	if plan.Steps[0].Weight != 1.0 {
		t.Fatalf("expected weight 1.0, got %v", plan.Steps[0].Weight)
	}
	if plan.LockIndex != 0 {
		t.Fatalf("expected never-lock, got %d", plan.LockIndex)
	}
}

func TestPlanROMWeightsSumToOneAndLockAtTwo(t *testing.T) {
	cfg := config.Default()
	cases := []discclassifier.DiscKind{
		discclassifier.KindCDROM, discclassifier.KindDVDROM,
		discclassifier.KindBlurayROM, discclassifier.KindOtherDisc,
	}
	for _, kind := range cases {
		job := jobstate.New("job-1", kind, "D1", t.TempDir())
		job.DiscLabel = "MyDisc"
		job.OutputPath = t.TempDir()

		plan, err := Plan(kind, job, &cfg)
		if err != nil {
			t.Fatalf("plan %v: %v", kind, err)
		}
		if len(plan.Steps) != 2 {
			t.Fatalf("%v: expected 2 steps, got %d", kind, len(plan.Steps))
		}
		if sum := plan.Steps[0].Weight + plan.Steps[1].Weight; sum < 0.999 || sum > 1.001 {
			t.Fatalf("%v: weights should sum to 1.0, got %v", kind, sum)
		}
		if plan.LockIndex != 2 {
			t.Fatalf("%v: expected lock at index 2, got %d", kind, plan.LockIndex)
		}
		if !plan.Steps[0].ReleaseDriveAfter {
			t.Fatalf("%v: expected drive released after step 1", kind)
		}
	}
}

func TestPlanVideoWeightsByKind(t *testing.T) {
	cfg := config.Default()

	dvd := jobstate.New("job-1", discclassifier.KindDVDVideo, "D1", t.TempDir())
	plan, err := Plan(discclassifier.KindDVDVideo, dvd, &cfg)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Steps[0].Weight != 0.60 || plan.Steps[1].Weight != 0.40 {
		t.Fatalf("unexpected dvd weights: %+v", plan.Steps)
	}

	bd := jobstate.New("job-2", discclassifier.KindBlurayVideo, "D1", t.TempDir())
	plan, err = Plan(discclassifier.KindBlurayVideo, bd, &cfg)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if plan.Steps[0].Weight != 0.70 || plan.Steps[1].Weight != 0.30 {
		t.Fatalf("unexpected bluray weights: %+v", plan.Steps)
	}
}

func TestPlanIsCallableRepeatedlyAndPicksUpRename(t *testing.T) {
	cfg := config.Default()
	job := jobstate.New("job-1", discclassifier.KindDVDVideo, "D1", t.TempDir())
	job.OutputPath = "/out/first"

	first, err := Plan(discclassifier.KindDVDVideo, job, &cfg)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	job.OutputPath = "/out/renamed"
	second, err := Plan(discclassifier.KindDVDVideo, job, &cfg)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}

	if first.Steps[1].FinalDest == second.Steps[1].FinalDest {
		t.Fatalf("expected second plan to reflect renamed output path")
	}
	if second.Steps[1].FinalDest != "/out/renamed" {
		t.Fatalf("got %q", second.Steps[1].FinalDest)
	}
}

func TestPlanUnsupportedKindErrors(t *testing.T) {
	cfg := config.Default()
	job := jobstate.New("job-1", discclassifier.KindUnknown, "", t.TempDir())
	if _, err := Plan(discclassifier.KindUnknown, job, &cfg); err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
}
