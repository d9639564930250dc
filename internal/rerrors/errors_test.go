package rerrors

import (
	"errors"
	"testing"
)

func TestWrapIsMatchesMarker(t *testing.T) {
	err := Precondition("set_output", "output already locked")
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("did not expect ErrNotFound match")
	}
}

func TestKindOfDefaultsToInternal(t *testing.T) {
	plain := errors.New("boom")
	if KindOf(plain) != KindInternal {
		t.Fatalf("expected KindInternal for untagged error")
	}
}

func TestWrapPreservesCauseChain(t *testing.T) {
	cause := errors.New("exit status 1")
	err := Dependency("runner.step", "makemkv failed", cause)
	if !errors.Is(err, ErrDependency) {
		t.Fatalf("expected ErrDependency")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to be reachable via errors.Is")
	}
}
