package textutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// splitSuffixChain splits a base file name into its stem and its full
// suffix chain (e.g. "MyDisc.iso.zst" -> "MyDisc", ".iso.zst"). A name with
// no dot, or any name that starts with a dot, has an empty suffix chain.
func splitSuffixChain(base string) (stem, suffix string) {
	idx := strings.Index(base, ".")
	if idx <= 0 {
		return base, ""
	}
	return base[:idx], base[idx:]
}

// Unique returns a path that does not currently exist on disk, inserting
// " (n)" before the full suffix chain for increasing n until the candidate
// is free. If p does not exist, Unique is a fixed point and returns p
// unchanged.
func Unique(p string) string {
	if _, err := os.Stat(p); err != nil {
		return p
	}

	dir := filepath.Dir(p)
	base := filepath.Base(p)
	stem, suffix := splitSuffixChain(base)

	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, suffix))
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}
