package discclassifier

import (
	"testing"

	"github.com/five82/ripperd/internal/hostops"
)

func TestClassifyAudioCD(t *testing.T) {
	got := Classify(hostops.DiscSnapshot{MediaPresent: true, AudioTracks: true})
	if got != KindCDAudio {
		t.Fatalf("got %v", got)
	}
}

func TestClassifyBlurayVideoOverROM(t *testing.T) {
	videoGot := Classify(hostops.DiscSnapshot{MediaPresent: true, TypeHint: "BD", HasBDMV: true})
	if videoGot != KindBlurayVideo {
		t.Fatalf("got %v", videoGot)
	}
	romGot := Classify(hostops.DiscSnapshot{MediaPresent: true, TypeHint: "BLU"})
	if romGot != KindBlurayROM {
		t.Fatalf("got %v", romGot)
	}
}

func TestClassifyDVDVideoOverROM(t *testing.T) {
	videoGot := Classify(hostops.DiscSnapshot{MediaPresent: true, TypeHint: "DVD", HasVideoTS: true})
	if videoGot != KindDVDVideo {
		t.Fatalf("got %v", videoGot)
	}
	romGot := Classify(hostops.DiscSnapshot{MediaPresent: true, TypeHint: "DVD"})
	if romGot != KindDVDROM {
		t.Fatalf("got %v", romGot)
	}
}

func TestClassifyCDROM(t *testing.T) {
	got := Classify(hostops.DiscSnapshot{MediaPresent: true, TypeHint: "CD"})
	if got != KindCDROM {
		t.Fatalf("got %v", got)
	}
}

func TestClassifySizeFallback(t *testing.T) {
	cases := []struct {
		name string
		size int64
		want DiscKind
	}{
		{"bluray size", 26 * giB, KindBlurayROM},
		{"dvd size", 2 * giB, KindDVDROM},
		{"cd size", 500 * 1024 * 1024, KindCDROM},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// FilesystemType must be non-empty here: an empty one is the
			// direct audio-CD signal of Rule 5 and would short-circuit the
			// size fallback this test exercises.
			got := Classify(hostops.DiscSnapshot{MediaPresent: true, SizeBytes: tc.size, FilesystemType: "iso9660"})
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestClassifyDirectoryPresenceWinsOverSize(t *testing.T) {
	// Small reported size and no type hint, but a BDMV directory present,
	// should still resolve to bluray_video via the directory tie-break, not
	// a size-based ROM kind.
	got := Classify(hostops.DiscSnapshot{MediaPresent: true, HasBDMV: true, SizeBytes: 1, FilesystemType: "udf"})
	if got != KindBlurayVideo {
		t.Fatalf("got %v", got)
	}
}

func TestClassifyNoMediaIsUnknown(t *testing.T) {
	got := Classify(hostops.DiscSnapshot{MediaPresent: false})
	if got != KindUnknown {
		t.Fatalf("got %v", got)
	}
}

func TestClassifyMissingFilesystemResolvesToAudioRegardlessOfSize(t *testing.T) {
	// A drive that reports media present but no data filesystem at all is
	// the direct cd_audio signal (§4.3 Rule 5), even carrying a nonzero raw
	// device size from a BLKGETSIZE64-style probe.
	got := Classify(hostops.DiscSnapshot{MediaPresent: true, SizeBytes: 700 * 1024 * 1024})
	if got != KindCDAudio {
		t.Fatalf("got %v, want %v", got, KindCDAudio)
	}
}

func TestClassifyUnresolvedWithMediaIsOtherDiscNeverUnknown(t *testing.T) {
	got := Classify(hostops.DiscSnapshot{MediaPresent: true, SizeBytes: 0, TypeHint: "", FilesystemType: "exfat", HasVideoTS: false, HasBDMV: false, AudioTracks: false})
	if got == KindUnknown {
		t.Fatalf("media present should never classify as unknown")
	}
	if got != KindOtherDisc {
		t.Fatalf("got %v, want %v", got, KindOtherDisc)
	}
}
