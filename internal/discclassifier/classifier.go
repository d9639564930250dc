// Package discclassifier implements the pure Disc Classifier (§4.3): a
// mapping from a Platform Probe snapshot plus filesystem hints to a
// DiscKind. Grounded in spirit on five82-spindle/internal/disc/scanner.go's
// "inspect probe output plus filesystem hints to decide disc shape"
// structure; the rule set itself is transcribed directly from spec.md.
package discclassifier

import (
	"strings"

	"github.com/five82/ripperd/internal/hostops"
)

// DiscKind is the classified medium type driving pipeline shape (§3).
type DiscKind string

const (
	KindCDAudio      DiscKind = "cd_audio"
	KindCDROM        DiscKind = "cd_rom"
	KindDVDVideo     DiscKind = "dvd_video"
	KindDVDROM       DiscKind = "dvd_rom"
	KindBlurayVideo  DiscKind = "bluray_video"
	KindBlurayROM    DiscKind = "bluray_rom"
	KindOtherDisc    DiscKind = "other_disc"
	KindUnknown      DiscKind = "unknown"
)

const (
	giB = 1 << 30
	blurayThreshold = 25 * giB
	dvdThreshold    = 1 * giB
)

// Classify maps a DiscSnapshot to a DiscKind following the priority rules of
// §4.3. It is a pure function: no I/O, no side effects.
func Classify(snap hostops.DiscSnapshot) DiscKind {
	typeHint := strings.ToUpper(snap.TypeHint)

	// Rule 1: audio content and no ISO filesystem -> cd_audio.
	if snap.AudioTracks && snap.FilesystemType == "" {
		return KindCDAudio
	}

	// Rule 2: BD/BLU hint.
	if strings.Contains(typeHint, "BD") || strings.Contains(typeHint, "BLU") {
		if snap.HasBDMV {
			return KindBlurayVideo
		}
		return KindBlurayROM
	}

	// Rule 3: DVD hint.
	if strings.Contains(typeHint, "DVD") {
		if snap.HasVideoTS {
			return KindDVDVideo
		}
		return KindDVDROM
	}

	// Rule 4: CD hint.
	if strings.Contains(typeHint, "CD") {
		return KindCDROM
	}

	if !snap.MediaPresent {
		return KindUnknown
	}

	// Rule 5: filesystem reported absent but media present resolves
	// directly to cd_audio — a disc with no readable data filesystem at
	// all is the signal an audio CD gives, independent of its raw device
	// size (§4.3 tie-break).
	if snap.FilesystemType == "" {
		return KindCDAudio
	}

	// Rule 6: fallback by size. A BDMV or VIDEO_TS directory wins over the
	// size thresholds (§4.3 tie-break).
	switch {
	case snap.HasBDMV:
		return KindBlurayVideo
	case snap.HasVideoTS:
		return KindDVDVideo
	case snap.SizeBytes >= blurayThreshold:
		return KindBlurayROM
	case snap.SizeBytes >= dvdThreshold:
		return KindDVDROM
	case snap.SizeBytes > 0:
		return KindCDROM
	}

	// Tie-break: anything else unresolved with media present becomes
	// other_disc, never unknown (§4.3 tie-break).
	return KindOtherDisc
}

// IsROMLike reports whether a kind is handled by the two-step ROM/other
// pipeline (§4.5): cd_rom, dvd_rom, bluray_rom, other_disc.
func (k DiscKind) IsROMLike() bool {
	switch k {
	case KindCDROM, KindDVDROM, KindBlurayROM, KindOtherDisc:
		return true
	default:
		return false
	}
}

// IsVideo reports whether a kind is a video pipeline kind.
func (k DiscKind) IsVideo() bool {
	return k == KindDVDVideo || k == KindBlurayVideo
}
