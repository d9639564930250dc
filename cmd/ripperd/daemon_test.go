package main

import (
	"testing"

	"github.com/five82/ripperd/internal/config"
	"github.com/five82/ripperd/internal/discclassifier"
	"github.com/five82/ripperd/internal/rlog"
)

func TestOutputRootForPicksKindSpecificDirectory(t *testing.T) {
	cfg := config.Default()
	cfg.CDOutputDirectory = "/cd"
	cfg.DVDOutputDirectory = "/dvd"
	cfg.BlurayOutputDirectory = "/bluray"
	cfg.OtherOutputDirectory = "/other"
	cfg.OutputDirectory = "/fallback"

	cases := []struct {
		kind discclassifier.DiscKind
		want string
	}{
		{discclassifier.KindCDAudio, "/cd"},
		{discclassifier.KindDVDVideo, "/dvd"},
		{discclassifier.KindDVDROM, "/dvd"},
		{discclassifier.KindBlurayVideo, "/bluray"},
		{discclassifier.KindBlurayROM, "/bluray"},
		{discclassifier.KindOtherDisc, "/other"},
	}
	for _, tc := range cases {
		if got := outputRootFor(&cfg, tc.kind); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.kind, got, tc.want)
		}
	}
}

func TestOutputRootForFallsBackWhenKindSpecificDirectoryBlank(t *testing.T) {
	cfg := config.Default()
	cfg.OutputDirectory = "/fallback"
	if got := outputRootFor(&cfg, discclassifier.KindCDAudio); got != "/fallback" {
		t.Fatalf("got %q, want /fallback", got)
	}
}

func TestFirstNonEmptyReturnsFirstSetValue(t *testing.T) {
	if got := firstNonEmpty("", "", "b", "c"); got != "b" {
		t.Fatalf("got %q", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Fatalf("got %q, want empty", got)
	}
}

func TestSecondsOptionConvertsToDuration(t *testing.T) {
	if got := secondsOption(4); got.Seconds() != 4 {
		t.Fatalf("got %v", got)
	}
}

func TestNewDaemonBuildsWatcherStoreRegistryAndHost(t *testing.T) {
	cfg := config.Default()
	cfg.TempDirectory = t.TempDir()
	cfg.OutputDirectory = t.TempDir()
	cfg.LogDir = t.TempDir()

	d, err := newDaemon(&cfg, rlog.NewNop())
	if err != nil {
		t.Fatalf("newDaemon: %v", err)
	}
	if d.watcher == nil {
		t.Fatal("expected watcher to be constructed")
	}
	if d.store == nil || d.registry == nil || d.host == nil {
		t.Fatal("expected store, registry, and host to be constructed")
	}
}
