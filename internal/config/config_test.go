package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	dataDir := t.TempDir()
	cfg, err := load(t.TempDir(), dataDir)
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.PollInterval != 2 {
		t.Errorf("PollInterval = %d, want 2", cfg.PollInterval)
	}
	if cfg.PositionInterval() != 250*time.Millisecond {
		t.Errorf("PositionInterval() = %v", cfg.PositionInterval())
	}
	if cfg.RootMediaID != "__ROOT__" {
		t.Errorf("RootMediaID = %q", cfg.RootMediaID)
	}
	if cfg.LibraryDB != filepath.Join(dataDir, "library.db") {
		t.Errorf("LibraryDB = %q", cfg.LibraryDB)
	}
	if cfg.StateDB != filepath.Join(dataDir, "state.db") {
		t.Errorf("StateDB = %q", cfg.StateDB)
	}
	if cfg.OutputFormat != "{{.Subtitle}} - {{.Title}}" {
		t.Errorf("OutputFormat = %q", cfg.OutputFormat)
	}
	if cfg.MarqueeSpeed != 2 || cfg.MarqueeSeparator != " • " || cfg.MarqueeEnabled {
		t.Errorf("marquee = %v %d %q", cfg.MarqueeEnabled, cfg.MarqueeSpeed, cfg.MarqueeSeparator)
	}
	if !cfg.ArtworkLookup {
		t.Error("ArtworkLookup = false by default")
	}
	if cfg.HistoryLimit != 20 {
		t.Errorf("HistoryLimit = %d", cfg.HistoryLimit)
	}
	if cfg.DiscordAppID != "" {
		t.Errorf("DiscordAppID = %q, want Rich Presence off by default", cfg.DiscordAppID)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	configDir := t.TempDir()
	yaml := "poll_interval: 5\noutput_width: 30\nmarquee_enabled: true\nroot_media_id: library\n"
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("JIEMO_POLL_INTERVAL", "7")

	cfg, err := load(configDir, t.TempDir())
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	if cfg.Poll() != 7*time.Second {
		t.Errorf("Poll() = %v, want env override 7s", cfg.Poll())
	}
	if cfg.OutputWidth != 30 || !cfg.MarqueeEnabled {
		t.Errorf("OutputWidth = %d, MarqueeEnabled = %v", cfg.OutputWidth, cfg.MarqueeEnabled)
	}
	if cfg.RootMediaID != "library" {
		t.Errorf("RootMediaID = %q", cfg.RootMediaID)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	configDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("poll_interval: [\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := load(configDir, t.TempDir()); err == nil {
		t.Error("load() expected error for malformed yaml")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	configDir := t.TempDir()
	cfg, err := load(configDir, t.TempDir())
	if err != nil {
		t.Fatalf("load() error = %v", err)
	}

	cfg.OutputFormat = "{{.Title}}"
	cfg.HistoryLimit = 5
	if err := cfg.saveTo(filepath.Join(configDir, "config.yaml")); err != nil {
		t.Fatalf("saveTo() error = %v", err)
	}

	reloaded, err := load(configDir, t.TempDir())
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	if reloaded.OutputFormat != "{{.Title}}" || reloaded.HistoryLimit != 5 {
		t.Errorf("reloaded = %+v", reloaded)
	}
}
