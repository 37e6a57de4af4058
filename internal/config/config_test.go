package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("Load() without a file mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg := DefaultConfig()
	cfg.Device = "R58M123"
	cfg.RNDIS = "192.168.42.10/24,192.168.42.1,8.8.8.8,8.8.4.4"
	cfg.CommandTimeout = 90 * time.Second
	cfg.KnownApps = []string{"com.example.updater"}
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "droidprep", "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	got, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("Load() after Save() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "droidprep"), 0o755); err != nil {
		t.Fatal(err)
	}
	data := []byte("simplert: eth0,8.8.8.8\nmin_battery: 70\n")
	if err := os.WriteFile(filepath.Join(dir, "droidprep", "config.yaml"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := DefaultConfig()
	want.SimpleRT = "eth0,8.8.8.8"
	want.MinBattery = 70
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "droidprep"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "droidprep", "config.yaml"), []byte("min_battery: [1, 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Error("Load() accepted malformed YAML")
	}
}

func TestSet(t *testing.T) {
	cfg := DefaultConfig()
	for _, kv := range [][2]string{
		{"device", "emulator-5554"},
		{"min_battery", "65"},
		{"max_temperature", "38.5"},
		{"command_timeout", "2m"},
		{"known_apps", "com.a, ,com.b"},
	} {
		if err := cfg.Set(kv[0], kv[1]); err != nil {
			t.Errorf("Set(%q, %q) error: %v", kv[0], kv[1], err)
		}
	}
	want := DefaultConfig()
	want.Device = "emulator-5554"
	want.MinBattery = 65
	want.MaxTemperature = 38.5
	want.CommandTimeout = 2 * time.Minute
	want.KnownApps = []string{"com.a", "com.b"}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Set() mismatch (-want +got):\n%s", diff)
	}

	for _, kv := range [][2]string{
		{"min_battery", "150"},
		{"min_battery", "half"},
		{"max_temperature", "hot"},
		{"command_timeout", "-1s"},
		{"colour", "blue"},
	} {
		if err := cfg.Set(kv[0], kv[1]); err == nil {
			t.Errorf("Set(%q, %q) accepted an invalid value", kv[0], kv[1])
		}
	}
}

func TestExpandArtifactDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	cfg := &Config{ArtifactDir: "~/captures"}
	if got, want := cfg.ExpandArtifactDir(), filepath.Join(home, "captures"); got != want {
		t.Errorf("ExpandArtifactDir() = %q, want %q", got, want)
	}
	cfg.ArtifactDir = "/var/tmp/captures"
	if got := cfg.ExpandArtifactDir(); got != "/var/tmp/captures" {
		t.Errorf("ExpandArtifactDir() = %q", got)
	}
}
