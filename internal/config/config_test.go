package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/talgya/arena/internal/engine"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arena.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config differs from defaults (-want +got):\n%s", diff)
	}
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := writeConfig(t, `
width: 12
height: 8
map: flat
logic: random
tick_interval: 50ms
rules:
  mate_chance: 0.9
fuses:
  bomb: 5
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Width != 12 || cfg.Height != 8 || cfg.Map != "flat" {
		t.Errorf("grid = %dx%d %q, want 12x8 flat", cfg.Width, cfg.Height, cfg.Map)
	}
	if cfg.TickInterval != 50*time.Millisecond {
		t.Errorf("tick_interval = %v, want 50ms", cfg.TickInterval)
	}
	if cfg.Rules.MateChance != 0.9 {
		t.Errorf("mate_chance = %v, want 0.9", cfg.Rules.MateChance)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Rules.MinHealth != engine.DefaultRules().MinHealth {
		t.Errorf("min_health = %d, want default", cfg.Rules.MinHealth)
	}
	if cfg.Fuses.Bomb != 5 || cfg.Fuses.Capture != Default().Fuses.Capture {
		t.Errorf("fuses = %+v", cfg.Fuses)
	}
	if opts := cfg.Options(); opts.Logic != engine.LogicRandom {
		t.Errorf("logic = %v, want random", opts.Logic)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ARENA_PORT", "9999")
	t.Setenv("ARENA_SEED", "7")
	t.Setenv("ARENA_DB", "")
	t.Setenv("ARENA_ADMIN_KEY", "secret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9999 || cfg.Seed != 7 || cfg.DBPath != "" || cfg.AdminKey != "secret" {
		t.Errorf("env not applied: port=%d seed=%d db=%q key=%q", cfg.Port, cfg.Seed, cfg.DBPath, cfg.AdminKey)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"negative width": "width: -1",
		"crowded":        "width: 2\nheight: 2\ninitial_population: 5",
		"bad logic":      "logic: telepathy",
		"bad yaml":       "width: [",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	if got := cfg.SlogLevel().String(); got != "DEBUG" {
		t.Errorf("level = %s, want DEBUG", got)
	}
	cfg.LogLevel = "chatty"
	if got := cfg.SlogLevel().String(); got != "INFO" {
		t.Errorf("level = %s, want INFO", got)
	}
}
