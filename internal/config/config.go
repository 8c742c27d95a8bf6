// Package config loads the arena settings from an optional YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/arena/internal/engine"
	"github.com/talgya/arena/internal/items"
)

// Config is the complete runtime configuration.
type Config struct {
	Width             int    `yaml:"width"`
	Height            int    `yaml:"height"`
	Seed              int64  `yaml:"seed"`
	InitialPopulation int    `yaml:"initial_population"`
	Map               string `yaml:"map"`
	Logic             string `yaml:"logic"`

	TickInterval time.Duration `yaml:"tick_interval"`
	Speed        float64       `yaml:"speed"`
	ReportEvery  uint64        `yaml:"report_every"`
	StartPaused  bool          `yaml:"start_paused"`

	Rules engine.Rules `yaml:"rules"`
	Fuses items.Fuses  `yaml:"fuses"`

	DBPath        string `yaml:"db_path"` // empty disables persistence
	SnapshotEvery uint64 `yaml:"snapshot_every"`
	Resume        bool   `yaml:"resume"`

	Port     int    `yaml:"port"`
	AdminKey string `yaml:"admin_key"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the stock configuration.
func Default() Config {
	opts := engine.DefaultOptions()
	return Config{
		Width:             opts.Width,
		Height:            opts.Height,
		Seed:              opts.Seed,
		InitialPopulation: opts.InitialPopulation,
		Map:               opts.Map,
		Logic:             opts.Logic.String(),
		TickInterval:      200 * time.Millisecond,
		Speed:             1,
		ReportEvery:       engine.DefaultReportEvery,
		Rules:             engine.DefaultRules(),
		Fuses:             items.DefaultFuses(),
		DBPath:            "data/arena.db",
		SnapshotEvery:     500,
		Resume:            true,
		Port:              8080,
		LogLevel:          "info",
	}
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Warn("config file not found, using defaults", "path", path)
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ARENA_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ARENA_PORT: %w", err)
		}
		c.Port = port
	}
	if v := os.Getenv("ARENA_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("ARENA_SEED: %w", err)
		}
		c.Seed = seed
	}
	if v, ok := os.LookupEnv("ARENA_DB"); ok {
		c.DBPath = v
	}
	if v := os.Getenv("ARENA_ADMIN_KEY"); v != "" {
		c.AdminKey = v
	}
	return nil
}

// Validate checks ranges the engine would otherwise reject at startup.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("grid %dx%d must be positive", c.Width, c.Height)
	}
	if c.InitialPopulation < 0 || c.InitialPopulation > c.Width*c.Height {
		return fmt.Errorf("initial_population %d does not fit a %dx%d grid", c.InitialPopulation, c.Width, c.Height)
	}
	if c.Speed <= 0 {
		return fmt.Errorf("speed %v must be positive", c.Speed)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick_interval %v must be positive", c.TickInterval)
	}
	if _, err := engine.ParseMovementLogic(c.Logic); err != nil {
		return err
	}
	return nil
}

// Options converts the config into simulation options.
func (c Config) Options() engine.Options {
	logic, _ := engine.ParseMovementLogic(c.Logic)
	return engine.Options{
		Width:             c.Width,
		Height:            c.Height,
		Seed:              c.Seed,
		InitialPopulation: c.InitialPopulation,
		Map:               c.Map,
		Logic:             logic,
		Rules:             c.Rules,
		Fuses:             c.Fuses,
	}
}

// SlogLevel maps LogLevel onto a slog level, defaulting to Info.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
