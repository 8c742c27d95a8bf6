// Command arena runs the combatant arena simulation with its HTTP/websocket API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/arena/internal/api"
	"github.com/talgya/arena/internal/config"
	"github.com/talgya/arena/internal/engine"
	"github.com/talgya/arena/internal/entropy"
	"github.com/talgya/arena/internal/persistence"
)

func main() {
	configPath := flag.String("config", "arena.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	cfg.Seed = entropy.Resolve(cfg.Seed)
	slog.Info("arena starting",
		"grid", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"map", cfg.Map,
		"seed", cfg.Seed,
		"population", cfg.InitialPopulation,
	)

	// ── Simulation ────────────────────────────────────────────────────
	sim, err := engine.New(cfg.Options())
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	var db *persistence.DB
	var runID string
	if cfg.DBPath != "" {
		if dir := filepath.Dir(cfg.DBPath); dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		db, err = persistence.Open(cfg.DBPath)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("database opened", "path", cfg.DBPath)

		runID = resumeOrStart(cfg, db, sim)
	} else {
		slog.Warn("db_path empty, persistence disabled")
	}

	// ── Engine ────────────────────────────────────────────────────────
	eng := engine.NewEngine(sim)
	eng.Interval = cfg.TickInterval
	eng.ReportEvery = cfg.ReportEvery
	if err := eng.SetSpeed(cfg.Speed); err != nil {
		slog.Error("invalid speed", "error", err)
		os.Exit(1)
	}
	eng.SetPaused(cfg.StartPaused)

	hub := api.NewBroadcaster()
	eng.OnTick(hub.Publish)
	if db != nil {
		rec := &persistence.Recorder{DB: db, RunID: runID, SnapshotEvery: cfg.SnapshotEvery}
		eng.OnTick(rec.Record)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("ARENA_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	server := &api.Server{
		Eng:      eng,
		Hub:      hub,
		DB:       db,
		RunID:    runID,
		Port:     cfg.Port,
		AdminKey: cfg.AdminKey,
	}
	server.Start()

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\nArena is live: %s combatants on a %dx%d %s map.\n",
		humanize.Comma(int64(sim.Stats.NumCombatants)), cfg.Width, cfg.Height, cfg.Map)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}

	final := eng.Snapshot()
	if db != nil {
		slog.Info("final save...")
		if err := db.SaveSnapshot(runID, final); err != nil {
			slog.Error("final save failed", "error", err)
		}
	}
	fmt.Printf("Simulation stopped at tick %s: %s births, %s deaths.\n",
		humanize.Comma(int64(final.Tick)),
		humanize.Comma(int64(final.Stats.Births)),
		humanize.Comma(int64(final.Stats.Deaths)))
}

// resumeOrStart restores the latest saved snapshot when configured to and
// otherwise records a fresh run. It returns the run ID to persist under.
func resumeOrStart(cfg config.Config, db *persistence.DB, sim *engine.Simulation) string {
	if cfg.Resume {
		runID, snap, err := db.LoadLatestSnapshot()
		switch {
		case errors.Is(err, persistence.ErrNoSnapshot):
			slog.Info("no saved snapshot found, starting a new run")
		case err != nil:
			slog.Error("failed to load snapshot, starting a new run", "error", err)
		default:
			if err := sim.Restore(snap); err != nil {
				slog.Error("failed to restore snapshot, starting a new run", "error", err)
				break
			}
			slog.Info("run restored",
				"run", runID,
				"tick", humanize.Comma(int64(snap.Tick)),
				"combatants", len(snap.Combatants),
			)
			return runID
		}
	}

	runID, err := db.StartRun(sim.Snapshot())
	if err != nil {
		slog.Error("failed to record run", "error", err)
		os.Exit(1)
	}
	slog.Info("new run", "run", runID)
	return runID
}
