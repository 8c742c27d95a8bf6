// Command keeper runs the autonomous arena steward. It observes the arena,
// triages its health and intervenes through the admin API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/talgya/arena/internal/entropy"
	"github.com/talgya/arena/internal/keeper"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	st, err := loadSettings()
	if err != nil {
		slog.Error("invalid keeper settings", "error", err)
		os.Exit(1)
	}
	slog.Info("arena keeper starting", "api_url", st.apiURL, "interval", st.interval, "seed", st.seed)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	k := keeper.New(st.apiURL, st.adminKey, st.seed, keeper.LoadMemory(st.memoryPath))

	readyCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	err = k.Observer.WaitReady(readyCtx)
	cancel()
	if err != nil {
		slog.Error("arena API unavailable", "error", err)
		os.Exit(1)
	}
	slog.Info("arena API is ready")

	runCycle(ctx, k)

	ticker := time.NewTicker(st.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runCycle(ctx, k)
		case <-ctx.Done():
			slog.Info("shutting down")
			fmt.Println("Keeper stopped.")
			return
		}
	}
}

func runCycle(ctx context.Context, k *keeper.Keeper) {
	if _, err := k.Cycle(ctx); err != nil {
		slog.Error("keeper cycle failed", "error", err)
	}
}

// settings come from the environment only; the keeper runs beside the
// arena and shares its ARENA_ADMIN_KEY.
type settings struct {
	apiURL     string
	adminKey   string
	interval   time.Duration
	memoryPath string
	seed       int64
}

func loadSettings() (settings, error) {
	st := settings{
		apiURL:     "http://localhost:8080",
		adminKey:   os.Getenv("ARENA_ADMIN_KEY"),
		interval:   30 * time.Second,
		memoryPath: os.Getenv("KEEPER_MEMORY"),
	}
	if v := os.Getenv("KEEPER_API_URL"); v != "" {
		st.apiURL = strings.TrimRight(v, "/")
	}
	if st.adminKey == "" {
		return st, errors.New("ARENA_ADMIN_KEY is required")
	}
	if v := os.Getenv("KEEPER_INTERVAL"); v != "" {
		sec, err := strconv.Atoi(v)
		if err != nil || sec <= 0 {
			return st, fmt.Errorf("KEEPER_INTERVAL %q: want a positive number of seconds", v)
		}
		st.interval = time.Duration(sec) * time.Second
	}
	var seed int64
	if v := os.Getenv("KEEPER_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return st, fmt.Errorf("KEEPER_SEED %q: %w", v, err)
		}
		seed = n
	}
	st.seed = entropy.Resolve(seed)
	return st, nil
}
