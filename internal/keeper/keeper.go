package keeper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
)

// Keeper runs observe, triage, decide and act cycles against one arena.
type Keeper struct {
	Observer     *Observer
	Planner      *Planner
	Actor        *Actor
	Memory       *Memory
	HistoryLimit int
}

// New wires a keeper for the arena API at baseURL.
func New(baseURL, adminKey string, seed int64, mem *Memory) *Keeper {
	return &Keeper{
		Observer:     NewObserver(baseURL),
		Planner:      NewPlanner(seed),
		Actor:        NewActor(baseURL, adminKey),
		Memory:       mem,
		HistoryLimit: 50,
	}
}

// Cycle runs one full cycle and returns the decision it took. The decision
// is recorded in memory even when acting on it fails.
func (k *Keeper) Cycle(ctx context.Context) (Decision, error) {
	obs, err := k.Observer.Observe(ctx, k.HistoryLimit)
	if err != nil {
		return Decision{}, fmt.Errorf("observe: %w", err)
	}

	h := Triage(obs, k.Planner.Thresholds)
	slog.Info("arena observed",
		"tick", humanize.Comma(int64(obs.Status.Tick)),
		"population", obs.Status.Population,
		"density", fmt.Sprintf("%.3f", h.Density),
		"death_birth_ratio", fmt.Sprintf("%.2f", h.DeathBirthRatio),
		"level", h.Level,
	)

	d := k.Planner.Decide(obs, h, k.Memory)
	slog.Info("decision made", "action", d.Action, "cells", len(d.Cells), "rationale", d.Rationale)

	applied, actErr := k.Actor.Act(ctx, d)
	if actErr != nil {
		slog.Error("intervention failed", "action", d.Action, "applied", applied, "error", actErr)
	} else if d.Action != ActionNone {
		slog.Info("intervention executed", "action", d.Action, "applied", applied)
	}

	k.Memory.Add(CycleRecord{
		Tick:            obs.Status.Tick,
		RunID:           obs.Status.RunID,
		Action:          d.Action,
		Level:           h.Level.String(),
		Population:      h.Population,
		Density:         h.Density,
		DeathBirthRatio: finite(h.DeathBirthRatio),
		Applied:         applied,
		Rationale:       d.Rationale,
	})
	if err := k.Memory.Save(); err != nil {
		slog.Warn("keeper memory not saved", "error", err)
	}

	if actErr != nil {
		return d, fmt.Errorf("act: %w", actErr)
	}
	return d, nil
}

// finite clamps +Inf so the record survives JSON encoding.
func finite(f float64) float64 {
	return min(f, 1e9)
}
