// Package engine implements the arena simulation: movement decisions, fights
// and mating, item effects and the tick loop that drives them.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// DefaultReportEvery is how often the engine logs a population report.
const DefaultReportEvery = 100

// Engine drives a Simulation on a timer and serializes every access to it,
// so readers only ever see whole ticks.
type Engine struct {
	Interval    time.Duration // Base tick interval at speed 1
	ReportEvery uint64        // Ticks between population reports, 0 disables

	mu     sync.Mutex
	sim    *Simulation
	speed  float64
	paused bool
	hooks  []func(Snapshot)
}

// NewEngine wraps sim with default settings. The engine starts paused.
func NewEngine(sim *Simulation) *Engine {
	return &Engine{
		Interval:    200 * time.Millisecond,
		ReportEvery: DefaultReportEvery,
		sim:         sim,
		speed:       1.0,
		paused:      true,
	}
}

// OnTick registers a callback that receives the snapshot of every completed
// tick. Callbacks run on the engine goroutine without the lock held.
func (e *Engine) OnTick(fn func(Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.hooks = append(e.hooks, fn)
}

// Run advances the simulation until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("simulation engine started", "tick", e.Snapshot().Tick, "speed", e.Speed())
	defer func() {
		slog.Info("simulation engine stopped", "tick", e.Snapshot().Tick)
	}()

	for {
		wait := 100 * time.Millisecond
		if !e.Paused() {
			start := time.Now()
			e.Step()
			target := time.Duration(float64(e.Interval) / e.Speed())
			wait = max(target-time.Since(start), 0)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// Step advances exactly one tick regardless of the pause state. A tick that
// leaves nothing alive pauses the engine.
func (e *Engine) Step() Snapshot {
	e.mu.Lock()
	snap := e.sim.Advance()
	if snap.Exhausted && !e.paused {
		e.paused = true
		slog.Info("population exhausted, pausing", "tick", snap.Tick)
	}
	if e.ReportEvery > 0 && snap.Tick%e.ReportEvery == 0 {
		report(snap)
	}
	hooks := slices.Clone(e.hooks)
	e.mu.Unlock()

	for _, fn := range hooks {
		fn(snap)
	}
	return snap
}

// Do runs fn with exclusive access to the simulation.
func (e *Engine) Do(fn func(*Simulation) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.sim)
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sim.Snapshot()
}

// Speed returns the speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed sets the speed multiplier. 1.0 ticks once per Interval.
func (e *Engine) SetSpeed(speed float64) error {
	if speed <= 0 || speed > 100 {
		return fmt.Errorf("%w: speed %v", ErrInvalidArgument, speed)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = speed
	return nil
}

// Paused reports whether the timer is stopped.
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// SetPaused stops or resumes the timer.
func (e *Engine) SetPaused(paused bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.paused = paused
}

func report(snap Snapshot) {
	st := snap.Stats
	slog.Info("population report",
		"tick", humanize.Comma(int64(snap.Tick)),
		"alive", humanize.Comma(int64(st.NumCombatants)),
		"births", humanize.Comma(int64(st.Births)),
		"deaths", humanize.Comma(int64(st.Deaths)),
		"items", len(snap.Items),
		"avg_fitness", fmt.Sprintf("%.1f", st.AverageFitness),
	)
}
