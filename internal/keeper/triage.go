package keeper

import (
	"math"

	"github.com/talgya/arena/internal/world"
)

// Level grades arena health, worst last.
type Level uint8

const (
	LevelHealthy Level = iota
	LevelWatch
	LevelWarning
	LevelCritical
)

var levelNames = [...]string{"HEALTHY", "WATCH", "WARNING", "CRITICAL"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// Thresholds tune the triage.
type Thresholds struct {
	MinDensity    float64 // live combatants per walkable tile
	MaxDensity    float64
	WatchRatio    float64 // deaths per birth over the history window
	CriticalRatio float64
}

// DefaultThresholds suit the stock rules on a noise map.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinDensity:    0.02,
		MaxDensity:    0.45,
		WatchRatio:    1.5,
		CriticalRatio: 4,
	}
}

// Health holds derived diagnostic signals. Triage is deterministic.
type Health struct {
	Population      int
	Walkable        int
	Density         float64
	DeathBirthRatio float64 // 1 when nothing happened, +Inf when births stalled
	Level           Level
	Reason          string
}

// Triage computes the arena's health from an observation.
func Triage(obs *Observation, th Thresholds) *Health {
	snap := obs.Snapshot
	h := &Health{Population: len(snap.Combatants)}
	for _, t := range snap.Tiles {
		if t != world.TileVoid {
			h.Walkable++
		}
	}
	if h.Walkable > 0 {
		h.Density = float64(h.Population) / float64(h.Walkable)
	}
	h.DeathBirthRatio = deathBirthRatio(obs.History)

	switch {
	case snap.Exhausted || h.Population == 0:
		h.Level, h.Reason = LevelCritical, "population exhausted"
	case h.Density < th.MinDensity:
		h.Level, h.Reason = LevelWarning, "population below minimum density"
	case h.DeathBirthRatio > th.CriticalRatio:
		h.Level, h.Reason = LevelWarning, "deaths far outpace births"
	case h.Density > th.MaxDensity:
		h.Level, h.Reason = LevelWatch, "arena overcrowded"
	case h.DeathBirthRatio > th.WatchRatio:
		h.Level, h.Reason = LevelWatch, "deaths outpace births"
	default:
		h.Level, h.Reason = LevelHealthy, "stable"
	}
	return h
}

// deathBirthRatio compares the newest history row with the oldest one of
// the same run. Cumulative counters that go backwards mark a reset; rows
// before it are ignored.
func deathBirthRatio(history []HistoryRow) float64 {
	if len(history) < 2 {
		return 1
	}
	start := 0
	for i := 1; i < len(history); i++ {
		if history[i].Births < history[i-1].Births || history[i].Deaths < history[i-1].Deaths {
			start = i
		}
	}
	oldest, newest := history[start], history[len(history)-1]
	births := newest.Births - oldest.Births
	deaths := newest.Deaths - oldest.Deaths
	switch {
	case births > 0:
		return float64(deaths) / float64(births)
	case deaths > 0:
		return math.Inf(1)
	}
	return 1
}
