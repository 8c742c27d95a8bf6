package keeper

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/talgya/arena/internal/world"
)

// Action is the kind of intervention the keeper can take.
type Action string

const (
	ActionNone  Action = "none"
	ActionReset Action = "reset"
	ActionSpawn Action = "spawn"
	ActionBomb  Action = "bomb"
)

// Cell is a grid coordinate as the admin endpoints expect it.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Decision is the planner's recommendation for one cycle.
type Decision struct {
	Action    Action `json:"action"`
	Cells     []Cell `json:"cells,omitempty"`
	Rationale string `json:"rationale"`
}

// Planner turns a health report into at most one intervention per cycle.
type Planner struct {
	Thresholds Thresholds
	MaxSpawns  int // combatants added per cycle
	Cooldown   int // quiet cycles required between interventions; resets ignore it

	rng *rand.Rand
}

// NewPlanner creates a planner with default limits.
func NewPlanner(seed int64) *Planner {
	return &Planner{
		Thresholds: DefaultThresholds(),
		MaxSpawns:  8,
		Cooldown:   2,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Decide picks this cycle's intervention.
func (p *Planner) Decide(obs *Observation, h *Health, mem *Memory) Decision {
	if h.Level == LevelCritical {
		return Decision{Action: ActionReset, Rationale: h.Reason}
	}
	if h.Level == LevelHealthy {
		return Decision{Action: ActionNone, Rationale: h.Reason}
	}
	if q := mem.QuietCycles(); q < p.Cooldown {
		return Decision{Action: ActionNone, Rationale: fmt.Sprintf("%s, cooling down (%d/%d)", h.Reason, q, p.Cooldown)}
	}

	switch {
	case h.Level == LevelWarning:
		want := int(math.Ceil(p.Thresholds.MinDensity*float64(h.Walkable))) - h.Population
		n := min(max(want, p.MaxSpawns/2, 1), p.MaxSpawns)
		cells := p.emptyCells(obs, n)
		if len(cells) == 0 {
			return Decision{Action: ActionNone, Rationale: h.Reason + ", no free tile"}
		}
		return Decision{Action: ActionSpawn, Cells: cells, Rationale: h.Reason}
	case h.Density > p.Thresholds.MaxDensity:
		if c, ok := crowdedCell(obs); ok {
			return Decision{Action: ActionBomb, Cells: []Cell{c}, Rationale: h.Reason}
		}
	}
	return Decision{Action: ActionNone, Rationale: h.Reason}
}

// emptyCells draws up to n distinct walkable, unoccupied cells.
func (p *Planner) emptyCells(obs *Observation, n int) []Cell {
	snap := obs.Snapshot
	occupied := make(map[world.Pos]bool, len(snap.Combatants))
	for _, c := range snap.Combatants {
		occupied[c.Position] = true
	}

	var out []Cell
	for _, i := range p.rng.Perm(len(snap.Tiles)) {
		if len(out) == n {
			break
		}
		if snap.Tiles[i] == world.TileVoid || occupied[world.Pos(i)] {
			continue
		}
		out = append(out, Cell{X: i % snap.Width, Y: i / snap.Width})
	}
	return out
}

// crowdedCell returns the combatant cell with the most live neighbors.
func crowdedCell(obs *Observation) (Cell, bool) {
	snap := obs.Snapshot
	if snap.Width <= 0 || len(snap.Combatants) == 0 {
		return Cell{}, false
	}
	occupied := make(map[Cell]bool, len(snap.Combatants))
	for _, c := range snap.Combatants {
		occupied[Cell{X: int(c.Position) % snap.Width, Y: int(c.Position) / snap.Width}] = true
	}

	best, bestN := Cell{}, -1
	for _, c := range snap.Combatants {
		at := Cell{X: int(c.Position) % snap.Width, Y: int(c.Position) / snap.Width}
		n := 0
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if (dx != 0 || dy != 0) && occupied[Cell{X: at.X + dx, Y: at.Y + dy}] {
					n++
				}
			}
		}
		if n > bestN {
			best, bestN = at, n
		}
	}
	return best, true
}
