package engine

import (
	"testing"

	"github.com/talgya/arena/internal/combatants"
	"github.com/talgya/arena/internal/world"
)

func strictRules() Rules {
	r := DefaultRules()
	r.StrictInvariants = true
	return r
}

// newTestSim builds an empty simulation over the given terrain. A nil
// types slice means all grass.
func newTestSim(t *testing.T, w, h int, types []world.TileType) *Simulation {
	t.Helper()
	if types == nil {
		types = world.Fill(world.TileGrass).Generate(w, h, 0)
	}
	return NewEmpty(world.NewGrid(w, h, types), Options{Seed: 1, Rules: strictRules()})
}

type blueprint struct {
	species  world.Species
	decision combatants.DecisionType
	fitness  int
	age      uint64
}

func adult(species world.Species, decision combatants.DecisionType) blueprint {
	return blueprint{species: species, decision: decision, age: 10}
}

func place(t *testing.T, s *Simulation, p world.Pos, sp blueprint) *combatants.Combatant {
	t.Helper()
	c := s.Spawner().Spawn(p, sp.species)
	c.DecisionType = sp.decision
	c.Fitness = sp.fitness
	c.Tick = sp.age
	if err := s.AddCombatant(c); err != nil {
		t.Fatalf("place at %d: %v", p, err)
	}
	return c
}

// occupants maps every live position of the snapshot to its combatant.
func occupants(t *testing.T, snap Snapshot) map[world.Pos]*combatants.Combatant {
	t.Helper()
	out := make(map[world.Pos]*combatants.Combatant, len(snap.Combatants))
	for _, c := range snap.Combatants {
		if prev, dup := out[c.Position]; dup {
			t.Fatalf("tick %d: combatants %d and %d share position %d", snap.Tick, prev.ID, c.ID, c.Position)
		}
		out[c.Position] = c
	}
	return out
}

func tiles(s string) []world.TileType {
	out := make([]world.TileType, 0, len(s))
	for _, r := range s {
		switch r {
		case '.':
			out = append(out, world.TileVoid)
		case '~':
			out = append(out, world.TileWater)
		case '^':
			out = append(out, world.TileFire)
		case '#':
			out = append(out, world.TileRock)
		case ':':
			out = append(out, world.TileSand)
		case 'g':
			out = append(out, world.TileGrass)
		}
	}
	return out
}
