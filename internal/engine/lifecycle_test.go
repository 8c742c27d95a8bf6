package engine

import (
	"testing"

	"github.com/talgya/arena/internal/combatants"
	"github.com/talgya/arena/internal/world"
)

// pregnant places a mating rabbit at p that carries a rabbit child.
func pregnant(t *testing.T, s *Simulation, p world.Pos) (*combatants.Combatant, *combatants.Combatant) {
	t.Helper()
	parent := place(t, s, p, adult(world.SpeciesRabbit, combatants.DecisionNeutral))
	child := s.Spawner().Spawn(world.NoPos, world.SpeciesRabbit)
	parent.State = combatants.StateMating
	parent.Spawn = &combatants.Spawn{Child: child}
	return parent, child
}

func TestBirthAbortsAmongEnemies(t *testing.T) {
	sim := newTestSim(t, 5, 5, nil)
	parent, child := pregnant(t, sim, 12)
	place(t, sim, 7, adult(world.SpeciesFox, combatants.DecisionNeutral))
	place(t, sim, 17, adult(world.SpeciesFox, combatants.DecisionNeutral))

	sim.birthSpawn(sim.Registry(), parent)

	if sim.Registry().Find(child.ID) != nil {
		t.Fatal("child was born next to two enemies")
	}
	if sim.births != 0 {
		t.Errorf("births = %d", sim.births)
	}
	if parent.State != combatants.StateAlive || parent.Spawn != nil {
		t.Errorf("parent not released: state %s spawn %v", parent.State, parent.Spawn)
	}
}

func TestBirthToleratesOneEnemy(t *testing.T) {
	sim := newTestSim(t, 5, 5, nil)
	parent, child := pregnant(t, sim, 12)
	place(t, sim, 7, adult(world.SpeciesFox, combatants.DecisionNeutral))

	sim.birthSpawn(sim.Registry(), parent)

	born := sim.Registry().Find(child.ID)
	if born == nil {
		t.Fatal("child was not born")
	}
	if born.Species != world.SpeciesRabbit {
		t.Errorf("child species = %s without overcrowding", born.Species)
	}
	if sim.Grid.Manhattan(born.Position, 12) > 2 || born.Position == 7 {
		t.Errorf("child placed at %d", born.Position)
	}
}

func TestBirthNeedsRoom(t *testing.T) {
	sim := newTestSim(t, 3, 3, tiles(`
		...
		.g.
		...`))
	parent, child := pregnant(t, sim, 4)

	sim.birthSpawn(sim.Registry(), parent)

	if sim.Registry().Find(child.ID) != nil {
		t.Fatal("child was born onto void")
	}
}

func TestOvercrowdedBirthDriftsSpecies(t *testing.T) {
	drifted := false
	for seed := int64(1); seed <= 20 && !drifted; seed++ {
		grid := world.NewGrid(5, 5, world.Fill(world.TileGrass).Generate(5, 5, 0))
		sim := NewEmpty(grid, Options{Seed: seed, Rules: strictRules()})
		parent, child := pregnant(t, sim, 12)
		for _, p := range []world.Pos{6, 7, 8, 11} {
			place(t, sim, p, adult(world.SpeciesRabbit, combatants.DecisionNeutral))
		}

		sim.birthSpawn(sim.Registry(), parent)

		born := sim.Registry().Find(child.ID)
		if born == nil {
			t.Fatalf("seed %d: child was not born", seed)
		}
		drifted = born.Species != world.SpeciesRabbit
	}
	if !drifted {
		t.Error("children of an overcrowded rabbit colony never changed species")
	}
}
