package engine

import (
	"fmt"

	"github.com/talgya/arena/internal/combatants"
	"github.com/talgya/arena/internal/world"
)

// resolvePregnancies gives every carrier conceived on an earlier tick its
// chance to give birth. Mating always resolves here: both parents return to
// Alive whether or not a child was placed.
func (s *Simulation) resolvePregnancies(next *Registry) {
	for _, c := range next.Live() {
		if c.Spawn == nil || c.Spawn.ConceivedAt >= s.Tick {
			continue
		}
		s.birthSpawn(next, c)
	}

	// A partner whose carrier died or was captured is left waiting; free it.
	for _, c := range next.Live() {
		if c.State != combatants.StateMating || c.Spawn != nil {
			continue
		}
		if carrier := next.Find(c.MateID); carrier != nil && carrier.Live() && carrier.Spawn != nil {
			continue
		}
		c.State = combatants.StateAlive
		c.MateID = 0
	}
}

func (s *Simulation) birthSpawn(next *Registry, parent *combatants.Combatant) {
	spawn := parent.Spawn
	mate := next.Find(spawn.MateID)

	parent.Spawn = nil
	release(parent)
	if mate != nil && mate.Live() && mate.MateID == parent.ID {
		release(mate)
	}

	sur := Resolve(s.Grid, next, parent.Position, parent.Species)
	var enemies, kin int
	var empty []world.Pos
	for _, cell := range sur.Neighbors() {
		switch occ := cell.Occupant; {
		case occ == nil:
			if cell.Tile != world.TileVoid {
				empty = append(empty, cell.Pos)
			}
		case occ.Species != parent.Species:
			enemies++
		default:
			kin++
		}
	}

	if enemies > s.Rules.AbortEnemies {
		s.emit("birth", fmt.Sprintf("%s lost a pregnancy to nearby enemies", parent.Name))
		return
	}
	if len(empty) == 0 {
		s.emit("birth", fmt.Sprintf("%s found no room to give birth", parent.Name))
		return
	}

	child := spawn.Child
	if kin >= s.Rules.OvercrowdNeighbors {
		child.Species = s.spawner.RandomSpecies()
	}
	p := empty[s.rng.Intn(len(empty))]
	if err := next.Place(child, p); err != nil {
		s.invariant(err)
		return
	}
	s.births++
	s.emit("birth", fmt.Sprintf("%s was born to %s", child.Name, parent.Name))
}

func release(c *combatants.Combatant) {
	c.State = combatants.StateAlive
	c.MateID = 0
	c.Children++
}
