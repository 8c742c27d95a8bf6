// Movement decisions. A combatant looks at its 3x3 surroundings and picks
// one target tile plus what it intends to do there.
package engine

import (
	"github.com/talgya/arena/internal/combatants"
	"github.com/talgya/arena/internal/world"
)

// Intent is what a combatant means to do on its target tile.
type Intent uint8

const (
	IntentStay Intent = iota
	IntentMove
	IntentAttack
	IntentMate
)

func (i Intent) String() string {
	switch i {
	case IntentMove:
		return "move"
	case IntentAttack:
		return "attack"
	case IntentMate:
		return "mate"
	}
	return "stay"
}

// Decision is the output of a movement policy.
type Decision struct {
	Intent Intent
	Target world.Pos
}

func stay(c *combatants.Combatant) Decision {
	return Decision{Intent: IntentStay, Target: c.Position}
}

// buckets partitions the orthogonal neighbors of a combatant.
type buckets struct {
	enemies []*Cell // different species
	mates   []*Cell // same species, eligible to mate
	allies  []*Cell // same species, not eligible to mate
	empties []*Cell // unoccupied, passable
}

// Decide picks the next move for c. Mating combatants are frozen.
func (s *Simulation) Decide(c *combatants.Combatant, sur *Surroundings) Decision {
	if c.State == combatants.StateMating || sur.Center() == nil {
		return stay(c)
	}
	switch c.Policy() {
	case combatants.PolicyPlayer:
		return s.decidePlayer(c, sur)
	}
	if s.Logic == LogicRandom {
		return s.randomMove(c, sur)
	}
	if c.Policy() == combatants.PolicySeeker {
		return s.decideSeeker(c, sur)
	}
	return s.decideTree(c, sur)
}

func (s *Simulation) bucket(c *combatants.Combatant, sur *Surroundings) buckets {
	var b buckets
	rules := s.Rules.mating()
	for _, cell := range sur.Orthogonal() {
		if cell.Tile == world.TileVoid {
			continue
		}
		occ := cell.Occupant
		switch {
		case occ == nil:
			b.empties = append(b.empties, cell)
		case occ.Species != c.Species:
			b.enemies = append(b.enemies, cell)
		case rules.CanMate(c, occ) && !world.IsHarmful(cell.Tile, occ.Species):
			b.mates = append(b.mates, cell)
		default:
			b.allies = append(b.allies, cell)
		}
	}
	return b
}

// decideTree is the rule-based decision tree: fight a stronger enemy, else
// court a mate, else take the most promising empty tile, else wander.
func (s *Simulation) decideTree(c *combatants.Combatant, sur *Surroundings) Decision {
	b := s.bucket(c, sur)
	rules := s.Rules.mating()
	adult := !rules.Youngling(c)

	var target *Cell
	if adult {
		target = strongest(b.enemies, func(o *combatants.Combatant) bool {
			return o.Strength > c.Strength && !rules.Youngling(o)
		})
		if target == nil && c.DecisionType == combatants.DecisionFighter {
			target = strongest(append(append([]*Cell(nil), b.allies...), b.mates...), func(o *combatants.Combatant) bool {
				return o.State == combatants.StateAlive && !rules.Youngling(o)
			})
		}
	}
	mate := strongest(b.mates, nil)
	open := bestOpen(b.empties)

	if c.DecisionType == combatants.DecisionWanderer {
		if target != nil && c.HasVisited(target.Pos) {
			target = nil
		}
		if mate != nil && c.HasVisited(mate.Pos) {
			mate = nil
		}
		if open != nil && c.HasVisited(open.Pos) {
			open = nil
		}
	}

	switch {
	case target != nil:
		return Decision{Intent: IntentAttack, Target: target.Pos}
	case mate != nil && (c.DecisionType == combatants.DecisionLover || s.rng.Float64() < s.Rules.MateChance):
		return Decision{Intent: IntentMate, Target: mate.Pos}
	case open != nil:
		return Decision{Intent: IntentMove, Target: open.Pos}
	}
	return s.randomMove(c, sur)
}

// strongest returns the cell whose occupant has the highest strength tier
// among those accepted by keep. Ties keep the first cell in N, E, S, W order.
func strongest(cells []*Cell, keep func(*combatants.Combatant) bool) *Cell {
	var best *Cell
	for _, cell := range cells {
		if keep != nil && !keep(cell.Occupant) {
			continue
		}
		if best == nil || cell.Occupant.Strength > best.Occupant.Strength {
			best = cell
		}
	}
	return best
}

// bestOpen returns the empty cell with the highest cached potential.
func bestOpen(cells []*Cell) *Cell {
	var best *Cell
	for _, cell := range cells {
		if best == nil || cell.Potential > best.Potential {
			best = cell
		}
	}
	return best
}

func (s *Simulation) randomMove(c *combatants.Combatant, sur *Surroundings) Decision {
	p := sur.RandomLegalMove(s.rng, MoveOpts{})
	if p == world.NoPos || p == c.Position {
		return stay(c)
	}
	return Decision{Intent: IntentMove, Target: p}
}

// decideSeeker steps greedily toward a persistent waypoint, picking a new
// random waypoint once the current one is reached or unusable.
func (s *Simulation) decideSeeker(c *combatants.Combatant, sur *Surroundings) Decision {
	if len(c.Waypoints) == 0 || c.Waypoints[0] == c.Position || !s.walkable(c.Waypoints[0]) {
		wp := s.randomWalkable()
		if wp == world.NoPos {
			return stay(c)
		}
		c.Waypoints = []world.Pos{wp}
	}
	goal := c.Waypoints[0]

	cx, cy := s.Grid.XY(c.Position)
	gx, gy := s.Grid.XY(goal)
	dx, dy := gx-cx, gy-cy

	var horizontal, vertical world.Dir
	switch {
	case dx > 0:
		horizontal = world.DirE
	case dx < 0:
		horizontal = world.DirW
	}
	switch {
	case dy > 0:
		vertical = world.DirS
	case dy < 0:
		vertical = world.DirN
	}
	order := []world.Dir{horizontal, vertical}
	if abs(dy) > abs(dx) {
		order = []world.Dir{vertical, horizontal}
	}

	rules := s.Rules.mating()
	for _, d := range order {
		if d == world.DirCenter {
			continue
		}
		cell := sur.Cell(d)
		if cell == nil || cell.Tile == world.TileVoid {
			continue
		}
		if occ := cell.Occupant; occ != nil {
			if occ.Species != c.Species && !rules.Youngling(c) && !rules.Youngling(occ) {
				return Decision{Intent: IntentAttack, Target: cell.Pos}
			}
			continue
		}
		return Decision{Intent: IntentMove, Target: cell.Pos}
	}

	// Blocked on both axes: drop the waypoint so a fresh one is drawn next tick.
	c.Waypoints = nil
	return stay(c)
}

// decidePlayer consumes one queued waypoint. Waypoints that are not a
// single orthogonal step away are discarded.
func (s *Simulation) decidePlayer(c *combatants.Combatant, sur *Surroundings) Decision {
	if len(c.Waypoints) == 0 {
		return stay(c)
	}
	wp := c.Waypoints[0]
	c.Waypoints = c.Waypoints[1:]

	if s.Grid.Manhattan(c.Position, wp) != 1 {
		return stay(c)
	}
	cell := sur.Find(wp)
	if cell == nil || cell.Tile == world.TileVoid {
		return stay(c)
	}
	if occ := cell.Occupant; occ != nil {
		if occ.Species != c.Species {
			return Decision{Intent: IntentAttack, Target: wp}
		}
		return stay(c)
	}
	return Decision{Intent: IntentMove, Target: wp}
}

func (s *Simulation) walkable(p world.Pos) bool {
	return s.Grid.InBounds(p) && s.Grid.Type(p) != world.TileVoid
}

// randomWalkable draws a random non-void tile, or NoPos if none is found.
func (s *Simulation) randomWalkable() world.Pos {
	n := s.Grid.Len()
	if n == 0 {
		return world.NoPos
	}
	for attempt := 0; attempt < 32; attempt++ {
		p := world.Pos(s.rng.Intn(n))
		if s.walkable(p) {
			return p
		}
	}
	return world.NoPos
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
