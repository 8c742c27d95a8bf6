package engine

import (
	"fmt"

	"github.com/talgya/arena/internal/combatants"
	"github.com/talgya/arena/internal/world"
)

// turn is the movement phase of one tick. Decisions read cur, which keeps
// every combatant indexed at its start-of-tick position; placements are
// written to next. A combatant object is shared by both registries, so a
// fight lost in next is also visible as death in cur.
type turn struct {
	sim  *Simulation
	cur  *Registry
	next *Registry
	done map[combatants.ID]bool
}

func newTurn(s *Simulation, cur, next *Registry) *turn {
	return &turn{sim: s, cur: cur, next: next, done: make(map[combatants.ID]bool)}
}

// move decides and resolves the movement of c.
func (t *turn) move(c *combatants.Combatant) {
	start := c.Position
	sur := Resolve(t.sim.Grid, t.cur, start, c.Species)
	d := t.sim.Decide(c, sur)
	t.done[c.ID] = true

	switch d.Intent {
	case IntentMove, IntentAttack:
		t.enter(c, d.Target, d.Intent == IntentAttack)
	case IntentMate:
		t.mate(c, d.Target)
	default:
		t.settle(c, start)
	}
}

// contender returns whoever holds p at this point of the turn: a combatant
// already placed there in next, or an unprocessed live combatant that started
// the tick there.
func (t *turn) contender(p world.Pos) *combatants.Combatant {
	if occ := t.next.Occupant(p); occ != nil {
		return occ
	}
	if occ := t.cur.Occupant(p); occ != nil && !t.done[occ.ID] {
		return occ
	}
	return nil
}

// enter moves c onto p. An enemy holding p is fought; an ally blocks the
// move unless c deliberately attacks it.
func (t *turn) enter(c *combatants.Combatant, p world.Pos, attack bool) {
	if !t.sim.walkable(p) {
		t.settle(c, c.Position)
		return
	}
	occ := t.contender(p)
	if occ == nil || occ == c {
		t.settle(c, p)
		return
	}
	if occ.Species == c.Species && (!attack || occ.State == combatants.StateMating) {
		t.settle(c, c.Position)
		return
	}

	winner, loser := combatants.Fight(c, occ)
	t.sim.recordDeath(loser, "was slain by "+winner.Name)
	if winner == c {
		t.settle(c, p)
	}
}

// mate pairs c with the combatant on p. The target must still be at p: either
// not yet processed, or processed and settled there.
func (t *turn) mate(c *combatants.Combatant, p world.Pos) {
	t.settle(c, c.Position)

	partner := t.contender(p)
	if partner == nil || partner.Position != p || !t.sim.Rules.mating().CanMate(c, partner) {
		return
	}

	carrier, other := c, partner
	if c.Gender != partner.Gender && partner.Gender == combatants.GenderFemale {
		carrier, other = partner, c
	}
	carrier.Spawn = t.sim.spawner.Conceive(carrier, other.ID, t.sim.Tick, t.sim.Rules.InheritDecision)
	c.State, partner.State = combatants.StateMating, combatants.StateMating
	c.MateID, partner.MateID = partner.ID, c.ID

	t.sim.emit("mating", fmt.Sprintf("%s and %s are expecting", c.Name, partner.Name))
}

// settle places c at p in next. p is normally free; should a live occupant
// already hold it the conflict is reported and resolved by a fight so that
// neither combatant is silently dropped.
func (t *turn) settle(c *combatants.Combatant, p world.Pos) {
	if !c.Live() {
		return
	}
	if err := t.next.Place(c, p); err != nil {
		t.sim.invariant(err)
		occ := t.next.Occupant(p)
		winner, loser := combatants.Fight(c, occ)
		t.sim.recordDeath(loser, "was slain by "+winner.Name)
		if winner == c {
			t.next.Combatants[p] = c
			c.Position = p
		}
	}
}
