package engine

import (
	"fmt"

	"github.com/talgya/arena/internal/combatants"
	"github.com/talgya/arena/internal/items"
	"github.com/talgya/arena/internal/world"
)

// processItems taps every live item of cur in position order. Surviving
// items are re-inserted into next; their effects act on the post-movement
// combatants of next.
func (s *Simulation) processItems(cur, next *Registry) {
	tapped := make(map[*items.Item]bool)
	for _, it := range cur.AllItems() {
		tapped[it] = true
		if !it.Live() {
			continue // spent by an earlier blast this tick
		}
		s.tap(it, cur, next, tapped)
	}
}

func (s *Simulation) tap(it *items.Item, cur, next *Registry, tapped map[*items.Item]bool) {
	switch it.Kind {
	case items.KindBomb:
		if it.Tick() {
			s.explode(it, cur, next, tapped)
			return
		}
	case items.KindMedPack:
		if occ := next.Occupant(it.Position); occ != nil {
			occ.Fitness -= s.Rules.MinHealth
			it.Spend()
			s.emit("item", fmt.Sprintf("%s used a medpack", occ.Name))
			return
		}
		if it.Tick() {
			it.Spend()
			return
		}
	case items.KindCaptureDevice:
		if it.Tick() {
			s.releaseCaptives(it, next)
			return
		}
		s.capture(it, next)
	case items.KindTerrainSpider:
		s.crawl(it, next)
	}
	s.stack(next, it)
}

// stack puts it on its tile in reg. A capture device pushed off a full tile
// lets its captives go first.
func (s *Simulation) stack(reg *Registry, it *items.Item) {
	if old := reg.AddItem(it); old != nil && len(old.Captured) > 0 {
		s.releaseCaptives(old, reg)
	}
}

// explode kills every occupant of the 3x3 block around the bomb and spends
// the items standing there now: those already tapped into next and the
// untapped ones still on their tile. Captives of a device in the blast are
// released before the kills, so the blast decides their fate too.
func (s *Simulation) explode(it *items.Item, cur, next *Registry, tapped map[*items.Item]bool) {
	it.Spend()
	var blast []world.Pos
	for _, d := range viewDirs {
		if p, ok := s.Grid.Step(it.Position, d); ok {
			blast = append(blast, p)
		}
	}

	var caught []*items.Item
	for _, p := range blast {
		caught = append(caught, next.ClearItems(p)...)
		for _, other := range cur.ItemsAt(p) {
			if !tapped[other] && other.Live() {
				caught = append(caught, other)
			}
		}
	}
	for _, other := range caught {
		if len(other.Captured) > 0 {
			s.releaseCaptives(other, next)
		}
		other.Spend()
	}

	for _, p := range blast {
		if occ := next.Occupant(p); occ != nil && !occ.Immortal {
			s.kill(occ, "was caught in an explosion")
			it.Kills++
		}
	}
	s.emit("item", fmt.Sprintf("bomb %d exploded at %d, %d killed", it.ID, it.Position, it.Kills))
}

// capture takes neighboring occupants out of play. A device holds at most
// as many captives as it has in-grid neighbor cells.
func (s *Simulation) capture(it *items.Item, next *Registry) {
	sur := Resolve(s.Grid, next, it.Position, 0)
	cells := sur.Neighbors()
	for _, cell := range cells {
		if len(it.Captured) >= len(cells) {
			return
		}
		occ := cell.Occupant
		if occ == nil {
			continue
		}
		next.Remove(cell.Pos)
		occ.State = combatants.StateCaptured
		it.Captured = append(it.Captured, occ)
		s.emit("capture", fmt.Sprintf("%s was captured", occ.Name))
	}
}

// releaseCaptives returns captives to the cells they were taken from, aged
// by the time they were held. A captive finding its cell occupied fights
// for it.
func (s *Simulation) releaseCaptives(it *items.Item, next *Registry) {
	it.Spend()
	for _, c := range it.Captured {
		p := c.Position
		if !s.walkable(p) {
			p = it.Position
		}
		c.State = combatants.StateAlive
		if c.Spawn != nil {
			c.State = combatants.StateMating
		}
		c.Tick += uint64(it.Age)

		if occ := next.Occupant(p); occ != nil {
			winner, loser := combatants.Fight(c, occ)
			s.recordDeath(loser, "was slain by "+winner.Name)
			if winner != c {
				continue
			}
			next.Remove(p)
		}
		if err := next.Place(c, p); err != nil {
			s.invariant(err)
			continue
		}
		s.emit("release", fmt.Sprintf("%s was released", c.Name))
	}
	it.Captured = nil
}

// crawl paints the spider's tile and moves it one random step. Spiders
// ignore occupants and walk over void; painting void under a combatant
// kills it.
func (s *Simulation) crawl(it *items.Item, next *Registry) {
	s.Grid.Set(it.Position, it.Terrain)
	if it.Terrain == world.TileVoid {
		if occ := next.Occupant(it.Position); occ != nil {
			s.kill(occ, "fell into the void")
		}
	}
	sur := Resolve(s.Grid, next, it.Position, 0)
	if p := sur.RandomLegalMove(s.rng, MoveOpts{AllowVoid: true, AllowOccupied: true}); p != world.NoPos {
		it.Position = p
	}
	it.Tick()
}
