package engine

import (
	"fmt"

	"github.com/talgya/arena/internal/combatants"
	"github.com/talgya/arena/internal/items"
	"github.com/talgya/arena/internal/world"
)

// Snapshot is the read-only view handed to the UI once per tick. It shares
// no memory with the live simulation.
type Snapshot struct {
	Tick       uint64                  `json:"tick"`
	Width      int                     `json:"width"`
	Height     int                     `json:"height"`
	Map        string                  `json:"map"`
	Logic      string                  `json:"logic"`
	Seed       int64                   `json:"seed"`
	Tiles      []world.TileType        `json:"tiles"`
	Combatants []*combatants.Combatant `json:"combatants"`
	Items      []*items.Item           `json:"items"`
	Stats      combatants.Stats        `json:"stats"`
	Selected   world.Pos               `json:"selected"`
	Exhausted  bool                    `json:"exhausted"`
	Events     []Event                 `json:"events,omitempty"` // events of this tick
	NextID     combatants.ID           `json:"next_id"`
	NextItemID items.ID                `json:"next_item_id"`
}

// Snapshot deep-copies the current state.
func (s *Simulation) Snapshot() Snapshot {
	snap := Snapshot{
		Tick:       s.Tick,
		Width:      s.Grid.Width,
		Height:     s.Grid.Height,
		Map:        s.MapName,
		Logic:      s.Logic.String(),
		Seed:       s.Seed,
		Tiles:      s.Grid.Types(),
		Stats:      s.Stats,
		Selected:   s.Selected,
		Exhausted:  s.Exhausted(),
		NextID:     s.spawner.NextID(),
		NextItemID: s.nextItemID,
	}
	for _, c := range s.reg.Live() {
		snap.Combatants = append(snap.Combatants, c.Clone())
	}
	for _, it := range s.reg.AllItems() {
		if it.Live() {
			snap.Items = append(snap.Items, it.Clone())
		}
	}
	for i := len(s.Events) - 1; i >= 0 && s.Events[i].Tick == s.Tick; i-- {
		snap.Events = append([]Event{s.Events[i]}, snap.Events...)
	}
	return snap
}

// Restore replaces the simulation state with a saved snapshot. The random
// source is reseeded from the snapshot's seed and tick, so a restored run is
// reproducible but does not continue the original random sequence.
func (s *Simulation) Restore(snap Snapshot) error {
	if snap.Width <= 0 || snap.Height <= 0 || len(snap.Tiles) != snap.Width*snap.Height {
		return fmt.Errorf("%w: snapshot grid %dx%d with %d tiles", ErrInvalidArgument, snap.Width, snap.Height, len(snap.Tiles))
	}
	logic, err := ParseMovementLogic(snap.Logic)
	if err != nil {
		return err
	}

	grid := world.NewGrid(snap.Width, snap.Height, snap.Tiles)
	reg := NewRegistry(s.Rules.MaxItemsPerTile)
	for _, c := range snap.Combatants {
		if !grid.InBounds(c.Position) {
			return fmt.Errorf("%w: combatant %d at %d", ErrInvalidPlacement, c.ID, c.Position)
		}
		if err := reg.Place(c.Clone(), c.Position); err != nil {
			return fmt.Errorf("restore combatant %d: %w", c.ID, err)
		}
	}
	for _, it := range snap.Items {
		if !grid.InBounds(it.Position) {
			return fmt.Errorf("%w: item %d at %d", ErrInvalidPlacement, it.ID, it.Position)
		}
		reg.AddItem(it.Clone())
	}

	if gen, err := lookupGenerator(snap.Map); err == nil {
		s.generator = gen
	}
	s.Grid = grid
	s.reg = reg
	s.Tick = snap.Tick
	s.Seed = snap.Seed
	s.MapName = snap.Map
	s.Logic = logic
	s.Selected = snap.Selected
	s.births = snap.Stats.Births
	s.deaths = snap.Stats.Deaths
	s.nextItemID = snap.NextItemID
	s.rng.Seed(snap.Seed ^ int64(snap.Tick))
	s.spawner.SetNextID(snap.NextID)
	s.Events = nil
	s.refreshStats(s.reg)
	return nil
}
