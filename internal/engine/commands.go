// Commands issued by the UI between ticks. Every command validates its
// arguments first and leaves the state untouched when it fails.
package engine

import (
	"fmt"

	"github.com/talgya/arena/internal/combatants"
	"github.com/talgya/arena/internal/items"
	"github.com/talgya/arena/internal/world"
)

// Reset regenerates the terrain from the current map and seed and spawns a
// fresh initial population.
func (s *Simulation) Reset() {
	s.rng.Seed(s.Seed)
	s.spawner.SetNextID(1)
	s.nextItemID = 1
	s.Tick = 0
	s.births, s.deaths = 0, 0
	s.Events = nil
	s.Selected = world.NoPos

	w, h := s.Grid.Width, s.Grid.Height
	s.Grid = world.NewGrid(w, h, s.generator.Generate(w, h, s.Seed))
	s.reg = s.reg.Empty()

	placed := 0
	for attempt := 0; placed < s.InitialPopulation && attempt < s.InitialPopulation*20; attempt++ {
		p := s.randomWalkable()
		if p == world.NoPos || s.reg.Occupant(p) != nil {
			continue
		}
		c := s.spawner.SpawnRandom(p)
		c.Tick = s.Rules.YounglingAge + 1
		if err := s.reg.Place(c, p); err != nil {
			s.invariant(err)
			continue
		}
		placed++
	}
	s.refreshStats(s.reg)
	s.emit("reset", fmt.Sprintf("%s map %dx%d with %d combatants", s.MapName, w, h, placed))
}

// Resize regenerates the terrain at the new size. Combatants and items keep
// their coordinates. Items outside the new bounds are lost; combatants
// outside them or left standing on void die. A cropped capture device
// releases its captives first.
func (s *Simulation) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: grid %dx%d", ErrInvalidArgument, width, height)
	}
	old := s.Grid
	grid := world.NewGrid(width, height, s.generator.Generate(width, height, s.Seed))
	remap := func(p world.Pos) world.Pos {
		if !old.InBounds(p) {
			return world.NoPos
		}
		x, y := old.XY(p)
		np, ok := grid.Index(x, y)
		if !ok {
			return world.NoPos
		}
		return np
	}

	reg := s.reg.Empty()
	settle := func(c *combatants.Combatant, np world.Pos) bool {
		switch {
		case np == world.NoPos:
			s.kill(c, "fell off the edge of the world")
		case grid.Type(np) == world.TileVoid:
			s.kill(c, "fell into the void")
		case reg.Occupant(np) != nil:
			s.kill(c, "had nowhere to stand")
		default:
			c.Visited = nil
			c.Waypoints = nil
			if err := reg.Place(c, np); err != nil {
				s.invariant(err)
				return false
			}
			return true
		}
		return false
	}
	for _, c := range s.reg.Live() {
		settle(c, remap(c.Position))
	}
	for _, it := range s.reg.AllItems() {
		if !it.Live() {
			continue
		}
		np := remap(it.Position)
		if np == world.NoPos {
			// The device is cropped away; its captives come back where they
			// were taken, if that cell survived.
			for _, c := range it.Captured {
				c.State = combatants.StateAlive
				if c.Spawn != nil {
					c.State = combatants.StateMating
				}
				if settle(c, remap(c.Position)) {
					s.emit("release", fmt.Sprintf("%s was released", c.Name))
				}
			}
			it.Captured = nil
			continue
		}
		it.Position = np
		for _, c := range it.Captured {
			c.Position = remap(c.Position)
		}
		reg.AddItem(it)
	}

	s.Grid = grid
	s.reg = reg
	s.Selected = remap(s.Selected)
	s.refreshStats(s.reg)
	s.emit("resize", fmt.Sprintf("grid resized to %dx%d", width, height))
	return nil
}

// SetInitialPopulation changes the population size and restarts the run.
func (s *Simulation) SetInitialPopulation(n int) error {
	if n < 0 || n > s.Grid.Len() {
		return fmt.Errorf("%w: population %d for %d tiles", ErrInvalidArgument, n, s.Grid.Len())
	}
	s.InitialPopulation = n
	s.Reset()
	return nil
}

// SetMap switches the terrain generator and restarts the run.
func (s *Simulation) SetMap(name string) error {
	gen, err := lookupGenerator(name)
	if err != nil {
		return err
	}
	s.generator = gen
	s.MapName = name
	s.Reset()
	return nil
}

// SetMovementLogic switches the global movement policy.
func (s *Simulation) SetMovementLogic(l MovementLogic) {
	s.Logic = l
}

// PaintKind selects what PaintTile puts on a tile.
type PaintKind uint8

const (
	PaintTerrain PaintKind = iota
	PaintItem
	PaintSpecies
	PaintKill
)

var paintNames = [...]string{"terrain", "item", "species", "kill"}

func (k PaintKind) String() string {
	if int(k) < len(paintNames) {
		return paintNames[k]
	}
	return "unknown"
}

// ParsePaintKind maps a name back to its paint kind.
func ParsePaintKind(name string) (PaintKind, bool) {
	for i, n := range paintNames {
		if n == name {
			return PaintKind(i), true
		}
	}
	return 0, false
}

// Paint is the brush of a PaintTile command. Tile doubles as the terrain a
// painted spider lays down.
type Paint struct {
	Kind    PaintKind
	Tile    world.TileType
	Item    items.Kind
	Species world.Species
}

// PaintTile applies the brush to p.
func (s *Simulation) PaintTile(p world.Pos, brush Paint) error {
	if !s.Grid.InBounds(p) {
		return fmt.Errorf("%w: paint at %d", ErrInvalidPlacement, p)
	}
	switch brush.Kind {
	case PaintTerrain:
		if brush.Tile >= world.NumTileTypes {
			return fmt.Errorf("%w: tile type %d", ErrInvalidArgument, brush.Tile)
		}
		s.Grid.Set(p, brush.Tile)
		if brush.Tile == world.TileVoid {
			if occ := s.reg.Occupant(p); occ != nil {
				s.kill(occ, "fell into the void")
				s.reg, _ = s.reg.KillAndCompact()
			}
		}
		s.refreshStats(s.reg)
		return nil
	case PaintItem:
		it, err := s.AddItem(brush.Item, p)
		if err != nil {
			return err
		}
		if brush.Item == items.KindTerrainSpider {
			it.Terrain = brush.Tile
		}
		return nil
	case PaintSpecies:
		_, err := s.spawnAt(p, brush.Species)
		return err
	case PaintKill:
		return s.KillSelected(p)
	}
	return fmt.Errorf("%w: paint kind %d", ErrInvalidArgument, brush.Kind)
}

// KillSelected kills the combatant on p.
func (s *Simulation) KillSelected(p world.Pos) error {
	occ := s.reg.Occupant(p)
	if occ == nil {
		return fmt.Errorf("%w: nobody at %d", ErrInvalidPlacement, p)
	}
	s.kill(occ, "was struck down")
	s.reg, _ = s.reg.KillAndCompact()
	s.refreshStats(s.reg)
	return nil
}

// SpawnAt places a combatant of random species on p.
func (s *Simulation) SpawnAt(p world.Pos) (*combatants.Combatant, error) {
	if err := s.checkPlacement(p); err != nil {
		return nil, err
	}
	return s.spawnAt(p, s.spawner.RandomSpecies())
}

func (s *Simulation) spawnAt(p world.Pos, species world.Species) (*combatants.Combatant, error) {
	if err := s.checkPlacement(p); err != nil {
		return nil, err
	}
	c := s.spawner.Spawn(p, species)
	return c, s.AddCombatant(c)
}

// SpawnPlayer places the player avatar on p. A previous avatar is retired.
func (s *Simulation) SpawnPlayer(p world.Pos, species world.Species) (*combatants.Combatant, error) {
	if err := s.checkPlacement(p); err != nil {
		return nil, err
	}
	if old := s.Player(); old != nil {
		s.kill(old, "retired")
		s.reg, _ = s.reg.KillAndCompact()
	}
	c := s.spawner.SpawnPlayer(p, species)
	return c, s.AddCombatant(c)
}

// Player returns the live player avatar, if any.
func (s *Simulation) Player() *combatants.Combatant {
	for _, c := range s.reg.Live() {
		if c.IsPlayer {
			return c
		}
	}
	return nil
}

// MovePlayer queues one orthogonal step for the avatar, relative to the last
// step already queued.
func (s *Simulation) MovePlayer(d world.Dir) error {
	player := s.Player()
	if player == nil {
		return ErrNoPlayer
	}
	switch d {
	case world.DirN, world.DirE, world.DirS, world.DirW:
	default:
		return fmt.Errorf("%w: player direction %s", ErrInvalidArgument, d)
	}
	from := player.Position
	if n := len(player.Waypoints); n > 0 {
		from = player.Waypoints[n-1]
	}
	to, ok := s.Grid.Step(from, d)
	if !ok {
		return fmt.Errorf("%w: step %s from %d", ErrInvalidPlacement, d, from)
	}
	player.Waypoints = append(player.Waypoints, to)
	return nil
}

// Select marks p as the selected tile. NoPos clears the selection.
func (s *Simulation) Select(p world.Pos) error {
	if p != world.NoPos && !s.Grid.InBounds(p) {
		return fmt.Errorf("%w: select %d", ErrInvalidPlacement, p)
	}
	s.Selected = p
	return nil
}

// AddCombatant places a prepared combatant at its Position.
func (s *Simulation) AddCombatant(c *combatants.Combatant) error {
	if err := s.checkPlacement(c.Position); err != nil {
		return err
	}
	if err := s.reg.Place(c, c.Position); err != nil {
		return err
	}
	s.refreshStats(s.reg)
	return nil
}

// AddItem drops a new item of the given kind on p with its configured fuse.
func (s *Simulation) AddItem(kind items.Kind, p world.Pos) (*items.Item, error) {
	if !s.Grid.InBounds(p) {
		return nil, fmt.Errorf("%w: item at %d", ErrInvalidPlacement, p)
	}
	if kind > items.KindTerrainSpider {
		return nil, fmt.Errorf("%w: item kind %d", ErrInvalidArgument, kind)
	}
	it := s.newItem(kind, p)
	s.stack(s.reg, it)
	s.refreshStats(s.reg)
	return it, nil
}

func (s *Simulation) checkPlacement(p world.Pos) error {
	switch {
	case !s.Grid.InBounds(p):
		return fmt.Errorf("%w: %d is off the grid", ErrInvalidPlacement, p)
	case s.Grid.Type(p) == world.TileVoid:
		return fmt.Errorf("%w: %d is void", ErrInvalidPlacement, p)
	case s.reg.Occupant(p) != nil:
		return fmt.Errorf("%w: %d is occupied", ErrInvalidPlacement, p)
	}
	return nil
}
