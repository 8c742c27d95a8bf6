// Simulation ties the grid, registry and population statistics together and
// advances them one tick at a time.
package engine

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/talgya/arena/internal/combatants"
	"github.com/talgya/arena/internal/entropy"
	"github.com/talgya/arena/internal/items"
	"github.com/talgya/arena/internal/world"
)

// MovementLogic is the global movement policy chosen by the UI.
type MovementLogic uint8

const (
	LogicDecisionTree MovementLogic = iota // Bucketed neighbor decisions
	LogicRandom                            // Every NPC takes a random legal step
)

func (m MovementLogic) String() string {
	if m == LogicRandom {
		return "random"
	}
	return "decision_tree"
}

// ParseMovementLogic maps a policy name to its value.
func ParseMovementLogic(name string) (MovementLogic, error) {
	switch name {
	case "decision_tree", "decision-tree", "tree", "":
		return LogicDecisionTree, nil
	case "random":
		return LogicRandom, nil
	}
	return LogicDecisionTree, fmt.Errorf("%w: movement logic %q", ErrInvalidArgument, name)
}

// Rules holds the tunable constants of the simulation.
type Rules struct {
	MinHealth             int     `yaml:"min_health" json:"min_health"`
	YounglingAge          uint64  `yaml:"youngling_age" json:"youngling_age"`
	MaxItemsPerTile       int     `yaml:"max_items_per_tile" json:"max_items_per_tile"`
	MateChance            float64 `yaml:"mate_chance" json:"mate_chance"`
	InheritDecision       float64 `yaml:"inherit_decision" json:"inherit_decision"`
	OvercrowdNeighbors    int     `yaml:"overcrowd_neighbors" json:"overcrowd_neighbors"`
	AbortEnemies          int     `yaml:"abort_enemies" json:"abort_enemies"`
	RequireOppositeGender bool    `yaml:"require_opposite_gender" json:"require_opposite_gender"`
	StrictInvariants      bool    `yaml:"strict_invariants" json:"strict_invariants"`
}

// DefaultRules returns the stock rule set.
func DefaultRules() Rules {
	return Rules{
		MinHealth:          -500,
		YounglingAge:       5,
		MaxItemsPerTile:    4,
		MateChance:         0.5,
		InheritDecision:    0.75,
		OvercrowdNeighbors: 4,
		AbortEnemies:       1,
	}
}

func (r Rules) mating() combatants.MateRules {
	return combatants.MateRules{
		YounglingAge:          r.YounglingAge,
		RequireOppositeGender: r.RequireOppositeGender,
	}
}

// Options configures a new Simulation.
type Options struct {
	Width             int
	Height            int
	Seed              int64
	InitialPopulation int
	Map               string
	Logic             MovementLogic
	Rules             Rules
	Fuses             items.Fuses
}

// DefaultOptions returns a small noise map with a modest population.
func DefaultOptions() Options {
	return Options{
		Width:             40,
		Height:            30,
		Seed:              42,
		InitialPopulation: 60,
		Map:               "noise",
		Rules:             DefaultRules(),
		Fuses:             items.DefaultFuses(),
	}
}

// Event is a notable occurrence during a tick.
type Event struct {
	Tick        uint64 `json:"tick" db:"tick"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "birth", "death", "combat", "mating", "item", ...
}

const maxEvents = 1000

// Simulation holds the complete arena state. It is not safe for concurrent
// use; Engine serializes access.
type Simulation struct {
	Grid  *world.Grid
	Stats combatants.Stats
	Rules Rules
	Fuses items.Fuses
	Tick  uint64

	Seed              int64
	MapName           string
	Logic             MovementLogic
	InitialPopulation int
	Selected          world.Pos
	Events            []Event

	reg        *Registry
	rng        *rand.Rand
	spawner    *combatants.Spawner
	generator  world.Generator
	births     int
	deaths     int
	nextItemID items.ID
}

// New creates a simulation and populates it from its map generator.
func New(opts Options) (*Simulation, error) {
	gen, err := lookupGenerator(opts.Map)
	if err != nil {
		return nil, err
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: grid %dx%d", ErrInvalidArgument, opts.Width, opts.Height)
	}

	// Terrain and population both derive from this one seed, so it is
	// fixed before anything is generated.
	opts.Seed = entropy.Resolve(opts.Seed)
	s := newSimulation(world.NewGrid(opts.Width, opts.Height, nil), opts)
	s.generator = gen
	s.Reset()
	return s, nil
}

// NewEmpty creates an unpopulated simulation over a prepared grid.
func NewEmpty(g *world.Grid, opts Options) *Simulation {
	s := newSimulation(g, opts)
	s.generator = world.GeneratorFunc(func(w, h int, _ int64) []world.TileType {
		// Resizing a hand-built grid keeps the overlapping terrain.
		out := make([]world.TileType, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if p, ok := g.Index(x, y); ok {
					out[y*w+x] = g.Type(p)
				}
			}
		}
		return out
	})
	return s
}

func newSimulation(g *world.Grid, opts Options) *Simulation {
	if opts.Rules == (Rules{}) {
		opts.Rules = DefaultRules()
	}
	if opts.Fuses == (items.Fuses{}) {
		opts.Fuses = items.DefaultFuses()
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	return &Simulation{
		Grid:              g,
		Rules:             opts.Rules,
		Fuses:             opts.Fuses,
		Seed:              opts.Seed,
		MapName:           opts.Map,
		Logic:             opts.Logic,
		InitialPopulation: opts.InitialPopulation,
		Selected:          world.NoPos,
		reg:               NewRegistry(opts.Rules.MaxItemsPerTile),
		rng:               rng,
		spawner:           combatants.NewSpawner(rng),
		nextItemID:        1,
	}
}

// Spawner exposes the simulation's spawner so callers can build combatants
// that share its ID sequence.
func (s *Simulation) Spawner() *combatants.Spawner {
	return s.spawner
}

// Registry returns the authoritative registry. Callers must not retain it across ticks.
func (s *Simulation) Registry() *Registry {
	return s.reg
}

// Advance runs one tick. The phases are strictly ordered and operate on a
// working copy, so a partially advanced state is never observable.
func (s *Simulation) Advance() Snapshot {
	s.Tick++

	cur := s.reg.Clone()
	next := cur.Empty()

	// Movement, fights and conceptions, written into the fresh registry.
	t := newTurn(s, cur, next)
	for _, c := range cur.Live() {
		if !c.Live() {
			continue // killed earlier this tick
		}
		t.move(c)
	}

	s.resolvePregnancies(next)
	s.processItems(cur, next)
	s.applyTerrain(next)
	s.refreshStats(next)

	s.reg, _ = next.KillAndCompact()
	return s.Snapshot()
}

// applyTerrain charges each survivor its tile's fitness effect and ages it.
func (s *Simulation) applyTerrain(next *Registry) {
	for _, c := range next.Live() {
		c.Fitness += world.TerrainEffect(s.Grid.Type(c.Position), c.Species)
		if c.Fitness <= s.Rules.MinHealth {
			c.Fitness = s.Rules.MinHealth
			if !c.Immortal {
				s.kill(c, "succumbed to the terrain")
			}
		}
		c.Tick++
		if c.DecisionType == combatants.DecisionWanderer && c.Live() {
			c.Visit(c.Position)
		}
	}
}

// refreshStats recomputes the population aggregates and every live tier.
func (s *Simulation) refreshStats(reg *Registry) {
	live := reg.Live()
	s.Stats = combatants.ComputeStats(live, s.Grid, s.births, s.deaths)
	for _, c := range live {
		c.Strength = s.Stats.StrengthOf(c)
	}
}

// kill marks c dead and accounts for it.
func (s *Simulation) kill(c *combatants.Combatant, cause string) {
	if c == nil || c.State == combatants.StateDead {
		return
	}
	c.State = combatants.StateDead
	s.recordDeath(c, cause)
}

// recordDeath accounts for a combatant that has just transitioned to Dead.
func (s *Simulation) recordDeath(c *combatants.Combatant, cause string) {
	s.deaths++
	s.emit("death", fmt.Sprintf("%s %s", c.Name, cause))
}

func (s *Simulation) emit(category, desc string) {
	s.Events = append(s.Events, Event{Tick: s.Tick, Description: desc, Category: category})
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
	slog.Debug("event", "tick", s.Tick, "category", category, "description", desc)
}

// Births returns the cumulative number of births.
func (s *Simulation) Births() int { return s.births }

// Deaths returns the cumulative number of deaths.
func (s *Simulation) Deaths() int { return s.deaths }

// Exhausted reports that nothing is left alive or live on the grid.
func (s *Simulation) Exhausted() bool {
	return len(s.reg.Live()) == 0 && s.reg.NumItems() == 0
}

func (s *Simulation) newItem(kind items.Kind, p world.Pos) *items.Item {
	it := items.New(s.nextItemID, kind, p, s.Fuses.For(kind))
	s.nextItemID++
	return it
}
