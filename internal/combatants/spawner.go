// Combatant spawning: initial population, user-painted combatants and offspring.
package combatants

import (
	"math/rand"
	"strings"

	"github.com/talgya/arena/internal/world"
)

// Spawner creates combatants for the simulation. It shares the simulation's
// random source so a seed fully determines every spawned attribute.
type Spawner struct {
	rng    *rand.Rand
	nextID ID
}

// NewSpawner creates a spawner drawing from rng.
func NewSpawner(rng *rand.Rand) *Spawner {
	return &Spawner{rng: rng, nextID: 1}
}

// SetNextID sets the next ID to be issued (used when restoring a snapshot).
func (s *Spawner) SetNextID(id ID) {
	s.nextID = id
}

// NextID returns the ID the next spawn will receive.
func (s *Spawner) NextID() ID {
	return s.nextID
}

// SetRand swaps the random source (used on reset).
func (s *Spawner) SetRand(rng *rand.Rand) {
	s.rng = rng
}

// Spawn creates a live combatant of the given species at p with random
// gender and decision type.
func (s *Spawner) Spawn(p world.Pos, species world.Species) *Combatant {
	c := s.newCombatant(species, s.randomDecision())
	c.Position = p
	return c
}

// SpawnRandom is Spawn with a uniformly random species.
func (s *Spawner) SpawnRandom(p world.Pos) *Combatant {
	return s.Spawn(p, s.RandomSpecies())
}

// SpawnPlayer creates the adventure-mode avatar.
func (s *Spawner) SpawnPlayer(p world.Pos, species world.Species) *Combatant {
	c := s.newCombatant(species, DecisionNeutral)
	c.Position = p
	c.IsPlayer = true
	c.Name = "Player"
	return c
}

// Conceive builds the offspring carried by parent. The child keeps the
// parent's decision type with probability inherit, otherwise rolls a new one.
// The child is unplaced until birth.
func (s *Spawner) Conceive(parent *Combatant, mateID ID, tick uint64, inherit float64) *Spawn {
	decision := parent.DecisionType
	if s.rng.Float64() >= inherit {
		decision = s.randomDecision()
	}
	child := s.newCombatant(parent.Species, decision)
	child.Position = world.NoPos
	child.Name = firstName(child.Name) + " " + lastName(parent.Name)
	return &Spawn{Child: child, MateID: mateID, ConceivedAt: tick}
}

// RandomSpecies picks a species uniformly.
func (s *Spawner) RandomSpecies() world.Species {
	return world.Species(s.rng.Intn(world.NumSpecies))
}

func (s *Spawner) randomDecision() DecisionType {
	return DecisionType(s.rng.Intn(NumDecisionTypes))
}

func (s *Spawner) newCombatant(species world.Species, decision DecisionType) *Combatant {
	id := s.nextID
	s.nextID++

	gender := GenderMale
	if s.rng.Float32() < 0.5 {
		gender = GenderFemale
	}

	return &Combatant{
		ID:           id,
		Name:         s.generateName(species),
		Species:      species,
		Gender:       gender,
		DecisionType: decision,
		State:        StateAlive,
		Position:     world.NoPos,
	}
}

func (s *Spawner) generateName(species world.Species) string {
	first := givenNames[s.rng.Intn(len(givenNames))]
	clan := clanNames[species]
	return first + " " + clan[s.rng.Intn(len(clan))]
}

func firstName(name string) string {
	if i := strings.IndexByte(name, ' '); i >= 0 {
		return name[:i]
	}
	return name
}

func lastName(name string) string {
	if i := strings.LastIndexByte(name, ' '); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Name pools for procedural generation.
var givenNames = []string{
	"Ash", "Bex", "Cato", "Dune", "Eno", "Fig", "Gale", "Hob", "Ivo",
	"Jax", "Kip", "Lux", "Moss", "Nib", "Oro", "Pim", "Quill", "Rook",
	"Sol", "Tam", "Umber", "Vex", "Wick", "Yew", "Zed",
}

var clanNames = [world.NumSpecies][]string{
	world.SpeciesTurtle: {"Shellback", "Tidewalker", "Moorstone", "Slowbrook"},
	world.SpeciesLizard: {"Sunscale", "Dustclaw", "Emberhide", "Sandrunner"},
	world.SpeciesRabbit: {"Longear", "Cloverfoot", "Burrowby", "Quickstep"},
	world.SpeciesFox:    {"Redbrush", "Nightpaw", "Hollowden", "Slyfield"},
}
