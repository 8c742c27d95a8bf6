// Package combatants provides the combatant data model, strength tiers,
// population statistics and the fight/mate rules.
package combatants

import (
	"math"

	"github.com/talgya/arena/internal/world"
)

// ID is a unique identifier for a combatant, stable for its lifetime.
type ID uint64

// Gender is used for the optional opposite-gender mating rule.
type Gender uint8

const (
	GenderMale   Gender = 0
	GenderFemale Gender = 1
)

func (g Gender) String() string {
	if g == GenderFemale {
		return "female"
	}
	return "male"
}

// DecisionType is the behavioral archetype biasing movement choice.
type DecisionType uint8

const (
	DecisionFighter DecisionType = iota
	DecisionLover
	DecisionNeutral
	DecisionSeeker
	DecisionWanderer
)

// NumDecisionTypes is the number of decision types.
const NumDecisionTypes = 5

var decisionNames = [NumDecisionTypes]string{"fighter", "lover", "neutral", "seeker", "wanderer"}

func (d DecisionType) String() string {
	if int(d) < len(decisionNames) {
		return decisionNames[d]
	}
	return "unknown"
}

// ParseDecisionType maps a name back to its decision type.
func ParseDecisionType(name string) (DecisionType, bool) {
	for i, n := range decisionNames {
		if n == name {
			return DecisionType(i), true
		}
	}
	return 0, false
}

// State is a combatant's lifecycle state.
type State uint8

const (
	StateAlive State = iota
	StateMating
	StateDead
	StateCaptured
)

var stateNames = [...]string{"alive", "mating", "dead", "captured"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Strength is the population-relative tier, recomputed every tick.
type Strength uint8

const (
	StrengthWeak Strength = iota
	StrengthAverage
	StrengthStrong
	StrengthImmortal
)

var strengthNames = [...]string{"weak", "average", "strong", "immortal"}

func (s Strength) String() string {
	if int(s) < len(strengthNames) {
		return strengthNames[s]
	}
	return "unknown"
}

// Policy selects how a combatant picks its next tile.
type Policy uint8

const (
	PolicyDecisionTree Policy = iota // Neighbor buckets and the resolution order
	PolicySeeker                     // Greedy steps toward a persistent waypoint
	PolicyPlayer                     // Consumes waypoints queued by the UI
)

// Spawn is a pending offspring carried by a pregnant combatant.
type Spawn struct {
	Child       *Combatant `json:"child"`
	MateID      ID         `json:"mate_id"`
	ConceivedAt uint64     `json:"conceived_at"`
}

// Combatant is an autonomous agent on the grid.
type Combatant struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`

	Species      world.Species `json:"species"`
	Gender       Gender        `json:"gender"`
	DecisionType DecisionType  `json:"decision_type"`
	State        State         `json:"state"`
	Position     world.Pos     `json:"position"`

	Fitness  int      `json:"fitness"`
	Strength Strength `json:"strength"`
	Immortal bool     `json:"immortal"`
	IsPlayer bool     `json:"is_player"`

	Tick     uint64 `json:"tick"` // Age in ticks
	Children int    `json:"children"`
	Kills    int    `json:"kills"`

	// MateID links the two partners while they are in the Mating state.
	MateID ID     `json:"mate_id,omitempty"`
	Spawn  *Spawn `json:"spawn,omitempty"`

	Visited   map[world.Pos]bool `json:"visited,omitempty"`   // Wanderer aversion
	Waypoints []world.Pos        `json:"waypoints,omitempty"` // Seeker target or player intents
}

// Policy returns the movement policy implied by the combatant's flags.
func (c *Combatant) Policy() Policy {
	switch {
	case c.IsPlayer:
		return PolicyPlayer
	case c.DecisionType == DecisionSeeker:
		return PolicySeeker
	default:
		return PolicyDecisionTree
	}
}

// Live reports whether the combatant takes part in the simulation this tick.
func (c *Combatant) Live() bool {
	return c != nil && (c.State == StateAlive || c.State == StateMating)
}

// EffectiveFitness is the fitness used for every comparison. Immortals are +Inf.
func (c *Combatant) EffectiveFitness() float64 {
	if c.Immortal {
		return math.Inf(1)
	}
	return float64(c.Fitness)
}

// Visit records p as visited.
func (c *Combatant) Visit(p world.Pos) {
	if c.Visited == nil {
		c.Visited = make(map[world.Pos]bool)
	}
	c.Visited[p] = true
}

// HasVisited reports whether the combatant has stood on p this lifetime.
func (c *Combatant) HasVisited(p world.Pos) bool {
	return c.Visited[p]
}

// Clone returns a deep copy so snapshots never alias live state.
func (c *Combatant) Clone() *Combatant {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Visited != nil {
		cp.Visited = make(map[world.Pos]bool, len(c.Visited))
		for p := range c.Visited {
			cp.Visited[p] = true
		}
	}
	if c.Waypoints != nil {
		cp.Waypoints = append([]world.Pos(nil), c.Waypoints...)
	}
	if c.Spawn != nil {
		s := *c.Spawn
		s.Child = c.Spawn.Child.Clone()
		cp.Spawn = &s
	}
	return &cp
}
