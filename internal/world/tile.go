// Package world provides the tile grid, terrain, and per-species score potentials.
// Positions are flat row-major indexes into a rectangular grid.
package world

import "strings"

// TileType is the terrain painted on a single tile.
type TileType uint8

const (
	TileVoid  TileType = iota // Impassable for combatants
	TileWater                 // Mildly harmful, turtles thrive
	TileFire                  // Very harmful
	TileRock                  // Neutral
	TileSand                  // Neutral, lizards thrive
	TileGrass                 // Nourishing
)

// NumTileTypes is the number of distinct tile types.
const NumTileTypes = 6

var tileNames = [NumTileTypes]string{"void", "water", "fire", "rock", "sand", "grass"}

// String returns the lower-case tile name.
func (t TileType) String() string {
	if int(t) < len(tileNames) {
		return tileNames[t]
	}
	return "unknown"
}

// ParseTileType maps a tile name back to its type.
func ParseTileType(name string) (TileType, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range tileNames {
		if n == name {
			return TileType(i), true
		}
	}
	return TileVoid, false
}

// Species is a combatant lineage. Terrain affects each species differently.
type Species uint8

const (
	SpeciesTurtle Species = iota
	SpeciesLizard
	SpeciesRabbit
	SpeciesFox
)

// NumSpecies is the number of species.
const NumSpecies = 4

var speciesNames = [NumSpecies]string{"turtle", "lizard", "rabbit", "fox"}

func (s Species) String() string {
	if int(s) < len(speciesNames) {
		return speciesNames[s]
	}
	return "unknown"
}

// ParseSpecies maps a species name back to its value.
func ParseSpecies(name string) (Species, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range speciesNames {
		if n == name {
			return Species(i), true
		}
	}
	return 0, false
}

// AllSpecies lists every species in declaration order.
func AllSpecies() []Species {
	out := make([]Species, NumSpecies)
	for i := range out {
		out[i] = Species(i)
	}
	return out
}

// baseEffect is the per-tick fitness delta of standing on a tile, before species modifiers.
var baseEffect = [NumTileTypes]int{
	TileVoid:  0,
	TileWater: -5,
	TileFire:  -50,
	TileRock:  0,
	TileSand:  0,
	TileGrass: 50,
}

// TerrainEffect returns the fitness delta a combatant of the given species
// receives for spending one tick on a tile of type t.
func TerrainEffect(t TileType, s Species) int {
	if int(t) >= NumTileTypes {
		return 0
	}
	effect := baseEffect[t]
	switch s {
	case SpeciesTurtle:
		switch t {
		case TileFire:
			effect -= 10
		case TileWater:
			effect += 10
		}
	case SpeciesLizard:
		switch t {
		case TileFire, TileSand:
			effect += 5
		}
	}
	return effect
}

// IsHarmful reports whether a tile costs the species fitness.
func IsHarmful(t TileType, s Species) bool {
	return TerrainEffect(t, s) < 0
}

// Tile is a single grid cell with its memoized score potentials.
type Tile struct {
	Index Pos      `json:"index"`
	Type  TileType `json:"type"`

	// potential is filled lazily per species; cached flips once every species is present.
	potential map[Species]float64
	cached    bool
}

func (t *Tile) invalidate() {
	t.potential = nil
	t.cached = false
}
