package world

import (
	"fmt"
	"strings"
)

// Pos is a flat row-major tile index: y*Width + x.
type Pos int

// NoPos marks an entity that is not placed on the grid (an unborn spawn, a captive).
const NoPos Pos = -1

// Dir is one of the eight compass directions or the center.
type Dir uint8

const (
	DirCenter Dir = iota
	DirN
	DirE
	DirS
	DirW
	DirNE
	DirNW
	DirSE
	DirSW
)

var dirOffsets = [...][2]int{
	DirCenter: {0, 0},
	DirN:      {0, -1},
	DirE:      {1, 0},
	DirS:      {0, 1},
	DirW:      {-1, 0},
	DirNE:     {1, -1},
	DirNW:     {-1, -1},
	DirSE:     {1, 1},
	DirSW:     {-1, 1},
}

var dirNames = [...]string{"center", "n", "e", "s", "w", "ne", "nw", "se", "sw"}

// Orthogonal lists the four legal single-step directions.
var Orthogonal = [4]Dir{DirN, DirE, DirS, DirW}

// Neighborhood lists all eight directions around a tile, orthogonals first.
var Neighborhood = [8]Dir{DirN, DirE, DirS, DirW, DirNE, DirNW, DirSE, DirSW}

// Offset returns the (dx, dy) of a direction.
func (d Dir) Offset() (int, int) {
	if int(d) >= len(dirOffsets) {
		return 0, 0
	}
	o := dirOffsets[d]
	return o[0], o[1]
}

func (d Dir) String() string {
	if int(d) < len(dirNames) {
		return dirNames[d]
	}
	return "?"
}

// ParseDir accepts compass names ("n", "north", "up", ...).
func ParseDir(s string) (Dir, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "north", "up":
		return DirN, true
	case "e", "east", "right":
		return DirE, true
	case "s", "south", "down":
		return DirS, true
	case "w", "west", "left":
		return DirW, true
	case "center", "stay", "":
		return DirCenter, true
	}
	return DirCenter, false
}

// Grid owns the tile types of a rectangular region and their cached potentials.
type Grid struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	tiles  []Tile
}

// NewGrid builds a grid from row-major tile types. Missing entries become Void.
func NewGrid(width, height int, types []TileType) *Grid {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	g := &Grid{Width: width, Height: height, tiles: make([]Tile, width*height)}
	for i := range g.tiles {
		g.tiles[i].Index = Pos(i)
		if i < len(types) {
			g.tiles[i].Type = types[i]
		}
	}
	return g
}

// Len returns the number of tiles.
func (g *Grid) Len() int {
	return len(g.tiles)
}

// InBounds reports whether p addresses a tile of this grid.
func (g *Grid) InBounds(p Pos) bool {
	return p >= 0 && int(p) < len(g.tiles)
}

// XY converts a position to column/row.
func (g *Grid) XY(p Pos) (int, int) {
	if g.Width == 0 {
		return 0, 0
	}
	return int(p) % g.Width, int(p) / g.Width
}

// Index converts column/row to a position; ok is false off-grid.
func (g *Grid) Index(x, y int) (Pos, bool) {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return NoPos, false
	}
	return Pos(y*g.Width + x), true
}

// Step returns the neighbor of p in direction d. The grid edge is a wall:
// steps that would leave the grid are rejected, never wrapped into another row.
func (g *Grid) Step(p Pos, d Dir) (Pos, bool) {
	if !g.InBounds(p) {
		return NoPos, false
	}
	x, y := g.XY(p)
	dx, dy := d.Offset()
	return g.Index(x+dx, y+dy)
}

// Get returns the tile at p, or nil off-grid.
func (g *Grid) Get(p Pos) *Tile {
	if !g.InBounds(p) {
		return nil
	}
	return &g.tiles[p]
}

// Type returns the tile type at p. Off-grid reads as Void.
func (g *Grid) Type(p Pos) TileType {
	if t := g.Get(p); t != nil {
		return t.Type
	}
	return TileVoid
}

// Set paints tile p and invalidates the cached potentials of p and its four
// orthogonal neighbors. Returns false if p is off-grid.
func (g *Grid) Set(p Pos, t TileType) bool {
	tile := g.Get(p)
	if tile == nil {
		return false
	}
	tile.Type = t
	tile.invalidate()
	for _, d := range Orthogonal {
		if n, ok := g.Step(p, d); ok {
			g.tiles[n].invalidate()
		}
	}
	return true
}

// ScorePotential estimates how desirable tile p is for species s: the tile's
// own terrain effect plus the mean effect of its in-grid orthogonal neighbors.
// Off-grid neighbors count in neither the sum nor the divisor.
func (g *Grid) ScorePotential(p Pos, s Species) float64 {
	tile := g.Get(p)
	if tile == nil {
		return 0
	}
	if v, ok := tile.potential[s]; ok {
		return v
	}

	v := float64(TerrainEffect(tile.Type, s))
	sum, n := 0, 0
	for _, d := range Orthogonal {
		if np, ok := g.Step(p, d); ok {
			sum += TerrainEffect(g.tiles[np].Type, s)
			n++
		}
	}
	if n > 0 {
		v += float64(sum) / float64(n)
	}

	if tile.potential == nil {
		tile.potential = make(map[Species]float64, NumSpecies)
	}
	tile.potential[s] = v
	if len(tile.potential) == NumSpecies {
		tile.cached = true
	}
	return v
}

// PotentialCached reports whether every species potential of p is memoized.
func (g *Grid) PotentialCached(p Pos) bool {
	if t := g.Get(p); t != nil {
		return t.cached
	}
	return false
}

// Types returns a copy of the row-major tile types.
func (g *Grid) Types() []TileType {
	out := make([]TileType, len(g.tiles))
	for i := range g.tiles {
		out[i] = g.tiles[i].Type
	}
	return out
}

// Clone returns an independent copy of the grid with an empty potential cache.
func (g *Grid) Clone() *Grid {
	return NewGrid(g.Width, g.Height, g.Types())
}

// Manhattan returns the grid distance between two positions.
func (g *Grid) Manhattan(a, b Pos) int {
	ax, ay := g.XY(a)
	bx, by := g.XY(b)
	return abs(ax-bx) + abs(ay-by)
}

// Counts returns how many tiles of each type the grid holds.
func (g *Grid) Counts() map[TileType]int {
	counts := make(map[TileType]int)
	for i := range g.tiles {
		counts[g.tiles[i].Type]++
	}
	return counts
}

func (g *Grid) String() string {
	return fmt.Sprintf("Grid(%dx%d)", g.Width, g.Height)
}
