package engine

import (
	"math"
	"math/rand"

	"github.com/talgya/arena/internal/combatants"
	"github.com/talgya/arena/internal/world"
)

// Cell is one tile of a surroundings view.
type Cell struct {
	Pos       world.Pos
	Dir       world.Dir
	Tile      world.TileType
	Occupant  *combatants.Combatant // live occupant only
	Potential float64               // cached score potential for the viewer's species
}

var viewDirs = [9]world.Dir{
	world.DirCenter,
	world.DirN, world.DirE, world.DirS, world.DirW,
	world.DirNE, world.DirNW, world.DirSE, world.DirSW,
}

// Surroundings is the 3x3 view centered on a tile. Off-grid cells are nil.
type Surroundings struct {
	cells [9]*Cell

	MinPotential float64
	MaxPotential float64
}

// Resolve builds the surroundings of p for a viewer of the given species.
// The grid edge is impassable: cells past it are nil rather than wrapped.
func Resolve(g *world.Grid, reg *Registry, p world.Pos, species world.Species) *Surroundings {
	s := &Surroundings{
		MinPotential: math.Inf(1),
		MaxPotential: math.Inf(-1),
	}
	if !g.InBounds(p) {
		s.MinPotential, s.MaxPotential = 0, 0
		return s
	}

	for _, d := range viewDirs {
		np, ok := g.Step(p, d)
		if !ok {
			continue
		}
		c := &Cell{
			Pos:       np,
			Dir:       d,
			Tile:      g.Type(np),
			Occupant:  reg.Occupant(np),
			Potential: g.ScorePotential(np, species),
		}
		s.cells[d] = c
		if c.Potential < s.MinPotential {
			s.MinPotential = c.Potential
		}
		if c.Potential > s.MaxPotential {
			s.MaxPotential = c.Potential
		}
	}
	return s
}

// Center returns the cell the view is centered on.
func (s *Surroundings) Center() *Cell {
	return s.cells[world.DirCenter]
}

// Cell returns the cell in direction d, or nil off-grid.
func (s *Surroundings) Cell(d world.Dir) *Cell {
	if int(d) >= len(s.cells) {
		return nil
	}
	return s.cells[d]
}

// Orthogonal returns the in-grid N, E, S, W cells in that order.
func (s *Surroundings) Orthogonal() []*Cell {
	out := make([]*Cell, 0, 4)
	for _, d := range world.Orthogonal {
		if c := s.cells[d]; c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Neighbors returns the in-grid cells of the 8-neighborhood.
func (s *Surroundings) Neighbors() []*Cell {
	out := make([]*Cell, 0, 8)
	for _, d := range world.Neighborhood {
		if c := s.cells[d]; c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the cell at position p if it is part of the view.
func (s *Surroundings) Find(p world.Pos) *Cell {
	for _, c := range s.cells {
		if c != nil && c.Pos == p {
			return c
		}
	}
	return nil
}

// MoveOpts relaxes the random-move legality rules.
type MoveOpts struct {
	AllowVoid     bool // terrain spiders walk on void
	AllowOccupied bool // items may share a tile with a combatant
}

// RandomLegalMove samples uniformly among staying put and the four
// orthogonal steps. Diagonals are never legal. With no candidate at all it
// degrades to staying in place.
func (s *Surroundings) RandomLegalMove(rng *rand.Rand, opts MoveOpts) world.Pos {
	center := s.Center()
	if center == nil {
		return world.NoPos
	}
	candidates := []world.Pos{center.Pos}
	for _, c := range s.Orthogonal() {
		if c.Tile == world.TileVoid && !opts.AllowVoid {
			continue
		}
		if c.Occupant != nil && !opts.AllowOccupied {
			continue
		}
		candidates = append(candidates, c.Pos)
	}
	return candidates[rng.Intn(len(candidates))]
}
