package engine

import (
	"fmt"

	"github.com/talgya/arena/internal/items"
	"github.com/talgya/arena/internal/world"
)

// SpiderGenerator builds a map by releasing terrain spiders onto a void grid
// and letting the item processor run them for a number of rounds.
type SpiderGenerator struct {
	Spiders int // per 100 tiles
	Rounds  int
}

// DefaultSpiderGenerator paints roughly two thirds of a map.
func DefaultSpiderGenerator() SpiderGenerator {
	return SpiderGenerator{Spiders: 4, Rounds: 40}
}

// Generate implements world.Generator.
func (g SpiderGenerator) Generate(width, height int, seed int64) []world.TileType {
	grid := world.NewGrid(width, height, world.Fill(world.TileVoid).Generate(width, height, seed))
	if grid.Len() == 0 {
		return nil
	}
	s := NewEmpty(grid, Options{Seed: seed})

	count := max(1, g.Spiders*grid.Len()/100)
	for i := 0; i < count; i++ {
		p := world.Pos(s.rng.Intn(grid.Len()))
		it := s.newItem(items.KindTerrainSpider, p)
		it.Terrain = world.TileType(1 + s.rng.Intn(world.NumTileTypes-1))
		s.reg.AddItem(it)
	}

	for round := 0; round < g.Rounds; round++ {
		next := s.reg.Empty()
		s.processItems(s.reg, next)
		s.reg, _ = next.KillAndCompact()
	}
	return grid.Types()
}

// lookupGenerator resolves a map name, including maps that need the item
// processor to build.
func lookupGenerator(name string) (world.Generator, error) {
	if name == "spiders" {
		return DefaultSpiderGenerator(), nil
	}
	g, err := world.LookupGenerator(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMap, name)
	}
	return g, nil
}

// MapNames lists every map SetMap accepts.
func MapNames() []string {
	return append(world.GeneratorNames(), "spiders")
}
