package engine

import (
	"math/rand"
	"testing"

	"github.com/talgya/arena/internal/combatants"
	"github.com/talgya/arena/internal/world"
)

func TestResolveCornerHasNoWrap(t *testing.T) {
	g := world.NewGrid(3, 3, world.Fill(world.TileGrass).Generate(3, 3, 0))
	sur := Resolve(g, NewRegistry(1), 0, world.SpeciesFox)

	for _, d := range []world.Dir{world.DirN, world.DirW, world.DirNW, world.DirNE, world.DirSW} {
		if c := sur.Cell(d); c != nil {
			t.Errorf("corner cell %s = %+v, want nil", d, c)
		}
	}
	if got := len(sur.Orthogonal()); got != 2 {
		t.Errorf("orthogonal cells = %d, want 2", got)
	}
	if got := len(sur.Neighbors()); got != 3 {
		t.Errorf("neighbor cells = %d, want 3", got)
	}
	if sur.MinPotential > sur.MaxPotential {
		t.Errorf("potential bounds inverted: %v > %v", sur.MinPotential, sur.MaxPotential)
	}
}

func TestResolveOffGridIsEmpty(t *testing.T) {
	g := world.NewGrid(2, 2, nil)
	sur := Resolve(g, NewRegistry(1), 10, world.SpeciesFox)
	if sur.Center() != nil || len(sur.Neighbors()) != 0 {
		t.Error("off-grid view should be empty")
	}
	if p := sur.RandomLegalMove(rand.New(rand.NewSource(1)), MoveOpts{}); p != world.NoPos {
		t.Errorf("RandomLegalMove off-grid = %d, want NoPos", p)
	}
}

func TestRandomLegalMoveNeverDiagonalOrVoid(t *testing.T) {
	g := world.NewGrid(3, 3, tiles(`
		ggg
		gg.
		ggg`))
	rng := rand.New(rand.NewSource(7))
	sur := Resolve(g, NewRegistry(1), 4, world.SpeciesFox)

	seen := map[world.Pos]bool{}
	for i := 0; i < 500; i++ {
		seen[sur.RandomLegalMove(rng, MoveOpts{})] = true
	}
	for p := range seen {
		switch p {
		case 1, 3, 4, 7:
		default:
			t.Errorf("illegal destination %d", p)
		}
	}
	if len(seen) != 4 {
		t.Errorf("destinations = %v, want all of 1, 3, 4, 7", seen)
	}
}

func TestRandomLegalMoveBlockedStaysPut(t *testing.T) {
	g := world.NewGrid(3, 3, world.Fill(world.TileGrass).Generate(3, 3, 0))
	reg := NewRegistry(1)
	for _, p := range []world.Pos{1, 3, 5, 7} {
		if err := reg.Place(&combatants.Combatant{ID: combatants.ID(p + 1)}, p); err != nil {
			t.Fatal(err)
		}
	}
	sur := Resolve(g, reg, 4, world.SpeciesFox)
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		if p := sur.RandomLegalMove(rng, MoveOpts{}); p != 4 {
			t.Fatalf("blocked move went to %d", p)
		}
	}

	// Items ignore occupants.
	moved := false
	for i := 0; i < 50; i++ {
		if sur.RandomLegalMove(rng, MoveOpts{AllowOccupied: true}) != 4 {
			moved = true
		}
	}
	if !moved {
		t.Error("AllowOccupied never left the center")
	}
}
