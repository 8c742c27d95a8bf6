package engine

import (
	"math/rand"
	"testing"

	"github.com/talgya/arena/internal/combatants"
	"github.com/talgya/arena/internal/items"
	"github.com/talgya/arena/internal/world"
)

func TestMedPackHealsOccupant(t *testing.T) {
	sim := newTestSim(t, 1, 1, nil)
	c := place(t, sim, 0, blueprint{species: world.SpeciesFox})
	if _, err := sim.AddItem(items.KindMedPack, 0); err != nil {
		t.Fatal(err)
	}

	snap := sim.Advance()

	// -MinHealth from the pack, then a tick on grass.
	if got := occupants(t, snap)[0]; got == nil || got.ID != c.ID || got.Fitness != 550 {
		t.Fatalf("after medpack: %+v, want fitness 550", got)
	}
	if len(snap.Items) != 0 {
		t.Errorf("used medpack still on the grid: %+v", snap.Items)
	}
}

func TestMedPackFuseExpires(t *testing.T) {
	sim := newTestSim(t, 2, 1, nil)
	sim.Fuses.MedPack = 2
	if _, err := sim.AddItem(items.KindMedPack, 1); err != nil {
		t.Fatal(err)
	}

	if snap := sim.Advance(); len(snap.Items) != 1 {
		t.Fatalf("tick 1: items %+v, want the medpack", snap.Items)
	}
	if snap := sim.Advance(); len(snap.Items) != 0 {
		t.Errorf("tick 2: expired medpack still on the grid: %+v", snap.Items)
	}
}

func TestCaptureAndRelease(t *testing.T) {
	sim := newTestSim(t, 3, 3, tiles(`
		g..
		.g.
		...`))
	sim.Fuses.Capture = 2
	c := place(t, sim, 0, blueprint{species: world.SpeciesTurtle, decision: combatants.DecisionNeutral})
	if _, err := sim.AddItem(items.KindCaptureDevice, 4); err != nil {
		t.Fatal(err)
	}

	snap := sim.Advance()
	if len(snap.Combatants) != 0 {
		t.Fatalf("tick 1: %d combatants on the grid, want the turtle captured", len(snap.Combatants))
	}
	if len(snap.Items) != 1 || len(snap.Items[0].Captured) != 1 {
		t.Fatalf("tick 1: device %+v should hold one captive", snap.Items)
	}
	if got := snap.Items[0].Captured[0]; got.State != combatants.StateCaptured {
		t.Errorf("captive state = %s, want captured", got.State)
	}
	if snap.Stats.Deaths != 0 {
		t.Errorf("capture counted as %d deaths", snap.Stats.Deaths)
	}
	if snap.Exhausted {
		t.Error("a holding device keeps the arena from exhaustion")
	}

	snap = sim.Advance()
	got := occupants(t, snap)[0]
	if got == nil || got.ID != c.ID {
		t.Fatalf("tick 2: captive not released to its cell; combatants %+v", snap.Combatants)
	}
	if got.State != combatants.StateAlive {
		t.Errorf("released state = %s, want alive", got.State)
	}
	// Aged by the fuse length while held, plus this tick.
	if got.Tick != 3 {
		t.Errorf("released age = %d, want 3", got.Tick)
	}
	if len(snap.Items) != 0 || snap.Stats.Deaths != 0 {
		t.Errorf("tick 2: items %+v, deaths %d", snap.Items, snap.Stats.Deaths)
	}
}

func TestBombSparesImmortals(t *testing.T) {
	sim := newTestSim(t, 2, 1, nil)
	sim.Fuses.Bomb = 1
	mortal := place(t, sim, 0, blueprint{species: world.SpeciesFox})
	god := place(t, sim, 1, blueprint{species: world.SpeciesRabbit})
	god.Immortal = true
	if _, err := sim.AddItem(items.KindBomb, 0); err != nil {
		t.Fatal(err)
	}

	snap := sim.Advance()
	live := occupants(t, snap)
	for _, c := range live {
		if c.ID == mortal.ID {
			t.Error("mortal survived the blast")
		}
	}
	if len(live) != 1 {
		t.Errorf("survivors = %d, want the immortal only", len(live))
	}
	if snap.Stats.Deaths != 1 {
		t.Errorf("deaths = %d, want 1", snap.Stats.Deaths)
	}
}

func TestBombClearsNeighboringItems(t *testing.T) {
	sim := newTestSim(t, 3, 1, nil)
	sim.Fuses.Bomb = 1
	if _, err := sim.AddItem(items.KindBomb, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := sim.AddItem(items.KindMedPack, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := sim.AddItem(items.KindMedPack, 2); err != nil {
		t.Fatal(err)
	}

	snap := sim.Advance()
	if len(snap.Items) != 1 || snap.Items[0].Position != 2 {
		t.Errorf("items after blast = %+v, want only the medpack at 2", snap.Items)
	}
}

func TestSpiderPaintsItsTile(t *testing.T) {
	sim := newTestSim(t, 3, 3, tiles(`
		...
		...
		...`))
	if err := sim.PaintTile(4, Paint{Kind: PaintItem, Item: items.KindTerrainSpider, Tile: world.TileSand}); err != nil {
		t.Fatal(err)
	}

	snap := sim.Advance()
	if got := sim.Grid.Type(4); got != world.TileSand {
		t.Errorf("tile under the spider = %s, want sand", got)
	}
	if len(snap.Items) != 1 || snap.Items[0].Kind != items.KindTerrainSpider {
		t.Fatalf("spider should keep crawling, items %+v", snap.Items)
	}
	if snap.Items[0].Age != 1 {
		t.Errorf("spider age = %d, want 1", snap.Items[0].Age)
	}
}

// held counts the combatants inside capture devices.
func held(snap Snapshot) int {
	n := 0
	for _, it := range snap.Items {
		n += len(it.Captured)
	}
	return n
}

// captureTurtle leaves a turtle from cell 0 held by a device on cell 1.
func captureTurtle(t *testing.T, sim *Simulation) *combatants.Combatant {
	t.Helper()
	c := place(t, sim, 0, blueprint{species: world.SpeciesTurtle, decision: combatants.DecisionNeutral})
	if _, err := sim.AddItem(items.KindCaptureDevice, 1); err != nil {
		t.Fatal(err)
	}
	if snap := sim.Advance(); held(snap) != 1 || len(snap.Combatants) != 0 {
		t.Fatalf("turtle not captured: combatants %+v items %+v", snap.Combatants, snap.Items)
	}
	return c
}

func TestBlastFreesCaptivesOutsideIt(t *testing.T) {
	sim := newTestSim(t, 5, 1, tiles("g...."))
	c := captureTurtle(t, sim)
	sim.Fuses.Bomb = 1
	if _, err := sim.AddItem(items.KindBomb, 2); err != nil {
		t.Fatal(err)
	}

	snap := sim.Advance()
	got := occupants(t, snap)[0]
	if got == nil || got.ID != c.ID || got.State != combatants.StateAlive {
		t.Fatalf("captive not returned to its cell: %+v", snap.Combatants)
	}
	if len(snap.Items) != 0 || snap.Stats.Deaths != 0 {
		t.Errorf("items %+v deaths %d, want the device destroyed and nobody dead", snap.Items, snap.Stats.Deaths)
	}
}

func TestBlastKillsCaptivesReleasedInsideIt(t *testing.T) {
	sim := newTestSim(t, 5, 1, tiles("g...."))
	captureTurtle(t, sim)
	sim.Fuses.Bomb = 1
	if _, err := sim.AddItem(items.KindBomb, 1); err != nil {
		t.Fatal(err)
	}

	snap := sim.Advance()
	if len(snap.Combatants) != 0 || held(snap) != 0 {
		t.Fatalf("combatants %+v items %+v after the blast", snap.Combatants, snap.Items)
	}
	if snap.Stats.Deaths != 1 {
		t.Errorf("deaths = %d, want the released captive", snap.Stats.Deaths)
	}
}

func TestEvictedDeviceReleasesCaptives(t *testing.T) {
	sim := newTestSim(t, 5, 1, tiles("g...."))
	c := captureTurtle(t, sim)
	for i := 0; i < sim.Rules.MaxItemsPerTile; i++ {
		if _, err := sim.AddItem(items.KindMedPack, 1); err != nil {
			t.Fatal(err)
		}
	}

	snap := sim.Snapshot()
	if got := occupants(t, snap)[0]; got == nil || got.ID != c.ID {
		t.Fatalf("captive lost with the evicted device: %+v", snap.Combatants)
	}
	if len(snap.Items) != sim.Rules.MaxItemsPerTile || held(snap) != 0 {
		t.Errorf("items %+v, want only the medpacks", snap.Items)
	}
	if snap.Stats.NumCombatants != 1 || snap.Stats.Deaths != 0 {
		t.Errorf("stats %+v", snap.Stats)
	}
}

func TestBlastSparesItemsThatCrawledAway(t *testing.T) {
	survived := false
	for seed := int64(1); seed <= 20; seed++ {
		grid := world.NewGrid(4, 1, world.Fill(world.TileGrass).Generate(4, 1, 0))
		sim := NewEmpty(grid, Options{Seed: seed, Rules: strictRules()})
		sim.Fuses.Bomb = 1
		if err := sim.PaintTile(2, Paint{Kind: PaintItem, Item: items.KindTerrainSpider, Tile: world.TileSand}); err != nil {
			t.Fatal(err)
		}
		if _, err := sim.AddItem(items.KindBomb, 3); err != nil {
			t.Fatal(err)
		}

		snap := sim.Advance()
		for _, it := range snap.Items {
			if it.Kind != items.KindTerrainSpider || it.Position != 1 {
				t.Fatalf("seed %d: %+v survived the blast over 2..3", seed, it)
			}
			survived = true
		}
	}
	if !survived {
		t.Error("a spider that crawled out of the blast was still destroyed")
	}
}

func TestVoidSpiderKillsOccupant(t *testing.T) {
	sim := newTestSim(t, 1, 1, nil)
	place(t, sim, 0, adult(world.SpeciesLizard, combatants.DecisionNeutral))
	if err := sim.PaintTile(0, Paint{Kind: PaintItem, Item: items.KindTerrainSpider, Tile: world.TileVoid}); err != nil {
		t.Fatal(err)
	}

	snap := sim.Advance()
	if len(snap.Combatants) != 0 || snap.Stats.Deaths != 1 {
		t.Errorf("combatants %+v deaths %d, want the lizard dead", snap.Combatants, snap.Stats.Deaths)
	}
}

func TestAccountingHoldsWithItems(t *testing.T) {
	opts := DefaultOptions()
	opts.Rules = strictRules()
	opts.Fuses.Bomb = 2
	opts.Fuses.Capture = 4
	sim, err := New(opts)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(5))
	kinds := []items.Kind{items.KindBomb, items.KindCaptureDevice, items.KindMedPack, items.KindCaptureDevice}

	for i := 0; i < 120; i++ {
		if i%2 == 0 {
			for _, k := range kinds {
				if _, err := sim.AddItem(k, world.Pos(rng.Intn(sim.Grid.Len()))); err != nil {
					t.Fatal(err)
				}
			}
		}
		prev := sim.Snapshot()
		snap := sim.Advance()

		births := snap.Stats.Births - prev.Stats.Births
		deaths := snap.Stats.Deaths - prev.Stats.Deaths
		before := len(prev.Combatants) + held(prev)
		after := len(snap.Combatants) + held(snap)
		if after != before-deaths+births {
			t.Fatalf("tick %d: %d live or held, want %d (before %d, -%d deaths, +%d births)",
				snap.Tick, after, before-deaths+births, before, deaths, births)
		}
	}
}
