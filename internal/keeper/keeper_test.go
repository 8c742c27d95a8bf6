package keeper

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"

	"github.com/talgya/arena/internal/api"
	"github.com/talgya/arena/internal/combatants"
	"github.com/talgya/arena/internal/engine"
	"github.com/talgya/arena/internal/world"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// observation builds a w x h all-grass arena with combatants on the given
// flat indices.
func observation(w, h int, at ...int) *Observation {
	obs := &Observation{}
	obs.Snapshot.Width, obs.Snapshot.Height = w, h
	obs.Snapshot.Tiles = make([]world.TileType, w*h)
	for i := range obs.Snapshot.Tiles {
		obs.Snapshot.Tiles[i] = world.TileGrass
	}
	for _, i := range at {
		obs.Snapshot.Combatants = append(obs.Snapshot.Combatants, &combatants.Combatant{Position: world.Pos(i)})
	}
	obs.Status.Population = len(at)
	return obs
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestTriageLevels(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name string
		obs  *Observation
		want Level
	}{
		{"empty", observation(10, 10), LevelCritical},
		{"sparse", observation(10, 10, 0), LevelWarning},
		{"stable", observation(10, 10, seq(10)...), LevelHealthy},
		{"crowded", observation(10, 10, seq(50)...), LevelWatch},
		{"dying", func() *Observation {
			obs := observation(10, 10, seq(10)...)
			obs.History = []HistoryRow{{Tick: 1}, {Tick: 9, Births: 10, Deaths: 50}}
			return obs
		}(), LevelWarning},
		{"declining", func() *Observation {
			obs := observation(10, 10, seq(10)...)
			obs.History = []HistoryRow{{Tick: 1}, {Tick: 9, Births: 10, Deaths: 20}}
			return obs
		}(), LevelWatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Triage(tt.obs, th).Level; got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTriageIgnoresVoid(t *testing.T) {
	obs := observation(4, 1, 0)
	obs.Snapshot.Tiles[2] = world.TileVoid
	obs.Snapshot.Tiles[3] = world.TileVoid
	h := Triage(obs, DefaultThresholds())
	if h.Walkable != 2 || h.Density != 0.5 {
		t.Errorf("walkable = %d, density = %v", h.Walkable, h.Density)
	}
}

func TestDeathBirthRatio(t *testing.T) {
	tests := []struct {
		name    string
		history []HistoryRow
		want    float64
	}{
		{"no history", nil, 1},
		{"idle", []HistoryRow{{Births: 3, Deaths: 3}, {Births: 3, Deaths: 3}}, 1},
		{"balanced", []HistoryRow{{}, {Births: 4, Deaths: 4}}, 1},
		{"stalled", []HistoryRow{{}, {Deaths: 3}}, math.Inf(1)},
		{"after reset", []HistoryRow{
			{Births: 10, Deaths: 10},
			{Births: 20, Deaths: 40},
			{Births: 2, Deaths: 1},
			{Births: 4, Deaths: 5},
		}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deathBirthRatio(tt.history); got != tt.want {
				t.Errorf("ratio = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlannerResetsExhaustedArena(t *testing.T) {
	p := NewPlanner(1)
	mem := LoadMemory("")
	mem.Add(CycleRecord{Action: ActionSpawn})

	obs := observation(10, 10)
	d := p.Decide(obs, Triage(obs, p.Thresholds), mem)
	if d.Action != ActionReset {
		t.Errorf("action = %s, want reset even while cooling down", d.Action)
	}
}

func TestPlannerLeavesHealthyArenaAlone(t *testing.T) {
	p := NewPlanner(1)
	obs := observation(10, 10, seq(10)...)
	if d := p.Decide(obs, Triage(obs, p.Thresholds), LoadMemory("")); d.Action != ActionNone {
		t.Errorf("action = %s", d.Action)
	}
}

func TestPlannerSpawnsOnFreeTiles(t *testing.T) {
	p := NewPlanner(7)
	obs := observation(10, 10, 0)
	obs.Snapshot.Tiles[1] = world.TileVoid

	d := p.Decide(obs, Triage(obs, p.Thresholds), LoadMemory(""))
	if d.Action != ActionSpawn {
		t.Fatalf("action = %s, want spawn", d.Action)
	}
	if len(d.Cells) != p.MaxSpawns/2 {
		t.Errorf("spawned %d cells, want %d", len(d.Cells), p.MaxSpawns/2)
	}
	seen := map[Cell]bool{}
	for _, c := range d.Cells {
		if seen[c] {
			t.Errorf("cell %v drawn twice", c)
		}
		seen[c] = true
		if c == (Cell{0, 0}) || c == (Cell{1, 0}) {
			t.Errorf("cell %v is occupied or void", c)
		}
	}
}

func TestPlannerCoolsDownAfterIntervention(t *testing.T) {
	p := NewPlanner(1)
	mem := LoadMemory("")
	mem.Add(CycleRecord{Action: ActionSpawn})
	mem.Add(CycleRecord{Action: ActionNone})

	obs := observation(10, 10, 0)
	if d := p.Decide(obs, Triage(obs, p.Thresholds), mem); d.Action != ActionNone {
		t.Fatalf("action = %s during cooldown", d.Action)
	}
	mem.Add(CycleRecord{Action: ActionNone})
	if d := p.Decide(obs, Triage(obs, p.Thresholds), mem); d.Action != ActionSpawn {
		t.Errorf("action = %s after cooldown, want spawn", d.Action)
	}
}

func TestPlannerBombsCrowdedCenter(t *testing.T) {
	p := NewPlanner(1)
	// A plus sign on a 3x3 arena; the middle has four neighbours.
	obs := observation(3, 3, 1, 3, 4, 5, 7)
	d := p.Decide(obs, Triage(obs, p.Thresholds), LoadMemory(""))
	want := Decision{Action: ActionBomb, Cells: []Cell{{X: 1, Y: 1}}, Rationale: "arena overcrowded"}
	if diff := cmp.Diff(want, d); diff != "" {
		t.Errorf("decision mismatch (-want +got):\n%s", diff)
	}
}

func TestMemoryQuietCycles(t *testing.T) {
	mem := LoadMemory("")
	if got := mem.QuietCycles(); got != maxRecords {
		t.Errorf("fresh memory quiet = %d", got)
	}
	mem.Add(CycleRecord{Action: ActionBomb})
	mem.Add(CycleRecord{Action: ActionNone})
	mem.Add(CycleRecord{Action: ActionNone})
	if got := mem.QuietCycles(); got != 2 {
		t.Errorf("quiet = %d, want 2", got)
	}
}

func TestMemoryKeepsNewestRecords(t *testing.T) {
	mem := LoadMemory("")
	for i := range maxRecords + 5 {
		mem.Add(CycleRecord{Tick: uint64(i)})
	}
	if len(mem.Records) != maxRecords || mem.Records[0].Tick != 5 {
		t.Errorf("records = %d, oldest tick %d", len(mem.Records), mem.Records[0].Tick)
	}
}

func TestMemorySurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keeper.json")
	mem := LoadMemory(path)
	mem.Add(CycleRecord{Tick: 12, Action: ActionSpawn, Level: "WARNING", Applied: 3})
	if err := mem.Save(); err != nil {
		t.Fatal(err)
	}

	got := LoadMemory(path)
	if diff := cmp.Diff(mem.Records, got.Records); diff != "" {
		t.Errorf("records mismatch (-saved +loaded):\n%s", diff)
	}
}

func TestMemoryStartsFreshWhenCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keeper.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if mem := LoadMemory(path); len(mem.Records) != 0 {
		t.Errorf("records = %v", mem.Records)
	}
}

// newArena serves an 8x6 flat arena with six combatants and no database.
func newArena(t *testing.T) (*engine.Engine, *httptest.Server) {
	t.Helper()
	opts := engine.DefaultOptions()
	opts.Width, opts.Height = 8, 6
	opts.InitialPopulation = 6
	opts.Map = "flat"
	sim, err := engine.New(opts)
	if err != nil {
		t.Fatal(err)
	}
	eng := engine.NewEngine(sim)
	s := &api.Server{Eng: eng, AdminKey: "secret"}
	ts := httptest.NewServer(s.Router())
	t.Cleanup(ts.Close)
	return eng, ts
}

func TestCycleSpawnsIntoSparseArena(t *testing.T) {
	eng, ts := newArena(t)
	k := New(ts.URL, "secret", 3, LoadMemory(""))
	k.Planner.Thresholds.MinDensity = 0.5

	d, err := k.Cycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.Action != ActionSpawn || len(d.Cells) != k.Planner.MaxSpawns {
		t.Fatalf("decision = %+v", d)
	}
	if got := eng.Snapshot().Stats.NumCombatants; got != 6+k.Planner.MaxSpawns {
		t.Errorf("population = %d after spawning", got)
	}
	rec := k.Memory.Records[0]
	if rec.Action != ActionSpawn || rec.Applied != k.Planner.MaxSpawns || rec.Level != "WARNING" {
		t.Errorf("record = %+v", rec)
	}
}

func TestCycleResetsEmptyArena(t *testing.T) {
	eng, ts := newArena(t)
	eng.Do(func(sim *engine.Simulation) error {
		var at []world.Pos
		for _, c := range sim.Registry().Live() {
			at = append(at, c.Position)
		}
		for _, p := range at {
			if err := sim.KillSelected(p); err != nil {
				return err
			}
		}
		return nil
	})
	if got := eng.Snapshot().Stats.NumCombatants; got != 0 {
		t.Fatalf("population = %d before cycle", got)
	}

	k := New(ts.URL, "secret", 3, LoadMemory(""))
	d, err := k.Cycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d.Action != ActionReset {
		t.Fatalf("action = %s", d.Action)
	}
	if got := eng.Snapshot().Stats.NumCombatants; got != 6 {
		t.Errorf("population = %d after reset", got)
	}
}

func TestCycleRecordsFailedIntervention(t *testing.T) {
	_, ts := newArena(t)
	k := New(ts.URL, "wrong", 3, LoadMemory(""))
	k.Planner.Thresholds.MinDensity = 0.5

	_, err := k.Cycle(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401", err)
	}
	if len(k.Memory.Records) != 1 || k.Memory.Records[0].Applied != 0 {
		t.Errorf("records = %+v", k.Memory.Records)
	}
}

func TestWaitReadyGivesUp(t *testing.T) {
	o := NewObserver("http://127.0.0.1:1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := o.WaitReady(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v", err)
	}
}
