package persistence

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/talgya/arena/internal/engine"
	"github.com/talgya/arena/internal/items"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "arena.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testRun(t *testing.T, ticks int) (*engine.Simulation, []engine.Snapshot) {
	t.Helper()
	opts := engine.DefaultOptions()
	opts.Width, opts.Height = 16, 12
	opts.InitialPopulation = 25
	sim, err := engine.New(opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sim.AddItem(items.KindCaptureDevice, 30); err != nil {
		t.Fatal(err)
	}
	var snaps []engine.Snapshot
	for i := 0; i < ticks; i++ {
		snaps = append(snaps, sim.Advance())
	}
	return sim, snaps
}

func TestEmptyDatabaseHasNoSnapshot(t *testing.T) {
	db := openTestDB(t)
	if _, _, err := db.LoadLatestSnapshot(); !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("LoadLatestSnapshot on empty db = %v, want ErrNoSnapshot", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	db := openTestDB(t)
	sim, snaps := testRun(t, 6)

	runID, err := db.StartRun(sim.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveSnapshot(runID, snaps[2]); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveSnapshot(runID, snaps[5]); err != nil {
		t.Fatal(err)
	}

	gotRun, got, err := db.LoadLatestSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if gotRun != runID {
		t.Errorf("run id = %q, want %q", gotRun, runID)
	}
	if diff := cmp.Diff(snaps[5], got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("snapshot round trip (-saved +loaded):\n%s", diff)
	}

	current, err := db.GetMeta("current_run")
	if err != nil || current != runID {
		t.Errorf("current_run meta = %q, %v", current, err)
	}
}

func TestStatsHistoryAndEvents(t *testing.T) {
	db := openTestDB(t)
	sim, snaps := testRun(t, 10)
	runID, err := db.StartRun(sim.Snapshot())
	if err != nil {
		t.Fatal(err)
	}

	rec := &Recorder{DB: db, RunID: runID, SnapshotEvery: 4}
	events := 0
	for _, snap := range snaps {
		rec.Record(snap)
		events += len(snap.Events)
	}

	rows, err := db.StatsHistory(runID, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("history rows = %d, want 3", len(rows))
	}
	for i, want := range []uint64{8, 9, 10} {
		if rows[i].Tick != want {
			t.Errorf("row %d tick = %d, want %d", i, rows[i].Tick, want)
		}
	}
	last := snaps[len(snaps)-1]
	if rows[2].NumCombatants != last.Stats.NumCombatants || rows[2].Deaths != last.Stats.Deaths {
		t.Errorf("last row %+v does not match stats %+v", rows[2], last.Stats)
	}

	recent, err := db.RecentEvents(runID, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != events {
		t.Errorf("stored events = %d, want %d", len(recent), events)
	}

	_, latest, err := db.LoadLatestSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if latest.Tick != 8 {
		t.Errorf("latest snapshot tick = %d, want 8", latest.Tick)
	}
}

func TestResumeFromStoredSnapshot(t *testing.T) {
	db := openTestDB(t)
	_, snaps := testRun(t, 5)
	if err := db.SaveSnapshot("run", snaps[4]); err != nil {
		t.Fatal(err)
	}
	_, saved, err := db.LoadLatestSnapshot()
	if err != nil {
		t.Fatal(err)
	}

	sim, err := engine.New(engine.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if err := sim.Restore(saved); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(snaps[4], sim.Snapshot(), cmpopts.EquateEmpty(), cmpopts.IgnoreFields(engine.Snapshot{}, "Events")); diff != "" {
		t.Errorf("resumed state differs:\n%s", diff)
	}
}
