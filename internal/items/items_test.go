package items

import (
	"testing"

	"github.com/talgya/arena/internal/combatants"
)

func TestTickFiresAtFuseLength(t *testing.T) {
	it := New(1, KindBomb, 4, 3)
	for tap := 1; tap <= 2; tap++ {
		if it.Tick() {
			t.Fatalf("bomb fired early on tap %d", tap)
		}
	}
	if !it.Tick() {
		t.Fatalf("bomb should fire on tap 3")
	}
}

func TestTickNoFuseNeverFires(t *testing.T) {
	it := New(1, KindTerrainSpider, 0, NoFuse)
	for i := 0; i < 100; i++ {
		if it.Tick() {
			t.Fatalf("item without a fuse fired after %d taps", i+1)
		}
	}
	if it.Age != 100 {
		t.Fatalf("age = %d, want 100", it.Age)
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{KindBomb, KindMedPack, KindCaptureDevice, KindTerrainSpider} {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v, %v", k.String(), got, ok)
		}
	}
	if _, ok := ParseKind("grenade"); ok {
		t.Errorf("expected unknown kind to fail")
	}
}

func TestCloneCopiesCaptives(t *testing.T) {
	it := New(1, KindCaptureDevice, 0, 5)
	it.Captured = []*combatants.Combatant{{ID: 7, Fitness: 3}}

	cp := it.Clone()
	cp.Captured[0].Fitness = 99
	if it.Captured[0].Fitness != 3 {
		t.Fatalf("captive aliased between clones")
	}
}

func TestFusesFor(t *testing.T) {
	f := DefaultFuses()
	if f.For(KindBomb) != 3 || f.For(KindMedPack) != NoFuse || f.For(KindTerrainSpider) != NoFuse {
		t.Fatalf("unexpected default fuses %+v", f)
	}
}
