package entropy

import "testing"

func TestResolveKeepsExplicitSeed(t *testing.T) {
	if got := Resolve(42); got != 42 {
		t.Errorf("Resolve(42) = %d", got)
	}
}

func TestResolveDrawsNonZero(t *testing.T) {
	for i := 0; i < 100; i++ {
		if s := Resolve(0); s <= 0 {
			t.Fatalf("Resolve(0) = %d, want positive", s)
		}
	}
}
