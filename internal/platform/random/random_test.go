package random

import "testing"

func TestNew_SameSeedSameSequence(t *testing.T) {
	a, b := New(42), New(42)
	for i := 0; i < 100; i++ {
		if a.Float64() != b.Float64() {
			t.Fatalf("sequence diverged at draw %d", i)
		}
		if a.IntN(1000) != b.IntN(1000) {
			t.Fatalf("int sequence diverged at draw %d", i)
		}
	}
}

func TestDerive_StreamsDiffer(t *testing.T) {
	a, b := Derive(7, "loot"), Derive(7, "events")
	same := 0
	for i := 0; i < 20; i++ {
		if a.Float64() == b.Float64() {
			same++
		}
	}
	if same == 20 {
		t.Fatalf("derived streams must not be identical")
	}
}

func TestFixed_Cycles(t *testing.T) {
	f := &Fixed{Floats: []float64{0.1, 0.9}, Ints: []int{5}}
	if f.Float64() != 0.1 || f.Float64() != 0.9 || f.Float64() != 0.1 {
		t.Fatalf("unexpected float cycle")
	}
	if got := f.IntN(3); got != 2 {
		t.Fatalf("expected 5 mod 3 = 2, got %d", got)
	}
	if got := (&Fixed{}).IntN(4); got != 0 {
		t.Fatalf("empty fixed must return 0, got %d", got)
	}
}

func TestNewSeed(t *testing.T) {
	if _, err := NewSeed(); err != nil {
		t.Fatalf("new seed: %v", err)
	}
}
