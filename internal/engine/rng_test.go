package engine

import "testing"

func TestStreamDeterministic(t *testing.T) {
	a := NewStream(42)
	b := NewStream(42)

	for i := 0; i < 1000; i++ {
		if a.Uint64() != b.Uint64() {
			t.Fatalf("streams with identical seed diverged at draw %d", i)
		}
	}
}

func TestStreamDifferentSeedsDiverge(t *testing.T) {
	a := NewStream(1)
	b := NewStream(2)

	same := true
	for i := 0; i < 16; i++ {
		if a.Uint64() != b.Uint64() {
			same = false
			break
		}
	}
	if same {
		t.Errorf("streams with different seeds produced identical output")
	}
}

func TestFloat64Range(t *testing.T) {
	s := NewStream(7)
	for i := 0; i < 10000; i++ {
		v := s.Float64()
		if v < 0 || v >= 1 {
			t.Fatalf("Float64() = %f, want [0,1)", v)
		}
	}
}

func TestTruncatedNormalStaysInBounds(t *testing.T) {
	s := NewStream(3)
	for i := 0; i < 10000; i++ {
		v := s.TruncatedNormal(0, 0.35, -1, 1)
		if v < -1 || v > 1 {
			t.Fatalf("TruncatedNormal produced %f outside [-1,1]", v)
		}
	}
}

func TestBetaRange(t *testing.T) {
	s := NewStream(9)
	for i := 0; i < 1000; i++ {
		v := s.Beta(2, 5)
		if v < 0 || v > 1 {
			t.Fatalf("Beta(2,5) = %f, want [0,1]", v)
		}
	}
}

func TestCategoricalRespectsWeights(t *testing.T) {
	s := NewStream(11)
	counts := make([]int, 3)
	const n = 20000
	for i := 0; i < n; i++ {
		counts[s.Categorical([]float64{0.1, 0.3, 0.6})]++
	}
	// Loose bounds: just confirm the ordering reflects the weights.
	if !(counts[0] < counts[1] && counts[1] < counts[2]) {
		t.Errorf("categorical draw counts %v did not respect weight ordering", counts)
	}
}

func TestHaversineKMKnownDistance(t *testing.T) {
	// London to Paris, roughly 344 km.
	d := HaversineKM(51.5074, -0.1278, 48.8566, 2.3522)
	if d < 300 || d > 400 {
		t.Errorf("HaversineKM(London, Paris) = %f, want ~344km", d)
	}
}

func TestHaversineKMZeroForSamePoint(t *testing.T) {
	d := HaversineKM(10, 20, 10, 20)
	if d != 0 {
		t.Errorf("HaversineKM(same point) = %f, want 0", d)
	}
}
