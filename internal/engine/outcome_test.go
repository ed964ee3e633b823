package engine

import "testing"

func TestBlowoutSeverityThresholds(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		margin float64
		want   BlowoutSeverity
	}{
		{0.0, BlowoutNone},
		{0.14, BlowoutNone},
		{0.15, BlowoutMild},
		{0.34, BlowoutMild},
		{0.35, BlowoutModerate},
		{0.59, BlowoutModerate},
		{0.6, BlowoutSevere},
		{1.0, BlowoutSevere},
	}
	for _, tc := range tests {
		if got := blowoutSeverity(tc.margin, cfg); got != tc.want {
			t.Errorf("blowoutSeverity(%f) = %v, want %v", tc.margin, got, tc.want)
		}
	}
}

func TestWinProbabilityFavoursStrongerTeam(t *testing.T) {
	if p := sigmoid(2.0 * 0.5); p <= 0.5 {
		t.Errorf("positive skill gap gave win probability %f, want > 0.5", p)
	}
	if p := sigmoid(2.0 * -0.5); p >= 0.5 {
		t.Errorf("negative skill gap gave win probability %f, want < 0.5", p)
	}
	if p := sigmoid(0); p != 0.5 {
		t.Errorf("even teams gave win probability %f, want exactly 0.5", p)
	}
}

func TestMatchesFinaliseAtScheduledEndTickNotAtCommit(t *testing.T) {
	e := New(42)
	e.GeneratePopulation(1000)

	firstActiveTick := -1
	for i := 0; i < 400; i++ {
		if err := e.Tick(); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		stats, err := e.GetStats()
		if err != nil {
			t.Fatalf("GetStats: %v", err)
		}
		if firstActiveTick < 0 && stats.ActiveMatchCount > 0 {
			firstActiveTick = i
			// The shortest playlist lasts 360s / 5s = 72 ticks, so nothing
			// can have completed yet.
			if stats.TotalMatchesFormed != 0 {
				t.Fatalf("tick %d: match completed at commit time (formed=%d)", i, stats.TotalMatchesFormed)
			}
		}
	}

	if firstActiveTick < 0 {
		t.Fatal("no match ever became active over 400 ticks")
	}
	final, err := e.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if final.TotalMatchesFormed == 0 {
		t.Fatal("no match ever completed over 400 ticks")
	}
}

func TestCompletedMatchesReleaseArenaSlots(t *testing.T) {
	e := New(42)
	e.GeneratePopulation(1000)
	runTicks(t, e, 400)

	stats, err := e.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalMatchesFormed == 0 {
		t.Fatal("expected completed matches")
	}
	if stats.ActiveMatchCount > stats.InMatchCount {
		t.Errorf("more active matches (%d) than in-match players (%d): completed slots not freed",
			stats.ActiveMatchCount, stats.InMatchCount)
	}
}
