package engine

import "testing"

func runTicks(t *testing.T, e *Engine, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := e.Tick(); err != nil {
			t.Fatalf("tick %d failed: %v", i, err)
		}
	}
}

func TestTickBeforePopulationFails(t *testing.T) {
	e := New(1)
	if err := e.Tick(); err == nil {
		t.Fatal("expected Tick before GeneratePopulation to fail")
	}
}

func TestQueriesBeforePopulationFail(t *testing.T) {
	e := New(1)
	if _, err := e.GetStats(); err == nil {
		t.Error("expected GetStats before GeneratePopulation to fail")
	}
	if _, err := e.GetBucketStats(); err == nil {
		t.Error("expected GetBucketStats before GeneratePopulation to fail")
	}
}

func TestZeroPopulationTicksNoOp(t *testing.T) {
	e := New(42)
	e.GeneratePopulation(0)
	runTicks(t, e, 10)

	stats, err := e.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.OfflineCount+stats.InLobbyCount+stats.SearchingCount+stats.InMatchCount != 0 {
		t.Errorf("expected all-zero counts for population 0, got %+v", stats)
	}
	if stats.TotalMatchesFormed != 0 {
		t.Errorf("expected zero matches for population 0, got %d", stats.TotalMatchesFormed)
	}
}

func TestPopulationSmallerThanLargestPlaylistFormsNoMatchOfThatPlaylist(t *testing.T) {
	e := New(7)
	cfg := DefaultConfig()
	// Keep only the 64-seat playlist, with a population too small to ever
	// fill it.
	cfg.Playlists = []PlaylistConfig{
		{Name: "large-32v32", RequiredSeats: 64, DurationSeconds: 1200, Weight: 1},
	}
	if err := e.UpdateConfig(cfg); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	e.GeneratePopulation(10)
	runTicks(t, e, 200)

	stats, err := e.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalMatchesFormed != 0 {
		t.Errorf("expected zero matches when population can never fill the only playlist, got %d", stats.TotalMatchesFormed)
	}
}

func TestLifecycleStateCountsSumToPopulation(t *testing.T) {
	e := New(99)
	e.GeneratePopulation(300)

	for i := 0; i < 100; i++ {
		if err := e.Tick(); err != nil {
			t.Fatalf("tick %d: %v", i, err)
		}
		stats, err := e.GetStats()
		if err != nil {
			t.Fatalf("GetStats: %v", err)
		}
		sum := stats.OfflineCount + stats.InLobbyCount + stats.SearchingCount + stats.InMatchCount
		if sum != 300 {
			t.Fatalf("tick %d: state counts sum to %d, want 300", i, sum)
		}
	}
}

func TestSkillStaysInBounds(t *testing.T) {
	e := New(5)
	cfg := DefaultConfig()
	cfg.EnableSkillEvolution = true
	cfg.SkillUpdateBatchSize = 5
	if err := e.UpdateConfig(cfg); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	e.GeneratePopulation(500)
	runTicks(t, e, 300)

	dist, err := e.GetSkillDistribution()
	if err != nil {
		t.Fatalf("GetSkillDistribution: %v", err)
	}
	for _, s := range dist {
		if s < -1 || s > 1 {
			t.Fatalf("skill %f out of [-1,1] after evolution", s)
		}
	}
}

func TestPercentilesMonotoneInSkill(t *testing.T) {
	e := New(13)
	e.GeneratePopulation(400)
	runTicks(t, e, 50)

	type pair struct{ skill, pct float64 }
	pairs := make([]pair, len(e.players))
	for i, p := range e.players {
		pairs[i] = pair{p.Skill, p.Percentile}
	}
	for i := range pairs {
		for j := range pairs {
			if pairs[i].skill < pairs[j].skill && pairs[i].pct > pairs[j].pct {
				t.Fatalf("percentile not monotone in skill: skill %f has pct %f > skill %f's pct %f",
					pairs[i].skill, pairs[i].pct, pairs[j].skill, pairs[j].pct)
			}
		}
	}
}

func TestDeterminismSameSeedSameConfig(t *testing.T) {
	build := func() *Engine {
		e := New(42)
		e.GeneratePopulation(400)
		return e
	}

	e1 := build()
	e2 := build()

	for i := 0; i < 200; i++ {
		if err := e1.Tick(); err != nil {
			t.Fatalf("e1 tick %d: %v", i, err)
		}
		if err := e2.Tick(); err != nil {
			t.Fatalf("e2 tick %d: %v", i, err)
		}
	}

	s1, err := e1.GetStats()
	if err != nil {
		t.Fatalf("e1 GetStats: %v", err)
	}
	s2, err := e2.GetStats()
	if err != nil {
		t.Fatalf("e2 GetStats: %v", err)
	}

	if s1.Tick != s2.Tick ||
		s1.OfflineCount != s2.OfflineCount ||
		s1.InLobbyCount != s2.InLobbyCount ||
		s1.SearchingCount != s2.SearchingCount ||
		s1.InMatchCount != s2.InMatchCount ||
		s1.TotalMatchesFormed != s2.TotalMatchesFormed ||
		s1.MeanSearchWaitSeconds != s2.MeanSearchWaitSeconds {
		t.Fatalf("two identically-seeded engines diverged: %+v vs %+v", s1, s2)
	}

	d1, err := e1.GetSkillDistribution()
	if err != nil {
		t.Fatalf("e1 GetSkillDistribution: %v", err)
	}
	d2, err := e2.GetSkillDistribution()
	if err != nil {
		t.Fatalf("e2 GetSkillDistribution: %v", err)
	}
	if len(d1) != len(d2) {
		t.Fatalf("skill distributions differ in length: %d vs %d", len(d1), len(d2))
	}
	for i := range d1 {
		if d1[i] != d2[i] {
			t.Fatalf("skill distributions diverged at index %d: %f vs %f", i, d1[i], d2[i])
		}
	}
}

func TestSkillEvolutionOffIsStationary(t *testing.T) {
	e := New(21)
	cfg := DefaultConfig()
	cfg.EnableSkillEvolution = false
	if err := e.UpdateConfig(cfg); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	e.GeneratePopulation(300)
	runTicks(t, e, 20)

	before, err := e.GetBucketStats()
	if err != nil {
		t.Fatalf("GetBucketStats: %v", err)
	}

	runTicks(t, e, 200)

	after, err := e.GetBucketStats()
	if err != nil {
		t.Fatalf("GetBucketStats: %v", err)
	}

	if len(before) != len(after) {
		t.Fatalf("bucket count changed: %d vs %d", len(before), len(after))
	}
	for i := range before {
		if abs(before[i].MeanSkill-after[i].MeanSkill) > 1e-9 {
			t.Errorf("bucket %d mean skill moved from %f to %f with evolution disabled",
				before[i].Bucket, before[i].MeanSkill, after[i].MeanSkill)
		}
	}
}

func TestPartyPlayerFractionAffectsPartyFormation(t *testing.T) {
	buildWithFraction := func(fraction float64) (*Engine, error) {
		e := New(42)
		cfg := DefaultConfig()
		cfg.PartyPlayerFraction = fraction
		if err := e.UpdateConfig(cfg); err != nil {
			return nil, err
		}
		e.GeneratePopulation(1000)
		return e, nil
	}

	zero, err := buildWithFraction(0.0)
	if err != nil {
		t.Fatalf("UpdateConfig(0.0): %v", err)
	}
	eighty, err := buildWithFraction(0.8)
	if err != nil {
		t.Fatalf("UpdateConfig(0.8): %v", err)
	}

	if zero.parties.Len() != 0 {
		t.Errorf("party_player_fraction=0 produced %d parties, want 0", zero.parties.Len())
	}
	if eighty.parties.Len() == 0 {
		t.Errorf("party_player_fraction=0.8 produced 0 parties, want > 0")
	}
}

func TestConcreteScenarioDefaultConfigProducesMatches(t *testing.T) {
	e := New(42)
	e.GeneratePopulation(1000)
	runTicks(t, e, 500)

	stats, err := e.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalMatchesFormed <= 0 {
		t.Errorf("expected at least one match formed over 500 ticks at population 1000, got 0")
	}

	total := stats.BlowoutCounts[BlowoutNone] + stats.BlowoutCounts[BlowoutMild] +
		stats.BlowoutCounts[BlowoutModerate] + stats.BlowoutCounts[BlowoutSevere]
	if total > 0 {
		severe := stats.BlowoutCounts[BlowoutSevere]
		rate := float64(severe) / float64(total)
		if rate > 0.4 {
			t.Errorf("severe blowout rate %f exceeds 0.4", rate)
		}
	}
}

func TestTighterSkillSimilarityLowersTeamDiffAndRaisesWait(t *testing.T) {
	run := func(similarityInitial, similarityRate float64) Stats {
		e := New(42)
		cfg := DefaultConfig()
		cfg.SkillSimilarityInitial = similarityInitial
		cfg.SkillSimilarityRate = similarityRate
		cfg.EnableSkillEvolution = false
		if err := e.UpdateConfig(cfg); err != nil {
			t.Fatalf("UpdateConfig: %v", err)
		}
		e.GeneratePopulation(1000)
		runTicks(t, e, 400)

		stats, err := e.GetStats()
		if err != nil {
			t.Fatalf("GetStats: %v", err)
		}
		return stats
	}

	loose := run(DefaultConfig().SkillSimilarityInitial, DefaultConfig().SkillSimilarityRate)
	tight := run(0.01, 0)

	if loose.TotalMatchesFormed == 0 || tight.TotalMatchesFormed == 0 {
		t.Fatalf("both runs must form matches: loose=%d tight=%d",
			loose.TotalMatchesFormed, tight.TotalMatchesFormed)
	}
	if tight.MeanTeamSkillDiff > loose.MeanTeamSkillDiff {
		t.Errorf("tight similarity team diff %f exceeds loose %f",
			tight.MeanTeamSkillDiff, loose.MeanTeamSkillDiff)
	}
	if tight.SearchWaitP90Seconds < loose.SearchWaitP90Seconds {
		t.Errorf("tight similarity p90 wait %f below loose %f",
			tight.SearchWaitP90Seconds, loose.SearchWaitP90Seconds)
	}
}

func TestExactBalancingBeatsGreedyOnTeamSkillDiff(t *testing.T) {
	run := func(exact bool) Stats {
		e := New(42)
		cfg := DefaultConfig()
		cfg.UseExactTeamBalancing = exact
		cfg.EnableSkillEvolution = false
		if err := e.UpdateConfig(cfg); err != nil {
			t.Fatalf("UpdateConfig: %v", err)
		}
		e.GeneratePopulation(1000)
		runTicks(t, e, 400)

		stats, err := e.GetStats()
		if err != nil {
			t.Fatalf("GetStats: %v", err)
		}
		return stats
	}

	withExact := run(true)
	withGreedy := run(false)

	if withExact.TotalMatchesFormed == 0 || withGreedy.TotalMatchesFormed == 0 {
		t.Fatalf("both runs must form matches: exact=%d greedy=%d",
			withExact.TotalMatchesFormed, withGreedy.TotalMatchesFormed)
	}
	if withExact.MeanTeamSkillDiff > withGreedy.MeanTeamSkillDiff+1e-9 {
		t.Errorf("exact balancing team diff %f exceeds greedy %f",
			withExact.MeanTeamSkillDiff, withGreedy.MeanTeamSkillDiff)
	}
}

func TestToggleSkillEvolution(t *testing.T) {
	e := New(1)
	e.GeneratePopulation(10)
	e.ToggleSkillEvolution(false)
	if e.skillEvolutionOn {
		t.Error("ToggleSkillEvolution(false) did not disable evolution")
	}
	e.ToggleSkillEvolution(true)
	if !e.skillEvolutionOn {
		t.Error("ToggleSkillEvolution(true) did not enable evolution")
	}
}

func TestSetArrivalRateOverridesConfig(t *testing.T) {
	e := New(1)
	e.GeneratePopulation(10)
	e.SetArrivalRate(0)
	if e.effectiveArrivalRate() != 0 {
		t.Errorf("SetArrivalRate(0) did not override the configured rate")
	}
}
