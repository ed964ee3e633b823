package engine

import "testing"

func TestPercentile(t *testing.T) {
	xs := []float64{5, 1, 4, 2, 3}

	if got := percentile(xs, 0); got != 1 {
		t.Errorf("p0 = %f, want 1", got)
	}
	if got := percentile(xs, 0.5); got != 3 {
		t.Errorf("p50 = %f, want 3", got)
	}
	if got := percentile(xs, 1); got != 5 {
		t.Errorf("p100 = %f, want 5", got)
	}
	if got := percentile(nil, 0.5); got != 0 {
		t.Errorf("empty percentile = %f, want 0", got)
	}
}

func TestHistogramSpansSamples(t *testing.T) {
	xs := []float64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	bins := histogram(xs, 5)

	total := 0
	for _, b := range bins {
		total += b
	}
	if total != len(xs) {
		t.Errorf("histogram lost samples: counted %d of %d", total, len(xs))
	}
	if bins[0] == 0 || bins[4] == 0 {
		t.Errorf("expected occupied extreme bins, got %v", bins)
	}
}

func TestHistogramDegenerateSpan(t *testing.T) {
	bins := histogram([]float64{3, 3, 3}, 4)
	if bins[0] != 3 {
		t.Errorf("identical samples should land in bin 0, got %v", bins)
	}
}

func TestPushReservoirStaysBounded(t *testing.T) {
	s := newStatsAccumulator()
	for i := 0; i < reservoirCapacity+500; i++ {
		s.pushReservoir(&s.searchWaitReservoir, float64(i))
	}
	if len(s.searchWaitReservoir) != reservoirCapacity {
		t.Fatalf("reservoir grew to %d, capacity is %d", len(s.searchWaitReservoir), reservoirCapacity)
	}
	// Oldest samples are evicted first.
	if s.searchWaitReservoir[0] != 500 {
		t.Errorf("expected oldest surviving sample 500, got %f", s.searchWaitReservoir[0])
	}
}

func TestRegionStatsCoverWholePopulation(t *testing.T) {
	e := New(42)
	e.GeneratePopulation(500)

	regions, err := e.GetRegionStats()
	if err != nil {
		t.Fatalf("GetRegionStats: %v", err)
	}
	total := 0
	for _, r := range regions {
		total += r.PlayerCount
	}
	if total != 500 {
		t.Errorf("region player counts sum to %d, want 500", total)
	}
}

func TestBucketStatsAccumulateWinsAndMatches(t *testing.T) {
	e := New(42)
	e.GeneratePopulation(1000)
	runTicks(t, e, 400)

	stats, err := e.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalMatchesFormed == 0 {
		t.Fatal("expected completed matches for bucket accumulation")
	}

	buckets, err := e.GetBucketStats()
	if err != nil {
		t.Fatalf("GetBucketStats: %v", err)
	}

	matches, wins := 0, 0
	for _, b := range buckets {
		if b.WinsCount > b.MatchesCount {
			t.Errorf("bucket %d has more wins (%d) than matches (%d)", b.Bucket, b.WinsCount, b.MatchesCount)
		}
		matches += b.MatchesCount
		wins += b.WinsCount
	}
	if matches == 0 {
		t.Error("no per-bucket match participation recorded")
	}
	// Every completed match has exactly one winning team, so close to half
	// of all participations are wins.
	if wins == 0 || wins >= matches {
		t.Errorf("implausible win split: %d wins of %d participations", wins, matches)
	}
}

func TestRetentionStatsRecordContinuationDraws(t *testing.T) {
	e := New(42)
	e.GeneratePopulation(1000)
	runTicks(t, e, 400)

	rs, err := e.GetRetentionStats()
	if err != nil {
		t.Fatalf("GetRetentionStats: %v", err)
	}
	if rs.ContinuationDraws == 0 {
		t.Fatal("expected retention draws after completed matches")
	}
	if rs.ContinuationRate < 0 || rs.ContinuationRate > 1 {
		t.Errorf("continuation rate %f out of [0,1]", rs.ContinuationRate)
	}
	if rs.EffectivePopulation+rs.OfflineCount != 1000 {
		t.Errorf("effective (%d) + offline (%d) != population", rs.EffectivePopulation, rs.OfflineCount)
	}
}

func TestSkillEvolutionSnapshotsRecordedOnCadence(t *testing.T) {
	e := New(42)
	e.GeneratePopulation(300)
	runTicks(t, e, 120)

	snaps, err := e.GetSkillEvolutionData()
	if err != nil {
		t.Fatalf("GetSkillEvolutionData: %v", err)
	}
	if len(snaps) < 2 {
		t.Fatalf("expected at least 2 snapshots over 120 ticks at interval 50, got %d", len(snaps))
	}
	for i := 1; i < len(snaps); i++ {
		if snaps[i].Tick <= snaps[i-1].Tick {
			t.Fatalf("snapshots not chronological: %d then %d", snaps[i-1].Tick, snaps[i].Tick)
		}
	}
	if len(snaps[0].BucketMeans) != e.cfg.NumSkillBuckets {
		t.Errorf("snapshot has %d bucket means, want %d", len(snaps[0].BucketMeans), e.cfg.NumSkillBuckets)
	}
}

func TestGetStatsReportsPartyAggregates(t *testing.T) {
	e := New(42)
	cfg := DefaultConfig()
	cfg.PartyPlayerFraction = 0.8
	if err := e.UpdateConfig(cfg); err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	e.GeneratePopulation(1000)

	stats, err := e.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.PartyCount == 0 {
		t.Fatal("expected parties at fraction 0.8")
	}
	if stats.AvgPartySize < 1.5 {
		t.Errorf("avg party size %f, want > 1.5", stats.AvgPartySize)
	}
}
