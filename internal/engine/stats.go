package engine

import "sort"

// reservoirCapacity bounds the global-percentile sample reservoirs kept
// for search-time, delta-ping, and performance histograms, so
// long-running simulations don't grow memory unboundedly.
const reservoirCapacity = 10000

// SkillSnapshot is one recorded point of the skill-evolution time series.
type SkillSnapshot struct {
	Tick           int64
	BucketMeans    []float64
	PopulationSize int
}

// BucketStats summarises one skill bucket's current population and
// cumulative matchmaking experience.
type BucketStats struct {
	Bucket      int
	PlayerCount int
	MeanSkill   float64

	MatchesCount          int
	WinsCount             int
	CumulativeWaitSeconds float64
	CumulativeDeltaPingMS float64
}

// RegionStats summarises matchmaking quality for players whose home
// region matches the key.
type RegionStats struct {
	Region          string
	PlayerCount     int
	MatchCount      int
	MeanDeltaPingMS float64
}

// Stats is the snapshot returned by Engine.GetStats.
type Stats struct {
	Tick int64

	OfflineCount   int
	InLobbyCount   int
	SearchingCount int
	InMatchCount   int

	ActiveSearchCount  int
	ActiveMatchCount   int
	TotalMatchesFormed int

	PartyCount      int
	AvgPartySize    float64
	PartyMatchCount int

	MeanSearchWaitSeconds float64
	SearchWaitP50Seconds  float64
	SearchWaitP90Seconds  float64
	SearchWaitP99Seconds  float64

	MeanDeltaPingMS float64
	DeltaPingP90MS  float64

	MeanTeamSkillDiff float64
	MeanMatchQuality  float64

	BlowoutCounts map[BlowoutSeverity]int
	BlowoutRate   float64
}

// bucketAgg holds one skill bucket's cumulative match experience.
type bucketAgg struct {
	matches   int
	wins      int
	waitSum   float64
	deltaPing float64
}

// regionAgg holds one home region's cumulative match experience.
type regionAgg struct {
	matches      int
	deltaPingSum float64
}

// statsAccumulator holds running counters and bounded reservoirs fed by
// Engine.Tick and the outcome simulator; every Get* query reads from it
// rather than re-scanning full history each call.
type statsAccumulator struct {
	totalMatchesFormed int
	partyMatchCount    int
	blowoutCounts      map[BlowoutSeverity]int

	teamSkillDiffSum   float64
	teamSkillDiffCount int
	qualitySum         float64

	continuationTotal  int
	continuationStayed int

	searchWaitReservoir []float64
	deltaPingReservoir  []float64
	performanceSamples  []float64

	snapshots []SkillSnapshot

	byBucket map[int]*bucketAgg
	byRegion map[string]*regionAgg
}

func newStatsAccumulator() *statsAccumulator {
	return &statsAccumulator{
		blowoutCounts: make(map[BlowoutSeverity]int),
		byBucket:      make(map[int]*bucketAgg),
		byRegion:      make(map[string]*regionAgg),
	}
}

// recordMatch is called once per finalised match from simulateOutcome. It
// samples each participant's wait time, delta ping at the assigned
// data-centre, performance index, and win/loss, feeding the per-match
// sample reservoirs and per-bucket rollups.
func (s *statsAccumulator) recordMatch(m *Match, players []Player) {
	s.totalMatchesFormed++
	s.blowoutCounts[m.Outcome.BlowoutSeverity]++
	if m.PartySearchCount > 0 {
		s.partyMatchCount++
	}

	s.teamSkillDiffSum += abs(m.Outcome.TeamSkillA - m.Outcome.TeamSkillB)
	s.teamSkillDiffCount++
	s.qualitySum += m.Outcome.Quality

	record := func(team []int, won bool) {
		for _, pid := range team {
			// Team order, not map order: reservoir eviction must see the
			// same insertion sequence on every identically-seeded run.
			s.pushReservoir(&s.searchWaitReservoir, m.WaitSeconds[pid])
			s.pushReservoir(&s.performanceSamples, m.Outcome.PlayerPerformance[pid])

			p := &players[pid]
			if len(p.BasePingMS) == 0 {
				continue
			}
			deltaPing := p.BasePingMS[m.DataCentre] - minPing(p.BasePingMS)
			s.pushReservoir(&s.deltaPingReservoir, deltaPing)

			if p.Bucket > 0 {
				agg := s.byBucket[p.Bucket]
				if agg == nil {
					agg = &bucketAgg{}
					s.byBucket[p.Bucket] = agg
				}
				agg.matches++
				if won {
					agg.wins++
				}
				agg.waitSum += m.WaitSeconds[pid]
				agg.deltaPing += deltaPing
			}

			reg := s.byRegion[p.HomeRegion]
			if reg == nil {
				reg = &regionAgg{}
				s.byRegion[p.HomeRegion] = reg
			}
			reg.matches++
			reg.deltaPingSum += deltaPing
		}
	}
	record(m.TeamA, m.Outcome.WinnerIsA)
	record(m.TeamB, !m.Outcome.WinnerIsA)
}

// recordContinuation tallies one post-match retention draw.
func (s *statsAccumulator) recordContinuation(stayed bool) {
	s.continuationTotal++
	if stayed {
		s.continuationStayed++
	}
}

// pushReservoir appends v, dropping the oldest sample once the reservoir
// is full so memory stays bounded; recency matters more than uniform
// sampling for these diagnostic histograms.
func (s *statsAccumulator) pushReservoir(reservoir *[]float64, v float64) {
	if len(*reservoir) < reservoirCapacity {
		*reservoir = append(*reservoir, v)
		return
	}
	*reservoir = append((*reservoir)[1:], v)
}

func (s *statsAccumulator) recordSkillSnapshot(tick int64, players []Player, numBuckets int) {
	sums := make([]float64, numBuckets)
	counts := make([]int, numBuckets)
	for _, p := range players {
		b := p.Bucket - 1
		if b < 0 || b >= numBuckets {
			continue
		}
		sums[b] += p.Skill
		counts[b]++
	}
	means := make([]float64, numBuckets)
	for i := range means {
		if counts[i] > 0 {
			means[i] = sums[i] / float64(counts[i])
		}
	}
	s.snapshots = append(s.snapshots, SkillSnapshot{
		Tick:           tick,
		BucketMeans:    means,
		PopulationSize: len(players),
	})
}

// GetStats returns a point-in-time snapshot of population counters,
// matchmaking averages, search-time and delta-ping percentiles, and the
// blowout breakdown.
func (e *Engine) GetStats() (Stats, *Error) {
	if !e.populationGenerated {
		return Stats{}, errPopulationNotInitialised()
	}

	st := Stats{
		Tick:               e.tick,
		TotalMatchesFormed: e.stats.totalMatchesFormed,
		PartyMatchCount:    e.stats.partyMatchCount,
		ActiveSearchCount:  e.searches.Len(),
		ActiveMatchCount:   e.matches.Len(),
		BlowoutCounts:      cloneBlowoutCounts(e.stats.blowoutCounts),
	}
	for i := range e.players {
		switch e.players[i].State {
		case StateOffline:
			st.OfflineCount++
		case StateInLobby:
			st.InLobbyCount++
		case StateSearching:
			st.SearchingCount++
		case StateInMatch:
			st.InMatchCount++
		}
	}

	memberSum := 0
	e.parties.Each(func(h Handle, p *Party) {
		st.PartyCount++
		memberSum += len(p.Members)
	})
	if st.PartyCount > 0 {
		st.AvgPartySize = float64(memberSum) / float64(st.PartyCount)
	}

	st.MeanSearchWaitSeconds = mean(e.stats.searchWaitReservoir)
	st.SearchWaitP50Seconds = percentile(e.stats.searchWaitReservoir, 0.50)
	st.SearchWaitP90Seconds = percentile(e.stats.searchWaitReservoir, 0.90)
	st.SearchWaitP99Seconds = percentile(e.stats.searchWaitReservoir, 0.99)

	st.MeanDeltaPingMS = mean(e.stats.deltaPingReservoir)
	st.DeltaPingP90MS = percentile(e.stats.deltaPingReservoir, 0.90)

	if e.stats.teamSkillDiffCount > 0 {
		st.MeanTeamSkillDiff = e.stats.teamSkillDiffSum / float64(e.stats.teamSkillDiffCount)
		st.MeanMatchQuality = e.stats.qualitySum / float64(e.stats.teamSkillDiffCount)
	}

	blowouts := e.stats.blowoutCounts[BlowoutMild] +
		e.stats.blowoutCounts[BlowoutModerate] +
		e.stats.blowoutCounts[BlowoutSevere]
	if e.stats.totalMatchesFormed > 0 {
		st.BlowoutRate = float64(blowouts) / float64(e.stats.totalMatchesFormed)
	}

	return st, nil
}

func cloneBlowoutCounts(m map[BlowoutSeverity]int) map[BlowoutSeverity]int {
	out := make(map[BlowoutSeverity]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// percentile computes the q-th quantile (q in [0,1]) of xs on a sorted
// copy taken at query time, nearest-rank style.
func percentile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	idx := int(q * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// GetBucketStats returns per-skill-bucket population, mean skill, and
// cumulative match experience, ordered by bucket ascending.
func (e *Engine) GetBucketStats() ([]BucketStats, *Error) {
	if !e.populationGenerated {
		return nil, errPopulationNotInitialised()
	}

	b := e.cfg.NumSkillBuckets
	sums := make([]float64, b)
	counts := make([]int, b)
	for _, p := range e.players {
		idx := p.Bucket - 1
		if idx < 0 || idx >= b {
			continue
		}
		sums[idx] += p.Skill
		counts[idx]++
	}

	out := make([]BucketStats, b)
	for i := 0; i < b; i++ {
		mean := 0.0
		if counts[i] > 0 {
			mean = sums[i] / float64(counts[i])
		}
		out[i] = BucketStats{
			Bucket:      i + 1,
			PlayerCount: counts[i],
			MeanSkill:   mean,
		}
		if agg := e.stats.byBucket[i+1]; agg != nil {
			out[i].MatchesCount = agg.matches
			out[i].WinsCount = agg.wins
			out[i].CumulativeWaitSeconds = agg.waitSum
			out[i].CumulativeDeltaPingMS = agg.deltaPing
		}
	}
	return out, nil
}

// GetSkillDistribution returns every player's current skill value,
// ascending, for callers that want to build their own histogram.
func (e *Engine) GetSkillDistribution() ([]float64, *Error) {
	if !e.populationGenerated {
		return nil, errPopulationNotInitialised()
	}
	out := make([]float64, len(e.players))
	for i, p := range e.players {
		out[i] = p.Skill
	}
	sort.Float64s(out)
	return out, nil
}

// GetSearchTimeHistogram buckets the search-wait reservoir into
// equal-width bins spanning [min-observed, max-observed].
func (e *Engine) GetSearchTimeHistogram(bins int) ([]int, *Error) {
	if !e.populationGenerated {
		return nil, errPopulationNotInitialised()
	}
	return histogram(e.stats.searchWaitReservoir, bins), nil
}

// GetDeltaPingHistogram buckets the delta-ping reservoir into equal-width
// bins.
func (e *Engine) GetDeltaPingHistogram(bins int) ([]int, *Error) {
	if !e.populationGenerated {
		return nil, errPopulationNotInitialised()
	}
	return histogram(e.stats.deltaPingReservoir, bins), nil
}

// GetPerformanceDistribution buckets the recorded performance-index
// samples into equal-width bins.
func (e *Engine) GetPerformanceDistribution(bins int) ([]int, *Error) {
	if !e.populationGenerated {
		return nil, errPopulationNotInitialised()
	}
	return histogram(e.stats.performanceSamples, bins), nil
}

func histogram(xs []float64, bins int) []int {
	out := make([]int, bins)
	if len(xs) == 0 || bins <= 0 {
		return out
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	span := hi - lo
	if span <= 0 {
		out[0] = len(xs)
		return out
	}
	for _, x := range xs {
		idx := int((x - lo) / span * float64(bins))
		if idx >= bins {
			idx = bins - 1
		}
		out[idx]++
	}
	return out
}

// GetParties returns a snapshot of every currently-active party.
func (e *Engine) GetParties() ([]Party, *Error) {
	if !e.populationGenerated {
		return nil, errPopulationNotInitialised()
	}
	var out []Party
	e.parties.Each(func(h Handle, p *Party) {
		out = append(out, *p)
	})
	return out, nil
}

// GetSearchQueue returns a snapshot of every currently-active search.
func (e *Engine) GetSearchQueue() ([]Search, *Error) {
	if !e.populationGenerated {
		return nil, errPopulationNotInitialised()
	}
	var out []Search
	e.searches.Each(func(h Handle, s *Search) {
		out = append(out, *s)
	})
	return out, nil
}

// GetRegionStats summarises player counts and cumulative match delta-ping
// by home region, ordered by region name.
func (e *Engine) GetRegionStats() ([]RegionStats, *Error) {
	if !e.populationGenerated {
		return nil, errPopulationNotInitialised()
	}

	playersByRegion := make(map[string]int)
	for _, p := range e.players {
		playersByRegion[p.HomeRegion]++
	}

	regions := make([]string, 0, len(playersByRegion))
	for r := range playersByRegion {
		regions = append(regions, r)
	}
	sort.Strings(regions)

	out := make([]RegionStats, 0, len(regions))
	for _, region := range regions {
		rs := RegionStats{
			Region:      region,
			PlayerCount: playersByRegion[region],
		}
		if agg := e.stats.byRegion[region]; agg != nil && agg.matches > 0 {
			rs.MatchCount = agg.matches
			rs.MeanDeltaPingMS = agg.deltaPingSum / float64(agg.matches)
		}
		out = append(out, rs)
	}
	return out, nil
}

// RetentionStats reports the effective (online) population and the
// cumulative post-match continuation rate.
type RetentionStats struct {
	EffectivePopulation int
	OfflineCount        int
	ContinuationDraws   int
	ContinuationRate    float64
}

// GetRetentionStats reports the current online/offline split and the
// realised continuation probability across all post-match retention
// draws so far.
func (e *Engine) GetRetentionStats() (RetentionStats, *Error) {
	if !e.populationGenerated {
		return RetentionStats{}, errPopulationNotInitialised()
	}
	var rs RetentionStats
	for _, p := range e.players {
		if p.State == StateOffline {
			rs.OfflineCount++
		} else {
			rs.EffectivePopulation++
		}
	}
	rs.ContinuationDraws = e.stats.continuationTotal
	if e.stats.continuationTotal > 0 {
		rs.ContinuationRate = float64(e.stats.continuationStayed) / float64(e.stats.continuationTotal)
	}
	return rs, nil
}

// GetSkillEvolutionData returns every recorded skill-evolution snapshot
// in chronological order.
func (e *Engine) GetSkillEvolutionData() ([]SkillSnapshot, *Error) {
	if !e.populationGenerated {
		return nil, errPopulationNotInitialised()
	}
	return append([]SkillSnapshot(nil), e.stats.snapshots...), nil
}
