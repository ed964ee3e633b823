package engine

import "sort"

// waitGrowthTicks controls how quickly the indexer's scan radius widens
// with a seed search's wait time: one extra bucket of radius for
// every waitGrowthTicks seconds waited.
const waitGrowthTicks = 15.0

// haversineNormKM divides raw great-circle distance in the composite
// distance function so the geographic term lands in [0, ~1].
const haversineNormKM = 12000.0

// formMatches is pipeline stage 3: pick seed searches in descending-wait,
// ascending-identity order, greedily assemble a feasible lobby around
// each one, and commit every lobby that reaches a playlist's required
// seat count. It returns the handles of every match formed this tick.
func (e *Engine) formMatches() []Handle {
	seeds := e.collectSeeds()

	consumed := make(map[Handle]bool)
	var formed []Handle

	for _, seedHandle := range seeds {
		if consumed[seedHandle] {
			continue
		}
		seed, ok := e.searches.Get(seedHandle)
		if !ok {
			continue
		}

		lobby, playlist, dcMask, ok := e.assembleLobby(seedHandle, seed, consumed)
		if !ok {
			continue
		}

		dc, ok := e.pickDataCentre(playlist, lobby, dcMask)
		if !ok {
			continue
		}

		for _, h := range lobby {
			consumed[h] = true
		}

		formed = append(formed, e.commitMatch(playlist, dc, lobby))
	}

	return formed
}

// collectSeeds orders every active search by descending wait (oldest
// first), breaking ties by ascending handle index.
func (e *Engine) collectSeeds() []Handle {
	var out []Handle
	e.searches.Each(func(h Handle, s *Search) {
		out = append(out, h)
	})
	sort.Slice(out, func(i, j int) bool {
		si, _ := e.searches.Get(out[i])
		sj, _ := e.searches.Get(out[j])
		if si.Wait != sj.Wait {
			return si.Wait > sj.Wait
		}
		return out[i].Index < out[j].Index
	})
	return out
}

// skillWindow returns the [lower, upper] acceptance window for a search
// at its current wait: the band around its mean skill that any lobby
// extreme must fall inside.
func (e *Engine) skillWindow(s *Search) (lo, hi float64) {
	tol := clamp(e.cfg.SkillSimilarityInitial+e.cfg.SkillSimilarityRate*s.Wait, 0, e.cfg.SkillSimilarityMax)
	return s.MeanSkill - tol, s.MeanSkill + tol
}

// spreadCap returns a search's maximum tolerated lobby skill spread at
// its current wait.
func (e *Engine) spreadCap(s *Search) float64 {
	return clamp(e.cfg.MaxSkillDisparityInitial+e.cfg.MaxSkillDisparityRate*s.Wait, 0, e.cfg.MaxSkillDisparityMax)
}

// acceptableDataCentres returns the bitmask of data-centres every member
// player of s accepts at the search's current wait: ping at most the
// member's best ping plus the widened delta tolerance, and under the hard
// ceiling.
func (e *Engine) acceptableDataCentres(s *Search) uint64 {
	delta := clamp(e.cfg.DeltaPingInitial+e.cfg.DeltaPingRate*s.Wait, 0, e.cfg.DeltaPingMax)

	mask := uint64(1)<<uint(len(e.dataCentres)) - 1
	for _, pid := range s.memberPlayerIDs {
		p := &e.players[pid]
		best := minPing(p.BasePingMS)
		var m uint64
		for dc := range e.dataCentres {
			ping := p.BasePingMS[dc]
			if ping <= best+delta && ping <= e.cfg.MaxPingMS {
				m |= 1 << uint(dc)
			}
		}
		mask &= m
		if mask == 0 {
			break
		}
	}
	return mask
}

// lobbyState tracks the running aggregates the feasibility predicate
// needs while a lobby is greedily grown around a seed.
type lobbyState struct {
	members []*Search
	seats   int

	// skillLo/skillHi are the running lobby skill extremes, including
	// each member party's internal spread.
	skillLo, skillHi float64

	dcMask uint64
}

func (e *Engine) newLobbyState(seed *Search) lobbyState {
	return lobbyState{
		members: []*Search{seed},
		seats:   seed.Size,
		skillLo: seed.MeanSkill - seed.Spread/2,
		skillHi: seed.MeanSkill + seed.Spread/2,
		dcMask:  e.acceptableDataCentres(seed),
	}
}

// admissible checks every feasibility constraint for adding cand to the lobby:
// the widened extremes must sit inside every member's acceptance window
// (including the candidate's own), the widened spread must respect every
// member's cap, and the data-centre acceptance sets must still intersect.
func (e *Engine) admissible(st *lobbyState, cand *Search) (newLo, newHi float64, newMask uint64, ok bool) {
	newLo = st.skillLo
	newHi = st.skillHi
	if lo := cand.MeanSkill - cand.Spread/2; lo < newLo {
		newLo = lo
	}
	if hi := cand.MeanSkill + cand.Spread/2; hi > newHi {
		newHi = hi
	}

	spread := newHi - newLo
	if spread > e.spreadCap(cand) {
		return 0, 0, 0, false
	}
	wlo, whi := e.skillWindow(cand)
	if newLo < wlo || newHi > whi {
		return 0, 0, 0, false
	}
	for _, m := range st.members {
		if spread > e.spreadCap(m) {
			return 0, 0, 0, false
		}
		wlo, whi := e.skillWindow(m)
		if newLo < wlo || newHi > whi {
			return 0, 0, 0, false
		}
	}

	newMask = st.dcMask & e.acceptableDataCentres(cand)
	if newMask == 0 {
		return 0, 0, 0, false
	}
	return newLo, newHi, newMask, true
}

// assembleLobby greedily grows a lobby around seed by pulling candidates
// from the bucketed indexer in ascending composite-distance order,
// stopping as soon as some eligible playlist's seat count is exactly met.
// It returns false if no playlist can be filled from the available
// candidates; the seed then carries over to the next tick with a longer
// wait and wider bands.
func (e *Engine) assembleLobby(seedHandle Handle, seed *Search, consumed map[Handle]bool) ([]Handle, int, uint64, bool) {
	for _, playlist := range seed.EligiblePlaylists {
		required := e.playlists[playlist].RequiredSeats

		candidates := e.indexer.candidates(seedHandle, seed, e.bucketBoundaries,
			e.cfg.NumSkillBuckets, e.cfg.TopKCandidates, waitGrowthTicks)
		e.sortByDistance(seed, candidates)

		usable := e.usableCandidates(candidates, consumed, playlist)
		if !subsetSumReachable(e.sizesOf(usable), required-seed.Size) {
			continue
		}

		st := e.newLobbyState(seed)
		lobby := []Handle{seedHandle}

		for i, ch := range usable {
			if st.seats >= required {
				break
			}
			cand, ok := e.searches.Get(ch)
			if !ok {
				continue
			}
			if st.seats+cand.Size > required {
				continue
			}
			// Adding this candidate must leave the remaining seat deficit
			// coverable by the candidates not yet considered.
			if !subsetSumReachable(e.sizesOf(usable[i+1:]), required-st.seats-cand.Size) {
				continue
			}

			newLo, newHi, newMask, ok := e.admissible(&st, cand)
			if !ok {
				continue
			}

			lobby = append(lobby, ch)
			st.members = append(st.members, cand)
			st.seats += cand.Size
			st.skillLo, st.skillHi = newLo, newHi
			st.dcMask = newMask
		}

		if st.seats == required {
			return lobby, playlist, st.dcMask, true
		}
	}
	return nil, 0, 0, false
}

// usableCandidates filters an already distance-sorted candidate list down
// to live, unconsumed searches eligible for the given playlist.
func (e *Engine) usableCandidates(candidates []Handle, consumed map[Handle]bool, playlist int) []Handle {
	out := candidates[:0:0]
	for _, ch := range candidates {
		if consumed[ch] {
			continue
		}
		cand, ok := e.searches.Get(ch)
		if !ok {
			continue
		}
		if !containsInt(cand.EligiblePlaylists, playlist) {
			continue
		}
		out = append(out, ch)
	}
	return out
}

// sizesOf returns the seat counts of the given live searches.
func (e *Engine) sizesOf(handles []Handle) []int {
	out := make([]int, 0, len(handles))
	for _, h := range handles {
		if s, ok := e.searches.Get(h); ok {
			out = append(out, s.Size)
		}
	}
	return out
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// subsetSumReachable reports whether some subset of sizes sums exactly to
// target; target 0 is trivially reachable. This is the pruning
// precheck that keeps the greedy loop from filling a lobby into a dead
// end (e.g. needing exactly 1 more seat with only parties of 2 left).
func subsetSumReachable(sizes []int, target int) bool {
	if target == 0 {
		return true
	}
	if target < 0 {
		return false
	}
	reachable := make([]bool, target+1)
	reachable[0] = true
	for _, sz := range sizes {
		if sz <= 0 {
			continue
		}
		for t := target; t >= sz; t-- {
			if reachable[t-sz] {
				reachable[t] = true
			}
		}
		if reachable[target] {
			return true
		}
	}
	return false
}

// sortByDistance orders candidates ascending by the composite distance
// function relative to seed; equal distances prefer the candidate
// whose mean skill is closer to the seed's, then lower identity.
func (e *Engine) sortByDistance(seed *Search, candidates []Handle) {
	sort.Slice(candidates, func(i, j int) bool {
		di := e.compositeDistance(seed, candidates[i])
		dj := e.compositeDistance(seed, candidates[j])
		if di != dj {
			return di < dj
		}
		si, oki := e.searches.Get(candidates[i])
		sj, okj := e.searches.Get(candidates[j])
		if oki && okj {
			gi := abs(si.MeanSkill - seed.MeanSkill)
			gj := abs(sj.MeanSkill - seed.MeanSkill)
			if gi != gj {
				return gi < gj
			}
		}
		return candidates[i].Index < candidates[j].Index
	})
}

// compositeDistance combines normalised geographic, skill, input-device,
// and platform mismatch into a single weighted score.
func (e *Engine) compositeDistance(seed *Search, h Handle) float64 {
	cand, ok := e.searches.Get(h)
	if !ok {
		return 1e18
	}

	geoKM := HaversineKM(seed.Location.Lat, seed.Location.Lon, cand.Location.Lat, cand.Location.Lon)
	geoNorm := normalise(geoKM, 0, haversineNormKM)

	skillNorm := normalise(abs(seed.MeanSkill-cand.MeanSkill), 0, 2)

	inputNorm := 0.0
	if !sameMajority(seed.InputCounts, cand.InputCounts) {
		inputNorm = 1
	}
	platformNorm := 0.0
	if !sameMajority3(seed.PlatformCounts, cand.PlatformCounts) {
		platformNorm = 1
	}

	return e.cfg.WeightGeo*geoNorm + e.cfg.WeightSkill*skillNorm +
		e.cfg.WeightInput*inputNorm + e.cfg.WeightPlatform*platformNorm
}

func sameMajority(a, b [2]int) bool {
	return majorityIndex2(a) == majorityIndex2(b)
}

func majorityIndex2(c [2]int) int {
	if c[1] > c[0] {
		return 1
	}
	return 0
}

func sameMajority3(a, b [3]int) bool {
	return majorityIndex3(a) == majorityIndex3(b)
}

func majorityIndex3(c [3]int) int {
	best := 0
	for i := 1; i < 3; i++ {
		if c[i] > c[best] {
			best = i
		}
	}
	return best
}

// pickDataCentre chooses, from the lobby's shared acceptance mask, the
// data-centre that minimises the members' average delta ping (assigned
// ping minus each player's own best ping). Ascending iteration makes the
// lowest-index data-centre win ties; capacity-limited data-centres that
// are full are skipped.
func (e *Engine) pickDataCentre(playlist int, lobby []Handle, dcMask uint64) (int, bool) {
	best := -1
	bestAvg := 0.0

	for dc := range e.dataCentres {
		if dcMask&(1<<uint(dc)) == 0 {
			continue
		}
		if e.cfg.EnableCapacityLimits {
			used := e.capacityUsed[capacityKey{dataCentre: dc, playlist: playlist}]
			if used >= e.cfg.ServerCapacityPerDCPlaylist {
				continue
			}
		}

		sum, n := 0.0, 0
		for _, h := range lobby {
			s, _ := e.searches.Get(h)
			for _, pid := range s.memberPlayerIDs {
				p := &e.players[pid]
				sum += p.BasePingMS[dc] - minPing(p.BasePingMS)
				n++
			}
		}
		if n == 0 {
			continue
		}
		avg := sum / float64(n)
		if best == -1 || avg < bestAvg {
			best = dc
			bestAvg = avg
		}
	}

	return best, best != -1
}

// commitMatch removes the lobby's searches from the indexer and active
// arena, allocates a Match, balances it into two teams, and transitions
// every member player to StateInMatch.
func (e *Engine) commitMatch(playlist, dc int, lobby []Handle) Handle {
	var allMembers []int
	var searchIDs []int
	waitSeconds := make(map[int]float64)
	partySearches := 0

	for _, h := range lobby {
		s, _ := e.searches.Get(h)
		searchIDs = append(searchIDs, s.ID)
		allMembers = append(allMembers, s.memberPlayerIDs...)
		if s.Size > 1 {
			partySearches++
		}
		for _, pid := range s.memberPlayerIDs {
			waitSeconds[pid] = s.Wait
		}

		e.indexer.remove(h, s, e.bucketBoundaries)
		e.searches.Free(h)
	}

	teamA, teamB := e.balanceTeams(allMembers)

	mh := e.matches.Alloc(Match{
		Playlist:         playlist,
		DataCentre:       dc,
		SearchIDs:        searchIDs,
		PartySearchCount: partySearches,
		TeamA:            teamA,
		TeamB:            teamB,
		WaitSeconds:      waitSeconds,
		StartTick:        e.tick,
		EndTick:          e.tick + durationTicks(e.playlists[playlist].DurationSeconds, e.cfg.TickIntervalSeconds),
	})
	match, _ := e.matches.Get(mh)
	match.ID = int(mh.Index)

	// Party handles survive the match: the group re-queues together
	// afterwards unless a member goes offline.
	for _, pid := range allMembers {
		e.players[pid].State = StateInMatch
		e.players[pid].Match = mh
		e.players[pid].Search = Handle{}
	}

	if e.cfg.EnableCapacityLimits {
		e.capacityUsed[capacityKey{dataCentre: dc, playlist: playlist}]++
	}

	return mh
}

func durationTicks(durationSeconds, tickIntervalSeconds float64) int64 {
	if tickIntervalSeconds <= 0 {
		return 1
	}
	t := int64(durationSeconds / tickIntervalSeconds)
	if t < 1 {
		return 1
	}
	return t
}
