package engine

// effectiveArrivalRate returns the live arrival rate: SetArrivalRate's
// override if set, otherwise the configured default.
func (e *Engine) effectiveArrivalRate() float64 {
	if e.arrivalRateOverride != nil {
		return *e.arrivalRateOverride
	}
	return e.cfg.ArrivalRatePerTick
}

// SetArrivalRate overrides the arrival rate used by Offline->InLobby
// thinning, independent of the rest of Config.
func (e *Engine) SetArrivalRate(r float64) {
	v := r
	e.arrivalRateOverride = &v
}

// runLifecycle is pipeline stage 1: Offline->InLobby arrivals via Poisson
// thinning, and InLobby->Searching submission for players that have been
// in the lobby for at least one full tick.
func (e *Engine) runLifecycle() {
	e.thinArrivals()
	e.submitSearches()
}

// thinArrivals draws each currently-Offline player whose arrival clock has
// fired independently with probability rate/offlineCount (offlineCount
// counting only those players), so the expected number of arrivals this
// tick equals the configured rate regardless of how large the offline
// pool is (standard Poisson-thinning over a finite population).
func (e *Engine) thinArrivals() {
	rate := e.effectiveArrivalRate()
	if rate <= 0 {
		return
	}

	offlineCount := 0
	for i := range e.players {
		if e.players[i].State == StateOffline && e.players[i].ArrivalTick <= e.tick {
			offlineCount++
		}
	}
	if offlineCount == 0 {
		return
	}

	p := rate / float64(offlineCount)
	for i := range e.players {
		pl := &e.players[i]
		if pl.State != StateOffline {
			continue
		}
		if pl.ArrivalTick > e.tick {
			continue // scheduled to arrive later
		}
		if e.rng.Bernoulli(p) {
			pl.State = StateInLobby
			pl.ArrivalTick = e.tick
		}
	}
}

// submitSearches transitions players that became InLobby strictly before
// this tick into Searching, forming one Search per party (or per solo
// player) and choosing a playlist preference by weighted draw.
func (e *Engine) submitSearches() {
	// Parties submit together only once every member is InLobby and has
	// waited out the one-tick delay; a solo player submits as soon as
	// they are eligible.
	handled := make(map[int]bool)

	for i := range e.players {
		pl := &e.players[i]
		if pl.State != StateInLobby || pl.ArrivalTick >= e.tick || handled[pl.ID] {
			continue
		}

		if party, ok := e.parties.Get(pl.Party); ok {
			allReady := true
			for _, pid := range party.Members {
				m := &e.players[pid]
				if m.State != StateInLobby || m.ArrivalTick >= e.tick {
					allReady = false
					break
				}
			}
			if !allReady {
				continue
			}
			for _, pid := range party.Members {
				handled[pid] = true
			}
			e.createSearch(pl.Party, party.Members)
			continue
		}

		handled[pl.ID] = true
		e.createSearch(Handle{}, []int{pl.ID})
	}
}

func (e *Engine) createSearch(partyHandle Handle, memberIDs []int) {
	// Refresh aggregates first; member skills may have evolved since the
	// party's previous search.
	if party, ok := e.parties.Get(partyHandle); ok {
		e.recomputePartyAggregates(party)
	}
	meanSkill, spread, _ := e.partyAggregates(partyHandle, memberIDs[0])

	loc := centroid(e, memberIDs)
	eligible := e.intersectEligiblePlaylists(memberIDs)
	if len(eligible) == 0 {
		// No shared playlist preference: fall back to playlist 0,
		// whatever the members' preference vectors say, so the group is
		// never left without a playlist to search.
		eligible = []int{0}
	}

	var platformCounts [3]int
	var inputCounts [2]int
	for _, pid := range memberIDs {
		platformCounts[e.players[pid].Platform]++
		inputCounts[e.players[pid].Input]++
	}

	h := e.searches.Alloc(Search{
		Party:             partyHandle,
		Size:              len(memberIDs),
		MeanSkill:         meanSkill,
		Spread:            spread,
		Location:          loc,
		PlatformCounts:    platformCounts,
		InputCounts:       inputCounts,
		EligiblePlaylists: eligible,
		StartTick:         e.tick,
		memberPlayerIDs:   append([]int(nil), memberIDs...),
	})
	search, _ := e.searches.Get(h)
	search.ID = int(h.Index)

	for _, pid := range memberIDs {
		e.players[pid].State = StateSearching
		e.players[pid].Search = h
	}

	e.indexer.insert(h, search, e.bucketBoundaries)
}

// intersectEligiblePlaylists returns the indices present (with positive
// weight) in every member's PlaylistWeight vector, ordered ascending.
func (e *Engine) intersectEligiblePlaylists(memberIDs []int) []int {
	var out []int
	for pi := range e.playlists {
		all := true
		for _, pid := range memberIDs {
			if e.players[pid].PlaylistWeight[pi] <= 0 {
				all = false
				break
			}
		}
		if all {
			out = append(out, pi)
		}
	}
	return out
}

func centroid(e *Engine, memberIDs []int) GeoPoint {
	var sumLat, sumLon float64
	for _, pid := range memberIDs {
		sumLat += e.players[pid].Home.Lat
		sumLon += e.players[pid].Home.Lon
	}
	n := float64(len(memberIDs))
	return GeoPoint{Lat: sumLat / n, Lon: sumLon / n}
}

// retentionProbability implements the post-match continuation formula using a
// player's most recent experience-ring entry (the match that just ended).
func (e *Engine) retentionProbability(p *Player) float64 {
	entries := p.Experience.snapshot()
	if len(entries) == 0 {
		return e.cfg.RetentionBaseProbability
	}
	last := entries[0]

	normWait := normalise(last.WaitSeconds, 0, 120)
	normPing := normalise(last.DeltaPingMS, 0, e.cfg.MaxPingMS)
	blowout := 0.0
	if last.Blowout {
		blowout = 1
	}

	prob := e.cfg.RetentionBaseProbability *
		(1 - e.cfg.RetentionAlphaWait*normWait) *
		(1 - e.cfg.RetentionAlphaPing*normPing) *
		(1 - e.cfg.RetentionAlphaBlowout*blowout)

	return clamp(prob, e.cfg.RetentionClipMin, e.cfg.RetentionClipMax)
}

func normalise(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0
	}
	n := (v - lo) / (hi - lo)
	return clamp(n, 0, 1)
}
