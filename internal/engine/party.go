package engine

// dissolveParty frees the party referenced by h and clears the Party
// handle on every member still pointing at it, per the invariant "a party
// dissolves when any member goes Offline." Surviving members become solo
// agents: "a solo player appears as a party of size one only inside the
// search pipeline; standalone solo agents are not allocated a party
// object."
func (e *Engine) dissolveParty(h Handle) {
	party, ok := e.parties.Get(h)
	if !ok {
		return
	}
	for _, pid := range party.Members {
		if e.players[pid].Party == h {
			e.players[pid].Party = Handle{}
		}
	}
	e.parties.Free(h)
}

// dissolvePartiesWithOfflineMembers is the defensive, idempotent party
// step run each tick: any party with a member who has departed (gone
// Offline after playing this session) is dissolved. Players who are
// Offline because their arrival clock hasn't fired yet don't count —
// their party is waiting, not broken. In normal operation this is a
// no-op because the post-match retention draw dissolves the party
// inline; it exists as a safety net so the dissolution invariant holds
// even if a future code path forgets to call dissolveParty directly.
func (e *Engine) dissolvePartiesWithOfflineMembers() {
	var toDissolve []Handle
	e.parties.Each(func(h Handle, p *Party) {
		for _, pid := range p.Members {
			member := &e.players[pid]
			if member.State == StateOffline && member.SessionMatchCount > 0 {
				toDissolve = append(toDissolve, h)
				return
			}
		}
	})
	for _, h := range toDissolve {
		e.dissolveParty(h)
	}
}

// partyAggregates returns the (meanSkill, spread, size) for the party
// referenced by h, or for a solo player if h is invalid.
func (e *Engine) partyAggregates(h Handle, soloPlayerID int) (meanSkill, spread float64, size int) {
	if party, ok := e.parties.Get(h); ok {
		return party.MeanSkill, party.Spread, len(party.Members)
	}
	s := e.players[soloPlayerID].Skill
	return s, 0, 1
}
