package engine

import "math"

// completeDueMatches is pipeline stage 4: finalise every match whose
// scheduled end-tick has arrived, in ascending-identity order.
func (e *Engine) completeDueMatches() {
	var due []Handle
	e.matches.Each(func(h Handle, m *Match) {
		if !m.Finalised && m.EndTick <= e.tick {
			due = append(due, h)
		}
	})
	for _, h := range due {
		e.simulateOutcome(h)
	}
}

// simulateOutcome finalises one match whose end-tick has arrived: computes
// win probability from the team skill gap, draws a margin and per-player
// performance indices, classifies blowout severity, records each
// participant's experience-ring entry, queues their skill-evolution
// update, and runs the post-match retention draw that returns them to
// StateInLobby or StateOffline. The match's arena slot (and any held
// server capacity) is released once every participant has been processed.
func (e *Engine) simulateOutcome(mh Handle) {
	match, ok := e.matches.Get(mh)
	if !ok {
		return
	}

	skillA := teamMeanSkill(e, match.TeamA)
	skillB := teamMeanSkill(e, match.TeamB)

	winProbA := sigmoid(e.cfg.Gamma * (skillA - skillB))
	winnerIsA := e.rng.Bernoulli(winProbA)

	imbalance := abs(skillA - skillB)
	betaAlpha := 1 + e.cfg.BlowoutSkillCoefficient*imbalance
	betaBeta := 1 + e.cfg.BlowoutImbalanceCoefficient*teamSpread(e, match.TeamA, match.TeamB)
	margin := e.rng.Beta(betaAlpha, betaBeta)

	severity := blowoutSeverity(margin, e.cfg)

	perf := make(map[int]float64, len(match.TeamA)+len(match.TeamB))
	lobbyMean := (skillA + skillB) / 2
	for _, pid := range match.TeamA {
		perf[pid] = e.drawPerformance(pid, lobbyMean)
	}
	for _, pid := range match.TeamB {
		perf[pid] = e.drawPerformance(pid, lobbyMean)
	}

	match.Finalised = true
	match.Outcome = MatchOutcome{
		WinnerIsA:         winnerIsA,
		TeamSkillA:        skillA,
		TeamSkillB:        skillB,
		WinProbabilityA:   winProbA,
		Margin:            margin,
		BlowoutSeverity:   severity,
		PlayerPerformance: perf,
		Quality:           e.matchQuality(match, skillA, skillB),
	}

	e.stats.recordMatch(match, e.players)
	e.noteMatchCompleted()

	for _, pid := range append(append([]int(nil), match.TeamA...), match.TeamB...) {
		e.finishPlayerMatch(pid, match, severity, perf[pid])
	}

	if e.cfg.EnableCapacityLimits {
		key := capacityKey{dataCentre: match.DataCentre, playlist: match.Playlist}
		if e.capacityUsed[key] > 0 {
			e.capacityUsed[key]--
		}
	}
	e.matches.Free(mh)
}

func teamMeanSkill(e *Engine, team []int) float64 {
	if len(team) == 0 {
		return 0
	}
	sum := 0.0
	for _, pid := range team {
		sum += e.players[pid].Skill
	}
	return sum / float64(len(team))
}

func teamSpread(e *Engine, teamA, teamB []int) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, pid := range append(append([]int(nil), teamA...), teamB...) {
		s := e.players[pid].Skill
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	if math.IsInf(lo, 1) {
		return 0
	}
	return hi - lo
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func blowoutSeverity(margin float64, cfg Config) BlowoutSeverity {
	switch {
	case margin >= cfg.BlowoutSevereThreshold:
		return BlowoutSevere
	case margin >= cfg.BlowoutModerateThreshold:
		return BlowoutModerate
	case margin >= cfg.BlowoutMildThreshold:
		return BlowoutMild
	default:
		return BlowoutNone
	}
}

// drawPerformance samples a player's per-match performance index as their
// skill offset from the lobby mean plus configured Gaussian noise, and
// queues the corresponding skill-evolution correction.
func (e *Engine) drawPerformance(pid int, lobbyMeanSkill float64) float64 {
	p := &e.players[pid]
	expected := expectedPerformance(p.Skill, lobbyMeanSkill)
	observed := expected + e.rng.Gauss(0, e.cfg.PerformanceNoiseStd)
	e.queueSkillUpdate(pid, observed, expected)
	return observed
}

// finishPlayerMatch records the player's experience entry, runs the
// retention draw, and transitions them back to StateInLobby (to search
// again next tick) or StateOffline.
func (e *Engine) finishPlayerMatch(pid int, match *Match, severity BlowoutSeverity, performance float64) {
	p := &e.players[pid]

	deltaPing := p.BasePingMS[match.DataCentre] - minPing(p.BasePingMS)

	p.Experience.push(ExperienceEntry{
		WaitSeconds: match.WaitSeconds[pid],
		DeltaPingMS: deltaPing,
		Blowout:     severity != BlowoutNone,
		Performance: performance,
	})

	p.SessionMatchCount++
	p.Match = Handle{}

	stayed := e.rng.Bernoulli(e.retentionProbability(p))
	e.stats.recordContinuation(stayed)
	if stayed {
		p.State = StateInLobby
		p.ArrivalTick = e.tick
	} else {
		p.State = StateOffline
		if p.Party.Valid() {
			e.dissolveParty(p.Party)
		}
	}
}

// matchQuality scores a finalised match in [0,1]: the quality-weighted
// complement of its normalised ping, skill-imbalance, and wait penalties.
func (e *Engine) matchQuality(m *Match, skillA, skillB float64) float64 {
	var pingSum, waitSum float64
	n := 0
	for _, pid := range append(append([]int(nil), m.TeamA...), m.TeamB...) {
		p := &e.players[pid]
		if len(p.BasePingMS) > 0 {
			pingSum += p.BasePingMS[m.DataCentre] - minPing(p.BasePingMS)
		}
		waitSum += m.WaitSeconds[pid]
		n++
	}
	if n == 0 {
		return 0
	}

	pingPenalty := normalise(pingSum/float64(n), 0, e.cfg.MaxPingMS)
	skillPenalty := normalise(abs(skillA-skillB), 0, 2)
	waitPenalty := normalise(waitSum/float64(n), 0, 120)

	penalty := e.cfg.QualityWeightPing*pingPenalty +
		e.cfg.QualityWeightSkillBalance*skillPenalty +
		e.cfg.QualityWeightWaitTime*waitPenalty
	return clamp(1-penalty, 0, 1)
}

func minPing(pings []float64) float64 {
	if len(pings) == 0 {
		return 0
	}
	m := pings[0]
	for _, v := range pings[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
