package engine

import "sort"

// skillUpdate is one pending correction accumulated from a committed
// match outcome, awaiting batched application.
type skillUpdate struct {
	playerID int
	observed float64 // Y_i, the drawn performance index
	expected float64 // E[Y_i | s_i, lobby] at the time the match was scored
}

// ToggleSkillEvolution gates the online skill update without
// otherwise touching the live configuration.
func (e *Engine) ToggleSkillEvolution(on bool) {
	e.skillEvolutionOn = on
}

// queueSkillUpdate is called by the outcome simulator for every player in
// a match that just finalised.
func (e *Engine) queueSkillUpdate(playerID int, observed, expected float64) {
	if !e.skillEvolutionOn {
		return
	}
	e.pendingUpdates = append(e.pendingUpdates, skillUpdate{
		playerID: playerID,
		observed: observed,
		expected: expected,
	})
}

// noteMatchCompleted advances the per-match batch counter; once the
// configured number of matches has completed since the last batch, all
// pending updates are applied in committed order.
func (e *Engine) noteMatchCompleted() {
	if !e.skillEvolutionOn {
		return
	}
	e.completedMatchesSinceBatch++
	if e.completedMatchesSinceBatch >= e.cfg.SkillUpdateBatchSize {
		e.applySkillBatch()
	}
}

// applySkillBatch applies every pending update in committed order, clips
// skills to [-1, 1], then recomputes percentiles/buckets in O(N log N).
func (e *Engine) applySkillBatch() {
	if len(e.pendingUpdates) == 0 {
		e.completedMatchesSinceBatch = 0
		return
	}

	alpha := e.cfg.SkillLearningRate
	for _, u := range e.pendingUpdates {
		p := &e.players[u.playerID]
		p.Skill = clamp(p.Skill+alpha*(u.observed-u.expected), -1, 1)
	}

	e.pendingUpdates = e.pendingUpdates[:0]
	e.completedMatchesSinceBatch = 0

	e.recomputePercentilesAndBuckets()
	e.rebuildIndexer()
}

// recomputePercentilesAndBuckets performs a single sort over skills,
// deriving both percentiles and equal-frequency bucket boundaries from
// it.
func (e *Engine) recomputePercentilesAndBuckets() {
	n := len(e.players)
	if n == 0 {
		return
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		return e.players[order[i]].Skill < e.players[order[j]].Skill
	})

	for rank, pid := range order {
		e.players[pid].Percentile = (float64(rank) + 0.5) / float64(n)
	}

	b := e.cfg.NumSkillBuckets
	boundaries := make([]float64, 0, b-1)
	for i := 1; i < b; i++ {
		pos := i * n / b
		if pos >= n {
			pos = n - 1
		}
		boundaries = append(boundaries, e.players[order[pos]].Skill)
	}
	e.bucketBoundaries = boundaries

	for i := range e.players {
		e.players[i].Bucket = bucketFromSkill(e.players[i].Skill, boundaries) + 1
	}
}

// rebuildIndexer reinserts every currently-Searching search under the
// freshly recomputed bucket boundaries. Cheap relative to a skill batch
// (which is already O(N log N)) since active-search counts are bounded by
// the matchmaking queue depth, not the whole population.
func (e *Engine) rebuildIndexer() {
	e.indexer.clear()
	e.searches.Each(func(h Handle, s *Search) {
		e.indexer.insert(h, s, e.bucketBoundaries)
	})
}

// expectedPerformance returns E[Y_i | s_i, lobby] for the outcome
// simulator's performance draw: a player's skill offset from the lobby's
// mean skill, the noiseless term of the performance-index draw.
func expectedPerformance(skill, lobbyMeanSkill float64) float64 {
	return skill - lobbyMeanSkill
}
