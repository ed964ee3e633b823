package engine

import "testing"

// newTestEngine builds an Engine with n bare players at the given skills,
// all solo (no parties), for unit-testing the team balancer in isolation
// from population generation.
func newTestEngine(skills []float64) *Engine {
	e := New(1)
	e.players = make([]Player, len(skills))
	for i, s := range skills {
		e.players[i] = Player{ID: i, Skill: s}
	}
	e.populationGenerated = true
	return e
}

func teamSkillSum(e *Engine, team []int) float64 {
	sum := 0.0
	for _, pid := range team {
		sum += e.players[pid].Skill
	}
	return sum
}

func TestBalanceExactEqualSplit(t *testing.T) {
	e := newTestEngine([]float64{0.9, 0.1, 0.5, 0.5, -0.2, 0.3})
	members := []int{0, 1, 2, 3, 4, 5}

	teamA, teamB := e.balanceTeams(members)

	if len(teamA) != 3 || len(teamB) != 3 {
		t.Fatalf("expected 3v3 split, got %d v %d", len(teamA), len(teamB))
	}

	diff := abs(teamSkillSum(e, teamA) - teamSkillSum(e, teamB))
	if diff > 0.4 {
		t.Errorf("exact balance produced skill diff %f, expected a tight split", diff)
	}
}

func TestBalanceGreedyEqualSplit(t *testing.T) {
	e := newTestEngine([]float64{0.9, 0.1, 0.5, 0.5, -0.2, 0.3})
	e.cfg.UseExactTeamBalancing = false
	members := []int{0, 1, 2, 3, 4, 5}

	teamA, teamB := e.balanceTeams(members)

	if len(teamA) != 3 || len(teamB) != 3 {
		t.Fatalf("expected 3v3 split, got %d v %d", len(teamA), len(teamB))
	}
}

func TestBalanceRespectsPartyCohesion(t *testing.T) {
	e := newTestEngine([]float64{0.9, 0.1, 0.5, 0.5, -0.2, 0.3})
	partyHandle := e.createParty([]int{0, 1})
	e.players[0].Party = partyHandle
	e.players[1].Party = partyHandle

	members := []int{0, 1, 2, 3, 4, 5}
	teamA, teamB := e.balanceTeams(members)

	sameTeam := inSameTeam(teamA, 0, 1) || inSameTeam(teamB, 0, 1)
	if !sameTeam {
		t.Errorf("party members 0 and 1 were split across teams")
	}
}

func inSameTeam(team []int, a, b int) bool {
	hasA, hasB := false, false
	for _, pid := range team {
		if pid == a {
			hasA = true
		}
		if pid == b {
			hasB = true
		}
	}
	return hasA && hasB
}

func TestBalanceExactMinimisesSkillDiffAmongMinimalSizeDiff(t *testing.T) {
	// A lopsided lobby where the single best skill-match would require an
	// uneven split; the exact balancer must still prefer the even split.
	e := newTestEngine([]float64{1.0, -1.0, 0.01, 0.02, 0.03, 0.04})
	members := []int{0, 1, 2, 3, 4, 5}

	teamA, teamB := e.balanceExact(e.partyGroups(members), 3)

	if len(teamA) != 3 || len(teamB) != 3 {
		t.Fatalf("expected minimal size difference (3v3), got %d v %d", len(teamA), len(teamB))
	}
}
