package engine

import "sort"

// maxExactMembers bounds the 2^K enumeration used by exact team balancing;
// above this member count the engine always falls back to the greedy
// partition regardless of Config.UseExactTeamBalancing.
const maxExactMembers = 12

// balanceTeams splits members into two size-balanced, skill-minimising
// teams totalling len(members) seats, respecting party cohesion (a party
// is never split across teams). It uses exact enumeration over
// party-groups when the configuration requests it and the member count is
// at most maxExactMembers, otherwise a greedy largest-first partition; both honour
// the target half-size before minimising skill difference.
func (e *Engine) balanceTeams(members []int) (teamA, teamB []int) {
	groups := e.partyGroups(members)
	target := len(members) / 2

	if e.cfg.UseExactTeamBalancing && len(members) <= maxExactMembers {
		return e.balanceExact(groups, target)
	}
	return e.balanceGreedy(groups, target)
}

// partyGroups collapses members into indivisible units: one unit per
// distinct party still referenced by a member, plus one unit per solo
// player. Units are ordered by descending total skill, ascending lowest
// member ID as a tie-break, matching the greedy partition's expectations.
func (e *Engine) partyGroups(members []int) [][]int {
	seenParty := make(map[Handle]bool)
	var groups [][]int

	for _, pid := range members {
		h := e.players[pid].Party
		if h.Valid() {
			if seenParty[h] {
				continue
			}
			seenParty[h] = true
			party, ok := e.parties.Get(h)
			if !ok {
				groups = append(groups, []int{pid})
				continue
			}
			groups = append(groups, append([]int(nil), party.Members...))
			continue
		}
		groups = append(groups, []int{pid})
	}

	sort.Slice(groups, func(i, j int) bool {
		si, sj := groupSkillSum(e, groups[i]), groupSkillSum(e, groups[j])
		if si != sj {
			return si > sj
		}
		return groups[i][0] < groups[j][0]
	})
	return groups
}

func groupSkillSum(e *Engine, group []int) float64 {
	sum := 0.0
	for _, pid := range group {
		sum += e.players[pid].Skill
	}
	return sum
}

// balanceExact enumerates every one of the 2^len(groups) assignments of
// groups to team A/B, keeps only the assignments whose size difference
// from target (|sizeA-target|) is minimal, and among those returns the
// one minimising |sum(A) - sum(B)|; ties break toward the lowest bitmask,
// so the partition filters by minimal size difference first, then
// minimum skill disparity.
func (e *Engine) balanceExact(groups [][]int, target int) (teamA, teamB []int) {
	n := len(groups)
	sums := make([]float64, n)
	sizes := make([]int, n)
	for i, g := range groups {
		sums[i] = groupSkillSum(e, g)
		sizes[i] = len(g)
	}

	total := 0.0
	for _, s := range sums {
		total += s
	}

	bestMask := 0
	bestSizeDiff := -1
	bestSkillDiff := -1.0
	for mask := 0; mask < (1 << n); mask++ {
		sumA, sizeA := 0.0, 0
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				sumA += sums[i]
				sizeA += sizes[i]
			}
		}
		sizeDiff := abs(float64(sizeA - target))
		skillDiff := abs(2*sumA - total)

		better := bestSizeDiff < 0 ||
			int(sizeDiff) < bestSizeDiff ||
			(int(sizeDiff) == bestSizeDiff && skillDiff < bestSkillDiff)
		if better {
			bestSizeDiff = int(sizeDiff)
			bestSkillDiff = skillDiff
			bestMask = mask
		}
	}

	for i, g := range groups {
		if bestMask&(1<<i) != 0 {
			teamA = append(teamA, g...)
		} else {
			teamB = append(teamB, g...)
		}
	}
	return teamA, teamB
}

// balanceGreedy assigns groups largest-skill-sum first to whichever team
// currently has the lower total skill among those with remaining
// capacity toward target (a Karmarkar-Karp-style greedy partition),
// falling back to the other team once one reaches target; this is
// linear in the number of groups and never splits a party.
func (e *Engine) balanceGreedy(groups [][]int, target int) (teamA, teamB []int) {
	sumA, sumB := 0.0, 0.0
	sizeA, sizeB := 0, 0
	for _, g := range groups {
		gs := groupSkillSum(e, g)
		n := len(g)

		aHasRoom := sizeA+n <= target
		bHasRoom := sizeB+n <= target
		switch {
		case aHasRoom && bHasRoom:
			if sumA <= sumB {
				teamA = append(teamA, g...)
				sumA += gs
				sizeA += n
			} else {
				teamB = append(teamB, g...)
				sumB += gs
				sizeB += n
			}
		case aHasRoom:
			teamA = append(teamA, g...)
			sumA += gs
			sizeA += n
		case bHasRoom:
			teamB = append(teamB, g...)
			sumB += gs
			sizeB += n
		case sizeA <= sizeB:
			teamA = append(teamA, g...)
			sumA += gs
			sizeA += n
		default:
			teamB = append(teamB, g...)
			sumB += gs
			sizeB += n
		}
	}
	return teamA, teamB
}
