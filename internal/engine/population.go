package engine

import (
	"math"
	"sort"
)

// Population-generation constants. These are not part of the recognised
// Config surface, so they're fixed here rather than exposed as knobs.
const (
	platformWeightPC       = 0.45
	platformWeightConsoleA = 0.30
	platformWeightConsoleB = 0.25

	pcInputMouseKbdProb = 0.7
	voiceProbability    = 0.3

	skillTruncatedMean   = 0.0
	skillTruncatedStddev = 0.35

	pingKmToMS     = 0.08
	pingJitterMu   = 2.5
	pingJitterSig  = 0.4
	pingFloorMS    = 8.0

	// playlistEligibilityBaseProb is the inclusion probability of the
	// highest-weighted playlist in a player's eligibility set; every other
	// playlist is included with this probability scaled by its weight
	// relative to that maximum weight.
	playlistEligibilityBaseProb = 0.5
)

var partySizeDistribution = []struct {
	size int
	prob float64
}{
	{2, 0.55},
	{3, 0.25},
	{4, 0.15},
	{5, 0.03},
	{6, 0.02},
}

// GeneratePopulation seeds a fixed roster of n players, partitions a
// configured fraction of them into parties, and assigns arrival clocks.
// It must be called exactly once before any Tick or query call, and it
// snapshots the current Config's DataCentres and Playlists for the
// lifetime of the engine (subsequent UpdateConfig calls that change those
// two lists have no further effect, since player ping/eligibility arrays
// are sized against them).
func (e *Engine) GeneratePopulation(n int) {
	e.dataCentres = append([]DataCentreConfig(nil), e.cfg.DataCentres...)
	e.playlists = append([]PlaylistConfig(nil), e.cfg.Playlists...)

	e.players = make([]Player, n)
	for i := 0; i < n; i++ {
		e.players[i] = e.generatePlayer(i)
	}

	e.assignParties()
	e.recomputePercentilesAndBuckets()
	e.populationGenerated = true
	e.tick = 0
}

func (e *Engine) generatePlayer(id int) Player {
	rng := e.rng

	anchorIdx := e.pickDataCentreAnchor(rng)
	anchor := e.dataCentres[anchorIdx]
	home := scatterAround(rng, anchor, e.cfg.PopulationLocationScatterSigmaKM)

	platform := samplePlatform(rng)
	input := sampleInput(rng, platform)
	voice := rng.Bernoulli(voiceProbability)

	skill := rng.TruncatedNormal(skillTruncatedMean, skillTruncatedStddev, -1, 1)

	pings := make([]float64, len(e.dataCentres))
	for i, dc := range e.dataCentres {
		distKM := HaversineKM(home.Lat, home.Lon, dc.Lat, dc.Lon)
		pings[i] = distKM*pingKmToMS + rng.LogNormal(pingJitterMu, pingJitterSig) + pingFloorMS
	}

	weights := e.generatePlaylistWeights(rng)

	return Player{
		ID:             id,
		Home:           home,
		Platform:       platform,
		Input:          input,
		Voice:          voice,
		BasePingMS:     pings,
		PlaylistWeight: weights,
		HomeRegion:     anchor.Region,
		Skill:          skill,
		State:          StateOffline,
	}
}

func (e *Engine) pickDataCentreAnchor(rng *Stream) int {
	weights := make([]float64, len(e.dataCentres))
	for i, dc := range e.dataCentres {
		if dc.Weight > 0 {
			weights[i] = dc.Weight
		} else {
			weights[i] = 1
		}
	}
	return rng.Categorical(weights)
}

func scatterAround(rng *Stream, anchor DataCentreConfig, sigmaKM float64) GeoPoint {
	// Convert a Gaussian offset in km to a degree offset; 1 degree of
	// latitude is ~111km everywhere, longitude scales by cos(latitude).
	const kmPerDegreeLat = 111.0
	dLat := rng.Gauss(0, sigmaKM) / kmPerDegreeLat
	cosLat := cosDeg(anchor.Lat)
	if cosLat < 0.05 {
		cosLat = 0.05
	}
	dLon := rng.Gauss(0, sigmaKM) / (kmPerDegreeLat * cosLat)

	lat := clamp(anchor.Lat+dLat, -89, 89)
	lon := wrapLon(anchor.Lon + dLon)
	return GeoPoint{Lat: lat, Lon: lon}
}

func samplePlatform(rng *Stream) Platform {
	switch rng.Categorical([]float64{platformWeightPC, platformWeightConsoleA, platformWeightConsoleB}) {
	case 0:
		return PlatformPC
	case 1:
		return PlatformConsoleA
	default:
		return PlatformConsoleB
	}
}

func sampleInput(rng *Stream, platform Platform) InputDevice {
	if platform != PlatformPC {
		return InputController
	}
	if rng.Bernoulli(pcInputMouseKbdProb) {
		return InputMouseKeyboard
	}
	return InputController
}

// generatePlaylistWeights samples a per-player playlist eligibility/
// preference vector: each playlist is independently included with
// probability proportional to its configured selection weight, with a
// guaranteed fallback to the single highest-weighted playlist so every
// player is eligible for at least one.
func (e *Engine) generatePlaylistWeights(rng *Stream) []float64 {
	n := len(e.playlists)
	weights := make([]float64, n)
	maxW := 0.0
	maxIdx := 0
	for i, pl := range e.playlists {
		if pl.Weight > maxW {
			maxW = pl.Weight
			maxIdx = i
		}
	}

	anyEligible := false
	for i, pl := range e.playlists {
		if maxW <= 0 {
			continue
		}
		p := playlistEligibilityBaseProb * (pl.Weight / maxW)
		if rng.Bernoulli(p) {
			weights[i] = pl.Weight
			anyEligible = true
		}
	}
	if !anyEligible {
		w := e.playlists[maxIdx].Weight
		if w <= 0 {
			w = 1
		}
		weights[maxIdx] = w
	}
	return weights
}

// assignParties partitions party_player_fraction of the roster into
// parties sized per the party-size distribution, and assigns every player
// (partied or solo) an arrival clock drawn from an exponential
// distribution with rate derived from the configured arrival rate.
func (e *Engine) assignParties() {
	e.parties = newArena[Party]()

	order := make([]int, len(e.players))
	for i := range order {
		order[i] = i
	}
	// Deterministic shuffle via Fisher-Yates using the engine stream.
	for i := len(order) - 1; i > 0; i-- {
		j := e.rng.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}

	partyCount := int(float64(len(order)) * e.cfg.PartyPlayerFraction)
	partied := order[:partyCount]
	solo := order[partyCount:]

	idx := 0
	for idx < len(partied) {
		size := samplePartySize(e.rng)
		if idx+size > len(partied) {
			size = len(partied) - idx
		}
		if size <= 1 {
			solo = append(solo, partied[idx:]...)
			break
		}
		members := append([]int(nil), partied[idx:idx+size]...)
		sort.Ints(members)
		e.createParty(members)
		idx += size
	}

	// Arrival clocks are cumulative exponential gaps at the configured
	// per-tick rate, expressed in seconds so the clock divides cleanly
	// into ticks.
	rate := e.effectiveArrivalRate()
	perSecondRate := rate / e.cfg.TickIntervalSeconds
	clock := 0.0
	for i := range e.players {
		clock += e.rng.Exponential(perSecondRate)
		e.players[i].ArrivalTick = int64(clock / e.cfg.TickIntervalSeconds)
	}
}

func (e *Engine) createParty(members []int) Handle {
	leader := members[0]
	h := e.parties.Alloc(Party{
		Members: members,
		Leader:  leader,
	})
	party, _ := e.parties.Get(h)
	party.ID = int(h.Index)
	e.recomputePartyAggregates(party)
	for _, pid := range members {
		e.players[pid].Party = h
	}
	return h
}

func (e *Engine) recomputePartyAggregates(p *Party) {
	if len(p.Members) == 0 {
		return
	}
	sum, lo, hi := 0.0, 1.0, -1.0
	for _, pid := range p.Members {
		s := e.players[pid].Skill
		sum += s
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	p.MeanSkill = sum / float64(len(p.Members))
	p.Spread = hi - lo
}

func samplePartySize(rng *Stream) int {
	weights := make([]float64, len(partySizeDistribution))
	for i, e := range partySizeDistribution {
		weights[i] = e.prob
	}
	return partySizeDistribution[rng.Categorical(weights)].size
}

func cosDeg(deg float64) float64 {
	return math.Cos(deg * math.Pi / 180)
}

func wrapLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon < -180 {
		lon += 360
	}
	return lon
}
