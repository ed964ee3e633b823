package engine

import (
	apperrors "github.com/kepler-labs/matchsim/internal/platform/errors"
)

// Engine is a single, synchronous matchmaking simulation. It holds its
// entire population, active searches, matches, and RNG state as plain Go
// values; nothing inside it is safe for concurrent use from more than one
// goroutine at a time, matching the pure-kernel contract described in the
// package doc comment.
type Engine struct {
	cfg Config
	rng *Stream

	players  []Player
	parties  *arena[Party]
	searches *arena[Search]
	matches  *arena[Match]

	// dataCentres/playlists are snapshotted once at GeneratePopulation time;
	// see that method's doc comment for why later Config edits to these
	// two lists don't take effect.
	dataCentres []DataCentreConfig
	playlists   []PlaylistConfig

	indexer          *candidateIndexer
	bucketBoundaries []float64

	tick                int64
	populationGenerated bool

	arrivalRateOverride *float64

	skillEvolutionOn           bool
	pendingUpdates             []skillUpdate
	completedMatchesSinceBatch int

	// capacityUsed tracks live server allocations per (data-centre,
	// playlist) when cfg.EnableCapacityLimits is set; unused otherwise.
	capacityUsed map[capacityKey]int

	stats *statsAccumulator
}

type capacityKey struct {
	dataCentre int
	playlist   int
}

// New constructs an Engine with the default configuration and the given
// deterministic seed. Call UpdateConfig to customise policy and
// GeneratePopulation before the first Tick.
func New(seed uint64) *Engine {
	e := &Engine{
		cfg:          DefaultConfig(),
		rng:          NewStream(seed),
		parties:      newArena[Party](),
		searches:     newArena[Search](),
		matches:      newArena[Match](),
		indexer:      newCandidateIndexer(),
		capacityUsed: make(map[capacityKey]int),
		stats:        newStatsAccumulator(),
	}
	e.skillEvolutionOn = e.cfg.EnableSkillEvolution
	return e
}

// UpdateConfig validates cfg and, if valid, replaces the engine's live
// configuration. Changes to DataCentres/Playlists have no effect once
// GeneratePopulation has been called.
func (e *Engine) UpdateConfig(cfg Config) *Error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg = cfg
	e.skillEvolutionOn = cfg.EnableSkillEvolution
	return nil
}

// Tick advances the simulation by exactly one step, running the full
// pipeline in order: lifecycle transitions, party cleanup, matchmaking,
// team balancing and outcome simulation, skill evolution, and stats
// accumulation.
func (e *Engine) Tick() *Error {
	if !e.populationGenerated {
		return errPopulationNotInitialised()
	}

	e.runLifecycle()
	e.dissolvePartiesWithOfflineMembers()
	e.advanceWaitTimes()

	e.formMatches()
	e.completeDueMatches()

	if e.tick > 0 && e.cfg.SkillEvolutionSnapshotInterval > 0 &&
		e.tick%int64(e.cfg.SkillEvolutionSnapshotInterval) == 0 {
		e.stats.recordSkillSnapshot(e.tick, e.players, e.cfg.NumSkillBuckets)
	}

	if err := e.checkIntegrity(); err != nil {
		return err
	}

	e.tick++
	return nil
}

// checkIntegrity is the defensive cross-reference sweep run at the end of
// every tick: a Searching player must hold a live search and no match, an
// InMatch player must hold a live match. A failure indicates an engine
// bug and fails the tick rather than silently corrupting later stats.
func (e *Engine) checkIntegrity() *Error {
	for i := range e.players {
		p := &e.players[i]
		switch p.State {
		case StateSearching:
			if _, ok := e.searches.Get(p.Search); !ok {
				return errIntegrity(apperrors.CodeIntegritySearchNotFound,
					"player %d is Searching but holds a stale search handle", p.ID)
			}
			if p.Match.Valid() {
				return errIntegrity(apperrors.CodeIntegrityStateMismatch,
					"player %d is Searching but also references match %d", p.ID, p.Match.Index)
			}
		case StateInMatch:
			if _, ok := e.matches.Get(p.Match); !ok {
				return errIntegrity(apperrors.CodeIntegrityMatchNotFound,
					"player %d is InMatch but holds a stale match handle", p.ID)
			}
		}
	}
	return nil
}

// advanceWaitTimes refreshes every active search's Wait field from its
// StartTick, so the match former always scores against the current tick.
func (e *Engine) advanceWaitTimes() {
	e.searches.Each(func(h Handle, s *Search) {
		s.Wait = float64(e.tick-s.StartTick) * e.cfg.TickIntervalSeconds
	})
}
