package engine

import (
	apperrors "github.com/kepler-labs/matchsim/internal/platform/errors"
)

// DataCentreConfig describes one matchmaking data-centre anchor used both
// for ping synthesis and as a population-generation location cluster.
type DataCentreConfig struct {
	Name   string
	Lat    float64
	Lon    float64
	Region string
	// Weight controls how often this anchor is chosen as a player's home
	// cluster during population generation; zero or negative falls back
	// to uniform weighting across all anchors.
	Weight float64
}

// PlaylistConfig describes one static playlist definition.
type PlaylistConfig struct {
	Name             string
	RequiredSeats    int
	DurationSeconds  float64
	// Weight controls how often this playlist is picked as a player's
	// preference during eligibility-set generation.
	Weight float64
}

// Config parametrises every matchmaking policy knob. DefaultConfig returns
// the documented defaults. Engine.UpdateConfig replaces the live
// configuration with the given Config as a whole; fields left at their
// zero value are not filled in from the defaults.
type Config struct {
	MaxPingMS float64

	DeltaPingInitial float64
	DeltaPingRate    float64
	DeltaPingMax     float64

	SkillSimilarityInitial float64
	SkillSimilarityRate    float64
	SkillSimilarityMax     float64

	MaxSkillDisparityInitial float64
	MaxSkillDisparityRate    float64
	MaxSkillDisparityMax     float64

	WeightGeo      float64
	WeightSkill    float64
	WeightInput    float64
	WeightPlatform float64

	QualityWeightPing         float64
	QualityWeightSkillBalance float64
	QualityWeightWaitTime     float64

	PartyPlayerFraction float64

	TickIntervalSeconds float64
	NumSkillBuckets     int
	TopKCandidates      int

	UseExactTeamBalancing bool
	Gamma                 float64

	BlowoutSkillCoefficient     float64
	BlowoutImbalanceCoefficient float64
	BlowoutMildThreshold        float64
	BlowoutModerateThreshold    float64
	BlowoutSevereThreshold      float64

	SkillLearningRate    float64
	PerformanceNoiseStd  float64
	EnableSkillEvolution bool
	SkillUpdateBatchSize int

	// SkillEvolutionSnapshotInterval is the tick cadence at which
	// get_skill_evolution_data snapshots are recorded.
	SkillEvolutionSnapshotInterval int

	// ArrivalRatePerTick is the mean number of Offline->InLobby arrivals
	// per tick, overridable live via Engine.SetArrivalRate.
	ArrivalRatePerTick float64

	// Retention-probability coefficients for the post-match continuation
	// draw; defaults are recorded in DESIGN.md.
	RetentionBaseProbability float64
	RetentionAlphaWait       float64
	RetentionAlphaPing       float64
	RetentionAlphaBlowout    float64
	RetentionClipMin         float64
	RetentionClipMax         float64

	// PopulationLocationScatterSigmaKM is the Gaussian scatter sigma (km)
	// around a player's assigned data-centre-anchor home cluster.
	PopulationLocationScatterSigmaKM float64

	// EnableCapacityLimits turns on the optional finite server-capacity
	// pool per (data-centre, playlist); false leaves capacity unbounded.
	EnableCapacityLimits        bool
	ServerCapacityPerDCPlaylist int

	DataCentres []DataCentreConfig
	Playlists   []PlaylistConfig
}

// DefaultConfig returns the documented default configuration.
func DefaultConfig() Config {
	return Config{
		MaxPingMS: 200,

		DeltaPingInitial: 10,
		DeltaPingRate:    2,
		DeltaPingMax:     100,

		SkillSimilarityInitial: 0.05,
		SkillSimilarityRate:    0.01,
		SkillSimilarityMax:     0.5,

		MaxSkillDisparityInitial: 0.1,
		MaxSkillDisparityRate:    0.02,
		MaxSkillDisparityMax:     0.8,

		WeightGeo:      0.3,
		WeightSkill:    0.4,
		WeightInput:    0.15,
		WeightPlatform: 0.15,

		QualityWeightPing:         0.4,
		QualityWeightSkillBalance: 0.4,
		QualityWeightWaitTime:     0.2,

		PartyPlayerFraction: 0.5,

		TickIntervalSeconds: 5,
		NumSkillBuckets:     10,
		TopKCandidates:      50,

		UseExactTeamBalancing: true,
		Gamma:                 2.0,

		BlowoutSkillCoefficient:     0.4,
		BlowoutImbalanceCoefficient: 0.3,
		BlowoutMildThreshold:        0.15,
		BlowoutModerateThreshold:    0.35,
		BlowoutSevereThreshold:      0.6,

		SkillLearningRate:    0.01,
		PerformanceNoiseStd:  0.15,
		EnableSkillEvolution: true,
		SkillUpdateBatchSize: 10,

		SkillEvolutionSnapshotInterval: 50,
		ArrivalRatePerTick:             5,

		RetentionBaseProbability: 0.8,
		RetentionAlphaWait:       0.3,
		RetentionAlphaPing:       0.2,
		RetentionAlphaBlowout:    0.25,
		RetentionClipMin:         0.05,
		RetentionClipMax:         0.98,

		PopulationLocationScatterSigmaKM: 300,

		EnableCapacityLimits:        false,
		ServerCapacityPerDCPlaylist: 0,

		DataCentres: defaultDataCentres(),
		Playlists:   defaultPlaylists(),
	}
}

func defaultDataCentres() []DataCentreConfig {
	return []DataCentreConfig{
		{Name: "us-east", Lat: 39.0, Lon: -77.5, Region: "NA-East", Weight: 1},
		{Name: "us-west", Lat: 37.4, Lon: -122.1, Region: "NA-West", Weight: 1},
		{Name: "eu-west", Lat: 51.5, Lon: -0.1, Region: "EU-West", Weight: 1},
		{Name: "eu-central", Lat: 50.1, Lon: 8.7, Region: "EU-Central", Weight: 1},
		{Name: "ap-southeast", Lat: 1.35, Lon: 103.8, Region: "APAC-SEA", Weight: 1},
		{Name: "ap-northeast", Lat: 35.7, Lon: 139.7, Region: "APAC-NE", Weight: 1},
		{Name: "sa-east", Lat: -23.5, Lon: -46.6, Region: "SA-East", Weight: 1},
		{Name: "au-east", Lat: -33.9, Lon: 151.2, Region: "OCE", Weight: 1},
	}
}

func defaultPlaylists() []PlaylistConfig {
	return []PlaylistConfig{
		{Name: "ranked-6v6", RequiredSeats: 12, DurationSeconds: 600, Weight: 0.6},
		{Name: "ranked-3v3", RequiredSeats: 6, DurationSeconds: 360, Weight: 0.3},
		{Name: "large-32v32", RequiredSeats: 64, DurationSeconds: 1200, Weight: 0.1},
	}
}

// Validate checks the configuration invariants: weights must sum to 1,
// rates must be non-negative, there must be at least 2 skill buckets, and
// the blowout thresholds must be non-decreasing.
func (c Config) Validate() *Error {
	const eps = 1e-6

	weightSum := c.WeightGeo + c.WeightSkill + c.WeightInput + c.WeightPlatform
	if abs(weightSum-1) > eps {
		return newErrf(KindInvalidConfiguration, apperrors.CodeConfigWeightsNotNormalised,
			"weight_geo+weight_skill+weight_input+weight_platform must sum to 1, got %f", weightSum)
	}

	qualitySum := c.QualityWeightPing + c.QualityWeightSkillBalance + c.QualityWeightWaitTime
	if abs(qualitySum-1) > eps {
		return newErrf(KindInvalidConfiguration, apperrors.CodeConfigWeightsNotNormalised,
			"quality_weight_ping+quality_weight_skill_balance+quality_weight_wait_time must sum to 1, got %f", qualitySum)
	}

	negativeRates := map[string]float64{
		"max_ping":                       c.MaxPingMS,
		"delta_ping_initial":             c.DeltaPingInitial,
		"delta_ping_rate":                c.DeltaPingRate,
		"delta_ping_max":                 c.DeltaPingMax,
		"skill_similarity_initial":       c.SkillSimilarityInitial,
		"skill_similarity_rate":         c.SkillSimilarityRate,
		"skill_similarity_max":           c.SkillSimilarityMax,
		"max_skill_disparity_initial":    c.MaxSkillDisparityInitial,
		"max_skill_disparity_rate":       c.MaxSkillDisparityRate,
		"max_skill_disparity_max":        c.MaxSkillDisparityMax,
		"tick_interval_seconds":          c.TickIntervalSeconds,
		"skill_learning_rate":            c.SkillLearningRate,
		"performance_noise_std":          c.PerformanceNoiseStd,
		"party_player_fraction":          c.PartyPlayerFraction,
		"arrival_rate_per_tick":          c.ArrivalRatePerTick,
	}
	for name, v := range negativeRates {
		if v < 0 {
			return newErrf(KindInvalidConfiguration, apperrors.CodeConfigNegativeRate,
				"%s must be non-negative, got %f", name, v)
		}
	}

	if c.TickIntervalSeconds <= 0 {
		return newErrf(KindInvalidConfiguration, apperrors.CodeConfigNegativeRate,
			"tick_interval_seconds must be positive, got %f", c.TickIntervalSeconds)
	}

	if c.PartyPlayerFraction > 1 {
		return newErrf(KindInvalidConfiguration, apperrors.CodeConfigNegativeRate,
			"party_player_fraction must be in [0,1], got %f", c.PartyPlayerFraction)
	}

	if c.NumSkillBuckets < 2 {
		return newErrf(KindInvalidConfiguration, apperrors.CodeConfigTooFewBuckets,
			"num_skill_buckets must be >= 2, got %d", c.NumSkillBuckets)
	}

	if c.TopKCandidates < 1 {
		return newErrf(KindInvalidConfiguration, apperrors.CodeConfigInvalidTopK,
			"top_k_candidates must be >= 1, got %d", c.TopKCandidates)
	}

	if !(c.BlowoutMildThreshold <= c.BlowoutModerateThreshold && c.BlowoutModerateThreshold <= c.BlowoutSevereThreshold) {
		return newErrf(KindInvalidConfiguration, apperrors.CodeConfigBadThresholds,
			"blowout thresholds must satisfy mild <= moderate <= severe, got %f <= %f <= %f",
			c.BlowoutMildThreshold, c.BlowoutModerateThreshold, c.BlowoutSevereThreshold)
	}

	if c.EnableSkillEvolution && c.SkillUpdateBatchSize < 1 {
		return newErrf(KindInvalidConfiguration, apperrors.CodeConfigInvalidBatchSize,
			"skill_update_batch_size must be >= 1, got %d", c.SkillUpdateBatchSize)
	}

	if len(c.DataCentres) == 0 {
		return newErrf(KindInvalidConfiguration, apperrors.CodeConfigBadThresholds,
			"at least one data centre must be configured")
	}
	// The match former's acceptance-set intersection is a 64-bit mask.
	if len(c.DataCentres) > 64 {
		return newErrf(KindInvalidConfiguration, apperrors.CodeConfigBadThresholds,
			"at most 64 data centres are supported, got %d", len(c.DataCentres))
	}

	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
