// Package matchsimsweep parses sweep command flags and runs a batch of
// independently-seeded simulation engines, persisting each run's summary.
package matchsimsweep

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kepler-labs/matchsim/internal/engine"
	"github.com/kepler-labs/matchsim/internal/platform/config"
	platformotel "github.com/kepler-labs/matchsim/internal/platform/otel"
	"github.com/kepler-labs/matchsim/internal/platform/random"
	"github.com/kepler-labs/matchsim/internal/sweep"
	"github.com/kepler-labs/matchsim/internal/sweep/store"
)

// Config holds sweep command configuration.
type Config struct {
	BaseSeed   uint64 `env:"MATCHSIM_SWEEP_SEED"`
	Runs       int    `env:"MATCHSIM_SWEEP_RUNS" envDefault:"4"`
	Population int    `env:"MATCHSIM_SWEEP_POPULATION" envDefault:"1000"`
	Ticks      int    `env:"MATCHSIM_SWEEP_TICKS" envDefault:"500"`
	DBPath     string `env:"MATCHSIM_SWEEP_DB" envDefault:"sweep.db"`

	// SkillSimilarities is an optional comma-separated list of
	// skill_similarity_initial values; each value multiplies the sweep
	// into one arm per (run, value).
	SkillSimilarities string `env:"MATCHSIM_SWEEP_SKILL_SIMILARITIES"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.Uint64Var(&cfg.BaseSeed, "seed", cfg.BaseSeed, "base engine seed (0 = random); run i uses seed+i")
	fs.IntVar(&cfg.Runs, "runs", cfg.Runs, "number of independently-seeded runs")
	fs.IntVar(&cfg.Population, "population", cfg.Population, "players per run")
	fs.IntVar(&cfg.Ticks, "ticks", cfg.Ticks, "ticks per run")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite file for run summaries")
	fs.StringVar(&cfg.SkillSimilarities, "skill-similarities", cfg.SkillSimilarities,
		"comma-separated skill_similarity_initial values to sweep")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Runs < 1 {
		return Config{}, fmt.Errorf("runs must be >= 1, got %d", cfg.Runs)
	}
	return cfg, nil
}

// Run executes the sweep and persists one summary row per arm.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	shutdown, err := platformotel.Setup(ctx, "matchsim-sweep")
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	baseSeed := cfg.BaseSeed
	if baseSeed == 0 {
		s, err := random.NewSeed()
		if err != nil {
			return err
		}
		baseSeed = uint64(s)
		log.Printf("seed not pinned, using %d", baseSeed)
	}

	similarities, err := parseSimilarities(cfg.SkillSimilarities)
	if err != nil {
		return err
	}

	params := buildParams(cfg, baseSeed, similarities)

	tracer := otel.Tracer("matchsim-sweep")
	sweepCtx, span := tracer.Start(ctx, "sweep.run")
	span.SetAttributes(
		attribute.Int("sweep.arms", len(params)),
		attribute.Int("sweep.population", cfg.Population),
		attribute.Int("sweep.ticks", cfg.Ticks),
	)
	results, err := sweep.Run(sweepCtx, params)
	span.End()
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Printf("close store: %v", err)
		}
	}()

	for _, r := range results {
		summary := store.RunSummary{
			Seed:           r.Param.Seed,
			PopulationSize: r.Param.PopulationSize,
			Ticks:          r.Param.Ticks,
		}
		if r.Err != nil {
			summary.Error = r.Err.Error()
		} else {
			summary.TotalMatchesFormed = r.Stats.TotalMatchesFormed
			summary.MeanSearchWaitSecs = r.Stats.MeanSearchWaitSeconds
			summary.BlowoutMild = r.Stats.BlowoutCounts[engine.BlowoutMild]
			summary.BlowoutModerate = r.Stats.BlowoutCounts[engine.BlowoutModerate]
			summary.BlowoutSevere = r.Stats.BlowoutCounts[engine.BlowoutSevere]
		}
		if _, err := st.InsertRun(ctx, summary); err != nil {
			return err
		}

		if r.Err != nil {
			fmt.Fprintf(out, "seed %d: error: %v\n", r.Param.Seed, r.Err)
			continue
		}
		fmt.Fprintf(out, "seed %d: %d matches, mean wait %.1fs, team skill diff %.4f\n",
			r.Param.Seed, r.Stats.TotalMatchesFormed,
			r.Stats.MeanSearchWaitSeconds, r.Stats.MeanTeamSkillDiff)
	}

	n, err := st.CountRuns(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d run summaries stored in %s\n", n, cfg.DBPath)
	return nil
}

func parseSimilarities(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parse skill similarity %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func buildParams(cfg Config, baseSeed uint64, similarities []float64) []sweep.Param {
	var params []sweep.Param
	for i := 0; i < cfg.Runs; i++ {
		seed := baseSeed + uint64(i)
		if len(similarities) == 0 {
			params = append(params, sweep.Param{
				Seed:           seed,
				PopulationSize: cfg.Population,
				Ticks:          cfg.Ticks,
			})
			continue
		}
		for _, sim := range similarities {
			sim := sim
			params = append(params, sweep.Param{
				Seed:           seed,
				PopulationSize: cfg.Population,
				Ticks:          cfg.Ticks,
				ConfigOverride: func(c *engine.Config) {
					c.SkillSimilarityInitial = sim
				},
			})
		}
	}
	return params
}
