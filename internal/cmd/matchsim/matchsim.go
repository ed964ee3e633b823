// Package matchsim parses demo command flags and drives one simulation
// engine run, printing a summary of the accumulated statistics.
package matchsim

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/kepler-labs/matchsim/internal/engine"
	"github.com/kepler-labs/matchsim/internal/platform/config"
	"github.com/kepler-labs/matchsim/internal/platform/otel"
	"github.com/kepler-labs/matchsim/internal/platform/random"
)

// Config holds matchsim command configuration.
type Config struct {
	Seed       uint64  `env:"MATCHSIM_SEED"`
	Population int     `env:"MATCHSIM_POPULATION" envDefault:"1000"`
	Ticks      int     `env:"MATCHSIM_TICKS" envDefault:"500"`
	PartyFrac  float64 `env:"MATCHSIM_PARTY_FRACTION" envDefault:"0.5"`
	Evolution  bool    `env:"MATCHSIM_SKILL_EVOLUTION" envDefault:"true"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.Uint64Var(&cfg.Seed, "seed", cfg.Seed, "engine seed (0 = random)")
	fs.IntVar(&cfg.Population, "population", cfg.Population, "number of players to generate")
	fs.IntVar(&cfg.Ticks, "ticks", cfg.Ticks, "number of simulation ticks to run")
	fs.Float64Var(&cfg.PartyFrac, "party-fraction", cfg.PartyFrac, "fraction of players assigned to parties")
	fs.BoolVar(&cfg.Evolution, "skill-evolution", cfg.Evolution, "enable online skill evolution")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run executes one engine run and writes a stats summary to out.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	shutdown, err := otel.Setup(ctx, "matchsim")
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

	seed := cfg.Seed
	if seed == 0 {
		s, err := random.NewSeed()
		if err != nil {
			return err
		}
		seed = uint64(s)
		log.Printf("seed not pinned, using %d", seed)
	}

	engineCfg := engine.DefaultConfig()
	engineCfg.PartyPlayerFraction = cfg.PartyFrac
	engineCfg.EnableSkillEvolution = cfg.Evolution

	e := engine.New(seed)
	if err := e.UpdateConfig(engineCfg); err != nil {
		return err
	}
	e.GeneratePopulation(cfg.Population)

	for i := 0; i < cfg.Ticks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Tick(); err != nil {
			return err
		}
	}

	return printSummary(e, out)
}

func printSummary(e *engine.Engine, out io.Writer) error {
	stats, err := e.GetStats()
	if err != nil {
		return err
	}
	retention, err := e.GetRetentionStats()
	if err != nil {
		return err
	}
	buckets, err := e.GetBucketStats()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "tick %d: %d matches formed, %d searches queued\n",
		stats.Tick, stats.TotalMatchesFormed, stats.ActiveSearchCount)
	fmt.Fprintf(out, "states: offline=%d lobby=%d searching=%d in-match=%d\n",
		stats.OfflineCount, stats.InLobbyCount, stats.SearchingCount, stats.InMatchCount)
	fmt.Fprintf(out, "search wait: mean=%.1fs p50=%.1fs p90=%.1fs p99=%.1fs\n",
		stats.MeanSearchWaitSeconds, stats.SearchWaitP50Seconds,
		stats.SearchWaitP90Seconds, stats.SearchWaitP99Seconds)
	fmt.Fprintf(out, "delta ping: mean=%.1fms p90=%.1fms\n",
		stats.MeanDeltaPingMS, stats.DeltaPingP90MS)
	fmt.Fprintf(out, "team skill diff: mean=%.4f, blowout rate %.3f\n",
		stats.MeanTeamSkillDiff, stats.BlowoutRate)
	fmt.Fprintf(out, "retention: %d online, continuation rate %.3f over %d draws\n",
		retention.EffectivePopulation, retention.ContinuationRate, retention.ContinuationDraws)

	fmt.Fprintln(out, "per-bucket win rates:")
	for _, b := range buckets {
		winRate := 0.0
		if b.MatchesCount > 0 {
			winRate = float64(b.WinsCount) / float64(b.MatchesCount)
		}
		fmt.Fprintf(out, "  bucket %2d: %4d players, mean skill %+.3f, %5d matches, win rate %.3f\n",
			b.Bucket, b.PlayerCount, b.MeanSkill, b.MatchesCount, winRate)
	}
	return nil
}
