// Package sweep fans a batch of independent matchmaking simulation runs
// out across goroutines, varying the seed (and optionally the
// configuration) per run, and collects each run's final statistics.
package sweep

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kepler-labs/matchsim/internal/engine"
)

// maxConcurrentRuns bounds how many engines execute at once, independent
// of how many Params are submitted.
const maxConcurrentRuns = 8

// Param describes one engine run to execute.
type Param struct {
	Seed           uint64
	PopulationSize int
	Ticks          int
	// ConfigOverride, if non-nil, is applied to engine.DefaultConfig()
	// before the population is generated.
	ConfigOverride func(*engine.Config)
}

// Result is one run's outcome.
type Result struct {
	Param Param
	Stats engine.Stats
	Err   error
}

// Run executes every Param concurrently (bounded by maxConcurrentRuns),
// returning one Result per Param in the same order they were submitted.
// A single run's error does not cancel the others; it is recorded on its
// Result. Run itself returns an error, and no results, only when the
// context is cancelled while some run is still waiting for a concurrency
// slot.
func Run(ctx context.Context, params []Param) ([]Result, error) {
	results := make([]Result, len(params))

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxConcurrentRuns)

	for i, p := range params {
		i, p := i, p
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			results[i] = runOne(gctx, p)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("parameter sweep: %w", err)
	}
	return results, nil
}

func runOne(ctx context.Context, p Param) Result {
	cfg := engine.DefaultConfig()
	if p.ConfigOverride != nil {
		p.ConfigOverride(&cfg)
	}

	e := engine.New(p.Seed)
	if err := e.UpdateConfig(cfg); err != nil {
		return Result{Param: p, Err: err}
	}
	e.GeneratePopulation(p.PopulationSize)

	for i := 0; i < p.Ticks; i++ {
		if err := ctx.Err(); err != nil {
			return Result{Param: p, Err: err}
		}
		if err := e.Tick(); err != nil {
			return Result{Param: p, Err: err}
		}
	}

	stats, err := e.GetStats()
	if err != nil {
		return Result{Param: p, Err: err}
	}
	return Result{Param: p, Stats: stats}
}
