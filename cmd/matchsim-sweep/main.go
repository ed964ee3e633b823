// Package main provides a CLI that fans a batch of independently-seeded
// matchmaking simulations out across goroutines and persists each run's
// summary to a local SQLite database.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kepler-labs/matchsim/internal/platform/config"

	sweepcmd "github.com/kepler-labs/matchsim/internal/cmd/matchsimsweep"
)

func main() {
	cfg, err := sweepcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := sweepcmd.Run(ctx, cfg, os.Stdout); err != nil {
		config.Exitf("Error: %v", err)
	}
}
