// Package main provides a CLI that runs one matchmaking simulation and
// prints its accumulated statistics.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/kepler-labs/matchsim/internal/platform/config"

	matchsimcmd "github.com/kepler-labs/matchsim/internal/cmd/matchsim"
)

func main() {
	cfg, err := matchsimcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := matchsimcmd.Run(ctx, cfg, os.Stdout); err != nil {
		config.Exitf("Error: %v", err)
	}
}
