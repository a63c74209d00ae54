package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/p4forge/p4forge/cmd/p4forge/commands"
	"github.com/p4forge/p4forge/pkg/errdefs"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

func main() {
	// An interrupt cancels the run context; in-flight build steps get a
	// bounded grace period before they are stopped.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Execute(ctx, Version, Commit, BuildDate); err != nil {
		fmt.Fprintf(os.Stderr, "p4forge: %v\n", err)
		os.Exit(errdefs.ExitCode(err))
	}
}
