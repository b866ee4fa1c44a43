package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mat-xc/blueprint-mode/internal/cli"
)

// Set by -ldflags at release time.
var (
	version   = "dev"
	commit    = "none"
	buildDate = ""
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := cli.Run(os.Args[1:], cli.Options{
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		BuildInfo: cli.BuildInfo{
			Version:   version,
			Commit:    commit,
			BuildDate: buildDate,
		},
		Context: ctx,
	})
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "blueprint-mode: %v\n", err)
		stop()
		os.Exit(1)
	}
}
