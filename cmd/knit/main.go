// Package main is the entry point for the knit CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/knit/cmd/knit/commands"
	"go.trai.ch/knit/internal/app"
	_ "go.trai.ch/knit/internal/wiring"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, _, err := graft.ExecuteFor[*app.Components](ctx)
	if err != nil {
		// Logger is not available if initialization failed.
		_, _ = fmt.Fprintf(os.Stderr, "knit: %v\n", err)
		return 1
	}

	cli := commands.New(components)
	if err := cli.Execute(ctx, args); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "knit: %v\n", err)
		if errors.Is(err, commands.ErrUsage) {
			return 2
		}
		return 1
	}
	return 0
}
