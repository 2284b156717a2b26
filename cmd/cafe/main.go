// Package main is the entry point for the git-cafe CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runoshun/git-cafe/internal/app"
	"github.com/runoshun/git-cafe/internal/cli"
	"github.com/runoshun/git-cafe/internal/domain"
)

// version is set at build time using -ldflags.
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	dataDir, err := domain.DefaultDataDir()
	if err != nil {
		return err
	}

	// Interrupts cancel the command context; running orders are cancelled
	// through it before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	container, err := app.New(app.DefaultConfig(dataDir))
	if err != nil {
		// Help and version do not need a working container
		if canRunWithoutContainer(args) {
			return execute(ctx, cli.NewRootCommand(nil, version), args)
		}
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() { _ = container.Close() }()

	return execute(ctx, cli.NewRootCommand(container, version), args)
}

func execute(ctx context.Context, root *cobra.Command, args []string) error {
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func canRunWithoutContainer(args []string) bool {
	if len(args) == 0 {
		return true
	}
	if args[0] == "help" {
		return true
	}
	for _, arg := range args {
		if arg == "--version" || arg == "--help" || arg == "-h" || strings.HasPrefix(arg, "--help=") {
			return true
		}
	}
	return false
}
