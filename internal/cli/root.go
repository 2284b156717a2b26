// Package cli provides the command-line interface for git-cafe.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/git-cafe/internal/app"
)

// Command group IDs.
const (
	groupSetup    = "setup"
	groupOrder    = "order"
	groupWorktree = "worktree"
)

// NewRootCommand creates the root command for cafe.
// It receives the container for dependency injection and version for display.
func NewRootCommand(c *app.Container, version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "cafe",
		Short: "Order-driven AI agent orchestration CLI",
		Long: `git-cafe runs AI coding agents as orders.

An order is one request run through a recipe (an ordered list of stages).
Each order can be isolated in its own git worktree, which is merged back
or cleaned up once the work is done. Agent output is recorded in a
per-order transcript that can be replayed at any time.`,
		Version: version,
		// SilenceUsage prevents usage from being printed on errors
		SilenceUsage: true,
		// SilenceErrors prevents Cobra from printing errors (we handle it in main)
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip if container is nil (e.g. in tests)
			if c == nil || c.AppConfig == nil {
				return nil
			}
			for _, w := range c.AppConfig.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s\n", w)
			}
			return nil
		},
	}

	root.AddGroup(
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
		&cobra.Group{ID: groupOrder, Title: "Order Management:"},
		&cobra.Group{ID: groupWorktree, Title: "Worktree & Followup:"},
	)

	// Setup commands
	configCmd := newConfigCommand(c)
	configCmd.GroupID = groupSetup

	cafeCmd := newCafeCommand(c)
	cafeCmd.GroupID = groupSetup

	recipesCmd := newRecipesCommand(c)
	recipesCmd.GroupID = groupSetup

	// Order management commands
	orderCmd := newOrderCommand(c)
	orderCmd.GroupID = groupOrder

	retryCmd := newRetryCommand(c)
	retryCmd.GroupID = groupOrder

	boardCmd := newBoardCommand(c)
	boardCmd.GroupID = groupOrder

	// Worktree and followup commands
	worktreeCmd := newWorktreeCommand(c)
	worktreeCmd.GroupID = groupWorktree

	followupCmd := newFollowupCommand(c)
	followupCmd.GroupID = groupWorktree

	root.AddCommand(
		configCmd,
		cafeCmd,
		recipesCmd,
		orderCmd,
		retryCmd,
		boardCmd,
		worktreeCmd,
		followupCmd,
	)

	return root
}
