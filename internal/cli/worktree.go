package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runoshun/git-cafe/internal/app"
	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/usecase"
)

// newWorktreeCommand creates the worktree command.
func newWorktreeCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "worktree",
		Aliases: []string{"wt"},
		Short:   "Manage order worktrees",
		Long: `Manage the isolated git worktrees of orders.

The order record is the source of truth: merged or removed worktrees keep
their metadata so the order can still be inspected.`,
	}

	cmd.AddCommand(
		newWorktreeCleanupCommand(c),
		newWorktreeMergeCommand(c),
		newWorktreeRetryCommand(c),
	)
	return cmd
}

// newWorktreeCleanupCommand creates the worktree cleanup subcommand.
func newWorktreeCleanupCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup <id>",
		Short: "Remove an order's worktree and branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.CleanupWorktreeUseCase().Execute(cmd.Context(), usecase.CleanupWorktreeInput{OrderID: args[0]})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed worktree of order %s\n", domain.ShortID(out.Order.ID))
			return nil
		},
	}
}

// newWorktreeMergeCommand creates the worktree merge subcommand.
func newWorktreeMergeCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Target string
		Squash bool
		Keep   bool
	}

	cmd := &cobra.Command{
		Use:   "merge <id>",
		Short: "Merge an order's branch into the target branch",
		Long: `Merge an order's branch into the target branch.

The worktree must have no uncommitted changes. The target defaults to
[merge] target in the configuration. After a successful merge the
worktree is removed unless --keep is given or [merge] delete is false.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.MergeWorktreeUseCase().Execute(cmd.Context(), usecase.MergeWorktreeInput{
				OrderID: args[0],
				Target:  opts.Target,
				Squash:  opts.Squash,
				Keep:    opts.Keep,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Merged order %s into %s", domain.ShortID(out.Order.ID), out.Target)
			if out.Commit != "" {
				_, _ = fmt.Fprintf(w, " (%s)", shortHash(out.Commit))
			}
			_, _ = fmt.Fprintln(w)
			if wt := out.Order.Worktree; wt != nil && wt.Removed {
				_, _ = fmt.Fprintln(w, "Worktree removed")
			}
			if out.Warning != "" {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "Warning: "+out.Warning)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Target, "target", "t", "", "Target branch (default: [merge] target)")
	cmd.Flags().BoolVar(&opts.Squash, "squash", false, "Squash the branch into a single commit")
	cmd.Flags().BoolVar(&opts.Keep, "keep", false, "Keep the worktree after merging")

	return cmd
}

// newWorktreeRetryCommand creates the worktree retry subcommand.
func newWorktreeRetryCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>",
		Short: "Recreate an order's missing worktree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.RetryWorktreeUseCase().Execute(cmd.Context(), usecase.RetryWorktreeInput{OrderID: args[0]})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if out.AlreadyExists {
				_, _ = fmt.Fprintf(w, "Worktree already exists: %s\n", out.Order.Worktree.Path)
				return nil
			}
			_, _ = fmt.Fprintf(w, "Created worktree %s (branch %s)\n", out.Order.Worktree.Path, out.Order.Worktree.Branch)
			return nil
		},
	}
}

func shortHash(hash string) string {
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
