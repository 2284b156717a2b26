package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/runoshun/git-cafe/internal/app"
	"github.com/runoshun/git-cafe/internal/usecase"
)

// newCafeCommand creates the cafe command.
func newCafeCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cafe",
		Short: "Manage registered repositories",
		Long: `Manage cafes, the registered repositories orders are placed against.

A cafe can override the worktree base branch and worktree root of the
global configuration.`,
	}

	cmd.AddCommand(
		newCafeAddCommand(c),
		newCafeListCommand(c),
		newCafeRmCommand(c),
	)
	return cmd
}

// newCafeAddCommand creates the cafe add subcommand.
func newCafeAddCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Name         string
		BaseBranch   string
		WorktreeRoot string
	}

	cmd := &cobra.Command{
		Use:   "add <id> [path]",
		Short: "Register a repository",
		Long: `Register a repository as a cafe.

The path may be any directory inside the repository and defaults to the
current directory; the repository root is stored.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 2 {
				path = args[1]
			}
			out, err := c.AddCafeUseCase().Execute(cmd.Context(), usecase.AddCafeInput{
				ID:           args[0],
				Name:         opts.Name,
				Path:         path,
				BaseBranch:   opts.BaseBranch,
				WorktreeRoot: opts.WorktreeRoot,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Registered cafe %s at %s\n", out.Cafe.ID, out.Cafe.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "Display name")
	cmd.Flags().StringVar(&opts.BaseBranch, "base", "", "Worktree base branch")
	cmd.Flags().StringVar(&opts.WorktreeRoot, "worktree-root", "", "Directory for worktrees")

	return cmd
}

// newCafeListCommand creates the cafe list subcommand.
func newCafeListCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered repositories",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.ListCafesUseCase().Execute(cmd.Context(), usecase.ListCafesInput{})
			if err != nil {
				return err
			}
			if len(out.Cafes) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No cafes registered")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			defer func() { _ = tw.Flush() }()
			now := c.Clock.Now()
			_, _ = fmt.Fprintln(tw, "ID\tNAME\tPATH\tBASE\tADDED")
			for _, cafe := range out.Cafes {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					cafe.ID, cafe.DisplayName(), cafe.Path, orDash(cafe.BaseBranch), formatAge(cafe.Created, now))
			}
			return nil
		},
	}
}

// newCafeRmCommand creates the cafe rm subcommand.
func newCafeRmCommand(c *app.Container) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rm <id>",
		Short: "Unregister a repository",
		Long: `Unregister a cafe. Orders and worktrees are left in place.

Refuses while unfinished orders reference the cafe unless --force is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.RemoveCafeUseCase().Execute(cmd.Context(), usecase.RemoveCafeInput{ID: args[0], Force: force}); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed cafe %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Remove even if unfinished orders reference the cafe")
	return cmd
}
