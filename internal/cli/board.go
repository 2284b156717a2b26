package cli

import (
	"github.com/spf13/cobra"

	"github.com/runoshun/git-cafe/internal/app"
	"github.com/runoshun/git-cafe/internal/tui"
)

// newBoardCommand creates the board command.
func newBoardCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "board",
		Aliases: []string{"ui"},
		Short:   "Watch orders in an interactive board",
		Long: `Open a terminal board listing orders with their stages and recent output.

The board refreshes every few seconds. Orders running in other cafe
processes can be cancelled from it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return tui.Run(cmd.Context(), c)
		},
	}
}
