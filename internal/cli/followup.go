package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runoshun/git-cafe/internal/app"
	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/usecase"
)

// newFollowupCommand creates the followup command.
func newFollowupCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "followup",
		Aliases: []string{"fu"},
		Short:   "Continue the conversation of a completed order",
		Long: `Continue the agent conversation of a completed order in its worktree.

A followup does not change the order's status. The session is restored
from the order's worktree when needed, so the order must be COMPLETED and
still have its worktree.`,
	}

	cmd.AddCommand(
		newFollowupEnterCommand(c),
		newFollowupExecCommand(c),
		newFollowupFinishCommand(c),
	)
	return cmd
}

// newFollowupEnterCommand creates the followup enter subcommand.
func newFollowupEnterCommand(c *app.Container) *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "enter <id>",
		Short: "Open a followup session",
		Long: `Open a followup session for a completed order.

With --interactive every line read from stdin is sent as a followup prompt
until end of input, then the session is finished.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.FollowupUseCase(usecase.FollowupEnter).Execute(cmd.Context(), usecase.FollowupInput{OrderID: args[0]})
			if err != nil {
				return err
			}
			orderID := out.Order.ID
			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Followup ready for order %s\n", domain.ShortID(orderID))
			if !interactive {
				return nil
			}

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for scanner.Scan() {
				prompt := strings.TrimSpace(scanner.Text())
				if prompt == "" {
					continue
				}
				if err := runFollowup(cmd, c, orderID, prompt); err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			if _, err := c.FollowupUseCase(usecase.FollowupFinish).Execute(cmd.Context(), usecase.FollowupInput{OrderID: orderID}); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(w, "Followup finished for order %s\n", domain.ShortID(orderID))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Read prompts from stdin until end of input")
	return cmd
}

// newFollowupExecCommand creates the followup exec subcommand.
func newFollowupExecCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "exec <id> <prompt>...",
		Short: "Send one followup prompt and wait for the answer",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFollowup(cmd, c, args[0], strings.Join(args[1:], " "))
		},
	}
}

// runFollowup executes one followup prompt, printing the new transcript output.
func runFollowup(cmd *cobra.Command, c *app.Container, orderID, prompt string) error {
	offset := transcriptSize(c, orderID)
	_, execErr := c.FollowupUseCase(usecase.FollowupExecute).Execute(cmd.Context(), usecase.FollowupInput{
		OrderID: orderID,
		Prompt:  prompt,
	})

	// The run is synchronous; print whatever it appended, even on failure.
	if rc, err := c.Transcripts.Open(orderID); err == nil {
		r := &transcriptRenderer{w: cmd.OutOrStdout(), skip: offset}
		_, _ = bufio.NewReader(rc).WriteTo(r)
		_ = rc.Close()
	}
	return execErr
}

// newFollowupFinishCommand creates the followup finish subcommand.
func newFollowupFinishCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "finish <id>",
		Short: "Close the followup session and release its barista",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.FollowupUseCase(usecase.FollowupFinish).Execute(cmd.Context(), usecase.FollowupInput{OrderID: args[0]})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Followup finished for order %s\n", domain.ShortID(out.Order.ID))
			return nil
		},
	}
}
