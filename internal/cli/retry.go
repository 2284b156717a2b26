package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/runoshun/git-cafe/internal/app"
	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/usecase"
)

// newRetryCommand creates the retry command.
func newRetryCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Stage           string
		Beginning       bool
		PreserveContext bool
		Options         bool
		Quiet           bool
	}

	cmd := &cobra.Command{
		Use:   "retry <id>",
		Short: "Rerun a finished order",
		Long: `Rerun a finished order and wait for it to finish.

By default the run resumes at the first stage that failed in the previous
run, continuing the provider conversation. Use --from-stage to pick the
stage, or --beginning to rerun the whole recipe.

Examples:
  # Show where an order can be retried from
  cafe retry 1a2b3c4d --options

  # Retry the failed stage
  cafe retry 1a2b3c4d

  # Rerun everything, keeping the agent's conversation
  cafe retry 1a2b3c4d --beginning --preserve-context`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Stage != "" && opts.Beginning {
				return errors.New("--from-stage and --beginning cannot be used together")
			}
			if opts.PreserveContext && !opts.Beginning {
				return errors.New("--preserve-context requires --beginning")
			}

			if opts.Options {
				out, err := c.GetRetryOptionsUseCase().Execute(cmd.Context(), usecase.GetRetryOptionsInput{OrderID: args[0]})
				if err != nil {
					return err
				}
				printRetryOptions(cmd, out.Options)
				return nil
			}

			offset := transcriptSize(c, args[0])
			out, err := c.RetryOrderUseCase().Execute(cmd.Context(), usecase.RetryOrderInput{
				OrderID:         args[0],
				StageID:         opts.Stage,
				FromBeginning:   opts.Beginning,
				PreserveContext: opts.PreserveContext,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Retrying order %s\n", domain.ShortID(out.Order.ID))
			stream := w
			if opts.Quiet {
				stream = nil
			}
			order, err := waitForRun(cmd.Context(), c, out.Order.ID, stream, offset)
			if err != nil {
				return err
			}
			return reportRun(w, order)
		},
	}

	cmd.Flags().StringVar(&opts.Stage, "from-stage", "", "Stage to resume at (default: first failed stage)")
	cmd.Flags().BoolVar(&opts.Beginning, "beginning", false, "Rerun the whole recipe")
	cmd.Flags().BoolVar(&opts.PreserveContext, "preserve-context", false, "Keep the provider conversation (with --beginning)")
	cmd.Flags().BoolVar(&opts.Options, "options", false, "Show the retry points instead of retrying")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Do not stream agent output")

	return cmd
}

func printRetryOptions(cmd *cobra.Command, opts *domain.RetryOptions) {
	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "Stages:       %s\n", orDash(strings.Join(opts.Stages, ", ")))
	_, _ = fmt.Fprintf(w, "Failed stage: %s\n", orDash(opts.FailedStage))
	_, _ = fmt.Fprintf(w, "Can resume:   %t\n", opts.CanResume)
}
