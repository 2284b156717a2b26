package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/runoshun/git-cafe/internal/aggregator"
	"github.com/runoshun/git-cafe/internal/app"
	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/protocol"
	"github.com/runoshun/git-cafe/internal/usecase"
	"github.com/runoshun/git-cafe/internal/usecase/shared"
)

// newOrderCommand creates the order command.
func newOrderCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "order",
		Aliases: []string{"o"},
		Short:   "Place and manage orders",
		Long: `Place and manage orders.

An order is a request run through a recipe by an AI agent provider.
Orders move through PENDING -> RUNNING -> COMPLETED | FAILED | CANCELLED
and can be started again once they have finished.`,
	}

	cmd.AddCommand(
		newOrderNewCommand(c),
		newOrderListCommand(c),
		newOrderShowCommand(c),
		newOrderStartCommand(c),
		newOrderCancelCommand(c),
		newOrderSendCommand(c),
		newOrderRmCommand(c),
		newOrderHistoryCommand(c),
		newOrderStagesCommand(c),
		newOrderLogsCommand(c),
	)
	return cmd
}

// newOrderNewCommand creates the order new subcommand.
func newOrderNewCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Cafe         string
		Recipe       string
		Provider     string
		Base         string
		BranchPrefix string
		Vars         []string
		Worktree     bool
		Start        bool
	}

	cmd := &cobra.Command{
		Use:   "new <prompt>...",
		Short: "Place a new order",
		Long: `Place a new order with the given prompt.

The order is created PENDING. With --worktree it gets its own git worktree
and branch, created from the cafe's base branch; if the worktree cannot be
created the order is not kept.

Examples:
  # Order against the repository in the current directory
  cafe order new "Add a --json flag to the list command"

  # Isolate the work in a worktree and run it right away
  cafe order new --worktree --start "Fix the flaky login test"

  # Use a registered cafe, a recipe and extra variables
  cafe order new --cafe api --recipe review --var TICKET=123 "Review the auth module"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := parseVariables(opts.Vars)
			if err != nil {
				return err
			}
			cafe := opts.Cafe
			if cafe == "" {
				if cafe, err = os.Getwd(); err != nil {
					return fmt.Errorf("get current directory: %w", err)
				}
			}

			out, err := c.CreateOrderUseCase().Execute(cmd.Context(), usecase.CreateOrderInput{
				Variables:      vars,
				WorkflowID:     opts.Recipe,
				Cafe:           cafe,
				Provider:       opts.Provider,
				Prompt:         strings.Join(args, " "),
				BaseBranch:     opts.Base,
				BranchPrefix:   opts.BranchPrefix,
				CreateWorktree: opts.Worktree,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Created order %s\n", out.Order.ID)
			if wt := out.Order.Worktree; wt != nil {
				_, _ = fmt.Fprintf(w, "Worktree: %s (branch %s)\n", wt.Path, wt.Branch)
			}
			if !opts.Start {
				return nil
			}
			return startOrder(cmd, c, out.Order.ID, "", nil, false)
		},
	}

	cmd.Flags().StringVar(&opts.Cafe, "cafe", "", "Cafe ID or repository path (default: current directory)")
	cmd.Flags().StringVarP(&opts.Recipe, "recipe", "r", "", "Recipe ID (default: default recipe)")
	cmd.Flags().StringVarP(&opts.Provider, "provider", "p", "", "Provider override")
	cmd.Flags().StringVar(&opts.Base, "base", "", "Worktree base branch")
	cmd.Flags().StringVar(&opts.BranchPrefix, "branch-prefix", "", "Worktree branch prefix")
	cmd.Flags().StringArrayVar(&opts.Vars, "var", nil, "Order variable KEY=VALUE (can specify multiple)")
	cmd.Flags().BoolVarP(&opts.Worktree, "worktree", "w", false, "Create an isolated worktree for the order")
	cmd.Flags().BoolVar(&opts.Start, "start", false, "Start the order and wait for it to finish")

	return cmd
}

// newOrderListCommand creates the order list subcommand.
func newOrderListCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Cafe     string
		Statuses []string
		All      bool
	}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List orders",
		Long: `List orders, oldest first.

Finished orders (COMPLETED, FAILED, CANCELLED) are hidden unless --all is
given or their status is requested with --status.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := usecase.ListOrdersInput{
				CafeID:          opts.Cafe,
				IncludeTerminal: opts.All,
			}
			for _, s := range opts.Statuses {
				status := domain.OrderStatus(strings.ToUpper(s))
				if !status.IsValid() {
					return fmt.Errorf("invalid status: %s", s)
				}
				in.Statuses = append(in.Statuses, status)
				if status.IsTerminal() {
					in.IncludeTerminal = true
				}
			}

			out, err := c.ListOrdersUseCase().Execute(cmd.Context(), in)
			if err != nil {
				return err
			}
			if len(out.Orders) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No orders")
				return nil
			}
			printOrderList(cmd.OutOrStdout(), c, out.Orders)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Cafe, "cafe", "", "Show only orders of this cafe")
	cmd.Flags().StringArrayVarP(&opts.Statuses, "status", "s", nil, "Filter by status (can specify multiple)")
	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "Include finished orders")

	return cmd
}

// printOrderList prints orders as a table.
func printOrderList(w io.Writer, c *app.Container, orders []usecase.OrderView) {
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	defer func() { _ = tw.Flush() }()

	now := c.Clock.Now()
	_, _ = fmt.Fprintln(tw, "ID\tSTATUS\tRECIPE\tCAFE\tCREATED\tPROMPT")
	for _, v := range orders {
		o := v.Order
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			domain.ShortID(o.ID),
			formatStatus(v.DisplayStatus),
			orDash(o.WorkflowID),
			orDash(o.CafeID),
			formatAge(o.Created, now),
			truncate(o.Prompt, 50),
		)
	}
}

// newOrderShowCommand creates the order show subcommand.
func newOrderShowCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show order details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.ShowOrderUseCase().Execute(cmd.Context(), usecase.ShowOrderInput{OrderID: args[0]})
			if err != nil {
				return err
			}
			printOrder(cmd.OutOrStdout(), c, out.OrderView)
			return nil
		},
	}
}

// printOrder prints an order in a key-value layout.
func printOrder(w io.Writer, c *app.Container, v usecase.OrderView) {
	o := v.Order
	now := c.Clock.Now()

	_, _ = fmt.Fprintf(w, "ID:       %s\n", o.ID)
	_, _ = fmt.Fprintf(w, "Status:   %s\n", formatStatus(v.DisplayStatus))
	_, _ = fmt.Fprintf(w, "Recipe:   %s (%s)\n", orDash(o.WorkflowName), orDash(o.WorkflowID))
	_, _ = fmt.Fprintf(w, "Provider: %s\n", orDash(o.Provider))
	_, _ = fmt.Fprintf(w, "Cafe:     %s\n", orDash(o.CafeID))
	_, _ = fmt.Fprintf(w, "Counter:  %s\n", orDash(o.Counter))
	_, _ = fmt.Fprintf(w, "Barista:  %s\n", orDash(o.BaristaID))
	_, _ = fmt.Fprintf(w, "Created:  %s\n", formatAge(o.Created, now))
	_, _ = fmt.Fprintf(w, "Started:  %s\n", formatAge(o.Started, now))
	_, _ = fmt.Fprintf(w, "Ended:    %s\n", formatAge(o.Ended, now))
	if o.Error != "" {
		_, _ = fmt.Fprintf(w, "Error:    %s\n", colorRed.Sprint(o.Error))
	}

	if wt := o.Worktree; wt != nil {
		state := "active"
		switch {
		case wt.Merged && wt.Removed:
			state = "merged into " + wt.MergedTo + ", removed"
		case wt.Merged:
			state = "merged into " + wt.MergedTo
		case wt.Removed:
			state = "removed"
		}
		_, _ = fmt.Fprintln(w, "\nWorktree:")
		_, _ = fmt.Fprintf(w, "  Path:   %s\n", wt.Path)
		_, _ = fmt.Fprintf(w, "  Branch: %s (from %s)\n", wt.Branch, wt.BaseBranch)
		_, _ = fmt.Fprintf(w, "  State:  %s\n", state)
	}

	if len(o.Variables) > 0 {
		_, _ = fmt.Fprintln(w, "\nVariables:")
		for _, k := range sortedKeys(o.Variables) {
			_, _ = fmt.Fprintf(w, "  %s=%s\n", k, o.Variables[k])
		}
	}

	if o.Prompt != "" {
		_, _ = fmt.Fprintln(w, "\nPrompt:")
		for _, line := range strings.Split(o.Prompt, "\n") {
			_, _ = fmt.Fprintf(w, "  %s\n", line)
		}
	}
}

// newOrderStartCommand creates the order start subcommand.
func newOrderStartCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Prompt string
		Vars   []string
		Quiet  bool
	}

	cmd := &cobra.Command{
		Use:   "start <id>",
		Short: "Run an order and wait for it to finish",
		Long: `Run an order's recipe and wait for it to finish.

Agent output is streamed to the terminal. Other terminals can answer
questions with 'cafe order send' and stop the run with 'cafe order cancel'.
Interrupting this command cancels the order.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vars, err := parseVariables(opts.Vars)
			if err != nil {
				return err
			}
			return startOrder(cmd, c, args[0], opts.Prompt, vars, opts.Quiet)
		},
	}

	cmd.Flags().StringVar(&opts.Prompt, "prompt", "", "Prompt for this run (default: the order's prompt)")
	cmd.Flags().StringArrayVar(&opts.Vars, "var", nil, "Extra variable KEY=VALUE (can specify multiple)")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Do not stream agent output")

	return cmd
}

// startOrder executes an order and waits for the run to end.
func startOrder(cmd *cobra.Command, c *app.Container, orderID, prompt string, vars map[string]string, quiet bool) error {
	offset := transcriptSize(c, orderID)
	out, err := c.ExecuteOrderUseCase().Execute(cmd.Context(), usecase.ExecuteOrderInput{
		Variables: vars,
		OrderID:   orderID,
		Prompt:    prompt,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "Started order %s\n", domain.ShortID(out.Order.ID))
	var stream io.Writer
	if !quiet {
		stream = w
	}
	order, err := waitForRun(cmd.Context(), c, out.Order.ID, stream, offset)
	if err != nil {
		return err
	}
	return reportRun(w, order)
}

// newOrderCancelCommand creates the order cancel subcommand.
func newOrderCancelCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a pending or running order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.CancelOrderUseCase().Execute(cmd.Context(), usecase.CancelOrderInput{OrderID: args[0]})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cancelled order %s\n", domain.ShortID(out.Order.ID))
			return nil
		},
	}
}

// newOrderSendCommand creates the order send subcommand.
func newOrderSendCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "send <id> <message>...",
		Short: "Send input to a running order",
		Long: `Send a line of input to a running order.

Use this to answer an agent that is waiting for input. When the order runs
in another cafe process the message is queued and delivered by that process.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID := args[0]
			message := strings.Join(args[1:], " ")

			if c.Engine.HasSession(orderID) {
				if _, err := c.SendInputUseCase().Execute(cmd.Context(), usecase.SendInputInput{OrderID: orderID, Message: message}); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Sent input to order %s\n", domain.ShortID(orderID))
				return nil
			}

			out, err := c.ShowOrderUseCase().Execute(cmd.Context(), usecase.ShowOrderInput{OrderID: orderID})
			if err != nil {
				return err
			}
			if out.Order.Status != domain.StatusRunning {
				return domain.NewError(domain.KindPreconditionFailed, "send input",
					fmt.Errorf("%w: order is %s", domain.ErrNoSession, out.Order.Status))
			}
			message, err = shared.ValidateMessage(message)
			if err != nil {
				return err
			}
			if err := c.Transcripts.Post(out.Order.ID, message); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Queued input for order %s\n", domain.ShortID(out.Order.ID))
			return nil
		},
	}
}

// newOrderRmCommand creates the order rm subcommand.
func newOrderRmCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>...",
		Aliases: []string{"delete"},
		Short:   "Delete orders",
		Long: `Delete orders together with their transcripts and worktrees.

Each order is deleted independently; a failure on one does not stop the
others. A worktree that cannot be removed is reported but does not keep
the order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.DeleteOrdersUseCase().Execute(cmd.Context(), usecase.DeleteOrdersInput{OrderIDs: args})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, id := range out.Deleted {
				_, _ = fmt.Fprintf(w, "Deleted order %s\n", domain.ShortID(id))
			}
			if len(out.Failed) == 0 {
				return nil
			}
			errs := make([]error, 0, len(out.Failed))
			for _, id := range out.Failed {
				errs = append(errs, fmt.Errorf("%s: %w", id, out.Errors[id]))
			}
			return errors.Join(errs...)
		},
	}
}

// newOrderHistoryCommand creates the order history subcommand.
func newOrderHistoryCommand(c *app.Container) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Show the message history of an order",
		Long: `Show the reconstructed message history of an order.

By default only user input, agent output and stage boundaries are shown;
use --all to include stderr and raw JSON events.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.OrderHistoryUseCase().Execute(cmd.Context(), usecase.OrderHistoryInput{OrderID: args[0]})
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer func() { _ = tw.Flush() }()
			for _, e := range out.Entries {
				if !all && !historyVisible(e.Type) {
					continue
				}
				content := e.Content
				if e.Type == usecase.HistoryTypeUserInput {
					content = colorCyan.Sprint(content)
				} else if sc := severityColor(aggregator.Classify(content)); sc != nil {
					content = sc.Sprint(content)
				}
				lines := strings.Split(content, "\n")
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Timestamp.Local().Format("15:04:05"), e.Type, lines[0])
				for _, l := range lines[1:] {
					_, _ = fmt.Fprintf(tw, "\t\t%s\n", l)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include stderr and JSON events")
	return cmd
}

// historyVisible reports whether an entry type is shown without --all.
func historyVisible(typ string) bool {
	switch protocol.EventType(typ) {
	case protocol.TypeStderr, protocol.TypeJSON:
		return false
	}
	return true
}

// newOrderStagesCommand creates the order stages subcommand.
func newOrderStagesCommand(c *app.Container) *cobra.Command {
	var timeline bool

	cmd := &cobra.Command{
		Use:   "stages <id>",
		Short: "Show stage results of an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.OrderStagesUseCase().Execute(cmd.Context(), usecase.OrderStagesInput{OrderID: args[0]})
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			if out.Session != nil {
				line := fmt.Sprintf("Session: %s", stageStatusColor(out.Session.Status).Sprint(out.Session.Status))
				if out.Session.AwaitingInput {
					line += colorYellow.Sprintf(" (awaiting input: %s)", out.Session.Prompt)
				}
				_, _ = fmt.Fprintln(w, line)
			}
			if out.Todos != nil && out.Todos.Total > 0 {
				_, _ = fmt.Fprintf(w, "Todos:   %d/%d completed, %d in progress\n",
					out.Todos.Completed, out.Todos.Total, out.Todos.InProgress)
			}
			if len(out.Stages) == 0 {
				_, _ = fmt.Fprintln(w, "No stages recorded")
				return nil
			}

			_, _ = fmt.Fprintln(w)
			tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(tw, "STAGE\tSTATUS\tATTEMPT\tDURATION\tERROR")
			for _, s := range out.Stages {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
					s.StageID,
					stageStatusColor(s.Status).Sprint(s.Status),
					s.Attempt,
					formatDuration(s.Duration),
					orDash(truncate(s.Error, 60)),
				)
			}
			_ = tw.Flush()

			if timeline {
				_, _ = fmt.Fprintln(w, "\nTimeline:")
				for _, e := range out.Timeline {
					_, _ = fmt.Fprintf(w, "  %s  %-15s %s %s\n",
						e.At.Local().Format("15:04:05"), e.Kind, e.StageID, e.Message)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&timeline, "timeline", "t", false, "Also show the event timeline")
	return cmd
}

// newOrderLogsCommand creates the order logs subcommand.
func newOrderLogsCommand(c *app.Container) *cobra.Command {
	var opts struct {
		Follow bool
		Raw    bool
	}

	cmd := &cobra.Command{
		Use:   "logs <id>",
		Short: "Print an order's transcript",
		Long: `Print an order's transcript.

With --follow the command keeps printing new output until the order
finishes or the command is interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.ShowOrderUseCase().Execute(cmd.Context(), usecase.ShowOrderInput{OrderID: args[0]})
			if err != nil {
				return err
			}
			orderID := out.Order.ID

			var w io.Writer = cmd.OutOrStdout()
			if !opts.Raw {
				w = &transcriptRenderer{w: w}
			}

			if opts.Follow {
				finished := func() bool {
					o, err := c.Orders.Get(orderID)
					return err != nil || o == nil || o.Status != domain.StatusRunning
				}
				return c.Transcripts.Follow(cmd.Context(), orderID, w, finished)
			}

			rc, err := c.Transcripts.Open(orderID)
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			if err != nil {
				return err
			}
			defer func() { _ = rc.Close() }()
			if _, err := io.Copy(w, rc); err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "Keep printing new output")
	cmd.Flags().BoolVar(&opts.Raw, "raw", false, "Print the transcript without formatting")

	return cmd
}
