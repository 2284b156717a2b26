// Package tui provides the interactive order board.
package tui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runoshun/git-cafe/internal/app"
	"github.com/runoshun/git-cafe/internal/usecase"
)

// refreshInterval is how often the board re-reads the order store.
const refreshInterval = 2 * time.Second

// Model is the bubbletea model for the order board.
type Model struct {
	// Dependencies
	container *app.Container
	err       error

	// State
	detail   *usecase.OrderStagesOutput
	orders   []usecase.OrderView
	detailID string
	notice   string

	// Components
	keys    KeyMap
	styles  Styles
	help    help.Model
	logView viewport.Model
	spinner spinner.Model

	// Numeric state
	cursor int
	width  int
	height int

	// Boolean state
	showAll bool
	loading bool
}

// New creates a new board Model with the given container.
func New(c *app.Container) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = DefaultStyles().Notice

	return &Model{
		container: c,
		keys:      DefaultKeyMap(),
		styles:    DefaultStyles(),
		help:      help.New(),
		logView:   viewport.New(0, 0),
		spinner:   sp,
		loading:   true,
	}
}

// Run shows the board until the user quits or ctx is cancelled.
func Run(ctx context.Context, c *app.Container) error {
	p := tea.NewProgram(New(c), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

// Init initializes the model and returns the initial command.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.loadOrders(),
		m.spinner.Tick,
		tick(),
	)
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return MsgTick{}
	})
}

// loadOrders returns a command that lists orders.
func (m *Model) loadOrders() tea.Cmd {
	includeTerminal := m.showAll
	return func() tea.Msg {
		out, err := m.container.ListOrdersUseCase().Execute(context.Background(), usecase.ListOrdersInput{
			IncludeTerminal: includeTerminal,
		})
		if err != nil {
			return MsgOrdersLoaded{Err: err}
		}
		return MsgOrdersLoaded{Orders: out.Orders}
	}
}

// loadDetail returns a command that rebuilds the stage projection of an order.
func (m *Model) loadDetail(orderID string) tea.Cmd {
	return func() tea.Msg {
		out, err := m.container.OrderStagesUseCase().Execute(context.Background(), usecase.OrderStagesInput{OrderID: orderID})
		return MsgDetailLoaded{OrderID: orderID, Detail: out, Err: err}
	}
}

// cancelOrder returns a command that cancels an order.
func (m *Model) cancelOrder(orderID string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.container.CancelOrderUseCase().Execute(context.Background(), usecase.CancelOrderInput{OrderID: orderID})
		return MsgOrderCancelled{OrderID: orderID, Err: err}
	}
}

// SelectedOrder returns the order under the cursor, or nil if none.
func (m *Model) SelectedOrder() *usecase.OrderView {
	if m.cursor < 0 || m.cursor >= len(m.orders) {
		return nil
	}
	return &m.orders[m.cursor]
}

// selectedID returns the ID of the selected order, or "".
func (m *Model) selectedID() string {
	if sel := m.SelectedOrder(); sel != nil {
		return sel.Order.ID
	}
	return ""
}
