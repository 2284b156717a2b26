package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runoshun/git-cafe/internal/domain"
)

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.layout()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case MsgTick:
		return m, tea.Batch(m.loadOrders(), tick())

	case MsgOrdersLoaded:
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		m.err = nil
		prev := m.selectedID()
		m.orders = msg.Orders
		m.cursor = m.indexOf(prev)
		id := m.selectedID()
		if id == "" {
			m.detail = nil
			m.detailID = ""
			m.layout()
			return m, nil
		}
		return m, m.loadDetail(id)

	case MsgDetailLoaded:
		if msg.OrderID != m.selectedID() {
			return m, nil
		}
		if msg.Err != nil {
			m.err = msg.Err
			return m, nil
		}
		follow := msg.OrderID != m.detailID || m.logView.AtBottom()
		m.detail = msg.Detail
		m.detailID = msg.OrderID
		m.layout()
		if follow {
			m.logView.GotoBottom()
		}
		return m, nil

	case MsgOrderCancelled:
		if msg.Err != nil {
			m.err = msg.Err
		} else {
			m.notice = fmt.Sprintf("Cancelled order %s", domain.ShortID(msg.OrderID))
		}
		return m, m.loadOrders()
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		return m, m.moveCursor(-1)

	case key.Matches(msg, m.keys.Down):
		return m, m.moveCursor(1)

	case key.Matches(msg, m.keys.LogUp):
		m.logView.SetYOffset(m.logView.YOffset - m.logView.Height/2)
		return m, nil

	case key.Matches(msg, m.keys.LogDown):
		m.logView.SetYOffset(m.logView.YOffset + m.logView.Height/2)
		return m, nil

	case key.Matches(msg, m.keys.LogStart):
		m.logView.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.LogEnd):
		m.logView.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keys.Cancel):
		sel := m.SelectedOrder()
		if sel == nil {
			return m, nil
		}
		if !sel.Order.Status.CanCancel() {
			m.notice = fmt.Sprintf("Order %s is %s", domain.ShortID(sel.Order.ID), sel.Order.Status)
			return m, nil
		}
		return m, m.cancelOrder(sel.Order.ID)

	case key.Matches(msg, m.keys.Refresh):
		m.notice = ""
		return m, m.loadOrders()

	case key.Matches(msg, m.keys.ToggleShowAll):
		m.showAll = !m.showAll
		return m, m.loadOrders()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.layout()
		return m, nil
	}

	return m, nil
}

// moveCursor moves the selection and loads the newly selected order.
func (m *Model) moveCursor(delta int) tea.Cmd {
	next := m.cursor + delta
	if next < 0 || next >= len(m.orders) {
		return nil
	}
	m.cursor = next
	m.notice = ""
	return m.loadDetail(m.selectedID())
}

// indexOf returns the index of the order with id, or 0 when it is gone.
func (m *Model) indexOf(id string) int {
	for i, o := range m.orders {
		if o.Order.ID == id {
			return i
		}
	}
	return 0
}
