package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/protocol"
	"github.com/runoshun/git-cafe/internal/usecase"
)

const (
	minListWidth = 28
	minLogHeight = 3
)

// paneSizes returns the outer widths of both panes and their outer height.
func (m *Model) paneSizes() (listWidth, detailWidth, height int) {
	listWidth = max(m.width*2/5, minListWidth)
	detailWidth = max(m.width-listWidth, minListWidth)
	height = m.height - 2 - lipgloss.Height(m.help.View(m.keys))
	return listWidth, detailWidth, max(height, minLogHeight+4)
}

// layout sizes the log viewport to the space left under the detail header.
func (m *Model) layout() {
	_, detailWidth, height := m.paneSizes()
	innerWidth := max(detailWidth-4, 1)
	used := lipgloss.Height(m.viewDetailHeader(innerWidth)) + 1
	m.logView.Width = innerWidth
	m.logView.Height = max(height-2-used, minLogHeight)
	m.logView.SetContent(m.logContent(innerWidth))
}

// View renders the board.
func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	listWidth, detailWidth, height := m.paneSizes()
	list := m.styles.Pane.Width(listWidth - 2).Height(height - 2).Render(m.viewOrderList(listWidth-4, height-2))
	detail := m.styles.Pane.Width(detailWidth - 2).Height(height - 2).Render(m.viewDetail(detailWidth - 4))

	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewHeader(),
		lipgloss.JoinHorizontal(lipgloss.Top, list, detail),
		m.viewStatusLine(),
		m.styles.Help.Render(m.help.View(m.keys)),
	)
}

func (m *Model) viewHeader() string {
	scope := "active orders"
	if m.showAll {
		scope = "all orders"
	}
	return m.styles.Title.Render("cafe") + " " + m.styles.Subtitle.Render(fmt.Sprintf("%s (%d)", scope, len(m.orders)))
}

func (m *Model) viewStatusLine() string {
	switch {
	case m.err != nil:
		return m.styles.Error.Render("Error: " + m.err.Error())
	case m.notice != "":
		return m.styles.Notice.Render(m.notice)
	}
	return ""
}

func (m *Model) viewOrderList(width, height int) string {
	if m.loading {
		return m.styles.Muted.Render(m.spinner.View() + " Loading orders...")
	}
	if len(m.orders) == 0 {
		hint := "No active orders"
		if !m.showAll {
			hint += " (press a to show all)"
		}
		return m.styles.Muted.Render(hint)
	}

	start := 0
	if m.cursor >= height {
		start = m.cursor - height + 1
	}
	end := min(start+height, len(m.orders))

	rows := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		rows = append(rows, m.renderOrderRow(m.orders[i], i == m.cursor, width))
	}
	return strings.Join(rows, "\n")
}

func (m *Model) renderOrderRow(o usecase.OrderView, selected bool, width int) string {
	icon := "●"
	if o.DisplayStatus == domain.StatusRunning {
		icon = m.spinner.View()
	}
	prompt := strings.ReplaceAll(o.Order.Prompt, "\n", " ")

	if selected {
		row := fmt.Sprintf("%s %s %s %s", "▸", domain.ShortID(o.Order.ID), o.DisplayStatus, prompt)
		return m.styles.Selected.MaxWidth(width).Render(row)
	}
	row := fmt.Sprintf("%s %s %s %s",
		m.styles.StatusStyle(o.DisplayStatus).Render(icon),
		domain.ShortID(o.Order.ID),
		m.styles.StatusStyle(o.DisplayStatus).Render(string(o.DisplayStatus)),
		m.styles.Muted.Render(prompt))
	return lipgloss.NewStyle().MaxWidth(width).Render(row)
}

func (m *Model) viewDetail(width int) string {
	if m.SelectedOrder() == nil {
		return m.styles.Muted.Render("No order selected")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewDetailHeader(width),
		m.styles.PaneTitle.Render("Log"),
		m.logView.View(),
	)
}

func (m *Model) viewDetailHeader(width int) string {
	sel := m.SelectedOrder()
	if sel == nil {
		return ""
	}
	o := sel.Order
	field := func(label, value string) string {
		return m.styles.DetailLabel.Render(label) + m.styles.DetailValue.Render(value)
	}

	lines := []string{
		m.styles.PaneTitle.Render("Order " + o.ID),
		m.styles.DetailLabel.Render("Status") + m.styles.StatusStyle(sel.DisplayStatus).Render(sel.DisplayStatus.Display()),
		field("Recipe", o.WorkflowName),
	}
	if o.Provider != "" {
		lines = append(lines, field("Provider", o.Provider))
	}
	if o.Worktree != nil && !o.Worktree.Removed {
		lines = append(lines, field("Branch", o.Worktree.Branch))
	}
	if o.Error != "" {
		lines = append(lines, m.styles.DetailLabel.Render("Error")+m.styles.Error.Render(o.Error))
	}
	lines = append(lines, field("Prompt", lipgloss.NewStyle().MaxWidth(max(width-10, 1)).Render(strings.ReplaceAll(o.Prompt, "\n", " "))))

	if d := m.detail; d != nil && m.detailID == o.ID {
		if d.Session != nil && d.Session.AwaitingInput {
			lines = append(lines, m.styles.Notice.Render("Awaiting input: "+d.Session.Prompt))
		}
		if d.Todos != nil && d.Todos.Total > 0 {
			lines = append(lines, field("Todos", fmt.Sprintf("%d/%d done, %d in progress", d.Todos.Completed, d.Todos.Total, d.Todos.InProgress)))
		}
		if len(d.Stages) > 0 {
			lines = append(lines, "", m.styles.PaneTitle.Render("Stages"))
			for _, s := range d.Stages {
				lines = append(lines, m.renderStage(s, width))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderStage(s domain.StageResult, width int) string {
	row := fmt.Sprintf("%-12s %s", s.StageID, m.styles.StageStyle(s.Status).Render(fmt.Sprintf("%-9s", s.Status)))
	if s.Attempt > 1 {
		row += m.styles.Muted.Render(fmt.Sprintf(" attempt %d", s.Attempt))
	}
	if s.Duration > 0 {
		row += m.styles.Muted.Render(" " + s.Duration.Round(100*time.Millisecond).String())
	}
	if s.Error != "" {
		row += " " + m.styles.Error.Render(s.Error)
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(row)
}

// logContent renders the buffered log lines of the selected order.
func (m *Model) logContent(width int) string {
	if m.detail == nil || m.detailID != m.selectedID() {
		return ""
	}
	if len(m.detail.Logs) == 0 {
		return m.styles.Muted.Render("No output yet")
	}

	wrap := lipgloss.NewStyle().Width(width)
	lines := make([]string, 0, len(m.detail.Logs))
	for _, l := range m.detail.Logs {
		content := l.Content
		style := m.styles.SeverityStyle(l.Severity)
		switch l.Type {
		case protocol.TypeUserPrompt:
			content = "> " + content
			style = m.styles.PaneTitle
		case protocol.TypeAwaitingInput:
			content = "? " + content
			style = m.styles.Notice
		case protocol.TypeStderr:
			style = m.styles.Muted
		}
		lines = append(lines, wrap.Render(m.styles.Muted.Render(l.At.Local().Format("15:04:05"))+" "+style.Render(content)))
	}
	return strings.Join(lines, "\n")
}
