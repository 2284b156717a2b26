package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/runoshun/git-cafe/internal/aggregator"
	"github.com/runoshun/git-cafe/internal/domain"
)

// Colors used in the board.
var (
	ColorPrimary   = lipgloss.Color("#7C3AED") // Purple
	ColorSecondary = lipgloss.Color("#6B7280") // Gray
	ColorSuccess   = lipgloss.Color("#10B981") // Green
	ColorWarning   = lipgloss.Color("#F59E0B") // Amber
	ColorError     = lipgloss.Color("#EF4444") // Red
	ColorRunning   = lipgloss.Color("#06B6D4") // Cyan
	ColorMuted     = lipgloss.Color("#9CA3AF") // Light gray
)

// Styles holds the styles for the board.
type Styles struct {
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Selected    lipgloss.Style
	Normal      lipgloss.Style
	Pane        lipgloss.Style
	PaneTitle   lipgloss.Style
	DetailLabel lipgloss.Style
	DetailValue lipgloss.Style
	Muted       lipgloss.Style
	Help        lipgloss.Style
	Error       lipgloss.Style
	Notice      lipgloss.Style
}

// DefaultStyles returns the default styles.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary),
		Subtitle: lipgloss.NewStyle().
			Foreground(ColorMuted),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(ColorPrimary),
		Normal: lipgloss.NewStyle(),
		Pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorSecondary).
			Padding(0, 1),
		PaneTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary),
		DetailLabel: lipgloss.NewStyle().
			Foreground(ColorMuted).
			Width(10),
		DetailValue: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")),
		Muted: lipgloss.NewStyle().
			Foreground(ColorMuted),
		Help: lipgloss.NewStyle().
			Foreground(ColorMuted),
		Error: lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true),
		Notice: lipgloss.NewStyle().
			Foreground(ColorWarning),
	}
}

// StatusStyle returns the style for an order status.
func (s Styles) StatusStyle(status domain.OrderStatus) lipgloss.Style {
	switch status {
	case domain.StatusRunning:
		return lipgloss.NewStyle().Foreground(ColorRunning)
	case domain.StatusWaitingInput:
		return lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	case domain.StatusCompleted:
		return lipgloss.NewStyle().Foreground(ColorSuccess)
	case domain.StatusFailed:
		return lipgloss.NewStyle().Foreground(ColorError)
	case domain.StatusCancelled:
		return lipgloss.NewStyle().Foreground(ColorSecondary)
	}
	return s.Muted
}

// StageStyle returns the style for a stage status.
func (s Styles) StageStyle(status domain.StageStatus) lipgloss.Style {
	switch status {
	case domain.StageRunning:
		return lipgloss.NewStyle().Foreground(ColorRunning)
	case domain.StageCompleted:
		return lipgloss.NewStyle().Foreground(ColorSuccess)
	case domain.StageFailed:
		return lipgloss.NewStyle().Foreground(ColorError)
	}
	return s.Muted
}

// SeverityStyle returns the style for a classified log line.
func (s Styles) SeverityStyle(severity aggregator.Severity) lipgloss.Style {
	switch severity {
	case aggregator.SeverityError:
		return lipgloss.NewStyle().Foreground(ColorError)
	case aggregator.SeveritySuccess:
		return lipgloss.NewStyle().Foreground(ColorSuccess)
	case aggregator.SeverityWarning:
		return lipgloss.NewStyle().Foreground(ColorWarning)
	}
	return s.Normal
}
