package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#1f1f1f", Dark: "#f4f4f5"}).
			Padding(0, 1)

	endpointStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#a1a1aa"})

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#71717a"})

	userLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#2563eb", Dark: "#93c5fd"})

	botLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#047857", Dark: "#6ee7b7"})

	userBubbleStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#d4d4d8", Dark: "#3f3f46"}).
			Padding(0, 1)

	debugStyle = lipgloss.NewStyle().
			Faint(true).
			PaddingLeft(2)

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#6b7280", Dark: "#a1a1aa"})

	statusStyle = lipgloss.NewStyle().
			Padding(0, 1)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#b91c1c", Dark: "#fca5a5"}).
			Padding(0, 1)

	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#a1a1aa", Dark: "#52525b"})

	inputBusyStyle = inputStyle.
			BorderForeground(lipgloss.AdaptiveColor{Light: "#e4e4e7", Dark: "#27272a"})
)
