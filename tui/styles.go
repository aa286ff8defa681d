package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	primaryColor   = lipgloss.Color("#18b5a6") // Teal
	secondaryColor = lipgloss.Color("#4a4f57") // Slate
	successColor   = lipgloss.Color("#9ccc65") // Green
	warningColor   = lipgloss.Color("#ffb454") // Amber
	errorColor     = lipgloss.Color("#e05561") // Red
	mutedColor     = lipgloss.Color("#6b7280") // Dim Gray
	textColor      = lipgloss.Color("#e6e1d3") // Off-White
	inputTextColor = lipgloss.Color("#ffb454") // Amber

	// Box container, only used before the first WindowSizeMsg arrives
	boxStyle = lipgloss.NewStyle().
			Padding(1, 3).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Align(lipgloss.Left)

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			PaddingBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(textColor).
			PaddingBottom(1)

	choiceStyle = lipgloss.NewStyle()

	selectedStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	inputFieldStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	inputTextStyle = lipgloss.NewStyle().
			Foreground(inputTextColor).
			Bold(true)

	placeholderStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Italic(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor).
			Bold(true)

	errorTitleStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true).
			PaddingBottom(1)

	highlightStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	resultLineStyle = lipgloss.NewStyle().
			Foreground(textColor)
)
