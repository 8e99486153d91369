package tui

import "github.com/charmbracelet/lipgloss"

// Colors
var (
	// File panel colors
	fileColor     = lipgloss.Color("14") // Cyan
	selectedColor = lipgloss.Color("10") // Green

	// Search colors
	matchColor  = lipgloss.Color("9")  // Red
	lineNoColor = lipgloss.Color("11") // Yellow

	// UI colors
	headerBg   = lipgloss.Color("235")
	statusBg   = lipgloss.Color("236")
	helpBg     = lipgloss.Color("234")
	errorColor = lipgloss.Color("9")
	dimColor   = lipgloss.Color("8")
)

// Styles
var (
	fileStyle = lipgloss.NewStyle().
			Foreground(fileColor)

	selectedFileStyle = lipgloss.NewStyle().
				Foreground(selectedColor).
				Bold(true)

	fileHeaderStyle = lipgloss.NewStyle().
			Foreground(fileColor).
			Bold(true)

	// Highlighted match spans in search results
	matchStyle = lipgloss.NewStyle().
			Foreground(matchColor).
			Bold(true)

	lineNoStyle = lipgloss.NewStyle().
			Foreground(lineNoColor)

	// Header style
	headerStyle = lipgloss.NewStyle().
			Background(headerBg).
			Padding(0, 1).
			MarginBottom(1)

	// Status bar style
	statusStyle = lipgloss.NewStyle().
			Background(statusBg).
			Padding(0, 1)

	// Help overlay style
	helpStyle = lipgloss.NewStyle().
			Background(helpBg).
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	// Error indicator style
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Background(errorColor).
			Bold(true)

	// Dim style for context line numbers
	dimStyle = lipgloss.NewStyle().
			Foreground(dimColor)
)
