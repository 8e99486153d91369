package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the TUI against a running server and blocks until the user quits
func Run(client BrowseClient) error {
	p := tea.NewProgram(NewModel(client), tea.WithAltScreen())

	final, err := p.Run()

	// Cleanup: stop the follow stream of the last selected file
	if m, ok := final.(Model); ok {
		m.Close()
	}

	return err
}
