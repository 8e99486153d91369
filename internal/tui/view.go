package tui

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return "Connecting to logan..."
	}

	switch m.mode {
	case ModeHelp:
		return m.BaseModel.helpView()
	default:
		return m.BaseModel.mainView()
	}
}
