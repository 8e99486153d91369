package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/logan/internal/api"
)

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.handleWindowSize(msg)
		m.updateViewport()

	case FilesMsg:
		m.lastError = nil
		cmds = append(cmds, m.setFiles([]api.FileResponse(msg)))

	case WindowMsg:
		if f, ok := m.selectedFile(); ok && f.OwnerID == msg.OwnerID {
			// Lines followed while the window loaded go after it
			lines := make([]string, 0, len(msg.Lines)+len(m.lines))
			lines = append(lines, msg.Lines...)
			lines = append(lines, m.lines...)
			m.lines = m.lines[:0]
			m.appendLines(lines...)
		}

	case FollowLineMsg:
		if msg.stream != nil && msg.stream == m.stream {
			m.appendLines(msg.Line)
			cmds = append(cmds, m.stream.next())
		}

	case FollowEndedMsg:
		if msg.stream != nil && msg.stream == m.stream {
			m.stream = nil
			if msg.Err != nil {
				m.lastError = msg.Err
			}
		}

	case SearchResultMsg:
		m.search = msg.Result
		m.notice = ""
		m.lastError = nil
		m.viewMode = ViewModeSearch
		m.updateViewport()
		m.viewport.GotoTop()

	case DiscoverResultMsg:
		m.notice = fmt.Sprintf("Registered %d log files (%dms)", msg.Result.Files, msg.Result.DurationMS)
		m.lastError = nil
		cmds = append(cmds, fetchFiles(m.client), noticeClearCmd())

	case ClientErrorMsg:
		// No reconnect; the next tick retries the file list
		m.notice = ""
		m.lastError = msg.Err

	case TickMsg:
		cmds = append(cmds, fetchFiles(m.client), tickCmd())

	case NoticeClearMsg:
		m.notice = ""
	}

	// Handle viewport updates
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle mode-specific keys first
	switch m.mode {
	case ModeFilter:
		return m, m.handleFilterKey(msg)
	case ModeSearch:
		expression, cmd := m.handleSearchKey(msg)
		if expression != "" {
			m.notice = fmt.Sprintf("Searching for %q...", expression)
			return m, runSearch(m.client, expression)
		}
		return m, cmd
	case ModeHelp:
		m.handleHelpKey(msg)
		return m, nil
	}

	// Normal mode keys
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "r":
		m.notice = "Rescanning..."
		return m, runDiscover(m.client)

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		idx := int(msg.String()[0] - '1')
		return m, m.selectFile(idx)

	case "left", "h":
		return m, m.selectFile(m.selected - 1)

	case "right", "l":
		return m, m.selectFile(m.selected + 1)
	}

	// Handle common navigation keys
	m.handleNavigationKey(msg)
	return m, nil
}

// setFiles replaces the file list, keeping the selection when its owner is
// still registered. The first file is selected when nothing is.
func (m *Model) setFiles(files []api.FileResponse) tea.Cmd {
	current, hadSelection := m.selectedFile()
	m.files = files
	m.selected = -1

	if hadSelection {
		for i, f := range files {
			if f.OwnerID == current.OwnerID {
				m.selected = i
				return nil
			}
		}
		m.stream.stop()
		m.stream = nil
		m.lines = m.lines[:0]
		m.notice = current.Name + " is no longer registered"
		m.updateViewport()
	}

	if len(files) > 0 {
		return m.selectFile(0)
	}
	return nil
}

// selectFile switches the file view to files[idx]: it loads the tail window
// and follows the file from there.
func (m *Model) selectFile(idx int) tea.Cmd {
	if idx < 0 || idx >= len(m.files) {
		return nil
	}
	if idx == m.selected && m.stream != nil {
		m.viewMode = ViewModeFile
		m.updateViewport()
		return nil
	}

	m.stream.stop()
	m.selected = idx
	m.lines = make([]string, 0)
	m.followMode = true
	m.viewMode = ViewModeFile
	m.updateViewport()

	ownerID := m.files[idx].OwnerID
	m.stream = startFollow(m.client, ownerID)
	return tea.Batch(fetchWindow(m.client, ownerID), m.stream.next())
}

// nearBottomThreshold is the scroll percentage (0.0-1.0) at which we consider
// the viewport to be "near" the bottom for auto-follow purposes.
const nearBottomThreshold = 0.98
