package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/charliek/logan/internal/api"
	"github.com/charliek/logan/internal/logs"
)

// maxLogLines is the maximum number of lines of the selected file kept in memory
const maxLogLines = 1000

// maxErrorDisplayLen is the maximum length of error messages in the status bar
const maxErrorDisplayLen = 60

// shortIDLen is how much of an owner ID the file panel shows
const shortIDLen = 12

// BaseModel holds the view state: the file panel, the line buffer of the
// selected file, the last search result and the input modes.
type BaseModel struct {
	// State
	files    []api.FileResponse
	selected int // index into files, -1 before the first selection
	lines    []string
	search   *api.SearchResponse

	// UI components
	viewport  viewport.Model
	textInput textinput.Model

	// Mode
	mode     Mode
	viewMode ViewMode

	// Filtering
	filterPattern string // Substring filter over the file view

	// Auto-scroll
	followMode bool // Auto-scroll to bottom on new lines

	// Status bar feedback
	notice    string
	lastError error

	// Dimensions
	width  int
	height int
	ready  bool
}

func newBaseModel() BaseModel {
	ti := textinput.New()
	ti.Placeholder = "Type to filter..."
	ti.CharLimit = 256
	ti.Width = 40

	return BaseModel{
		files:      make([]api.FileResponse, 0),
		selected:   -1,
		lines:      make([]string, 0),
		textInput:  ti,
		mode:       ModeNormal,
		viewMode:   ViewModeFile,
		followMode: true,
	}
}

// selectedFile returns the selected file, if any
func (b *BaseModel) selectedFile() (api.FileResponse, bool) {
	if b.selected < 0 || b.selected >= len(b.files) {
		return api.FileResponse{}, false
	}
	return b.files[b.selected], true
}

// handleWindowSize handles window resize messages
func (b *BaseModel) handleWindowSize(msg tea.WindowSizeMsg) {
	b.width = msg.Width
	b.height = msg.Height

	headerHeight := 4 // File panel
	footerHeight := 2 // Status bar
	verticalMargins := headerHeight + footerHeight

	viewportHeight := msg.Height - verticalMargins
	if viewportHeight < 1 {
		viewportHeight = 1
	}

	if !b.ready {
		b.viewport = viewport.New(msg.Width, viewportHeight)
		b.viewport.YPosition = headerHeight
		b.ready = true
	} else {
		b.viewport.Width = msg.Width
		b.viewport.Height = viewportHeight
	}
}

// appendLines adds lines of the selected file, keeping the last maxLogLines
func (b *BaseModel) appendLines(lines ...string) {
	if len(lines) == 0 {
		return
	}
	// Check if we're at/near bottom BEFORE adding new content
	wasNearBottom := b.isNearBottom()

	b.lines = append(b.lines, lines...)
	// Keep only last lines - create new slice to release memory from old lines
	if len(b.lines) > maxLogLines {
		kept := make([]string, maxLogLines)
		copy(kept, b.lines[len(b.lines)-maxLogLines:])
		b.lines = kept
	}

	if b.viewMode != ViewModeFile {
		return
	}
	b.updateViewport()

	if wasNearBottom {
		b.followMode = true
		b.viewport.GotoBottom()
	} else if b.followMode {
		b.viewport.GotoBottom()
	}
}

// handleFilterKey handles keys in filter mode; the filter applies as it is typed
func (b *BaseModel) handleFilterKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		b.mode = ModeNormal
		b.textInput.Blur()
		b.filterPattern = ""
		b.updateViewport()
		return nil

	case "enter":
		b.filterPattern = b.textInput.Value()
		b.mode = ModeNormal
		b.textInput.Blur()
		b.updateViewport()
		return nil
	}

	var cmd tea.Cmd
	b.textInput, cmd = b.textInput.Update(msg)
	b.filterPattern = b.textInput.Value()
	b.updateViewport()
	return cmd
}

// handleSearchKey handles keys in search mode. It returns the submitted
// expression once enter is pressed on a non-empty input.
func (b *BaseModel) handleSearchKey(msg tea.KeyMsg) (string, tea.Cmd) {
	switch msg.String() {
	case "esc":
		b.mode = ModeNormal
		b.textInput.Blur()
		return "", nil

	case "enter":
		expression := b.textInput.Value()
		b.mode = ModeNormal
		b.textInput.Blur()
		return expression, nil
	}

	var cmd tea.Cmd
	b.textInput, cmd = b.textInput.Update(msg)
	return "", cmd
}

// handleHelpKey closes help on any key
func (b *BaseModel) handleHelpKey(tea.KeyMsg) {
	b.mode = ModeNormal
}

// handleNavigationKey handles view, mode and scrolling keys.
// Returns true if the key was handled
func (b *BaseModel) handleNavigationKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "tab":
		if b.viewMode == ViewModeFile {
			b.viewMode = ViewModeSearch
		} else {
			b.viewMode = ViewModeFile
		}
		b.updateViewport()
		if b.viewMode == ViewModeFile && b.followMode {
			b.viewport.GotoBottom()
		}
		return true

	case "?":
		b.mode = ModeHelp
		return true

	case "/":
		b.mode = ModeFilter
		b.textInput.Placeholder = "Type to filter..."
		b.textInput.SetValue(b.filterPattern)
		b.textInput.Focus()
		return true

	case "s":
		b.mode = ModeSearch
		b.textInput.Placeholder = "Regular expression..."
		b.textInput.SetValue("")
		b.textInput.Focus()
		return true

	case "esc":
		b.filterPattern = ""
		b.updateViewport()
		return true

	case "up", "k":
		b.viewport.LineUp(1)
		b.followMode = false
		return true

	case "down", "j":
		b.viewport.LineDown(1)
		return true

	case "pgup":
		b.viewport.HalfViewUp()
		b.followMode = false
		return true

	case "pgdown":
		b.viewport.HalfViewDown()
		return true

	case "home", "g":
		b.viewport.GotoTop()
		b.followMode = false
		return true

	case "end", "G":
		b.viewport.GotoBottom()
		b.followMode = true
		return true

	case "F":
		b.followMode = !b.followMode
		if b.followMode {
			b.viewport.GotoBottom()
		}
		return true
	}

	return false
}

// isNearBottom checks if the viewport is at or near the bottom
func (b *BaseModel) isNearBottom() bool {
	if !b.ready {
		return false
	}
	if b.viewport.AtBottom() {
		return true
	}
	return b.viewport.ScrollPercent() >= nearBottomThreshold
}

// updateViewport updates the viewport content
func (b *BaseModel) updateViewport() {
	var lines []string
	if b.viewMode == ViewModeSearch {
		lines = b.searchLines()
	} else {
		lines = b.filteredLines()
	}
	b.viewport.SetContent(strings.Join(lines, "\n"))
}

// filteredLines returns the selected file's lines after applying the filter
func (b *BaseModel) filteredLines() []string {
	if b.filterPattern == "" {
		return b.lines
	}
	var result []string
	for _, line := range b.lines {
		if containsIgnoreCase(line, b.filterPattern) {
			result = append(result, line)
		}
	}
	return result
}

// searchLines renders the last search result grep style, with highlighted
// match spans.
func (b *BaseModel) searchLines() []string {
	if b.search == nil {
		return []string{dimStyle.Render("Press s to search all files")}
	}
	if b.search.TotalMatches == 0 {
		return []string{fmt.Sprintf("No results found for %q", b.search.Expression)}
	}

	var out []string
	for _, file := range b.search.Files {
		out = append(out, fileHeaderStyle.Render(fmt.Sprintf("%s (%s)", file.Name, shortID(file.OwnerID))))
		for i, match := range file.Matches {
			if i > 0 {
				out = append(out, dimStyle.Render("--"))
			}
			for _, cl := range match.Context {
				if cl.IsMatch {
					text := logs.Render(cl.Text, cl.Highlights, func(s string) string { return matchStyle.Render(s) })
					out = append(out, lineNoStyle.Render(fmt.Sprintf("%d:", cl.LineNumber))+text)
				} else {
					out = append(out, dimStyle.Render(fmt.Sprintf("%d-", cl.LineNumber))+cl.Text)
				}
			}
		}
		out = append(out, "")
	}
	return out
}

// filePanel renders the registered files header
func (b *BaseModel) filePanel() string {
	if len(b.files) == 0 {
		return headerStyle.Render(dimStyle.Render("No log files registered"))
	}

	var items []string
	for i, f := range b.files {
		name := f.Name
		if i == b.selected {
			name = fmt.Sprintf("[%s]", name)
		}
		label := name
		if i < 9 {
			label = fmt.Sprintf("%d:%s", i+1, name)
		}
		style := fileStyle
		if i == b.selected {
			style = selectedFileStyle
		}
		items = append(items, style.Render(label))
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top, strings.Join(items, "  "))
	return headerStyle.Render(header)
}

// statusBar renders the bottom status bar
func (b *BaseModel) statusBar() string {
	var left, right string

	viewIndicator := "[File]"
	if b.viewMode == ViewModeSearch {
		viewIndicator = "[Search]"
	}

	switch b.mode {
	case ModeFilter:
		left = "Filter: " + b.textInput.View()
	case ModeSearch:
		left = "Search: " + b.textInput.View()
	default:
		switch {
		case b.lastError != nil:
			left = errorStyle.Render("Error: " + truncateError(b.lastError, maxErrorDisplayLen))
		case b.notice != "":
			left = b.notice
		case b.filterPattern != "":
			left = fmt.Sprintf("Filter: %s (ESC to clear)", b.filterPattern)
		default:
			left = "Tab: switch view | ? for help"
			if f, ok := b.selectedFile(); ok {
				left += " | " + f.Path
			}
		}
	}

	if b.viewMode == ViewModeSearch {
		matches, files := 0, 0
		if b.search != nil {
			matches, files = b.search.TotalMatches, len(b.search.Files)
		}
		right = fmt.Sprintf("%s %d matches in %d files", viewIndicator, matches, files)
	} else {
		followIndicator := "[FOLLOW]"
		if !b.followMode {
			followIndicator = "[PAUSED]"
		}
		right = fmt.Sprintf("%s %s %d/%d lines", viewIndicator, followIndicator, len(b.filteredLines()), len(b.lines))
	}

	// Calculate widths
	leftWidth := b.width - len(right) - 4
	if leftWidth < 0 {
		leftWidth = 0
	}

	leftPart := statusStyle.Width(leftWidth).Render(left)
	rightPart := statusStyle.Render(right)

	return lipgloss.JoinHorizontal(lipgloss.Top, leftPart, "  ", rightPart)
}

// mainView renders the main TUI layout
func (b *BaseModel) mainView() string {
	var sb strings.Builder

	sb.WriteString(b.filePanel())
	sb.WriteString("\n")

	sb.WriteString(b.viewport.View())
	sb.WriteString("\n")

	sb.WriteString(b.statusBar())

	return sb.String()
}

// helpView renders the help overlay
func (b *BaseModel) helpView() string {
	help := `
logan - Log Browser

Files:
  1-9        Select file
  ←/→ h/l    Previous/next file
  r          Rescan log directories

Views:
  Tab        Switch between file and search results

Navigation:
  j/↓        Scroll down
  k/↑        Scroll up (pauses auto-follow)
  g/Home     Go to top (pauses auto-follow)
  G/End      Go to bottom (resumes auto-follow)
  PgUp/PgDn  Page up/down
  F          Toggle auto-follow mode

Filtering:
  /          Filter file lines (substring)
  s          Search all files (regular expression)
  ESC        Clear filter

Other:
  ?          Toggle help
  q/Ctrl+C   Quit (server continues running)

Press any key to close help...
`
	return helpStyle.Render(help)
}

// containsIgnoreCase performs a case-insensitive substring search
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// truncateError truncates an error message to maxLen characters
func truncateError(err error, maxLen int) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > maxLen {
		return msg[:maxLen-3] + "..."
	}
	return msg
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}
