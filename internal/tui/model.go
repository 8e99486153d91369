package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/charliek/logan/internal/api"
	"github.com/charliek/logan/internal/domain"
)

// Mode represents the current TUI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeFilter
	ModeSearch
	ModeHelp
)

// ViewMode selects what the main viewport shows
type ViewMode int

const (
	ViewModeFile ViewMode = iota
	ViewModeSearch
)

// BrowseClient is the API surface the TUI needs from a running server
type BrowseClient interface {
	GetFiles() (*api.FileListResponse, error)
	GetWindow(ownerID string, mode domain.WindowMode, lines int) (*api.WindowResponse, error)
	Search(expression string) (*api.SearchResponse, error)
	FollowFile(ctx context.Context, ownerID string, callback func(api.FollowLineResponse)) error
	Discover() (*api.DiscoverResponse, error)
}

// Model is the bubbletea model for browsing a running server
type Model struct {
	BaseModel

	// Dependencies
	client BrowseClient

	// Follow stream of the selected file
	stream *followStream
}

// NewModel creates a new TUI model
func NewModel(client BrowseClient) Model {
	return Model{
		BaseModel: newBaseModel(),
		client:    client,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		fetchFiles(m.client),
		tickCmd(),
	)
}

// Close stops the follow stream of the selected file
func (m Model) Close() {
	m.stream.stop()
}

// FilesMsg carries a fresh file list
type FilesMsg []api.FileResponse

// WindowMsg carries the tail window loaded for a newly selected file
type WindowMsg struct {
	OwnerID string
	Lines   []string
}

// FollowLineMsg is sent for each line appended to the followed file
type FollowLineMsg struct {
	OwnerID string
	Line    string

	stream *followStream
}

// FollowEndedMsg is sent when a follow stream closes
type FollowEndedMsg struct {
	OwnerID string
	Err     error

	stream *followStream
}

// SearchResultMsg carries the result of a search
type SearchResultMsg struct {
	Result *api.SearchResponse
}

// DiscoverResultMsg is sent when a rescan completes
type DiscoverResultMsg struct {
	Result *api.DiscoverResponse
}

// ClientErrorMsg is sent when an API error occurs
type ClientErrorMsg struct {
	Err error
}

// TickMsg is sent periodically
type TickMsg time.Time

// NoticeClearMsg clears the status bar notice
type NoticeClearMsg struct{}

// filesRefreshInterval is how often the file list is refetched
const filesRefreshInterval = 5 * time.Second

// noticeClearDelay is how long a notice stays in the status bar
const noticeClearDelay = 3 * time.Second

// tailWindowLines is the window loaded when a file is selected
const tailWindowLines = 200

// tickCmd returns a command that ticks periodically
func tickCmd() tea.Cmd {
	return tea.Tick(filesRefreshInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func noticeClearCmd() tea.Cmd {
	return tea.Tick(noticeClearDelay, func(t time.Time) tea.Msg {
		return NoticeClearMsg{}
	})
}

// fetchFiles returns a command to fetch the file list from the API
func fetchFiles(client BrowseClient) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.GetFiles()
		if err != nil {
			return ClientErrorMsg{Err: err}
		}
		return FilesMsg(resp.Files)
	}
}

func fetchWindow(client BrowseClient, ownerID string) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.GetWindow(ownerID, domain.WindowTail, tailWindowLines)
		if err != nil {
			return ClientErrorMsg{Err: err}
		}
		return WindowMsg{OwnerID: ownerID, Lines: resp.Lines}
	}
}

func runSearch(client BrowseClient, expression string) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.Search(expression)
		if err != nil {
			return ClientErrorMsg{Err: err}
		}
		return SearchResultMsg{Result: resp}
	}
}

func runDiscover(client BrowseClient) tea.Cmd {
	return func() tea.Msg {
		resp, err := client.Discover()
		if err != nil {
			return ClientErrorMsg{Err: err}
		}
		return DiscoverResultMsg{Result: resp}
	}
}

// followStream forwards one file's follow stream into the program.
// Each message is read by a command returned from next, which the model
// re-issues after every line.
type followStream struct {
	ownerID string
	lines   chan string
	errc    chan error
	cancel  context.CancelFunc
}

func startFollow(client BrowseClient, ownerID string) *followStream {
	ctx, cancel := context.WithCancel(context.Background())
	s := &followStream{
		ownerID: ownerID,
		lines:   make(chan string, 64),
		errc:    make(chan error, 1),
		cancel:  cancel,
	}

	go func() {
		defer close(s.lines)
		err := client.FollowFile(ctx, ownerID, func(e api.FollowLineResponse) {
			select {
			case s.lines <- e.Line:
			case <-ctx.Done():
			}
		})
		s.errc <- err
	}()

	return s
}

func (s *followStream) next() tea.Cmd {
	return func() tea.Msg {
		line, ok := <-s.lines
		if !ok {
			return FollowEndedMsg{OwnerID: s.ownerID, Err: <-s.errc, stream: s}
		}
		return FollowLineMsg{OwnerID: s.ownerID, Line: line, stream: s}
	}
}

func (s *followStream) stop() {
	if s != nil {
		s.cancel()
	}
}
