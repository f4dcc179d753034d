package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/spx/internal/models"
	"github.com/desertthunder/spx/internal/services"
	"github.com/desertthunder/spx/internal/shared"
	"github.com/desertthunder/spx/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	InputView ViewState = iota
	TrackListView
	ConfirmView
	DownloadView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	catalog      services.Catalog
	engine       *tasks.DownloadEngine
	opts         tasks.DownloadOpts
	logger       *log.Logger
	width        int
	height       int
	input        textinput.Model
	loading      bool
	playlist     *models.Playlist
	tracks       []models.Track
	trackList    list.Model
	progressChan chan tasks.ProgressUpdate
	doneChan     chan downloadCompleteMsg
	progress     tasks.ProgressUpdate
	result       *tasks.DownloadRunResult
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, catalog services.Catalog, engine *tasks.DownloadEngine, opts tasks.DownloadOpts, logger *log.Logger) *Model {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	input := textinput.New()
	input.Placeholder = "Playlist URL, URI, or ID"
	input.CharLimit = 200
	input.Width = 60
	input.Focus()

	return &Model{
		ctx:     ctx,
		view:    InputView,
		catalog: catalog,
		engine:  engine,
		opts:    opts,
		logger:  logger,
		input:   input,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Init starts the cursor blink for the playlist input field.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.trackList.Width() == 0 {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case InputView:
			return m.handleInputKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case DownloadView:
			return m.handleDownloadKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case tracksFetchedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.playlist = msg.playlist
		m.tracks = msg.tracks
		items := make([]list.Item, len(msg.tracks))
		for i, track := range msg.tracks {
			items[i] = trackItem{track: track}
		}
		m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.trackList.Title = fmt.Sprintf("Tracks in '%s'", msg.playlist.Name)
		m.trackList.SetSize(m.width-4, m.height-8)
		m.view = TrackListView
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case downloadCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		m.doneChan = nil
		return m, nil
	}

	return m.updateActive(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView && m.view != InputView {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case InputView:
		return m.renderInput()
	case TrackListView:
		return m.renderTrackList()
	case ConfirmView:
		return m.renderConfirm()
	case DownloadView:
		return m.renderDownload()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	case "enter":
		if m.loading {
			return m, nil
		}
		ref := strings.TrimSpace(m.input.Value())
		if ref == "" {
			return m, nil
		}
		playlistID, err := services.ParsePlaylistRef(ref)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.loading = true
		return m, m.fetchTracks(playlistID)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = InputView
		return m, textinput.Blink
	case "enter":
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n", "esc":
		m.view = TrackListView
		return m, nil
	case "y":
		m.view = DownloadView
		return m, m.startDownload()
	}
	return m, nil
}

func (m *Model) handleDownloadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "r":
		m.view = InputView
		m.input.SetValue("")
		m.input.Focus()
		m.playlist = nil
		m.tracks = nil
		m.result = nil
		m.progress = tasks.ProgressUpdate{}
		m.err = nil
		return m, textinput.Blink
	}
	return m, nil
}

// updateActive forwards messages the key handlers did not consume to the
// component owning the current view.
func (m *Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case InputView:
		m.input, cmd = m.input.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

func (m *Model) fetchTracks(playlistID string) tea.Cmd {
	return func() tea.Msg {
		playlist, err := m.catalog.Playlist(m.ctx, playlistID)
		if err != nil {
			return tracksFetchedMsg{err: err}
		}
		tracks := services.CollectPlaylistTracks(m.ctx, m.catalog, playlistID, m.logger)
		if len(tracks) == 0 {
			return tracksFetchedMsg{err: fmt.Errorf("%w: no tracks found or playlist inaccessible", shared.ErrPlaylistNotFound)}
		}
		return tracksFetchedMsg{playlist: playlist, tracks: tracks}
	}
}

// startDownload runs the engine in a goroutine and begins pumping progress
// updates. The result is parked on doneChan so the final read of the closed
// progress channel can deliver it without racing the goroutine.
func (m *Model) startDownload() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.doneChan = make(chan downloadCompleteMsg, 1)

	progressChan := m.progressChan
	doneChan := m.doneChan
	go func() {
		result, err := m.engine.Run(m.ctx, progressChan, m.playlist.ID, m.opts)
		doneChan <- downloadCompleteMsg{result: result, err: err}
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progressChan := m.progressChan
	doneChan := m.doneChan
	return func() tea.Msg {
		if progressChan == nil {
			return downloadCompleteMsg{}
		}
		update, ok := <-progressChan
		if !ok {
			return <-doneChan
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderInput() string {
	title := styles.title.Render("Download a Spotify Playlist")
	body := fmt.Sprintf("Enter a playlist to download:\n\n%s", m.input.View())

	var status string
	if m.loading {
		status = "\n\nFetching tracks..."
	} else if m.err != nil {
		status = fmt.Sprintf("\n\n%s", styles.err.Render(m.err.Error()))
	}

	quitKey := key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "quit"),
	)
	helpKeys := []key.Binding{m.keys.submit, quitKey}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, body, status, helpView)
}

func (m *Model) renderTrackList() string {
	downloadKey := key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "download"),
	)
	helpKeys := []key.Binding{downloadKey, m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), helpView)
}

func (m *Model) renderConfirm() string {
	format := m.opts.AudioFormat
	if format == "" {
		format = "mp3"
	}
	title := styles.title.Render(fmt.Sprintf("Download '%s' as %s?", m.playlist.Name, format))
	info := fmt.Sprintf("\nPlaylist: %s\nOwner: %s\nTracks: %d\n", m.playlist.Name, m.playlist.Owner, len(m.tracks))

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderDownload() string {
	title := styles.title.Render("Downloading Playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.CollectTracks:
		phase = "Collecting tracks..."
	case tasks.WriteMetadata:
		phase = "Writing metadata..."
	case tasks.DownloadTracks:
		phase = fmt.Sprintf("Downloading tracks (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.WriteReport:
		phase = "Writing failure report..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Download failed: %v\n\nPress r to start over, q to quit", m.err))
	}

	if m.result == nil {
		return styles.err.Render("No result available\n\nPress r to start over, q to quit")
	}

	title := styles.ok.Render("✓ Download Complete!")
	info := fmt.Sprintf(
		"\nPlaylist: %s\nDownloaded: %d/%d\nSkipped: %d\nOutput: %s",
		m.playlist.Name,
		m.result.SuccessCount,
		m.result.TotalTracks,
		m.result.SkippedCount,
		m.result.OutputDir,
	)

	var failed string
	if failures := m.result.Failures(); len(failures) > 0 {
		failed = fmt.Sprintf("\n\n%s", styles.warn.Render(fmt.Sprintf("Failed to download %d tracks:", len(failures))))
		for _, f := range failures {
			failed += fmt.Sprintf("\n  • %s - %s", f.Artists, f.Name)
		}
	}

	helpKeys := []key.Binding{m.keys.restart, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}
