package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sptdl/internal/models"
	"github.com/desertthunder/sptdl/internal/services"
	"github.com/desertthunder/sptdl/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoadingView ViewState = iota
	TrackListView
	ConfirmView
	DownloadView
	ResultView
)

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	provider     services.MetadataProvider
	pipeline     *tasks.Pipeline
	ref          services.Reference
	width        int
	height       int
	trackList    list.Model
	tracks       []models.Track
	progressChan chan tasks.ProgressUpdate
	doneChan     chan *tasks.RunResult
	cancel       context.CancelFunc
	quitting     bool
	progress     tasks.ProgressUpdate
	log          []string
	result       *tasks.RunResult
	err          error
	help         help.Model
	keys         keyMap
}

const logLines = 8

// NewModel creates a new TUI model that resolves ref and downloads it with pipeline.
func NewModel(ctx context.Context, provider services.MetadataProvider, pipeline *tasks.Pipeline, ref services.Reference) *Model {
	return &Model{
		ctx:      ctx,
		view:     LoadingView,
		provider: provider,
		pipeline: pipeline,
		ref:      ref,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Result returns the finished run, or nil when the user quit before downloading.
func (m *Model) Result() *tasks.RunResult { return m.result }

// Init initializes the TUI by resolving the reference.
func (m *Model) Init() tea.Cmd {
	return m.resolve()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view != LoadingView {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LoadingView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case DownloadView:
			return m.handleDownloadKeys(msg)
		case ResultView:
			if key.Matches(msg, m.keys.quit) || key.Matches(msg, m.keys.enter) {
				return m, tea.Quit
			}
		}
		return m, nil

	case tracksResolvedMsg:
		m.trackList = list.New(trackItems(msg.tracks), list.NewDefaultDelegate(), 0, 0)
		if msg.err != nil {
			m.err = msg.err
			m.view = ResultView
			return m, nil
		}
		m.tracks = msg.tracks
		m.trackList.Title = fmt.Sprintf("%d tracks in %s", len(msg.tracks), m.ref)
		m.trackList.SetSize(m.width-4, m.height-8)
		m.view = TrackListView
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		if m.progress.Phase == tasks.TrackDone {
			m.log = append(m.log, m.progress.Message)
			if len(m.log) > logLines {
				m.log = m.log[len(m.log)-logLines:]
			}
		}
		return m, m.waitForProgress()

	case downloadCompleteMsg:
		m.result = msg.result
		m.view = ResultView
		m.progressChan, m.doneChan = nil, nil
		if m.cancel != nil {
			m.cancel()
		}
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.view == TrackListView {
		var cmd tea.Cmd
		m.trackList, cmd = m.trackList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case LoadingView:
		return styles.title.Render("Resolving "+m.ref.String()) + "\n" + Muted("Press q to quit")
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

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, m.keys.quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.enter):
			m.view = ConfirmView
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = DownloadView
		return m, m.startDownload()
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = TrackListView
	}
	return m, nil
}

// handleDownloadKeys cancels the run on quit. The program exits once the pipeline reports the
// interrupted result; a second quit exits immediately.
func (m *Model) handleDownloadKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.quit) {
		return m, nil
	}
	if m.quitting {
		return m, tea.Quit
	}
	m.quitting = true
	m.cancel()
	return m, nil
}

func (m *Model) resolve() tea.Cmd {
	return func() tea.Msg {
		tracks, err := m.provider.Resolve(m.ctx, m.ref)
		return tracksResolvedMsg{tracks: tracks, err: err}
	}
}

func (m *Model) startDownload() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan *tasks.RunResult, 1)
	m.progressChan, m.doneChan = progress, done

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel

	tracks := m.tracks
	go func() {
		done <- m.pipeline.Run(ctx, tracks, progress)
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return downloadCompleteMsg{result: <-done}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.trackList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Download %d tracks?", len(m.tracks)))
	info := fmt.Sprintf("\nReference: %s\n", m.ref)
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderDownload() string {
	title := styles.title.Render("Downloading")

	status := "Starting..."
	if m.progress.Total > 0 {
		status = fmt.Sprintf("Track %d of %d", m.progress.Step, m.progress.Total)
	}
	if m.quitting {
		status = Warning("Cancelling...")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n%s\n", title, status, m.progress.Message)
	for _, line := range m.log {
		b.WriteString(Muted(line) + "\n")
	}
	return b.String()
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return Error(fmt.Sprintf("Failed to resolve %s: %v", m.ref, m.err)) + "\n\n" + Muted("Press q to quit")
	}
	if m.result == nil {
		return Error("No result available") + "\n\n" + Muted("Press q to quit")
	}
	out := Summary(m.result.Stats, m.result.Results)
	if m.result.Interrupted {
		out += Warning("Interrupted: remaining tracks were not processed") + "\n"
	}
	return out + "\n" + Muted("Press q to quit")
}
