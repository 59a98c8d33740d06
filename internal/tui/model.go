package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/clarabennett2626/mayapilot/internal/command"
	"github.com/clarabennett2626/mayapilot/internal/config"
	"github.com/clarabennett2626/mayapilot/internal/source"
	"github.com/clarabennett2626/mayapilot/internal/stream"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#777777")).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#333333")).
			Padding(0, 1)

	statusKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Background(lipgloss.Color("#333333")).
			Bold(true).
			Padding(0, 1)

	statusErrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F")).
			Background(lipgloss.Color("#333333")).
			Padding(0, 1)
)

const taskBuffer = 64

// uiTaskMsg carries a scheduled sink task onto the event loop.
type uiTaskMsg struct {
	task func()
}

// sendDoneMsg reports the outcome of a send.
type sendDoneMsg struct {
	err error
}

// startWatchMsg starts watching as if ctrl+w was pressed.
type startWatchMsg struct{}

// SettingsMsg tells the model the settings were reloaded.
type SettingsMsg struct {
	Settings config.Settings
}

// SourceFactory creates the line source for a new watch session.
type SourceFactory func(config.Settings) (source.Source, error)

// Deps are the collaborators the model drives.
type Deps struct {
	Streamer  *stream.Streamer
	Sender    *command.Sender
	Settings  func() config.Settings
	NewSource SourceFactory
	Renderer  *Renderer
	Logger    *slog.Logger
	// AutoWatch starts watching as soon as the program starts.
	AutoWatch bool
}

// panelState is shared by every copy of the model so that sink lookups made
// by scheduled tasks see the panel that is open right now.
type panelState struct {
	panel *Panel
}

// Model is the main TUI model for mayapilot.
type Model struct {
	deps  Deps
	ctx   context.Context
	tasks *stream.TaskQueue
	state *panelState

	input   textinput.Model
	history []string
	histPos int

	width  int
	height int
	ready  bool

	settings  config.Settings
	status    string
	statusErr bool
	sending   bool
}

// NewModel creates a model with the panel open.
func NewModel(ctx context.Context, deps Deps) Model {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Renderer == nil {
		deps.Renderer = NewRenderer(DefaultConfig())
	}
	if deps.Settings == nil {
		deps.Settings = config.Default
	}
	if deps.Streamer == nil {
		deps.Streamer = stream.NewStreamer(deps.Logger)
	}

	in := textinput.New()
	in.Prompt = ">>> "
	in.Placeholder = "python to send to maya"
	in.Focus()

	settings := deps.Settings()
	return Model{
		deps:     deps,
		ctx:      ctx,
		tasks:    stream.NewTaskQueue(taskBuffer),
		state:    &panelState{panel: NewPanel(settings.MaxLines, deps.Renderer)},
		input:    in,
		settings: settings,
		status:   "ctrl+w watch · enter send · ctrl+c quit",
	}
}

// Tasks is the scheduler sink tasks are handed to.
func (m Model) Tasks() *stream.TaskQueue { return m.tasks }

// Panel returns the open panel, or nil when closed.
func (m Model) Panel() *Panel { return m.state.panel }

// findSink resolves the panel at delivery time.
func (m Model) findSink() (stream.Sink, bool) {
	if m.state.panel == nil {
		return nil, false
	}
	return m.state.panel, true
}

// waitForTask delivers the next scheduled task as a message. It returns nil
// once the queue is closed.
func waitForTask(q *stream.TaskQueue) tea.Cmd {
	return func() tea.Msg {
		select {
		case task := <-q.Tasks():
			return uiTaskMsg{task: task}
		case <-q.Closed():
			return nil
		}
	}
}

// viewHeight returns the number of lines available for the panel
// (total height minus title bar, input line and status bar).
func (m Model) viewHeight() int {
	h := m.height - 3
	if h < 1 {
		return 1
	}
	return h
}

// Init starts pumping scheduled tasks.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, waitForTask(m.tasks)}
	if m.deps.AutoWatch {
		cmds = append(cmds, func() tea.Msg { return startWatchMsg{} })
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case uiTaskMsg:
		msg.task()
		return m, waitForTask(m.tasks)

	case startWatchMsg:
		m.startWatch()
		return m, nil

	case sendDoneMsg:
		m.sending = false
		var sendErr *command.SendError
		switch {
		case msg.err == nil:
			m.setStatus("sent", false)
		case errors.As(msg.err, &sendErr):
			m.setStatus(fmt.Sprintf("unable to connect to maya at %s:%d", sendErr.Host, sendErr.Port), true)
		default:
			m.setStatus(msg.err.Error(), true)
		}
		return m, nil

	case SettingsMsg:
		m.settings = msg.Settings
		m.setStatus(fmt.Sprintf("settings reloaded (%s:%d)", msg.Settings.Host, msg.Settings.Port), false)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 1)
		if p := m.state.panel; p != nil {
			p.SetSize(msg.Width, m.viewHeight())
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.state.panel

	switch msg.String() {
	case "ctrl+c":
		_ = m.deps.Streamer.Stop()
		m.tasks.Close()
		return m, tea.Quit

	case "ctrl+w":
		m.startWatch()
		return m, nil

	case "ctrl+x":
		if err := m.deps.Streamer.Stop(); err != nil {
			m.setStatus("not watching", false)
		} else {
			m.setStatus("stopping…", false)
		}
		return m, nil

	case "ctrl+t":
		if p != nil {
			m.closePanel()
		} else {
			m.openPanel()
		}
		return m, nil

	case "ctrl+l":
		if p != nil {
			p.Clear()
		}
		return m, nil

	case "enter":
		return m.send()

	case "pgup":
		if p != nil {
			p.ScrollUp(p.Height())
		}
		return m, nil
	case "pgdown":
		if p != nil {
			p.ScrollDown(p.Height())
		}
		return m, nil
	case "ctrl+u":
		if p != nil {
			p.HalfPageUp()
		}
		return m, nil
	case "ctrl+d":
		if p != nil {
			p.HalfPageDown()
		}
		return m, nil
	case "home":
		if p != nil {
			p.GotoTop()
		}
		return m, nil
	case "end":
		if p != nil {
			p.ScrollToEnd()
		}
		return m, nil

	case "up":
		m.recall(-1)
		return m, nil
	case "down":
		m.recall(1)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// startWatch shows and clears the panel, then starts a session unless one
// is already running.
func (m *Model) startWatch() {
	if m.state.panel == nil {
		m.openPanel()
	}
	if m.deps.Streamer.Watching() {
		m.setStatus("already watching", false)
		return
	}
	if m.deps.NewSource == nil {
		m.setStatus("no log source configured", true)
		return
	}
	m.state.panel.Clear()

	settings := m.deps.Settings()
	src, err := m.deps.NewSource(settings)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	if _, err := m.deps.Streamer.Start(m.ctx, src, m.findSink, m.tasks.Schedule); err != nil {
		m.deps.Logger.Error("start watching", "error", err)
		m.setStatus(err.Error(), true)
		return
	}
	m.setStatus("watching "+settings.HistoryFile, false)
}

func (m *Model) openPanel() {
	p := NewPanel(m.deps.Settings().MaxLines, m.deps.Renderer)
	if m.ready {
		p.SetSize(m.width, m.viewHeight())
	}
	m.state.panel = p
}

func (m *Model) closePanel() {
	m.state.panel = nil
}

func (m Model) send() (tea.Model, tea.Cmd) {
	code := m.input.Value()
	if strings.TrimSpace(code) == "" {
		return m, nil
	}
	if m.deps.Sender == nil {
		m.setStatus("sending is not configured", true)
		return m, nil
	}
	if m.sending {
		m.setStatus("still sending", false)
		return m, nil
	}

	m.history = append(m.history, code)
	m.histPos = len(m.history)
	m.input.SetValue("")
	m.sending = true
	m.setStatus("sending…", false)

	sender, ctx := m.deps.Sender, m.ctx
	return m, func() tea.Msg {
		return sendDoneMsg{err: sender.Send(ctx, code, nil)}
	}
}

// recall moves through previously sent input.
func (m *Model) recall(step int) {
	if len(m.history) == 0 {
		return
	}
	m.histPos = min(max(m.histPos+step, 0), len(m.history))
	if m.histPos == len(m.history) {
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.history[m.histPos])
	m.input.CursorEnd()
}

func (m *Model) setStatus(text string, isErr bool) {
	m.status = text
	m.statusErr = isErr
}

// View renders the TUI.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	p := m.state.panel

	if p != nil {
		b.WriteString(titleStyle.Render(PanelTitle))
		b.WriteString(hintStyle.Render("ctrl+x stop · ctrl+l clear · ctrl+t hide"))
		b.WriteByte('\n')
		view := p.View()
		b.WriteString(view)
		// Pad so the input line stays at the bottom.
		for i := lipgloss.Height(view); i < m.viewHeight(); i++ {
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	} else {
		b.WriteString(hintStyle.Render("log panel hidden (ctrl+t to show)"))
		b.WriteByte('\n')
		for i := 0; i < m.viewHeight(); i++ {
			b.WriteByte('\n')
		}
	}

	b.WriteString(m.input.View())
	b.WriteByte('\n')
	b.WriteString(m.statusLine())
	return b.String()
}

func (m Model) statusLine() string {
	state := "idle"
	if m.deps.Streamer.Watching() {
		state = "watching"
	}

	lines, problems := 0, 0
	scrollInfo := "-"
	if p := m.state.panel; p != nil {
		lines = p.Buffer().LineCount()
		problems = p.Counts().Problems()
		scrollInfo = "bottom"
		if lines > 0 && !p.AtBottom() {
			scrollInfo = fmt.Sprintf("%d%%", int(p.ScrollPercent()*100))
		}
	}

	left := statusKeyStyle.Render("Maya:") +
		statusBarStyle.Render(fmt.Sprintf(" %s:%d %s ", m.settings.Host, m.settings.Port, state))
	counts := statusKeyStyle.Render("Lines:") + statusBarStyle.Render(fmt.Sprintf(" %d ", lines))
	if problems > 0 {
		counts += statusErrStyle.Render(fmt.Sprintf("%d problems", problems))
	}
	pos := statusKeyStyle.Render("Pos:") + statusBarStyle.Render(fmt.Sprintf(" %s ", scrollInfo))

	msgStyle := statusBarStyle
	if m.statusErr {
		msgStyle = statusErrStyle
	}
	msg := msgStyle.Render(m.status)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(counts) - lipgloss.Width(pos) - lipgloss.Width(msg)
	if gap < 0 {
		gap = 0
	}
	return statusBarStyle.Render(left + counts + msg + strings.Repeat(" ", gap) + pos)
}
