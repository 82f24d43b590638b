package ui

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/boardsync/internal/board"
	"github.com/five82/boardsync/internal/logtail"
	"github.com/five82/boardsync/internal/reaction"
	"github.com/five82/boardsync/internal/state"
)

const (
	defaultPollTick = 500 * time.Millisecond
	toastTTL        = 5 * time.Second
	logTailLines    = 500
)

// Actions are the sync-layer operations the view can trigger. Refresh,
// Navigate and DeletePost may block on the network and are run as commands,
// off the update loop.
type Actions interface {
	Toggle(target reaction.Target) bool
	Refresh()
	Navigate(path string)
	DeletePost(ctx context.Context, postID string) error
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Actions   Actions
	Store     *state.Store
	LogPath   string
	PollTick  time.Duration
	ThemeName string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx      context.Context
	actions  Actions
	store    *state.Store
	logPath  string
	pollTick time.Duration
	now      func() time.Time

	theme   Theme
	keys    keyMap
	spinner spinner.Model
	width   int
	height  int
	ready   bool

	snapshot state.Snapshot
	selected int

	showHelp      bool
	showLogs      bool
	logLevel      slog.Level
	logLines      []string
	logErr        error
	confirmDelete string
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = defaultPollTick
	}
	theme := GetTheme(opts.ThemeName)
	return Model{
		ctx:      ctx,
		actions:  opts.Actions,
		store:    opts.Store,
		logPath:  opts.LogPath,
		pollTick: pollTick,
		now:      time.Now,
		theme:    theme,
		keys:     DefaultKeyMap(),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(theme.Styles().WarningText),
		),
		logLevel: slog.LevelInfo,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
		m.spinner.Tick,
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.applySnapshot(state.Snapshot(msg))
		return m, nil

	case logTailMsg:
		m.logLines = msg.lines
		m.logErr = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderToast())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	contentHeight := max(m.height-3, 1)
	listHeight := contentHeight
	if m.showLogs {
		logHeight := contentHeight / 2
		listHeight = contentHeight - logHeight
		b.WriteString(m.renderBoard(listHeight))
		b.WriteString("\n")
		b.WriteString(m.renderLogs(logHeight))
		return b.String()
	}
	b.WriteString(m.renderBoard(listHeight))
	return b.String()
}

func (m *Model) applySnapshot(snap state.Snapshot) {
	if snap.View != m.snapshot.View {
		m.selected = 0
	}
	m.snapshot = snap
	if n := len(m.rows()); m.selected >= n {
		m.selected = max(n-1, 0)
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.confirmDelete != "" {
		id := m.confirmDelete
		m.confirmDelete = ""
		if key.Matches(msg, m.keys.Confirm) {
			return m, m.deleteCmd(id)
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.spinner.Style = m.theme.Styles().WarningText
		return m, nil

	case key.Matches(msg, m.keys.Logs):
		m.showLogs = !m.showLogs
		if m.showLogs {
			return m, readLogsCmd(m.logPath, m.logLevel)
		}
		return m, nil

	case key.Matches(msg, m.keys.LogLevel):
		m.logLevel = nextLogLevel(m.logLevel)
		if m.showLogs {
			return m, readLogsCmd(m.logPath, m.logLevel)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.rows())-1 {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keys.Like):
		return m, m.toggle(board.ReactionLike)

	case key.Matches(msg, m.keys.Dislike):
		return m, m.toggle(board.ReactionDislike)

	case key.Matches(msg, m.keys.Open):
		row, ok := m.selectedRow()
		if !ok || row.TargetType != board.TargetPost {
			return m, nil
		}
		return m, m.navigateCmd("/post/" + row.ID + "/")

	case key.Matches(msg, m.keys.Root):
		return m, m.navigateCmd("/")

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshCmd()

	case key.Matches(msg, m.keys.Delete):
		if row, ok := m.selectedRow(); ok && row.TargetType == board.TargetPost {
			m.confirmDelete = row.ID
		}
		return m, nil
	}
	return m, nil
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{tickCmd(m.pollTick)}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	if m.showLogs {
		cmds = append(cmds, readLogsCmd(m.logPath, m.logLevel))
	}
	return m, tea.Batch(cmds...)
}

func (m Model) toggle(reactionType string) tea.Cmd {
	row, ok := m.selectedRow()
	if !ok || m.actions == nil {
		return nil
	}
	m.actions.Toggle(reaction.Target{Type: row.TargetType, ID: row.ID, Reaction: reactionType})
	if m.store == nil {
		return nil
	}
	return fetchSnapshotCmd(m.store)
}

func (m Model) selectedRow() (row, bool) {
	rows := m.rows()
	if m.selected < 0 || m.selected >= len(rows) {
		return row{}, false
	}
	return rows[m.selected], true
}

func (m Model) rows() []row {
	return boardRows(m.snapshot.Page)
}

// afterAction runs fn off the update loop and then re-reads the store so the
// result shows without waiting for the next tick.
func (m Model) afterAction(fn func(Actions)) tea.Cmd {
	if m.actions == nil {
		return nil
	}
	actions, store := m.actions, m.store
	return func() tea.Msg {
		fn(actions)
		if store == nil {
			return nil
		}
		return snapshotMsg(store.Snapshot())
	}
}

func (m Model) refreshCmd() tea.Cmd {
	return m.afterAction(func(a Actions) { a.Refresh() })
}

func (m Model) navigateCmd(path string) tea.Cmd {
	return m.afterAction(func(a Actions) { a.Navigate(path) })
}

func (m Model) deleteCmd(postID string) tea.Cmd {
	ctx := m.ctx
	// The engine reports the outcome through the store.
	return m.afterAction(func(a Actions) { _ = a.DeletePost(ctx, postID) })
}

func nextLogLevel(level slog.Level) slog.Level {
	switch {
	case level < slog.LevelInfo:
		return slog.LevelInfo
	case level < slog.LevelWarn:
		return slog.LevelWarn
	case level < slog.LevelError:
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type logTailMsg struct {
	lines []string
	err   error
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

func readLogsCmd(path string, minLevel slog.Level) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return logTailMsg{}
		}
		lines, err := logtail.Read(path, logTailLines)
		return logTailMsg{lines: logtail.Filter(lines, minLevel), err: err}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Context == nil {
		opts.Context = ctx
	}
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
