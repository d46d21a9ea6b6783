// Package tui is the live board view: it redraws on every board snapshot
// and lets the user drop tasks into neighbouring columns from the keyboard.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/thenoetrevino/collabflow/internal/cli/styles"
	"github.com/thenoetrevino/collabflow/internal/models"
	boardservice "github.com/thenoetrevino/collabflow/internal/services/board"
	"github.com/thenoetrevino/collabflow/internal/types"
)

// Snapshot is what one redraw shows: the board and its loaded tasks keyed
// by column id.
type Snapshot struct {
	Board models.Board
	Tasks map[string][]models.Task
}

// Dropper receives drop gestures. *boardservice.DragController satisfies it.
type Dropper interface {
	HandleDrop(ctx context.Context, r boardservice.DropResult) (bool, error)
}

type snapshotMsg struct {
	snap Snapshot
}

type dropDoneMsg struct {
	taskID string
	moved  bool
	err    error
}

// WatchModel is the bubbletea model of the board watch view.
type WatchModel struct {
	ctx       context.Context
	keys      KeyMap
	spinner   spinner.Model
	snapshots <-chan Snapshot
	dropper   Dropper
	now       types.Clock

	snap   Snapshot
	loaded bool
	col    int
	row    int
	status string
	err    error
	width  int
}

// NewWatchModel builds the view. Snapshots arrive on snapshots; dropper may
// be nil for a read-only view.
func NewWatchModel(ctx context.Context, snapshots <-chan Snapshot, dropper Dropper, now types.Clock) WatchModel {
	if now == nil {
		now = time.Now
	}
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(styles.LabelStyle),
	)
	return WatchModel{
		ctx:       ctx,
		keys:      DefaultKeyMap,
		spinner:   s,
		snapshots: snapshots,
		dropper:   dropper,
		now:       now,
	}
}

// Init starts the spinner and waits for the first snapshot.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, listenForSnapshot(m.snapshots))
}

// listenForSnapshot blocks until a snapshot arrives on the channel.
func listenForSnapshot(ch <-chan Snapshot) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg{snap: snap}
	}
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m.snap = msg.snap
		m.loaded = true
		m.clampSelection()
		return m, listenForSnapshot(m.snapshots)

	case dropDoneMsg:
		switch {
		case msg.err != nil:
			m.err = msg.err
			m.status = ""
		case msg.moved:
			m.err = nil
			m.status = "Moved " + msg.taskID
		}
		return m, nil

	case spinner.TickMsg:
		if m.loaded {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m WatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case !m.loaded:
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.row--
	case key.Matches(msg, m.keys.Down):
		m.row++
	case key.Matches(msg, m.keys.Left):
		m.col--
	case key.Matches(msg, m.keys.Right):
		m.col++
	case key.Matches(msg, m.keys.MoveLeft):
		return m, m.drop(-1)
	case key.Matches(msg, m.keys.MoveRight):
		return m, m.drop(1)
	}
	m.clampSelection()
	return m, nil
}

// drop issues a drop of the selected task onto the end of the column delta
// steps away.
func (m WatchModel) drop(delta int) tea.Cmd {
	if m.dropper == nil {
		return nil
	}
	task, ok := m.Selected()
	if !ok {
		return nil
	}
	cols := m.snap.Board.Columns
	target := m.col + delta
	if target < 0 || target >= len(cols) {
		return nil
	}

	src := cols[m.col]
	dst := cols[target]
	result := boardservice.DropResult{
		DraggableID: task.ID,
		Source:      boardservice.Location{ColumnID: src.ID, Index: m.row},
		Destination: &boardservice.Location{ColumnID: dst.ID, Index: len(dst.TaskIDs)},
	}
	ctx, dropper := m.ctx, m.dropper
	return func() tea.Msg {
		moved, err := dropper.HandleDrop(ctx, result)
		return dropDoneMsg{taskID: task.ID, moved: moved, err: err}
	}
}

func (m *WatchModel) clampSelection() {
	cols := m.snap.Board.Columns
	if len(cols) == 0 {
		m.col, m.row = 0, 0
		return
	}
	m.col = clamp(m.col, 0, len(cols)-1)
	n := len(m.snap.Tasks[cols[m.col].ID])
	if n == 0 {
		m.row = 0
		return
	}
	m.row = clamp(m.row, 0, n-1)
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// Selected returns the highlighted task.
func (m WatchModel) Selected() (models.Task, bool) {
	cols := m.snap.Board.Columns
	if !m.loaded || m.col >= len(cols) {
		return models.Task{}, false
	}
	tasks := m.snap.Tasks[cols[m.col].ID]
	if m.row >= len(tasks) {
		return models.Task{}, false
	}
	return tasks[m.row], true
}

func (m WatchModel) View() string {
	if !m.loaded {
		return fmt.Sprintf("\n %s Loading board...\n", m.spinner.View())
	}

	b := m.snap.Board
	now := m.now()

	header := styles.TitleStyle.Render(b.Title)
	if b.Description != "" {
		header += "\n" + styles.SubtitleStyle.Render(b.Description)
	}

	var body string
	if len(b.Columns) == 0 {
		body = styles.SubtitleStyle.Italic(true).Render("No columns")
	} else {
		cols := make([]string, len(b.Columns))
		for i, c := range b.Columns {
			selected := -1
			if i == m.col {
				selected = m.row
			}
			cols[i] = styles.RenderColumn(c, m.snap.Tasks[c.ID], now, selected)
		}
		body = lipgloss.JoinHorizontal(lipgloss.Top, cols...)
	}

	return strings.Join([]string{header, "", body, m.statusBar()}, "\n")
}

// statusBar renders the last action on the left and key help on the right.
func (m WatchModel) statusBar() string {
	left := styles.SubtitleStyle.Render("Updated " + m.snap.Board.UpdatedAt.Local().Format("15:04:05"))
	switch {
	case m.err != nil:
		left = styles.ErrorStyle.Render("✗ " + m.err.Error())
	case m.status != "":
		left = styles.SuccessStyle.Render("✓ " + m.status)
	}

	help := make([]string, 0, len(m.keys.ShortHelp()))
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		help = append(help, h.Key+" "+h.Desc)
	}
	right := styles.SubtitleStyle.Render(strings.Join(help, " · "))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, left, strings.Repeat(" ", gap), right)
}
