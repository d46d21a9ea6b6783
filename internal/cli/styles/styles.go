package styles

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/thenoetrevino/collabflow/internal/config"
	"github.com/thenoetrevino/collabflow/internal/models"
)

var (
	// Card styles
	CardStyle lipgloss.Style
	CardWidth = 80

	ColumnStyle       lipgloss.Style
	TaskStyle         lipgloss.Style
	SelectedTaskStyle lipgloss.Style
	ColumnWidth       = 28

	// Text styles
	TitleStyle    lipgloss.Style
	SubtitleStyle lipgloss.Style
	LabelStyle    lipgloss.Style // For field labels like "Due:", "Assignees:"
	ValueStyle    lipgloss.Style // For field values
	SectionStyle  lipgloss.Style // For section headers like "Description"

	// Status styles
	UnreadStyle  lipgloss.Style
	SuccessStyle lipgloss.Style
	ErrorStyle   lipgloss.Style
	OverdueStyle lipgloss.Style
)

func init() {
	Init(config.DefaultTheme())
}

// Init initializes all CLI styles with the given theme
func Init(theme config.Theme) {
	CardStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(CardWidth)

	ColumnStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.ColumnBorder)).
		Padding(0, 1).
		Width(ColumnWidth)

	TaskStyle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(theme.TaskBorder)).
		Width(ColumnWidth - 4)

	SelectedTaskStyle = TaskStyle.
		Border(lipgloss.ThickBorder()).
		BorderForeground(lipgloss.Color(theme.Accent))

	TitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.Title))

	SubtitleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Subtle))

	LabelStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.Accent))

	ValueStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Normal))

	SectionStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Accent)).
		Bold(true).
		MarginTop(1)

	UnreadStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.Unread))

	SuccessStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.Success))

	ErrorStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(theme.Error))

	OverdueStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(theme.Error))
}

// ═══════════════════════════════════════════════════════════════════
// BOARD
// ═══════════════════════════════════════════════════════════════════

// TaskLookup returns the tasks of a column in display order.
type TaskLookup func(columnID string) []models.Task

// RenderBoard lays the board's columns out side by side.
func RenderBoard(b models.Board, tasks TaskLookup, now time.Time) string {
	header := TitleStyle.Render(b.Title)
	if b.Description != "" {
		header += "\n" + SubtitleStyle.Render(b.Description)
	}

	if len(b.Columns) == 0 {
		return header + "\n" + SubtitleStyle.Italic(true).Render("No columns")
	}

	cols := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		cols[i] = RenderColumn(c, tasks(c.ID), now, -1)
	}
	return header + "\n\n" + lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

// RenderColumn renders a column title with its task count and cards. The
// card at index selected is highlighted; pass -1 for none.
func RenderColumn(c models.Column, tasks []models.Task, now time.Time, selected int) string {
	content := TitleStyle.Render(fmt.Sprintf("%s (%d)", c.Title, len(c.TaskIDs))) + "\n"
	content += SubtitleStyle.Render(c.ID) + "\n"

	if len(tasks) == 0 {
		content += SubtitleStyle.Italic(true).Render("No tasks")
	}
	for i, t := range tasks {
		if i == selected {
			content += SelectedTaskStyle.Render(taskLines(t, now)) + "\n"
			continue
		}
		content += RenderTaskCard(t, now) + "\n"
	}
	return ColumnStyle.Render(strings.TrimRight(content, "\n"))
}

// RenderTaskCard renders the compact form of a task shown in a column.
func RenderTaskCard(t models.Task, now time.Time) string {
	return TaskStyle.Render(taskLines(t, now))
}

func taskLines(t models.Task, now time.Time) string {
	lines := []string{ValueStyle.Bold(true).Render(t.Title), SubtitleStyle.Render(t.ID)}
	if t.DueDate != nil {
		due := "due " + t.DueDate.Local().Format("Jan 2 15:04")
		if t.Overdue(now) {
			due = OverdueStyle.Render(due + " (overdue)")
		} else {
			due = SubtitleStyle.Render(due)
		}
		lines = append(lines, due)
	}
	if len(t.Assignees) > 0 {
		lines = append(lines, SubtitleStyle.Render("@"+strings.Join(t.Assignees, " @")))
	}
	if len(t.Labels) > 0 {
		lines = append(lines, LabelStyle.Render("["+strings.Join(t.Labels, "] [")+"]"))
	}
	return strings.Join(lines, "\n")
}

// RenderTaskDetail renders every field of a task, with the description as
// markdown.
func RenderTaskDetail(t models.Task, now time.Time) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(t.Title) + "\n")
	b.WriteString(field("ID", t.ID))
	if t.DueDate != nil {
		due := t.DueDate.Local().Format(time.RFC1123)
		if t.Overdue(now) {
			due = OverdueStyle.Render(due + " (overdue)")
		}
		b.WriteString(field("Due", due))
	}
	if len(t.Assignees) > 0 {
		b.WriteString(field("Assignees", strings.Join(t.Assignees, ", ")))
	}
	if len(t.Labels) > 0 {
		b.WriteString(field("Labels", strings.Join(t.Labels, ", ")))
	}
	b.WriteString(field("Updated", t.UpdatedAt.Local().Format(time.RFC1123)))
	b.WriteString(SectionStyle.Render("Description") + "\n")
	b.WriteString(RenderDescription(t.Description, CardWidth-6))
	return RenderCard(b.String())
}

func field(label, value string) string {
	return LabelStyle.Render(label+":") + " " + ValueStyle.Render(value) + "\n"
}

// ═══════════════════════════════════════════════════════════════════
// MARKDOWN
// ═══════════════════════════════════════════════════════════════════

// Cache Glamour renderers by width to avoid expensive re-creation
var rendererCache sync.Map // map[int]*glamour.TermRenderer

func getRenderer(width int) (*glamour.TermRenderer, error) {
	if cached, ok := rendererCache.Load(width); ok {
		return cached.(*glamour.TermRenderer), nil
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}

	rendererCache.Store(width, renderer)
	return renderer, nil
}

// RenderDescription renders markdown, falling back to the raw text.
func RenderDescription(description string, width int) string {
	if strings.TrimSpace(description) == "" {
		return SubtitleStyle.Italic(true).Render("No description")
	}
	renderer, err := getRenderer(width)
	if err == nil {
		if rendered, err := renderer.Render(description); err == nil {
			return strings.TrimSpace(rendered)
		}
	}
	return description
}

// ═══════════════════════════════════════════════════════════════════
// HELPER FUNCTIONS
// ═══════════════════════════════════════════════════════════════════

// RenderNotification renders one line of the notification list.
func RenderNotification(n models.Notification, ago string) string {
	marker := "  "
	title := ValueStyle.Render(n.Title)
	if !n.Read {
		marker = UnreadStyle.Render("● ")
		title = UnreadStyle.Render(n.Title)
	}
	line := marker + title + SubtitleStyle.Render(" · "+string(n.Type)+" · "+ago)
	if n.Body != "" {
		line += "\n    " + ValueStyle.Render(n.Body)
	}
	return line
}

// ColoredText renders text with a hex color
func ColoredText(text, hexColor string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(hexColor)).
		Render(text)
}

// RenderCard wraps content in a styled card border
func RenderCard(content string) string {
	return CardStyle.Render(content)
}
