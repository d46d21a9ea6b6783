package styles

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/thenoetrevino/collabflow/internal/config"
	"github.com/thenoetrevino/collabflow/internal/models"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestRenderBoard(t *testing.T) {
	b := models.Board{
		ID:          "b1",
		Title:       "Launch",
		Description: "Q3",
		Columns: []models.Column{
			{ID: "todo", Title: "To Do", TaskIDs: []string{"t1"}},
			{ID: "done", Title: "Done", TaskIDs: []string{}},
		},
	}
	tasks := map[string][]models.Task{"todo": {{ID: "t1", Title: "Docs"}}}

	out := RenderBoard(b, func(id string) []models.Task { return tasks[id] }, now)
	assert.Contains(t, out, "Launch")
	assert.Contains(t, out, "Q3")
	assert.Contains(t, out, "To Do (1)")
	assert.Contains(t, out, "Docs")
	assert.Contains(t, out, "Done (0)")
	assert.Contains(t, out, "No tasks")

	empty := RenderBoard(models.Board{Title: "Bare"}, nil, now)
	assert.Contains(t, empty, "No columns")
}

func TestRenderTaskCard(t *testing.T) {
	past := now.Add(-time.Hour)
	out := RenderTaskCard(models.Task{
		ID:        "t1",
		Title:     "Docs",
		DueDate:   &past,
		Assignees: []string{"bob"},
		Labels:    []string{"p1"},
	}, now)
	assert.Contains(t, out, "(overdue)")
	assert.Contains(t, out, "@bob")
	assert.Contains(t, out, "[p1]")

	future := now.Add(time.Hour)
	out = RenderTaskCard(models.Task{ID: "t2", Title: "Ship", DueDate: &future}, now)
	assert.NotContains(t, out, "overdue")
}

func TestRenderTaskDetail(t *testing.T) {
	out := RenderTaskDetail(models.Task{ID: "t1", Title: "Docs", Labels: []string{"p1", "web"}}, now)
	assert.Contains(t, out, "ID:")
	assert.Contains(t, out, "p1, web")
	assert.Contains(t, out, "No description")
}

func TestRenderDescription(t *testing.T) {
	assert.Contains(t, RenderDescription("  ", 40), "No description")
	assert.Contains(t, RenderDescription("ship **today**", 40), "today")
}

func TestRenderNotification(t *testing.T) {
	n := models.Notification{Title: "Assigned", Body: "Docs", Type: models.NotificationTask}

	unread := RenderNotification(n, "5m ago")
	assert.Contains(t, unread, "●")
	assert.Contains(t, unread, "task · 5m ago")
	assert.Contains(t, unread, "Docs")

	n.Read = true
	assert.NotContains(t, RenderNotification(n, "5m ago"), "●")
}

func TestInitMonochrome(t *testing.T) {
	t.Cleanup(func() { Init(config.DefaultTheme()) })
	Init(config.MonochromeTheme())
	assert.Contains(t, RenderCard("hello"), "hello")
	assert.Contains(t, ColoredText("hi", "#FFFFFF"), "hi")
}
